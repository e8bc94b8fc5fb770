package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/policy"
)

// LikePost records principal's like. The unique (post_id, user_id) index is what
// rejects a second like, also under concurrent requests.
func (s *Service) LikePost(ctx context.Context, principal *models.Identity, postID uint) (*models.Like, error) {
	if principal == nil {
		return nil, Unauthenticated("authentication required")
	}
	like := models.Like{PostID: postID, UserID: principal.ID}
	err := s.store.InTx(ctx, "like post", func(tx *gorm.DB) error {
		if err := requireVisiblePost(tx, principal, postID); err != nil {
			return err
		}
		err := tx.Omit("User").Create(&like).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Conflict("post already liked")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	recordMutation("like", "create")
	return &like, nil
}

// UnlikePost removes principal's like; no like to remove is NotFound. Visibility is
// not checked so a like on a post that went back to draft can still be withdrawn.
func (s *Service) UnlikePost(ctx context.Context, principal *models.Identity, postID uint) error {
	if principal == nil {
		return Unauthenticated("authentication required")
	}
	err := s.store.InTx(ctx, "unlike post", func(tx *gorm.DB) error {
		if _, err := findPostOwner(tx, postID); err != nil {
			return err
		}
		res := tx.Where("post_id = ? AND user_id = ?", postID, principal.ID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NotFound("post not liked")
		}
		return nil
	})
	if err != nil {
		return err
	}
	recordMutation("like", "delete")
	return nil
}

func requireVisiblePost(tx *gorm.DB, principal *models.Identity, postID uint) error {
	post, err := findPostOwner(tx, postID)
	if err != nil {
		return err
	}
	if !policy.CanViewPost(principal, post) {
		return NotFound("post not found")
	}
	return nil
}
