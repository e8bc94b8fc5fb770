package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/policy"
	"github.com/cppla/blogapi/utils"
)

type CommentInput struct {
	Content string `json:"content" validate:"required"`
}

// CreateComment attaches a comment to an existing post. Only existence of the
// post is checked; listing comments is where publication matters.
func (s *Service) CreateComment(ctx context.Context, principal *models.Identity, postID uint, in CommentInput) (*models.Comment, error) {
	if principal == nil {
		return nil, Unauthenticated("authentication required")
	}
	in.Content = utils.Sanitize(in.Content)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	comment := models.Comment{PostID: postID, AuthorID: principal.ID, Content: in.Content}
	err := s.store.InTx(ctx, "create comment", func(tx *gorm.DB) error {
		if _, err := findPostOwner(tx, postID); err != nil {
			return err
		}
		return tx.Omit("Author").Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	recordMutation("comment", "create")
	return s.reloadComment(ctx, comment.ID)
}

// ListPostComments returns the comments of a published post, oldest first.
func (s *Service) ListPostComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	db := s.store.DB(ctx)
	post, err := findPostOwner(db, postID)
	if err != nil {
		return nil, s.store.wrap("list comments", err)
	}
	if !post.IsPublished() {
		return nil, NotFound("post not found")
	}

	comments := []models.Comment{}
	err = db.Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, s.store.wrap("list comments", err)
	}
	return comments, nil
}

func (s *Service) UpdateComment(ctx context.Context, principal *models.Identity, postID, commentID uint, in CommentInput) (*models.Comment, error) {
	if principal == nil {
		return nil, Unauthenticated("authentication required")
	}
	in.Content = utils.Sanitize(in.Content)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	err := s.store.InTx(ctx, "update comment", func(tx *gorm.DB) error {
		comment, err := findOwnedComment(tx, principal, postID, commentID, "update")
		if err != nil {
			return err
		}
		return tx.Model(comment).Updates(map[string]interface{}{"content": in.Content}).Error
	})
	if err != nil {
		return nil, err
	}
	recordMutation("comment", "update")
	return s.reloadComment(ctx, commentID)
}

func (s *Service) DeleteComment(ctx context.Context, principal *models.Identity, postID, commentID uint) error {
	if principal == nil {
		return Unauthenticated("authentication required")
	}
	err := s.store.InTx(ctx, "delete comment", func(tx *gorm.DB) error {
		comment, err := findOwnedComment(tx, principal, postID, commentID, "delete")
		if err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, comment.ID).Error
	})
	if err != nil {
		return err
	}
	recordMutation("comment", "delete")
	return nil
}

// ListMyComments lists principal's comments, newest first.
func (s *Service) ListMyComments(ctx context.Context, principal *models.Identity, page, limit int) (*Page[models.Comment], error) {
	if principal == nil {
		return nil, Unauthenticated("authentication required")
	}
	req, err := NormalizePage(page, limit, s.pages)
	if err != nil {
		return nil, err
	}
	q := s.store.DB(ctx).Model(&models.Comment{}).Where("comments.author_id = ?", principal.ID)
	out, err := Paginate[models.Comment](q, req, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Author").Order("comments.created_at DESC, comments.id DESC")
	})
	if err != nil {
		return nil, s.store.wrap("list my comments", err)
	}
	return out, nil
}

// findOwnedComment checks, in order, the post, the comment within that post and
// principal's right to change it.
func findOwnedComment(tx *gorm.DB, principal *models.Identity, postID, commentID uint, action string) (*models.Comment, error) {
	if _, err := findPostOwner(tx, postID); err != nil {
		return nil, err
	}
	var comment models.Comment
	err := tx.Where("id = ? AND post_id = ?", commentID, postID).Take(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("comment not found")
	}
	if err != nil {
		return nil, err
	}
	if !policy.CanMutate(principal, comment.AuthorID) {
		return nil, Forbidden("not enough permissions to " + action + " this comment")
	}
	return &comment, nil
}

func (s *Service) reloadComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.store.DB(ctx).Preload("Author").Take(&comment, id).Error; err != nil {
		return nil, s.store.wrap("reload comment", err)
	}
	return &comment, nil
}
