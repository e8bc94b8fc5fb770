package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/policy"
	"github.com/cppla/blogapi/utils"
)

type CreatePostInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
	// StatusID defaults to the draft status.
	StatusID *uint    `json:"status_id"`
	Tags     []string `json:"tags"`
}

// UpdatePostInput changes only the supplied fields. A non-nil Tags replaces the
// whole tag set; an empty list clears it.
type UpdatePostInput struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	StatusID *uint     `json:"status_id"`
	Tags     *[]string `json:"tags"`
}

type ListPostsInput struct {
	Page   int
	Limit  int
	Search string
}

// PostWithLikeStatus is a post plus whether the requester liked it.
type PostWithLikeStatus struct {
	models.Post
	IsLiked bool `json:"is_liked"`
}

func (s *Service) CreatePost(ctx context.Context, principal *models.Identity, in CreatePostInput) (*models.Post, error) {
	if principal == nil {
		return nil, Unauthenticated("authentication required")
	}
	in.Title = utils.StripTags(in.Title)
	in.Content = utils.Sanitize(in.Content)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	names, err := normalizeTagNames(in.Tags)
	if err != nil {
		return nil, err
	}

	var postID uint
	err = s.store.InTx(ctx, "create post", func(tx *gorm.DB) error {
		statusID, err := resolveStatusID(tx, in.StatusID)
		if err != nil {
			return err
		}
		tags, err := getOrCreateTags(tx, names)
		if err != nil {
			return err
		}

		post := models.Post{
			Title:    in.Title,
			Content:  in.Content,
			AuthorID: principal.ID,
			StatusID: &statusID,
		}
		if err := tx.Omit(clause.Associations).Create(&post).Error; err != nil {
			return err
		}
		if len(tags) > 0 {
			if err := tx.Model(&post).Association("Tags").Append(tags); err != nil {
				return err
			}
		}
		postID = post.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordMutation("post", "create")
	return s.reloadPost(ctx, postID)
}

func (s *Service) UpdatePost(ctx context.Context, principal *models.Identity, id uint, in UpdatePostInput) (*models.Post, error) {
	if principal == nil {
		return nil, Unauthenticated("authentication required")
	}
	updates := map[string]interface{}{}
	fields := map[string]string{}
	if in.Title != nil {
		title := utils.StripTags(*in.Title)
		switch {
		case title == "":
			fields["title"] = "is required"
		case utf8.RuneCountInString(title) > 200:
			fields["title"] = "must be at most 200 characters"
		}
		updates["title"] = title
	}
	if in.Content != nil {
		content := utils.Sanitize(*in.Content)
		if content == "" {
			fields["content"] = "is required"
		}
		updates["content"] = content
	}
	if len(fields) > 0 {
		return nil, Validation("validation failed", fields)
	}
	var names []string
	if in.Tags != nil {
		var err error
		if names, err = normalizeTagNames(*in.Tags); err != nil {
			return nil, err
		}
	}

	err := s.store.InTx(ctx, "update post", func(tx *gorm.DB) error {
		post, err := findPostOwner(tx, id)
		if err != nil {
			return err
		}
		if !policy.CanMutate(principal, post.AuthorID) {
			return Forbidden("not enough permissions to update this post")
		}
		if in.StatusID != nil {
			if err := statusExists(tx, *in.StatusID); err != nil {
				return err
			}
			updates["status_id"] = *in.StatusID
		}

		updates["updated_at"] = time.Now()
		if err := tx.Model(&models.Post{ID: post.ID}).Updates(updates).Error; err != nil {
			return err
		}

		if in.Tags != nil {
			assoc := tx.Model(&models.Post{ID: post.ID}).Association("Tags")
			if len(names) == 0 {
				return assoc.Clear()
			}
			tags, err := getOrCreateTags(tx, names)
			if err != nil {
				return err
			}
			return assoc.Replace(tags)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordMutation("post", "update")
	return s.reloadPost(ctx, id)
}

// DeletePost removes the post; comments, likes and tag links go with it through foreign keys.
func (s *Service) DeletePost(ctx context.Context, principal *models.Identity, id uint) error {
	if principal == nil {
		return Unauthenticated("authentication required")
	}
	err := s.store.InTx(ctx, "delete post", func(tx *gorm.DB) error {
		post, err := findPostOwner(tx, id)
		if err != nil {
			return err
		}
		if !policy.CanMutate(principal, post.AuthorID) {
			return Forbidden("not enough permissions to delete this post")
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
	if err != nil {
		return err
	}
	recordMutation("post", "delete")
	return nil
}

// GetPost returns the post when principal may see it. Hidden posts are reported as missing.
func (s *Service) GetPost(ctx context.Context, principal *models.Identity, id uint) (*models.Post, error) {
	post, err := loadPost(s.store.DB(ctx), id)
	if err != nil {
		return nil, s.store.wrap("get post", err)
	}
	if !policy.CanViewPost(principal, post) {
		return nil, NotFound("post not found")
	}
	return post, nil
}

func (s *Service) GetPostWithLikeStatus(ctx context.Context, principal *models.Identity, id uint) (*PostWithLikeStatus, error) {
	post, err := s.GetPost(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	out := &PostWithLikeStatus{Post: *post}
	if principal != nil {
		var n int64
		err := s.store.DB(ctx).Model(&models.Like{}).
			Where("post_id = ? AND user_id = ?", id, principal.ID).
			Count(&n).Error
		if err != nil {
			return nil, s.store.wrap("get post like status", err)
		}
		out.IsLiked = n > 0
	}
	return out, nil
}

// PostLikesCount returns the live like count of a visible post.
func (s *Service) PostLikesCount(ctx context.Context, principal *models.Identity, id uint) (int64, error) {
	post, err := s.GetPost(ctx, principal, id)
	if err != nil {
		return 0, err
	}
	return post.LikesCount, nil
}

// ListPosts lists visible posts, newest first. Search narrows the visible set only.
func (s *Service) ListPosts(ctx context.Context, principal *models.Identity, in ListPostsInput) (*Page[models.Post], error) {
	req, err := NormalizePage(in.Page, in.Limit, s.pages)
	if err != nil {
		return nil, err
	}
	q := visiblePosts(s.store.DB(ctx), principal)
	if term := strings.TrimSpace(in.Search); term != "" {
		q = q.Scopes(searchScope(term))
	}
	page, err := Paginate[models.Post](q, req, orderedPostDetails)
	if err != nil {
		return nil, s.store.wrap("list posts", err)
	}
	return page, nil
}

// ListPostsByTag lists posts carrying the tag. With a status name the visibility
// rule is replaced by an explicit role gate.
func (s *Service) ListPostsByTag(ctx context.Context, principal *models.Identity, tagID uint, status string, page, limit int) (*Page[models.Post], error) {
	req, err := NormalizePage(page, limit, s.pages)
	if err != nil {
		return nil, err
	}
	db := s.store.DB(ctx)
	if err := db.Select("id").Take(&models.Tag{}, tagID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("tag not found")
		}
		return nil, s.store.wrap("list posts by tag", err)
	}

	var q *gorm.DB
	if status = strings.TrimSpace(status); status != "" {
		if !policy.CanFilterByStatus(principal) {
			return nil, Forbidden("not enough permissions to filter by status")
		}
		statusIDs := db.Session(&gorm.Session{NewDB: true}).Model(&models.Status{}).Select("id").Where("name = ?", status)
		q = db.Model(&models.Post{}).Where("posts.status_id IN (?)", statusIDs)
	} else {
		q = visiblePosts(db, principal)
	}
	q = q.Joins("JOIN post_tags ON post_tags.post_id = posts.id").Where("post_tags.tag_id = ?", tagID)

	out, err := Paginate[models.Post](q, req, orderedPostDetails)
	if err != nil {
		return nil, s.store.wrap("list posts by tag", err)
	}
	return out, nil
}

// ListMyPosts lists every post of principal, drafts included.
func (s *Service) ListMyPosts(ctx context.Context, principal *models.Identity, page, limit int) (*Page[models.Post], error) {
	if principal == nil {
		return nil, Unauthenticated("authentication required")
	}
	req, err := NormalizePage(page, limit, s.pages)
	if err != nil {
		return nil, err
	}
	q := s.store.DB(ctx).Model(&models.Post{}).Where("posts.author_id = ?", principal.ID)
	out, err := Paginate[models.Post](q, req, orderedPostDetails)
	if err != nil {
		return nil, s.store.wrap("list my posts", err)
	}
	return out, nil
}

// ListMyLikedPosts lists posts principal liked that principal can still see.
func (s *Service) ListMyLikedPosts(ctx context.Context, principal *models.Identity, page, limit int) (*Page[models.Post], error) {
	if principal == nil {
		return nil, Unauthenticated("authentication required")
	}
	req, err := NormalizePage(page, limit, s.pages)
	if err != nil {
		return nil, err
	}
	q := visiblePosts(s.store.DB(ctx), principal).
		Joins("JOIN likes AS my_likes ON my_likes.post_id = posts.id AND my_likes.user_id = ?", principal.ID)
	out, err := Paginate[models.Post](q, req, orderedPostDetails)
	if err != nil {
		return nil, s.store.wrap("list liked posts", err)
	}
	return out, nil
}

// reloadPost reads a post after its transaction committed.
func (s *Service) reloadPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := loadPost(s.store.DB(ctx), id)
	if err != nil {
		return nil, s.store.wrap("reload post", err)
	}
	return post, nil
}
