package services

import (
	"context"

	"github.com/cppla/blogapi/models"
)

// Stats are the public site counters.
type Stats struct {
	UserCount    int64 `json:"user_count"`
	PostCount    int64 `json:"post_count"`
	CommentCount int64 `json:"comment_count"`
	TagCount     int64 `json:"tag_count"`
}

// PostStats are the counters of one post.
type PostStats struct {
	LikesCount    int64 `json:"likes_count"`
	CommentsCount int64 `json:"comments_count"`
}

// Stats counts users, published posts, comments on published posts and tags.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	db := s.store.DB(ctx)
	published := publishedStatusIDs(db)
	var out Stats
	if err := db.Model(&models.User{}).Count(&out.UserCount).Error; err != nil {
		return nil, s.store.wrap("stats", err)
	}
	if err := db.Model(&models.Post{}).Where("status_id IN (?)", published).Count(&out.PostCount).Error; err != nil {
		return nil, s.store.wrap("stats", err)
	}
	err := db.Model(&models.Comment{}).
		Joins("JOIN posts ON posts.id = comments.post_id").
		Where("posts.status_id IN (?)", published).
		Count(&out.CommentCount).Error
	if err != nil {
		return nil, s.store.wrap("stats", err)
	}
	if err := db.Model(&models.Tag{}).Count(&out.TagCount).Error; err != nil {
		return nil, s.store.wrap("stats", err)
	}
	return &out, nil
}

// PostStats returns the counters of a post principal can see.
func (s *Service) PostStats(ctx context.Context, principal *models.Identity, id uint) (*PostStats, error) {
	post, err := s.GetPost(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	out := PostStats{LikesCount: post.LikesCount}
	if err := s.store.DB(ctx).Model(&models.Comment{}).Where("post_id = ?", id).Count(&out.CommentsCount).Error; err != nil {
		return nil, s.store.wrap("post stats", err)
	}
	return &out, nil
}
