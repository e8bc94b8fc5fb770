package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/policy"
)

// likesCountSelect computes likes_count on every read so it can never drift from the likes table.
const likesCountSelect = "posts.*, (SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count"

const postOrder = "posts.created_at DESC, posts.id DESC"

// publishedStatusIDs selects the id of the "published" status as a subquery.
func publishedStatusIDs(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Status{}).
		Select("id").
		Where("name = ?", models.StatusPublished)
}

// visiblePosts starts a posts query already restricted to what principal may read.
func visiblePosts(db *gorm.DB, principal *models.Identity) *gorm.DB {
	return db.Model(&models.Post{}).Scopes(policy.VisibleScope(principal, publishedStatusIDs(db)))
}

// withPostDetails adds likes_count and the associations every post payload carries.
func withPostDetails(q *gorm.DB) *gorm.DB {
	return q.Select(likesCountSelect).
		Preload("Author").
		Preload("Status").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") })
}

func orderedPostDetails(q *gorm.DB) *gorm.DB {
	return withPostDetails(q).Order(postOrder)
}

// searchScope matches term case-insensitively as a substring of title or content.
// LIKE wildcards inside term are matched literally.
func searchScope(term string) func(*gorm.DB) *gorm.DB {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("(LOWER(posts.title) LIKE ? ESCAPE '!' OR LOWER(posts.content) LIKE ? ESCAPE '!')", pattern, pattern)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// loadPost fetches a post with its details, regardless of visibility.
func loadPost(db *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	err := withPostDetails(db.Model(&models.Post{})).Where("posts.id = ?", id).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("post not found")
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// findPostOwner loads the row needed for existence, ownership and publication checks.
func findPostOwner(tx *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	err := tx.Preload("Status").Select("id", "author_id", "status_id").Where("id = ?", id).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("post not found")
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}
