// Package policy decides who may see and change content. It never touches storage;
// callers pass the facts (principal, owner, publication state) in.
package policy

import (
	"gorm.io/gorm"

	"github.com/cppla/blogapi/models"
)

// CanView reports whether principal may read a post owned by authorID.
// Anonymous principals see published posts only; admins see everything;
// everyone else sees published posts plus their own.
func CanView(principal *models.Identity, authorID uint, published bool) bool {
	if published {
		return true
	}
	if principal == nil {
		return false
	}
	return principal.IsAdmin() || principal.ID == authorID
}

// CanViewPost applies CanView to a post whose Status is loaded.
func CanViewPost(principal *models.Identity, post *models.Post) bool {
	return CanView(principal, post.AuthorID, post.IsPublished())
}

// CanMutate reports whether principal may update or delete something owned by ownerID.
func CanMutate(principal *models.Identity, ownerID uint) bool {
	if principal == nil {
		return false
	}
	return principal.IsAdmin() || principal.ID == ownerID
}

// CanFilterByStatus is a coarse role gate: admins and authors may list posts by
// status name. Authors are not restricted to their own posts here.
func CanFilterByStatus(principal *models.Identity) bool {
	if principal == nil {
		return false
	}
	return principal.Role == models.RoleAdmin || principal.Role == models.RoleAuthor
}

// CanManageStatuses reports whether principal may create statuses. Admin only.
func CanManageStatuses(principal *models.Identity) bool {
	return principal.IsAdmin()
}

// CanManageUsers reports whether principal may delete accounts other than its own.
func CanManageUsers(principal *models.Identity) bool {
	return principal.IsAdmin()
}

// VisibleScope returns a gorm scope restricting a posts query to what principal may read.
// published must select the ids of the "published" status.
func VisibleScope(principal *models.Identity, published *gorm.DB) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		switch {
		case principal.IsAdmin():
			return q
		case principal == nil:
			return q.Where("posts.status_id IN (?)", published)
		default:
			return q.Where("(posts.author_id = ? OR posts.status_id IN (?))", principal.ID, published)
		}
	}
}
