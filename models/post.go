package models

import "time"

// Post represents an article written by an author.
//
// LikesCount is never stored. It is filled by a correlated count subquery
// whenever posts are read through the services package.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	AuthorID   uint      `gorm:"index;not null" json:"author_id"`
	StatusID   *uint     `gorm:"index" json:"status_id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	LikesCount int64     `gorm:"->;-:migration" json:"likes_count"`
	Author     *User     `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author,omitempty"`
	Status     *Status   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"status"`
	Tags       []Tag     `gorm:"many2many:post_tags;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"tags"`
	Comments   []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Likes      []Like    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// IsPublished reports whether the post carries the "published" status.
// Status must be preloaded.
func (p *Post) IsPublished() bool {
	return p.Status != nil && p.Status.Name == StatusPublished
}

// AllModels lists every table in migration order.
func AllModels() []interface{} {
	return []interface{}{&User{}, &Status{}, &Tag{}, &Post{}, &Comment{}, &Like{}}
}
