package models

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Status is a named publication state. Only "published" has visibility meaning.
type Status struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Description string `gorm:"size:255" json:"description"`
}
