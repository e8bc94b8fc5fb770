package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogapi/models"
)

const maxTagName = 50

// normalizeTagNames trims and de-duplicates names, keeping the first occurrence order.
func normalizeTagNames(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	names := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" || len(name) > maxTagName {
			return nil, Validation("validation failed", map[string]string{
				"tags": "tag names must be between 1 and 50 characters",
			})
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

// getOrCreateTags resolves names by exact match, inserting the missing ones.
// The unique index on tags.name decides races; the row is always re-read.
func getOrCreateTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&models.Tag{Name: name}).Error
		if err != nil {
			return nil, err
		}
		var tag models.Tag
		if err := tx.Where("name = ?", name).Take(&tag).Error; err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// CreateTag stores a new tag; a taken name is a conflict.
func (s *Service) CreateTag(ctx context.Context, principal *models.Identity, name string) (*models.Tag, error) {
	if principal == nil {
		return nil, Unauthenticated("authentication required")
	}
	names, err := normalizeTagNames([]string{name})
	if err != nil {
		return nil, Validation("validation failed", map[string]string{"name": "must be between 1 and 50 characters"})
	}

	tag := models.Tag{Name: names[0]}
	err = s.store.InTx(ctx, "create tag", func(tx *gorm.DB) error {
		err := tx.Create(&tag).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Conflict("tag already exists")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	recordMutation("tag", "create")
	return &tag, nil
}

func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := s.store.DB(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, s.store.wrap("list tags", err)
	}
	return tags, nil
}
