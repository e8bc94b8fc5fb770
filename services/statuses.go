package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/policy"
)

type CreateStatusInput struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=255"`
}

// resolveStatusID returns id when it exists, or the draft status when id is nil.
func resolveStatusID(tx *gorm.DB, id *uint) (uint, error) {
	if id != nil {
		if err := statusExists(tx, *id); err != nil {
			return 0, err
		}
		return *id, nil
	}
	var draft models.Status
	err := tx.Select("id").Where("name = ?", models.StatusDraft).Take(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, NotFound("status not found")
	}
	if err != nil {
		return 0, err
	}
	return draft.ID, nil
}

func statusExists(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Status{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return NotFound("status not found")
	}
	return nil
}

func (s *Service) ListStatuses(ctx context.Context) ([]models.Status, error) {
	statuses := []models.Status{}
	if err := s.store.DB(ctx).Order("id ASC").Find(&statuses).Error; err != nil {
		return nil, s.store.wrap("list statuses", err)
	}
	return statuses, nil
}

// CreateStatus is reserved to admins.
func (s *Service) CreateStatus(ctx context.Context, principal *models.Identity, in CreateStatusInput) (*models.Status, error) {
	if principal == nil {
		return nil, Unauthenticated("authentication required")
	}
	if !policy.CanManageStatuses(principal) {
		return nil, Forbidden("only administrators can create statuses")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	status := models.Status{Name: in.Name, Description: in.Description}
	err := s.store.InTx(ctx, "create status", func(tx *gorm.DB) error {
		err := tx.Create(&status).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Conflict("status already exists")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	recordMutation("status", "create")
	return &status, nil
}
