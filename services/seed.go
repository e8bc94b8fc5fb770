package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/models"
)

var defaultStatuses = []models.Status{
	{Name: models.StatusDraft, Description: "Draft post"},
	{Name: models.StatusPublished, Description: "Published post"},
}

// Seed inserts the draft and published statuses and, when a password is
// configured and no admin exists yet, the admin account. It is safe to rerun.
func (s *Service) Seed(ctx context.Context, admin config.AdminSection) error {
	return s.store.InTx(ctx, "seed", func(tx *gorm.DB) error {
		for _, st := range defaultStatuses {
			st := st
			err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
				Create(&st).Error
			if err != nil {
				return err
			}
		}

		if admin.Password == "" {
			s.log.Warn("admin password not configured, skipping admin seed")
			return nil
		}
		var existing models.User
		err := tx.Where("role = ?", models.RoleAdmin).Take(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := s.hasher.Hash(admin.Password)
		if err != nil {
			return err
		}
		user := models.User{Username: admin.Username, Email: admin.Email, PasswordHash: hash, Role: models.RoleAdmin}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		s.log.Info("admin account created", zap.String("username", user.Username))
		return nil
	})
}
