package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/utils"
)

const testPassword = "Secret123"

type fixture struct {
	svc       *Service
	db        *gorm.DB
	draft     uint
	published uint
}

func setupService(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))

	svc := New(NewStore(db, zap.NewNop()), Options{
		Hasher: utils.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens: utils.NewTokenIssuer("test-secret", 30*time.Minute),
	})
	require.NoError(t, svc.Seed(context.Background(), config.AdminSection{}))

	f := &fixture{svc: svc, db: db}
	var statuses []models.Status
	require.NoError(t, db.Find(&statuses).Error)
	for _, st := range statuses {
		switch st.Name {
		case models.StatusDraft:
			f.draft = st.ID
		case models.StatusPublished:
			f.published = st.ID
		}
	}
	require.NotZero(t, f.draft)
	require.NotZero(t, f.published)
	return f
}

// user registers an account and returns its identity. Admins are promoted directly in storage.
func (f *fixture) user(t *testing.T, username string, role models.Role) *models.Identity {
	t.Helper()
	registerRole := string(role)
	if role == models.RoleAdmin {
		registerRole = ""
	}
	u, err := f.svc.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
		Role:     registerRole,
	})
	require.NoError(t, err)
	if role == models.RoleAdmin {
		require.NoError(t, f.db.Model(u).Update("role", string(models.RoleAdmin)).Error)
		u.Role = models.RoleAdmin
	}
	return u.Identity()
}

func (f *fixture) post(t *testing.T, author *models.Identity, title string, statusID uint, tags ...string) *models.Post {
	t.Helper()
	p, err := f.svc.CreatePost(context.Background(), author, CreatePostInput{
		Title:    title,
		Content:  "content of " + title,
		StatusID: &statusID,
		Tags:     tags,
	})
	require.NoError(t, err)
	return p
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}

func tagNames(p *models.Post) []string {
	names := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		names = append(names, tag.Name)
	}
	return names
}

func count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
