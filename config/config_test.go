package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
app:
  port: "9090"
auth:
  jwt_secret: from-file
database:
  driver: sqlite
  path: /tmp/blog.db
pagination:
  default_limit: 20
  max_limit: 50
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret, "environment wins over the file")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 20, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 50, cfg.Pagination.MaxLimit)
	// untouched keys keep their defaults
	assert.Equal(t, 30, cfg.Auth.AccessTokenTTLMinutes)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr())
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadRequiresSecret(t *testing.T) {
	path := writeConfig(t, "app:\n  port: \"8080\"\n")
	t.Setenv("JWT_SECRET", "")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		return AppConfig{
			Auth:       AuthSection{JWTSecret: "s", AccessTokenTTLMinutes: 30},
			Database:   DatabaseSection{Driver: "postgres"},
			Pagination: PaginationSection{DefaultLimit: 10, MaxLimit: 100},
		}
	}
	ok := base()
	require.NoError(t, ok.Validate())

	badDriver := base()
	badDriver.Database.Driver = "oracle"
	assert.Error(t, badDriver.Validate())

	badTTL := base()
	badTTL.Auth.AccessTokenTTLMinutes = 0
	assert.Error(t, badTTL.Validate())

	badPages := base()
	badPages.Pagination.MaxLimit = 5
	assert.Error(t, badPages.Validate())
}

func TestSQLiteDSN(t *testing.T) {
	tests := map[string]string{
		"blog.db":                      "blog.db?_foreign_keys=on",
		"file:x?mode=memory":           "file:x?mode=memory&_foreign_keys=on",
		"blog.db?_foreign_keys=on":     "blog.db?_foreign_keys=on",
		"file:y?cache=shared&_fk=true": "file:y?cache=shared&_fk=true",
	}
	for in, want := range tests {
		assert.Equal(t, want, SQLiteDSN(in), in)
	}
}

func TestOpenDatabaseSQLite(t *testing.T) {
	cfg := DatabaseSection{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "blog.db")}
	db, err := OpenDatabase(cfg, "error", zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	for _, m := range models.AllModels() {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasTable("post_tags"))

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}
