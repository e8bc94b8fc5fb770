package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

const (
	testPassword  = "Secret123"
	adminPassword = "Admin1234"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	handler http.Handler
	db      *gorm.DB
	mr      *miniredis.Miniredis
}

func setupAPI(t *testing.T) *testAPI {
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

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	log := zap.NewNop()
	svc := services.New(services.NewStore(db, log), services.Options{
		Hasher:    utils.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:    utils.NewTokenIssuer("router-secret", 30*time.Minute),
		Blacklist: utils.NewTokenBlacklist(rc),
		Logger:    log,
	})
	require.NoError(t, svc.Seed(context.Background(), config.AdminSection{
		Username: "admin",
		Email:    "admin@example.com",
		Password: adminPassword,
	}))

	cfg := &config.AppConfig{
		App:        config.AppSection{Name: "Blog API", Version: "test", GinMode: "test", AllowedOrigins: []string{"*"}},
		Pagination: config.PaginationSection{DefaultLimit: 10, MaxLimit: 100},
	}
	cache := utils.NewCache(rc, time.Minute, log)
	return &testAPI{handler: SetupRouter(cfg, svc, cache, log), db: db, mr: mr}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

// register creates an account with the given role and returns a bearer token for it.
func (a *testAPI) register(t *testing.T, username, role string) string {
	t.Helper()
	w, _ := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": testPassword,
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return a.login(t, username, testPassword)
}

func (a *testAPI) login(t *testing.T, username, password string) string {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Equal(t, "bearer", res.TokenType)
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func (a *testAPI) statusID(t *testing.T, name string) uint {
	t.Helper()
	var st models.Status
	require.NoError(t, a.db.Where("name = ?", name).Take(&st).Error)
	return st.ID
}

func (a *testAPI) createPost(t *testing.T, token string, statusID uint, tags ...string) models.Post {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/v1/posts", token, map[string]interface{}{
		"title":     gofakeit.Sentence(4),
		"content":   gofakeit.Paragraph(1, 3, 12, " "),
		"status_id": statusID,
		"tags":      tags,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p models.Post
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p
}

func TestInfoHealthAndNotFound(t *testing.T) {
	api := setupAPI(t)

	w, env := api.do(t, http.MethodGet, "/api/v1/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	assert.JSONEq(t, `{"name":"Blog API","version":"test"}`, string(env.Data))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, env = api.do(t, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"healthy"`)

	w, env = api.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, env.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	api := setupAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestAuthFlow(t *testing.T) {
	api := setupAPI(t)
	token := api.register(t, "carol", "")

	w, env := api.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "carol", me.Username)
	assert.Equal(t, models.RoleReader, me.Role)
	assert.NotContains(t, string(env.Data), "password")

	w, env = api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "carol", "password": "Wrong1234"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40101, env.Code)

	w, _ = api.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(t, http.MethodGet, "/api/v1/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40104, env.Code)
}

func TestAuthHeaderErrors(t *testing.T) {
	api := setupAPI(t)

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", 40101},
		{"wrong scheme", "Basic abc", 40102},
		{"empty token", "Bearer ", 40103},
		{"garbage token", "Bearer not.a.jwt", 40105},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			api.handler.ServeHTTP(w, req)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			var env envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Equal(t, tt.code, env.Code)
		})
	}
}

func TestRegisterValidationAndConflict(t *testing.T) {
	api := setupAPI(t)

	w, env := api.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "dave",
		"email":    "not-an-email",
		"password": "weak",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 42201, env.Code)
	var data struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Contains(t, data.Fields, "email")
	assert.Contains(t, data.Fields, "password")

	api.register(t, "dave", "")
	w, env = api.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "dave",
		"email":    "dave2@example.com",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40901, env.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostVisibilityOverHTTP(t *testing.T) {
	api := setupAPI(t)
	author := api.register(t, "erin", "author")
	reader := api.register(t, "frank", "")
	admin := api.login(t, "admin", adminPassword)

	draft := api.createPost(t, author, api.statusID(t, models.StatusDraft))
	published := api.createPost(t, author, api.statusID(t, models.StatusPublished), "go")

	draftPath := fmt.Sprintf("/api/v1/posts/%d", draft.ID)
	w, env := api.do(t, http.MethodGet, draftPath, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40401, env.Code)

	w, _ = api.do(t, http.MethodGet, draftPath, reader, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = api.do(t, http.MethodGet, draftPath, author, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, http.MethodGet, draftPath, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// An invalid token on an optional route reads as anonymous.
	w, _ = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", published.ID), "broken", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(t, http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items       []models.Post `json:"items"`
		Total       int64         `json:"total"`
		Pages       int64         `json:"pages"`
		CurrentPage int           `json:"current_page"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, published.ID, page.Items[0].ID)
	assert.Equal(t, 1, page.CurrentPage)

	w, env = api.do(t, http.MethodGet, "/api/v1/posts?page=abc", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 42201, env.Code)

	w, _ = api.do(t, http.MethodPut, draftPath, reader, map[string]string{"title": "hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(t, http.MethodDelete, draftPath, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLikesOverHTTP(t *testing.T) {
	api := setupAPI(t)
	author := api.register(t, "gina", "author")
	reader := api.register(t, "hank", "")
	post := api.createPost(t, author, api.statusID(t, models.StatusPublished))
	likePath := fmt.Sprintf("/api/v1/posts/%d/like", post.ID)

	w, _ := api.do(t, http.MethodPost, likePath, reader, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := api.do(t, http.MethodPost, likePath, reader, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40901, env.Code)

	w, env = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/with-like", post.ID), reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var withLike struct {
		ID         uint  `json:"id"`
		LikesCount int64 `json:"likes_count"`
		IsLiked    bool  `json:"is_liked"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &withLike))
	assert.Equal(t, post.ID, withLike.ID)
	assert.True(t, withLike.IsLiked)
	assert.Equal(t, int64(1), withLike.LikesCount)

	w, _ = api.do(t, http.MethodDelete, likePath, reader, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(t, http.MethodDelete, likePath, reader, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/likes", post.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"post_id":%d,"likes_count":0}`, post.ID), string(env.Data))
}

func TestCommentsOverHTTP(t *testing.T) {
	api := setupAPI(t)
	author := api.register(t, "ivan", "author")
	other := api.register(t, "judy", "")
	post := api.createPost(t, author, api.statusID(t, models.StatusPublished))
	base := fmt.Sprintf("/api/v1/posts/%d/comments", post.ID)

	w, env := api.do(t, http.MethodPost, base, other, map[string]string{"content": "nice <script>x</script>post"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c models.Comment
	require.NoError(t, json.Unmarshal(env.Data, &c))
	assert.NotContains(t, c.Content, "<script>")

	w, _ = api.do(t, http.MethodPut, fmt.Sprintf("%s/%d", base, c.ID), author, map[string]string{"content": "edited"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(t, http.MethodPut, fmt.Sprintf("%s/%d", base, c.ID), other, map[string]string{"content": "edited"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(t, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Comment
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "edited", list[0].Content)

	w, _ = api.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, c.ID), other, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTagListIsCached(t *testing.T) {
	api := setupAPI(t)
	token := api.register(t, "kate", "author")

	w, _ := api.do(t, http.MethodPost, "/api/v1/tags", token, map[string]string{"name": "golang"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := api.do(t, http.MethodGet, "/api/v1/tags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "golang")
	assert.True(t, api.mr.Exists("cache:tags:list"))

	// Rows written behind the API stay invisible until the cache is invalidated.
	require.NoError(t, api.db.Create(&models.Tag{Name: "hidden"}).Error)
	_, env = api.do(t, http.MethodGet, "/api/v1/tags", "", nil)
	assert.NotContains(t, string(env.Data), "hidden")

	w, _ = api.do(t, http.MethodPost, "/api/v1/tags", token, map[string]string{"name": "golang"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = api.do(t, http.MethodPost, "/api/v1/tags", token, map[string]string{"name": "rust"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, api.mr.Exists("cache:tags:list"))
	_, env = api.do(t, http.MethodGet, "/api/v1/tags", "", nil)
	assert.Contains(t, string(env.Data), "hidden")
}

func TestPostWritesRefreshTagList(t *testing.T) {
	api := setupAPI(t)
	token := api.register(t, "kim", "author")

	w, env := api.do(t, http.MethodGet, "/api/v1/tags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
	require.True(t, api.mr.Exists("cache:tags:list"))

	post := api.createPost(t, token, api.statusID(t, models.StatusPublished), "brandnew")
	_, env = api.do(t, http.MethodGet, "/api/v1/tags", "", nil)
	assert.Contains(t, string(env.Data), "brandnew")

	w, _ = api.do(t, http.MethodPut, fmt.Sprintf("/api/v1/posts/%d", post.ID), token, map[string]interface{}{
		"tags": []string{"fresher"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, env = api.do(t, http.MethodGet, "/api/v1/tags", "", nil)
	assert.Contains(t, string(env.Data), "fresher")
}

func TestPaginationRejectsZero(t *testing.T) {
	api := setupAPI(t)
	for _, q := range []string{"limit=0", "page=0", "limit=101", "page=-1"} {
		w, env := api.do(t, http.MethodGet, "/api/v1/posts?"+q, "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, q)
		assert.Equal(t, 42201, env.Code, q)
	}
	w, _ := api.do(t, http.MethodGet, "/api/v1/posts", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusCreationRequiresAdmin(t *testing.T) {
	api := setupAPI(t)
	author := api.register(t, "leo", "author")
	admin := api.login(t, "admin", adminPassword)

	w, _ := api.do(t, http.MethodPost, "/api/v1/status", author, map[string]string{"name": "archived"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(t, http.MethodPost, "/api/v1/status", admin, map[string]string{"name": "archived", "description": "hidden from lists"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env := api.do(t, http.MethodGet, "/api/v1/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var statuses []models.Status
	require.NoError(t, json.Unmarshal(env.Data, &statuses))
	assert.Len(t, statuses, 3)
}

func TestDeleteAccountCascades(t *testing.T) {
	api := setupAPI(t)
	token := api.register(t, "mia", "author")
	api.createPost(t, token, api.statusID(t, models.StatusPublished))

	w, _ := api.do(t, http.MethodDelete, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var posts int64
	require.NoError(t, api.db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, posts)

	w, _ = api.do(t, http.MethodGet, "/api/v1/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	api := setupAPI(t)
	api.do(t, http.MethodGet, "/api/v1/health", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "blogapi_http_requests_total")
}
