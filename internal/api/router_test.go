package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/layerloom/psdtranslate/internal/storage"
	"github.com/layerloom/psdtranslate/internal/store"
	"github.com/layerloom/psdtranslate/pkg/models"
)

const (
	translateKey = "pt_aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	adminKey     = "pt_bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type routerStore struct {
	store.Store
	keys map[string][]*models.APIKey
}

func (s *routerStore) Ping(context.Context) error { return nil }

func (s *routerStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	return s.keys[prefix], nil
}

func (s *routerStore) UpdateAPIKeyLastUsed(context.Context, uuid.UUID) error { return nil }

func (s *routerStore) ListAPIKeys(context.Context) ([]*models.APIKey, error) { return nil, nil }

type routerCache struct{}

func (routerCache) Ping(context.Context) error { return nil }
func (routerCache) SetJobStatus(context.Context, uuid.UUID, string, time.Duration) error {
	return nil
}
func (routerCache) GetJobStatus(context.Context, uuid.UUID) (string, bool, error) {
	return "", false, nil
}
func (routerCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

type routerObjects struct {
	storage.ObjectStore
}

func (routerObjects) SignUpload(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://bucket.example/upload/" + key, nil
}

func storedKey(t *testing.T, raw string, scopes ...string) *models.APIKey {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.APIKey{ID: uuid.New(), KeyHash: string(hash), KeyPrefix: raw[:8], Scopes: scopes}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	st := &routerStore{keys: map[string][]*models.APIKey{
		translateKey[:8]: {storedKey(t, translateKey, "translate")},
		adminKey[:8]:     {storedKey(t, adminKey, "translate", "admin")},
	}}
	return NewRouter(Dependencies{
		Store:     st,
		Cache:     routerCache{},
		Objects:   routerObjects{},
		UploadTTL: 15 * time.Minute,
	})
}

func doRequest(t *testing.T, router http.Handler, method, path, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{"/api/v1/uploads", "/api/v1/translations", "/api/v1/keys"} {
		rec := doRequest(t, router, http.MethodPost, path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestKeyManagementNeedsAdminScope(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/keys", translateKey)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/keys", adminKey)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitHeadersPresent(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/api/v1/keys", adminKey)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
