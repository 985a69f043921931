package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/layerloom/psdtranslate/internal/store"
	"github.com/layerloom/psdtranslate/pkg/models"
)

type keyStore struct {
	store.Store
	created   *models.APIKey
	listed    []*models.APIKey
	revoked   uuid.UUID
	revokeErr error
}

func (s *keyStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.created = key
	return nil
}

func (s *keyStore) ListAPIKeys(context.Context) ([]*models.APIKey, error) {
	return s.listed, nil
}

func (s *keyStore) RevokeAPIKey(_ context.Context, id uuid.UUID) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	s.revoked = id
	return nil
}

func TestGenerateAPIKey(t *testing.T) {
	raw, key, err := GenerateAPIKey("ci", []string{"translate"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, "pt_"))
	assert.Equal(t, raw[:8], key.KeyPrefix)
	assert.Equal(t, []string{"translate"}, key.Scopes)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(raw)))

	raw2, _, err := GenerateAPIKey("ci", []string{"translate"})
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2)
}

func TestCreateKeyShowsRawKeyOnce(t *testing.T) {
	st := &keyStore{}
	h := NewAPIKeyHandler(st)

	req := httptest.NewRequest(http.MethodPost, "/keys",
		bytes.NewBufferString(`{"name":"ci","scopes":["translate","admin"]}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, st.created)

	var body struct {
		Data struct {
			Key       string   `json:"key"`
			KeyPrefix string   `json:"key_prefix"`
			Scopes    []string `json:"scopes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.Data.Key, "pt_"))
	assert.Equal(t, body.Data.Key[:8], body.Data.KeyPrefix)
	assert.Equal(t, []string{"translate", "admin"}, body.Data.Scopes)

	// only the hash is stored
	assert.NotContains(t, st.created.KeyHash, body.Data.Key)
}

func TestCreateKeyDefaultsScope(t *testing.T) {
	st := &keyStore{}
	h := NewAPIKeyHandler(st)

	req := httptest.NewRequest(http.MethodPost, "/keys", bytes.NewBufferString(`{"name":"ci"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"translate"}, st.created.Scopes)
}

func TestCreateKeyValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"scopes":["translate"]}`},
		{"unknown scope", `{"name":"ci","scopes":["superuser"]}`},
		{"invalid json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAPIKeyHandler(&keyStore{})
			req := httptest.NewRequest(http.MethodPost, "/keys", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			h.Create(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRevokeKey(t *testing.T) {
	st := &keyStore{}
	h := NewAPIKeyHandler(st)
	id := uuid.New()

	r := chi.NewRouter()
	r.Delete("/keys/{id}", h.Revoke)
	req := httptest.NewRequest(http.MethodDelete, "/keys/"+id.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, st.revoked)
}

func TestRevokeKeyNotFound(t *testing.T) {
	h := NewAPIKeyHandler(&keyStore{revokeErr: store.ErrNotFound})

	r := chi.NewRouter()
	r.Delete("/keys/{id}", h.Revoke)
	req := httptest.NewRequest(http.MethodDelete, "/keys/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
