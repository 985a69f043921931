package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/layerloom/psdtranslate/internal/api/response"
	"github.com/layerloom/psdtranslate/internal/store"
	"github.com/layerloom/psdtranslate/pkg/models"
)

// APIKeyHandler manages API keys. All routes require the admin scope.
type APIKeyHandler struct {
	store store.Store
}

func NewAPIKeyHandler(s store.Store) *APIKeyHandler {
	return &APIKeyHandler{store: s}
}

type createKeyRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

type createKeyResponse struct {
	*models.APIKey
	Key string `json:"key"`
}

var validScopes = map[string]bool{
	"translate": true,
	"admin":     true,
}

// Create handles POST /api/v1/keys. The raw key appears in this response and
// nowhere else; only its bcrypt hash is stored.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Invalid JSON in request body", nil)
		return
	}

	if req.Name == "" {
		response.Error(w, http.StatusBadRequest,
			"VALIDATION_ERROR", "name is required", nil)
		return
	}
	if len(req.Scopes) == 0 {
		req.Scopes = []string{"translate"}
	}
	for _, s := range req.Scopes {
		if !validScopes[s] {
			response.Error(w, http.StatusBadRequest,
				"VALIDATION_ERROR", fmt.Sprintf("unknown scope %q", s), nil)
			return
		}
	}

	rawKey, key, err := GenerateAPIKey(req.Name, req.Scopes)
	if err != nil {
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to generate API key", nil)
		return
	}

	if err := h.store.CreateAPIKey(r.Context(), key); err != nil {
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to store API key", nil)
		return
	}

	response.Created(w, createKeyResponse{APIKey: key, Key: rawKey})
}

// List handles GET /api/v1/keys.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to list API keys", nil)
		return
	}
	response.JSON(w, keys)
}

// Revoke handles DELETE /api/v1/keys/{id}.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			"VALIDATION_ERROR", "Invalid API key ID", nil)
		return
	}

	if err := h.store.RevokeAPIKey(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound,
				"NOT_FOUND", "API key not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to revoke API key", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GenerateAPIKey creates a new random key and its storable record. The raw
// key is returned alongside the record and must be shown to the caller now.
func GenerateAPIKey(name string, scopes []string) (string, *models.APIKey, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate key bytes: %w", err)
	}
	rawKey := "pt_" + hex.EncodeToString(buf)

	key, err := APIKeyFromRaw(name, rawKey, scopes)
	if err != nil {
		return "", nil, err
	}
	return rawKey, key, nil
}

// APIKeyFromRaw builds a storable record for a caller-supplied raw key, used
// to seed the bootstrap key at startup.
func APIKeyFromRaw(name, rawKey string, scopes []string) (*models.APIKey, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}
	return &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: rawKey[:8],
		Scopes:    scopes,
	}, nil
}
