package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/layerloom/psdtranslate/internal/api/response"
	"github.com/layerloom/psdtranslate/internal/psapi"
	"github.com/layerloom/psdtranslate/internal/storage"
)

// UploadHandler signs direct-to-bucket upload URLs so source files never
// transit this service.
type UploadHandler struct {
	objects storage.ObjectStore
	ttl     time.Duration
	now     func() time.Time
}

func NewUploadHandler(objects storage.ObjectStore, ttl time.Duration) *UploadHandler {
	return &UploadHandler{objects: objects, ttl: ttl, now: time.Now}
}

type signUploadRequest struct {
	FileName string `json:"file_name"`
}

type signUploadResponse struct {
	UploadURL string    `json:"upload_url"`
	FileKey   string    `json:"file_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sign handles POST /api/v1/uploads. The returned file_key is what the client
// passes back when submitting the translation.
func (h *UploadHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req signUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Invalid JSON in request body", nil)
		return
	}

	if req.FileName == "" {
		response.Error(w, http.StatusBadRequest,
			"VALIDATION_ERROR", "file_name is required", nil)
		return
	}
	if !strings.HasSuffix(strings.ToLower(req.FileName), ".psd") {
		response.Error(w, http.StatusBadRequest,
			"VALIDATION_ERROR", "file_name must end with .psd", nil)
		return
	}

	now := h.now()
	key := storage.UniqueKey(req.FileName, now)

	url, err := h.objects.SignUpload(r.Context(), key, psapi.ContentTypePhotoshop, h.ttl)
	if err != nil {
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to sign upload URL", nil)
		return
	}

	response.JSON(w, signUploadResponse{
		UploadURL: url,
		FileKey:   key,
		ExpiresAt: now.Add(h.ttl),
	})
}
