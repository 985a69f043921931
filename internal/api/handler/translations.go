package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/layerloom/psdtranslate/internal/api/response"
	"github.com/layerloom/psdtranslate/internal/cache"
	"github.com/layerloom/psdtranslate/internal/orchestrator"
	"github.com/layerloom/psdtranslate/internal/store"
	"github.com/layerloom/psdtranslate/pkg/models"
)

// Submitter accepts validated translation requests; the orchestrator
// implements it.
type Submitter interface {
	Submit(ctx context.Context, req orchestrator.SubmitRequest) (*models.Job, error)
}

// TranslationHandler handles translation job submission and status lookup.
type TranslationHandler struct {
	service Submitter
	store   store.Store
	cache   cache.Cache
}

func NewTranslationHandler(svc Submitter, s store.Store, c cache.Cache) *TranslationHandler {
	return &TranslationHandler{service: svc, store: s, cache: c}
}

type submitTranslationRequest struct {
	FileName   string  `json:"file_name"`
	FileKey    *string `json:"file_key,omitempty"`
	FileURL    *string `json:"file_url,omitempty"`
	TargetLang string  `json:"target_lang"`
}

// Submit handles POST /api/v1/translations. It validates the request,
// persists a pending job, kicks off the pipeline, and answers 202 with the
// job for the client to poll.
func (h *TranslationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitTranslationRequest
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

	hasKey := req.FileKey != nil && *req.FileKey != ""
	hasURL := req.FileURL != nil && *req.FileURL != ""
	if hasKey == hasURL {
		response.Error(w, http.StatusBadRequest,
			"VALIDATION_ERROR", "exactly one of file_key and file_url must be set", nil)
		return
	}
	if hasURL && !strings.HasPrefix(*req.FileURL, "http://") && !strings.HasPrefix(*req.FileURL, "https://") {
		response.Error(w, http.StatusBadRequest,
			"VALIDATION_ERROR", "file_url must be an http(s) URL", nil)
		return
	}

	targetLang, err := normalizeTargetLang(req.TargetLang)
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			"VALIDATION_ERROR", "target_lang is not a recognized language code", nil)
		return
	}

	submit := orchestrator.SubmitRequest{
		FileName:   req.FileName,
		TargetLang: targetLang,
	}
	if hasKey {
		submit.SourceKey = req.FileKey
	} else {
		submit.SourceURL = req.FileURL
	}

	job, err := h.service.Submit(r.Context(), submit)
	if err != nil {
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to create translation job", nil)
		return
	}

	response.Accepted(w, job)
}

// jobStatusSnapshot is the in-flight poll response served from the cache.
// Terminal jobs always read the store so the response carries the full record
// (download URL, sizes, error message).
type jobStatusSnapshot struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// Get handles GET /api/v1/translations/{id}. Polling clients hit the cached
// status while the pipeline runs; the store is consulted on a cache miss,
// a cache error, or once the job is terminal.
func (h *TranslationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			"VALIDATION_ERROR", "Invalid job ID", nil)
		return
	}

	if status, ok, err := h.cache.GetJobStatus(r.Context(), id); err == nil && ok && !models.IsTerminal(status) {
		response.JSON(w, jobStatusSnapshot{ID: id, Status: status})
		return
	}

	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound,
				"NOT_FOUND", "Translation job not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "Failed to fetch translation job", nil)
		return
	}

	response.JSON(w, job)
}

// normalizeTargetLang validates a BCP 47 language code and normalizes it to
// the uppercase form the translation providers expect.
func normalizeTargetLang(code string) (string, error) {
	if code == "" {
		return "", errors.New("empty language code")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(tag.String()), nil
}
