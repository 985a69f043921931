package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layerloom/psdtranslate/internal/psapi"
	"github.com/layerloom/psdtranslate/internal/storage"
)

type stubObjects struct {
	storage.ObjectStore
	gotKey         string
	gotContentType string
	gotTTL         time.Duration
	err            error
}

func (s *stubObjects) SignUpload(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	s.gotKey = key
	s.gotContentType = contentType
	s.gotTTL = ttl
	if s.err != nil {
		return "", s.err
	}
	return "https://bucket.example/upload/" + key, nil
}

func TestSignUpload(t *testing.T) {
	objects := &stubObjects{}
	h := NewUploadHandler(objects, 15*time.Minute)
	fixed := time.UnixMilli(1700000000000)
	h.now = func() time.Time { return fixed }

	req := httptest.NewRequest(http.MethodPost, "/uploads",
		bytes.NewBufferString(`{"file_name":"My Banner.psd"}`))
	rec := httptest.NewRecorder()
	h.Sign(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data signUploadResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "1700000000000-my-banner.psd", body.Data.FileKey)
	assert.Equal(t, "https://bucket.example/upload/1700000000000-my-banner.psd", body.Data.UploadURL)
	assert.Equal(t, fixed.Add(15*time.Minute).Unix(), body.Data.ExpiresAt.Unix())

	assert.Equal(t, psapi.ContentTypePhotoshop, objects.gotContentType)
	assert.Equal(t, 15*time.Minute, objects.gotTTL)
}

func TestSignUploadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing file name", `{}`},
		{"not a psd", `{"file_name":"photo.jpg"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUploadHandler(&stubObjects{}, 15*time.Minute)
			req := httptest.NewRequest(http.MethodPost, "/uploads", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			h.Sign(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
