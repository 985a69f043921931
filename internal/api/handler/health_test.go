package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/layerloom/psdtranslate/internal/store"
)

type pingStore struct {
	store.Store
	err error
}

func (s pingStore) Ping(context.Context) error { return s.err }

type pingCache struct {
	err error
}

func (c pingCache) Ping(context.Context) error { return c.err }
func (c pingCache) SetJobStatus(context.Context, uuid.UUID, string, time.Duration) error {
	return nil
}
func (c pingCache) GetJobStatus(context.Context, uuid.UUID) (string, bool, error) {
	return "", false, nil
}
func (c pingCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

func TestHealthOK(t *testing.T) {
	h := NewHealthHandler(pingStore{}, pingCache{})
	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthDegraded(t *testing.T) {
	h := NewHealthHandler(pingStore{err: errors.New("down")}, pingCache{})
	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unreachable")
}
