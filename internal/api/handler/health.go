package handler

import (
	"net/http"

	"github.com/layerloom/psdtranslate/internal/api/response"
	"github.com/layerloom/psdtranslate/internal/cache"
	"github.com/layerloom/psdtranslate/internal/store"
)

// HealthHandler reports liveness of the service and its backing stores.
type HealthHandler struct {
	store store.Store
	cache cache.Cache
}

func NewHealthHandler(s store.Store, c cache.Cache) *HealthHandler {
	return &HealthHandler{store: s, cache: c}
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok", Database: "ok", Cache: "ok"}
	code := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		status.Status = "degraded"
		status.Database = "unreachable"
		code = http.StatusServiceUnavailable
	}
	if err := h.cache.Ping(r.Context()); err != nil {
		status.Status = "degraded"
		status.Cache = "unreachable"
		code = http.StatusServiceUnavailable
	}

	if code != http.StatusOK {
		response.Error(w, code, "DEGRADED", "One or more dependencies are unreachable", status)
		return
	}
	response.JSON(w, status)
}
