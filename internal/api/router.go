// Package api wires the HTTP surface: router, middleware, handlers.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/layerloom/psdtranslate/internal/api/handler"
	"github.com/layerloom/psdtranslate/internal/api/middleware"
	"github.com/layerloom/psdtranslate/internal/cache"
	"github.com/layerloom/psdtranslate/internal/orchestrator"
	"github.com/layerloom/psdtranslate/internal/storage"
	"github.com/layerloom/psdtranslate/internal/store"
)

// Dependencies carries everything the router needs to build handlers.
type Dependencies struct {
	Store        store.Store
	Cache        cache.Cache
	Objects      storage.ObjectStore
	Orchestrator *orchestrator.Service
	UploadTTL    time.Duration
}

// NewRouter builds the chi router with all routes and middleware attached.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	auth := middleware.NewAuth(deps.Store)
	rateLimit := middleware.NewRateLimit(deps.Cache, 0)

	healthHandler := handler.NewHealthHandler(deps.Store, deps.Cache)
	translationHandler := handler.NewTranslationHandler(deps.Orchestrator, deps.Store, deps.Cache)
	uploadHandler := handler.NewUploadHandler(deps.Objects, deps.UploadTTL)
	keyHandler := handler.NewAPIKeyHandler(deps.Store)

	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(rateLimit.Limit)

		r.Route("/uploads", func(r chi.Router) {
			r.Use(auth.RequireScope("translate"))
			r.Post("/", uploadHandler.Sign)
		})

		r.Route("/translations", func(r chi.Router) {
			r.Use(auth.RequireScope("translate"))
			r.Post("/", translationHandler.Submit)
			r.Get("/{id}", translationHandler.Get)
		})

		r.Route("/keys", func(r chi.Router) {
			r.Use(auth.RequireScope("admin"))
			r.Post("/", keyHandler.Create)
			r.Get("/", keyHandler.List)
			r.Delete("/{id}", keyHandler.Revoke)
		})
	})

	return r
}
