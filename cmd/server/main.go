package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/layerloom/psdtranslate/internal/api"
	"github.com/layerloom/psdtranslate/internal/api/handler"
	"github.com/layerloom/psdtranslate/internal/cache"
	"github.com/layerloom/psdtranslate/internal/config"
	"github.com/layerloom/psdtranslate/internal/orchestrator"
	"github.com/layerloom/psdtranslate/internal/psapi"
	"github.com/layerloom/psdtranslate/internal/storage"
	"github.com/layerloom/psdtranslate/internal/store"
	"github.com/layerloom/psdtranslate/internal/sweeper"
	"github.com/layerloom/psdtranslate/internal/translator"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	db := store.NewPostgresStore(pool)
	logger.Info("database connected")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("redis connected")

	objects, err := storage.NewGCSStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("create object store: %w", err)
	}
	defer objects.Close()

	trans, err := translator.NewTranslator(ctx, cfg.Translator)
	if err != nil {
		return fmt.Errorf("create translator: %w", err)
	}
	logger.Info("translator configured", "provider", trans.Name())

	if err := bootstrapAPIKey(ctx, db, cfg.Server.BootstrapAPIKey, logger); err != nil {
		return fmt.Errorf("bootstrap api key: %w", err)
	}

	svc := orchestrator.NewService(orchestrator.Deps{
		Store:      db,
		Cache:      redisCache,
		Objects:    objects,
		Vendor:     psapi.NewClient(cfg.Vendor),
		Tokens:     psapi.NewIMSAuthenticator(cfg.Vendor),
		Translator: trans,
		Pipeline:   cfg.Pipeline,
		Storage:    cfg.Storage,
		Logger:     logger,
	})

	router := api.NewRouter(api.Dependencies{
		Store:        db,
		Cache:        redisCache,
		Objects:      objects,
		Orchestrator: svc,
		UploadTTL:    cfg.Storage.UploadTTL,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sw := sweeper.New(db, objects, cfg.Pipeline.SweepInterval, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := sw.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// bootstrapAPIKey seeds an admin key from the environment when the key table
// is empty, so a fresh deployment can mint real keys through the API.
func bootstrapAPIKey(ctx context.Context, db store.Store, rawKey string, logger *slog.Logger) error {
	if rawKey == "" {
		return nil
	}

	count, err := db.CountAPIKeys(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if len(rawKey) < 16 {
		return fmt.Errorf("bootstrap key must be at least 16 characters")
	}

	key, err := handler.APIKeyFromRaw("bootstrap", rawKey, []string{"translate", "admin"})
	if err != nil {
		return err
	}
	if err := db.CreateAPIKey(ctx, key); err != nil {
		return err
	}
	logger.Info("bootstrap api key created", "key_prefix", key.KeyPrefix)
	return nil
}
