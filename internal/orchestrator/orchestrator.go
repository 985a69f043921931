// Package orchestrator drives a translation job from submission to delivery:
// authenticate, fetch the layer manifest, translate every text layer, submit
// the edit, verify the output, and hand back a signed download URL.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/layerloom/psdtranslate/internal/cache"
	"github.com/layerloom/psdtranslate/internal/config"
	"github.com/layerloom/psdtranslate/internal/psapi"
	"github.com/layerloom/psdtranslate/internal/retry"
	"github.com/layerloom/psdtranslate/internal/storage"
	"github.com/layerloom/psdtranslate/internal/store"
	"github.com/layerloom/psdtranslate/internal/translator"
	"github.com/layerloom/psdtranslate/pkg/models"
)

// statusCacheTTL bounds how long a cached job status outlives its last update.
const statusCacheTTL = 30 * time.Minute

// VendorClient is the slice of the document service the orchestrator needs.
type VendorClient interface {
	RequestManifest(ctx context.Context, token, sourceURL string) (*psapi.JobStatus, string, error)
	SubmitTextEdits(ctx context.Context, token, sourceURL string, edits []psapi.TextEdit, destURL string) (string, error)
	Poll(ctx context.Context, token, handleURL, kind string, maxAttempts int) (*psapi.JobStatus, error)
}

// Deps carries everything a Service needs. All fields are required except
// Logger, which defaults to slog.Default().
type Deps struct {
	Store      store.Store
	Cache      cache.Cache
	Objects    storage.ObjectStore
	Vendor     VendorClient
	Tokens     psapi.TokenProvider
	Translator translator.Translator
	Pipeline   config.PipelineConfig
	Storage    config.StorageConfig
	Logger     *slog.Logger
}

// Service owns job submission and the background pipeline run for each job.
type Service struct {
	store      store.Store
	cache      cache.Cache
	objects    storage.ObjectStore
	vendor     VendorClient
	tokens     psapi.TokenProvider
	translator translator.Translator
	pipeline   config.PipelineConfig
	storageCfg config.StorageConfig
	logger     *slog.Logger

	// swapped out in tests to skip the real delays
	sleep func(ctx context.Context, d time.Duration) error
}

func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      deps.Store,
		cache:      deps.Cache,
		objects:    deps.Objects,
		vendor:     deps.Vendor,
		tokens:     deps.Tokens,
		translator: deps.Translator,
		pipeline:   deps.Pipeline,
		storageCfg: deps.Storage,
		logger:     logger,
		sleep:      retry.Sleep,
	}
}

// SubmitRequest describes one translation to run. Exactly one of SourceKey
// and SourceURL must be set; callers validate before submitting.
type SubmitRequest struct {
	FileName   string
	SourceKey  *string
	SourceURL  *string
	TargetLang string
}

// Submit persists a pending job and dispatches the pipeline in the background.
// The returned job is what the API hands to the client for polling.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.Job, error) {
	job := &models.Job{
		ID:         uuid.New(),
		FileName:   req.FileName,
		SourceKey:  req.SourceKey,
		SourceURL:  req.SourceURL,
		TargetLang: req.TargetLang,
		OutputKey:  storage.OutputKey(req.FileName),
		Status:     models.JobStatusPending,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := s.cache.SetJobStatus(ctx, job.ID, job.Status, statusCacheTTL); err != nil {
		s.logger.Warn("failed to cache job status", "job_id", job.ID, "error", err)
	}

	go s.run(job)

	return job, nil
}

// run executes the pipeline for one job. It owns its own context so an HTTP
// request finishing does not cancel the work.
func (s *Service) run(job *models.Job) {
	ctx := context.Background()
	log := s.logger.With("job_id", job.ID, "file_name", job.FileName, "target_lang", job.TargetLang)

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panic", "panic", r)
			s.markFailed(ctx, job.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	log.Info("pipeline started")

	if err := s.setStatus(ctx, job.ID, models.JobStatusAuthenticating); err != nil {
		log.Error("status update failed", "error", err)
		return
	}
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		log.Error("authentication failed", "error", err)
		s.markFailed(ctx, job.ID, fmt.Sprintf("authentication failed: %v", err))
		return
	}

	sourceURL, err := s.resolveSource(ctx, job)
	if err != nil {
		log.Error("source resolution failed", "error", err)
		s.markFailed(ctx, job.ID, fmt.Sprintf("source file unavailable: %v", err))
		return
	}

	if err := s.setStatus(ctx, job.ID, models.JobStatusFetchingManifest); err != nil {
		log.Error("status update failed", "error", err)
		return
	}
	manifest, err := s.fetchManifest(ctx, token, sourceURL)
	if err != nil {
		log.Error("manifest fetch failed", "error", err)
		s.markFailed(ctx, job.ID, fmt.Sprintf("manifest fetch failed: %v", err))
		return
	}

	if err := s.setStatus(ctx, job.ID, models.JobStatusExtractingLayers); err != nil {
		log.Error("status update failed", "error", err)
		return
	}
	// A manifest with no outputs is malformed, not text-free; no_op is only
	// for a real layer tree that carries no text.
	if manifest == nil || len(manifest.Outputs) == 0 {
		log.Error("manifest missing outputs")
		s.markFailed(ctx, job.ID, psapi.ErrManifestShape.Error())
		return
	}
	textLayers := psapi.FindTextLayers(manifest.Outputs[0].Layers)
	if len(textLayers) == 0 {
		log.Info("no text layers found, nothing to translate")
		if err := s.setStatus(ctx, job.ID, models.JobStatusNoOp,
			store.WithStatusDetail("no text layers; nothing to translate")); err != nil {
			log.Error("status update failed", "error", err)
		}
		return
	}
	log.Info("text layers extracted", "count", len(textLayers))

	if err := s.setStatus(ctx, job.ID, models.JobStatusTranslating); err != nil {
		log.Error("status update failed", "error", err)
		return
	}
	edits, err := s.translateLayers(ctx, textLayers, job.TargetLang)
	if err != nil {
		log.Error("translation failed", "error", err)
		s.markFailed(ctx, job.ID, fmt.Sprintf("translation failed: %v", err))
		return
	}

	if err := s.setStatus(ctx, job.ID, models.JobStatusSubmittingEdit); err != nil {
		log.Error("status update failed", "error", err)
		return
	}
	destURL, err := s.objects.SignUpload(ctx, job.OutputKey, psapi.ContentTypePhotoshop, s.storageCfg.UploadTTL)
	if err != nil {
		log.Error("output url signing failed", "error", err)
		s.markFailed(ctx, job.ID, fmt.Sprintf("output url signing failed: %v", err))
		return
	}
	handle, err := s.vendor.SubmitTextEdits(ctx, token, sourceURL, edits, destURL)
	if err != nil {
		log.Error("edit submission failed", "error", err)
		s.markFailed(ctx, job.ID, fmt.Sprintf("edit submission failed: %v", err))
		return
	}

	if err := s.setStatus(ctx, job.ID, models.JobStatusPollingEdit); err != nil {
		log.Error("status update failed", "error", err)
		return
	}
	if _, err := s.vendor.Poll(ctx, token, handle, psapi.PollKindEdit, psapi.EditPollAttempts); err != nil {
		log.Error("edit polling failed", "error", err)
		s.markFailed(ctx, job.ID, fmt.Sprintf("edit failed: %v", err))
		return
	}

	if err := s.setStatus(ctx, job.ID, models.JobStatusVerifying); err != nil {
		log.Error("status update failed", "error", err)
		return
	}
	size, err := s.verifyOutput(ctx, job.OutputKey)
	if err != nil {
		log.Error("output verification failed", "error", err)
		s.markFailed(ctx, job.ID, err.Error())
		return
	}

	downloadURL, err := s.objects.SignDownload(ctx, job.OutputKey, s.pipeline.DownloadTTL,
		fmt.Sprintf("attachment; filename=%q", job.OutputKey))
	if err != nil {
		log.Error("download url signing failed", "error", err)
		s.markFailed(ctx, job.ID, fmt.Sprintf("download url signing failed: %v", err))
		return
	}

	if err := s.setStatus(ctx, job.ID, models.JobStatusReady, store.WithResult(downloadURL, size)); err != nil {
		log.Error("status update failed", "error", err)
		return
	}

	if err := s.store.SchedulePendingDeletion(ctx, &models.PendingDeletion{
		ID:          uuid.New(),
		ObjectKey:   job.OutputKey,
		DeleteAfter: time.Now().Add(s.pipeline.DeleteGrace),
	}); err != nil {
		// the job already succeeded; a missed cleanup is logged, not fatal
		log.Error("failed to schedule output deletion", "error", err)
	}

	log.Info("pipeline completed", "output_key", job.OutputKey, "output_size", size)
}

// resolveSource turns the job's source reference into a URL the vendor can
// read: bucket keys are signed for reading, external URLs pass through.
func (s *Service) resolveSource(ctx context.Context, job *models.Job) (string, error) {
	if job.SourceKey != nil {
		return s.objects.SignDownload(ctx, *job.SourceKey, s.storageCfg.SourceReadTTL, "")
	}
	if job.SourceURL != nil {
		return *job.SourceURL, nil
	}
	return "", fmt.Errorf("job has neither source key nor source url")
}

func (s *Service) fetchManifest(ctx context.Context, token, sourceURL string) (*psapi.JobStatus, error) {
	res, handle, err := s.vendor.RequestManifest(ctx, token, sourceURL)
	if err != nil {
		return nil, err
	}
	if handle != "" {
		return s.vendor.Poll(ctx, token, handle, psapi.PollKindManifest, psapi.ManifestPollAttempts)
	}
	return res, nil
}

// translateLayers translates each text layer in manifest order, pausing after
// every call so the translation provider is not hammered. Any single failure
// aborts the job; partial translations are never submitted.
func (s *Service) translateLayers(ctx context.Context, textLayers []psapi.Layer, targetLang string) ([]psapi.TextEdit, error) {
	edits := make([]psapi.TextEdit, 0, len(textLayers))
	for _, layer := range textLayers {
		content := ""
		if layer.Text != nil {
			content = layer.Text.Content
		}
		translated, err := s.translator.Translate(ctx, content, targetLang)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", layer.Name, err)
		}
		edits = append(edits, psapi.TextEdit{
			Name: layer.Name,
			Text: psapi.TextContent{Content: translated},
		})

		if s.pipeline.TranslateDelay > 0 {
			if err := s.sleep(ctx, s.pipeline.TranslateDelay); err != nil {
				return nil, err
			}
		}
	}
	return edits, nil
}

// verifyOutput waits for the bucket to settle, then checks that the vendor
// actually wrote a plausible file. Sub-100-byte outputs are error pages or
// empty writes, not documents.
func (s *Service) verifyOutput(ctx context.Context, outputKey string) (int64, error) {
	if s.pipeline.SettleDelay > 0 {
		if err := s.sleep(ctx, s.pipeline.SettleDelay); err != nil {
			return 0, err
		}
	}

	exists, err := s.objects.Exists(ctx, outputKey)
	if err != nil {
		return 0, fmt.Errorf("output existence check failed: %v", err)
	}
	if !exists {
		return 0, fmt.Errorf("output file was not written")
	}

	size, err := s.objects.Size(ctx, outputKey)
	if err != nil {
		return 0, fmt.Errorf("output size check failed: %v", err)
	}
	if size < s.pipeline.MinOutputSize {
		return 0, fmt.Errorf("output file truncated: %d bytes", size)
	}
	return size, nil
}

func (s *Service) setStatus(ctx context.Context, jobID uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	if err := s.store.UpdateJobStatus(ctx, jobID, status, opts...); err != nil {
		return err
	}
	if err := s.cache.SetJobStatus(ctx, jobID, status, statusCacheTTL); err != nil {
		s.logger.Warn("failed to cache job status", "job_id", jobID, "error", err)
	}
	return nil
}

func (s *Service) markFailed(ctx context.Context, jobID uuid.UUID, message string) {
	if err := s.setStatus(ctx, jobID, models.JobStatusFailed, store.WithErrorMessage(message)); err != nil {
		s.logger.Error("failed to mark job failed", "job_id", jobID, "error", err)
	}
}
