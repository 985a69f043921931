package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/layerloom/psdtranslate/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
	CountAPIKeys(ctx context.Context) (int, error)

	SchedulePendingDeletion(ctx context.Context, d *models.PendingDeletion) error
	DuePendingDeletions(ctx context.Context, now time.Time, limit int) ([]*models.PendingDeletion, error)
	MarkDeletionDone(ctx context.Context, id uuid.UUID) error
	MarkDeletionFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

type jobUpdateParams struct {
	ErrorMessage *string
	StatusDetail *string
	DownloadURL  *string
	OutputSize   *int64
}

type JobUpdateOption func(*jobUpdateParams)

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithStatusDetail(detail string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.StatusDetail = &detail
	}
}

func WithResult(downloadURL string, size int64) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.DownloadURL = &downloadURL
		p.OutputSize = &size
	}
}

// ApplyJobUpdateOptions applies update options to an in-memory job. The
// Postgres store folds the same options into its UPDATE statement; in-memory
// implementations use this.
func ApplyJobUpdateOptions(job *models.Job, opts ...JobUpdateOption) {
	p := &jobUpdateParams{}
	for _, opt := range opts {
		opt(p)
	}
	if p.ErrorMessage != nil {
		job.ErrorMessage = p.ErrorMessage
	}
	if p.StatusDetail != nil {
		job.StatusDetail = p.StatusDetail
	}
	if p.DownloadURL != nil {
		job.DownloadURL = p.DownloadURL
	}
	if p.OutputSize != nil {
		job.OutputSize = p.OutputSize
	}
}
