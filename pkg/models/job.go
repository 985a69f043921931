package models

import (
	"time"

	"github.com/google/uuid"
)

// Job statuses mirror the orchestration pipeline stages. Only Ready, NoOp,
// and Failed are terminal; a failed job is resubmitted as a new job, never
// resumed.
const (
	JobStatusPending          = "pending"
	JobStatusAuthenticating   = "authenticating"
	JobStatusFetchingManifest = "fetching_manifest"
	JobStatusExtractingLayers = "extracting_layers"
	JobStatusTranslating      = "translating"
	JobStatusSubmittingEdit   = "submitting_edit"
	JobStatusPollingEdit      = "polling_edit"
	JobStatusVerifying        = "verifying"
	JobStatusReady            = "ready"
	JobStatusNoOp             = "no_op"
	JobStatusFailed           = "failed"
)

// IsTerminal reports whether a job status is a terminal state.
func IsTerminal(status string) bool {
	return status == JobStatusReady || status == JobStatusNoOp || status == JobStatusFailed
}

// Job tracks one translation request through the pipeline. The API returns a
// job id on POST /api/v1/translations; clients poll
// GET /api/v1/translations/{job_id} until the status is terminal.
// Exactly one of SourceKey and SourceURL is set: SourceKey points at an
// object already resident in the bucket, SourceURL at an externally hosted
// source file.
type Job struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	FileName     string     `db:"file_name"     json:"file_name"`
	SourceKey    *string    `db:"source_key"    json:"source_key,omitempty"`
	SourceURL    *string    `db:"source_url"    json:"source_url,omitempty"`
	TargetLang   string     `db:"target_lang"   json:"target_lang"`
	OutputKey    string     `db:"output_key"    json:"output_key"`
	Status       string     `db:"status"        json:"status"`
	StatusDetail *string    `db:"status_detail" json:"status_detail,omitempty"`
	DownloadURL  *string    `db:"download_url"  json:"download_url,omitempty"`
	OutputSize   *int64     `db:"output_size"   json:"output_size,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}
