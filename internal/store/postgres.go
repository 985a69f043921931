package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/layerloom/psdtranslate/pkg/models"
)

const (
	tableJobs             = "jobs"
	tableAPIKeys          = "api_keys"
	tablePendingDeletions = "pending_deletions"
)

// PostgresStore implements the Store interface using pgx/v5 with a squirrel
// statement builder.
type PostgresStore struct {
	pool *pgxpool.Pool
	qb   sq.StatementBuilderType
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		qb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	if job.CreatedAt.IsZero() {
		now := time.Now().UTC()
		job.CreatedAt = now
		job.UpdatedAt = now
	}
	query, args, err := s.qb.
		Insert(tableJobs).
		Columns("id", "file_name", "source_key", "source_url", "target_lang",
			"output_key", "status", "created_at", "updated_at").
		Values(job.ID, job.FileName, job.SourceKey, job.SourceURL, job.TargetLang,
			job.OutputKey, job.Status, job.CreatedAt, job.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create job query: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

var jobColumns = []string{
	"id", "file_name", "source_key", "source_url", "target_lang", "output_key",
	"status", "status_detail", "download_url", "output_size", "error_message",
	"started_at", "completed_at", "created_at", "updated_at",
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query, args, err := s.qb.
		Select(jobColumns...).
		From(tableJobs).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get job query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	job, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByNameLax[models.Job])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return job, nil
}

// validTransitions encodes the pipeline state machine. Every non-terminal
// state may fail; only extraction may short-circuit to no_op.
var validTransitions = map[string][]string{
	models.JobStatusPending:          {models.JobStatusAuthenticating, models.JobStatusFailed},
	models.JobStatusAuthenticating:   {models.JobStatusFetchingManifest, models.JobStatusFailed},
	models.JobStatusFetchingManifest: {models.JobStatusExtractingLayers, models.JobStatusFailed},
	models.JobStatusExtractingLayers: {models.JobStatusTranslating, models.JobStatusNoOp, models.JobStatusFailed},
	models.JobStatusTranslating:      {models.JobStatusSubmittingEdit, models.JobStatusFailed},
	models.JobStatusSubmittingEdit:   {models.JobStatusPollingEdit, models.JobStatusFailed},
	models.JobStatusPollingEdit:      {models.JobStatusVerifying, models.JobStatusFailed},
	models.JobStatusVerifying:        {models.JobStatusReady, models.JobStatusFailed},
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}

	valid := false
	for _, a := range validTransitions[currentStatus] {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	now := time.Now().UTC()
	update := s.qb.
		Update(tableJobs).
		Set("status", status).
		Set("updated_at", now).
		Where(sq.Eq{"id": id})

	if currentStatus == models.JobStatusPending {
		update = update.Set("started_at", now)
	}
	if models.IsTerminal(status) {
		update = update.Set("completed_at", now)
	}
	if params.StatusDetail != nil {
		update = update.Set("status_detail", *params.StatusDetail)
	}
	if params.ErrorMessage != nil {
		update = update.Set("error_message", *params.ErrorMessage)
	}
	if params.DownloadURL != nil {
		update = update.Set("download_url", *params.DownloadURL)
	}
	if params.OutputSize != nil {
		update = update.Set("output_size", *params.OutputSize)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build update job query: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

// --- API Keys ---

var apiKeyColumns = []string{
	"id", "name", "key_hash", "key_prefix", "scopes",
	"last_used_at", "deleted_at", "created_at", "updated_at",
}

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	query, args, err := s.qb.
		Select(apiKeyColumns...).
		From(tableAPIKeys).
		Where(sq.Eq{"key_prefix": prefix, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get api key query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}

	keys, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[models.APIKey])
	if err != nil {
		return nil, fmt.Errorf("scan api keys: %w", err)
	}
	return keys, nil
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	query, args, err := s.qb.
		Update(tableAPIKeys).
		Set("last_used_at", sq.Expr("NOW()")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update api key query: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	if key.CreatedAt.IsZero() {
		now := time.Now().UTC()
		key.CreatedAt = now
		key.UpdatedAt = now
	}
	query, args, err := s.qb.
		Insert(tableAPIKeys).
		Columns("id", "name", "key_hash", "key_prefix", "scopes", "created_at", "updated_at").
		Values(key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create api key query: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	query, args, err := s.qb.
		Select(apiKeyColumns...).
		From(tableAPIKeys).
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list api keys query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	keys, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[models.APIKey])
	if err != nil {
		return nil, fmt.Errorf("scan api keys: %w", err)
	}
	return keys, nil
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	query, args, err := s.qb.
		Update(tableAPIKeys).
		Set("deleted_at", sq.Expr("NOW()")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke api key query: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountAPIKeys(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM api_keys WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return count, nil
}

// --- Pending Deletions ---

func (s *PostgresStore) SchedulePendingDeletion(ctx context.Context, d *models.PendingDeletion) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	query, args, err := s.qb.
		Insert(tablePendingDeletions).
		Columns("id", "object_key", "delete_after", "created_at").
		Values(d.ID, d.ObjectKey, d.DeleteAfter, d.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build schedule deletion query: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("schedule pending deletion: %w", err)
	}
	return nil
}

func (s *PostgresStore) DuePendingDeletions(ctx context.Context, now time.Time, limit int) ([]*models.PendingDeletion, error) {
	query, args, err := s.qb.
		Select("id", "object_key", "delete_after", "attempts", "last_error", "deleted_at", "created_at").
		From(tablePendingDeletions).
		Where(sq.And{
			sq.Eq{"deleted_at": nil},
			sq.LtOrEq{"delete_after": now},
		}).
		OrderBy("delete_after ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build due deletions query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("due pending deletions: %w", err)
	}

	dels, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[models.PendingDeletion])
	if err != nil {
		return nil, fmt.Errorf("scan pending deletions: %w", err)
	}
	return dels, nil
}

func (s *PostgresStore) MarkDeletionDone(ctx context.Context, id uuid.UUID) error {
	query, args, err := s.qb.
		Update(tablePendingDeletions).
		Set("deleted_at", sq.Expr("NOW()")).
		Set("attempts", sq.Expr("attempts + 1")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark deletion done query: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark deletion done: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkDeletionFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	query, args, err := s.qb.
		Update(tablePendingDeletions).
		Set("attempts", sq.Expr("attempts + 1")).
		Set("last_error", lastError).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark deletion failed query: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark deletion failed: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
