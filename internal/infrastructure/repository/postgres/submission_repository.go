package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
)

// SubmissionRepository stores submission records. Status updates are
// compare-and-update on the version column, which serializes concurrent
// writers on the same record without cross-record locking.
type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SubmissionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	owner_provider TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	status TEXT NOT NULL,
	upload_url TEXT NOT NULL,
	version BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
CREATE INDEX IF NOT EXISTS idx_submissions_owner ON submissions(owner_provider, owner_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) Create(ctx context.Context, submission *domain.Submission) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO submissions (
	id, owner_provider, owner_id, status, upload_url, version, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		submission.ID, string(submission.Account.Provider), submission.Account.ID,
		string(submission.Status), submission.UploadURL, submission.Version,
		submission.CreatedAt, submission.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, owner_provider, owner_id, status, upload_url, version, created_at, updated_at
FROM submissions
WHERE id = $1
`, id)

	submission, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSubmissionNotFound, "get submission", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan submission: %w", err)
	}
	return submission, nil
}

// UpdateStatus sets the status iff the stored version still matches. A
// version mismatch on an existing record comes back as ErrStaleSubmission so
// callers can reload and decide.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus, version int64) (*domain.Submission, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE submissions
SET status = $2, version = version + 1, updated_at = $3
WHERE id = $1 AND version = $4
RETURNING id, owner_provider, owner_id, status, upload_url, version, created_at, updated_at
`, id, string(status), time.Now().UTC(), version)

	submission, err := scanSubmission(row)
	if err == nil {
		return submission, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update submission status: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check submission existence: %w", err)
	}
	if !exists {
		return nil, domain.WrapError(domain.ErrSubmissionNotFound, "update submission status", fmt.Errorf("id %s", id))
	}
	return nil, domain.WrapError(domain.ErrStaleSubmission, "update submission status", fmt.Errorf("id %s version %d", id, version))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*domain.Submission, error) {
	var submission domain.Submission
	var provider, status string

	err := row.Scan(
		&submission.ID, &provider, &submission.Account.ID, &status,
		&submission.UploadURL, &submission.Version, &submission.CreatedAt, &submission.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	submission.Account.Provider = domain.AccountProvider(provider)
	submission.Status = domain.SubmissionStatus(status)
	return &submission, nil
}
