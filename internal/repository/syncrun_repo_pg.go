package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skyops/emptylegs/internal/domain"
)

type SyncRunRepository interface {
	// FailStaleStarted marks STARTED runs older than freshAfter as FAILED
	// with a timed-out error and returns how many were reclaimed.
	FailStaleStarted(ctx context.Context, freshAfter time.Time) (int64, error)
	// CreateStarted inserts a STARTED run unless a fresh STARTED run already
	// exists, in which case it returns domain.ErrSyncInProgress. The NOT
	// EXISTS check alone cannot exclude two concurrent inserts under READ
	// COMMITTED; the sync_runs_single_started unique index is what guarantees
	// a single winner, and the loser's unique violation maps to the same
	// ErrSyncInProgress.
	CreateStarted(ctx context.Context, run *domain.SyncRun, freshAfter time.Time) error
	Finalize(ctx context.Context, run *domain.SyncRun) error
	ListRecent(ctx context.Context, limit int) ([]domain.SyncRun, error)
}

type PGSyncRunRepository struct {
	db *pgxpool.Pool
}

func NewSyncRunRepository(db *pgxpool.Pool) SyncRunRepository {
	return &PGSyncRunRepository{db: db}
}

const syncRunColumns = `id, status, sync_type, triggered_by, deals_found, deals_created, deals_updated, deals_removed, errors, started_at, completed_at`

func (r *PGSyncRunRepository) FailStaleStarted(ctx context.Context, freshAfter time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE sync_runs
		SET status='FAILED', errors = array_append(errors, 'timed out'), completed_at = now()
		WHERE status='STARTED' AND started_at < $1`, freshAfter)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *PGSyncRunRepository) CreateStarted(ctx context.Context, run *domain.SyncRun, freshAfter time.Time) error {
	run.Status = domain.SyncRunStarted
	err := r.db.QueryRow(ctx, `
		INSERT INTO sync_runs (status, sync_type, triggered_by, errors)
		SELECT 'STARTED', $1, $2, '{}'
		WHERE NOT EXISTS (
			SELECT 1 FROM sync_runs WHERE status='STARTED' AND started_at >= $3
		)
		RETURNING id, started_at`, run.SyncType, run.TriggeredBy, freshAfter).
		Scan(&run.ID, &run.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return domain.ErrSyncInProgress
	}
	return err
}

// isUniqueViolation reports whether err is a Postgres unique violation
// (SQLSTATE 23505), the losing side of a race on a unique index.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PGSyncRunRepository) Finalize(ctx context.Context, run *domain.SyncRun) error {
	return r.db.QueryRow(ctx, `
		UPDATE sync_runs
		SET status=$2, deals_found=$3, deals_created=$4, deals_updated=$5, deals_removed=$6, errors=$7, completed_at=now()
		WHERE id=$1
		RETURNING completed_at`,
		run.ID, run.Status, run.DealsFound, run.DealsCreated, run.DealsUpdated, run.DealsRemoved, run.Errors).
		Scan(&run.CompletedAt)
}

func (r *PGSyncRunRepository) ListRecent(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	rows, err := r.db.Query(ctx, `SELECT `+syncRunColumns+` FROM sync_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]domain.SyncRun, 0)
	for rows.Next() {
		var sr domain.SyncRun
		if err := rows.Scan(&sr.ID, &sr.Status, &sr.SyncType, &sr.TriggeredBy, &sr.DealsFound, &sr.DealsCreated, &sr.DealsUpdated, &sr.DealsRemoved, &sr.Errors, &sr.StartedAt, &sr.CompletedAt); err != nil {
			return nil, err
		}
		runs = append(runs, sr)
	}
	return runs, rows.Err()
}

var _ SyncRunRepository = (*PGSyncRunRepository)(nil)
