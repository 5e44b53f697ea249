package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Fixed width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

func (r *SQLiteRepo) CreateRun(ctx context.Context, run *Run) (string, error) {
	const q = `
		INSERT INTO ingest_runs (id, started_at, status, phase, authors_file, works_file)
		VALUES (?, ?, ?, ?, ?, ?)`

	id := uuid.NewString()
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, q, id, formatTime(started), run.Status, string(run.Phase), run.AuthorsFile, run.WorksFile); err != nil {
		return "", fmt.Errorf("create ingest run: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepo) UpdateRun(ctx context.Context, run *Run) error {
	const q = `
		UPDATE ingest_runs SET
			finished_at = ?,
			status = ?,
			authors_read = ?,
			authors_saved = ?,
			authors_skipped = ?,
			books_read = ?,
			books_saved = ?,
			books_skipped = ?,
			books_discarded = ?,
			error = ?
		WHERE id = ?`

	var finished sql.NullString
	if run.FinishedAt != nil {
		finished = sql.NullString{String: formatTime(*run.FinishedAt), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q, finished, run.Status,
		run.Authors.Read, run.Authors.Saved, run.Authors.Skipped,
		run.Books.Read, run.Books.Saved, run.Books.Skipped, run.Books.Discarded,
		run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("update ingest run %s: %w", run.ID, err)
	}
	return nil
}

func (r *SQLiteRepo) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	const q = `
		SELECT id, started_at, finished_at, status, phase, authors_file, works_file,
			authors_read, authors_saved, authors_skipped,
			books_read, books_saved, books_skipped, books_discarded, error
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			phase    string
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.Status, &phase,
			&run.AuthorsFile, &run.WorksFile,
			&run.Authors.Read, &run.Authors.Saved, &run.Authors.Skipped,
			&run.Books.Read, &run.Books.Saved, &run.Books.Skipped, &run.Books.Discarded,
			&run.Error); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		run.Phase = Phase(phase)
		if run.StartedAt, err = time.Parse(sqliteTimeLayout, started); err != nil {
			return nil, fmt.Errorf("ingest run %s started_at: %w", run.ID, err)
		}
		if finished.Valid {
			t, err := time.Parse(sqliteTimeLayout, finished.String)
			if err != nil {
				return nil, fmt.Errorf("ingest run %s finished_at: %w", run.ID, err)
			}
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}
