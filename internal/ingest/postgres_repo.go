package ingest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateRun(ctx context.Context, run *Run) (string, error) {
	const sql = `
		INSERT INTO ingest_runs (started_at, status, phase, authors_file, works_file)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id string
	err := r.db.QueryRow(ctx, sql, run.StartedAt, run.Status, string(run.Phase), run.AuthorsFile, run.WorksFile).Scan(&id)
	return id, err
}

func (r *PostgresRepo) UpdateRun(ctx context.Context, run *Run) error {
	const sql = `
		UPDATE ingest_runs SET
			finished_at = $1,
			status = $2,
			authors_read = $3,
			authors_saved = $4,
			authors_skipped = $5,
			books_read = $6,
			books_saved = $7,
			books_skipped = $8,
			books_discarded = $9,
			error = $10
		WHERE id = $11`

	_, err := r.db.Exec(ctx, sql, run.FinishedAt, run.Status,
		run.Authors.Read, run.Authors.Saved, run.Authors.Skipped,
		run.Books.Read, run.Books.Saved, run.Books.Skipped, run.Books.Discarded,
		run.Error, run.ID)
	return err
}

func (r *PostgresRepo) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	const sql = `
		SELECT id::text, started_at, finished_at, status, phase, authors_file, works_file,
			authors_read, authors_saved, authors_skipped,
			books_read, books_saved, books_skipped, books_discarded, error
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("list ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var phase string
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status, &phase,
			&run.AuthorsFile, &run.WorksFile,
			&run.Authors.Read, &run.Authors.Saved, &run.Authors.Skipped,
			&run.Books.Read, &run.Books.Saved, &run.Books.Skipped, &run.Books.Discarded,
			&run.Error); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		run.Phase = Phase(phase)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
