package ingest

import (
	"context"
)

// RunRepository keeps the ingest_runs bookkeeping rows.
type RunRepository interface {
	CreateRun(ctx context.Context, run *Run) (string, error)
	UpdateRun(ctx context.Context, run *Run) error
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}
