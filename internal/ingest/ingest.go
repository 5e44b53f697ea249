package ingest

import (
	"time"
)

// Phase selects which pipelines a Run executes.
type Phase string

const (
	PhaseAll     Phase = "all"
	PhaseAuthors Phase = "authors"
	PhaseWorks   Phase = "works"
)

// ParsePhase maps a CLI value to a Phase. The empty string means PhaseAll.
func ParsePhase(s string) (Phase, bool) {
	switch Phase(s) {
	case "", PhaseAll:
		return PhaseAll, true
	case PhaseAuthors, PhaseWorks:
		return Phase(s), true
	}
	return "", false
}

const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Tally counts line outcomes for one pipeline.
type Tally struct {
	Read      int64
	Saved     int64
	Skipped   int64
	Discarded int64
}

func (t *Tally) add(o Outcome) {
	t.Read++
	switch o {
	case OutcomeSaved:
		t.Saved++
	case OutcomeSkipped:
		t.Skipped++
	case OutcomeDiscarded:
		t.Discarded++
	}
}

type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Status      string // RUNNING, COMPLETED, FAILED
	Phase       Phase
	AuthorsFile string
	WorksFile   string
	Authors     Tally
	Books       Tally
	Error       string
}
