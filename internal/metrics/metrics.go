// Package metrics is the small metrics surface the loader reports through.
// Backends live in subpackages; the ingest code depends only on Backend.
package metrics

// Labels are metric dimensions such as {"kind": "author", "status": "saved"}.
type Labels map[string]string

// Names emitted by the ingest pipelines.
const (
	RecordsTotal         = "loader_records_total"
	PhaseTotal           = "loader_phase_total"
	PhaseDurationSeconds = "loader_phase_duration_seconds"
)

type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}
