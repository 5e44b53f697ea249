package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"bookloader/internal/catalog"
	"bookloader/internal/dump"
	"bookloader/internal/metrics"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

type Config struct {
	AuthorsPath     string
	WorksPath       string
	WritesPerSecond float64 // 0 disables pacing
	MaxLineBytes    int
	// Progress shows a byte progress bar when stderr is a terminal.
	Progress bool
}

type Service struct {
	authors catalog.AuthorRepository
	books   catalog.BookRepository
	runs    RunRepository
	metrics metrics.Backend
	mapper  *BookMapper
	limiter *rate.Limiter
	cfg     Config

	progress bool
}

func NewService(authors catalog.AuthorRepository, books catalog.BookRepository, runs RunRepository, m metrics.Backend, cfg Config) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	s := &Service{
		authors:  authors,
		books:    books,
		runs:     runs,
		metrics:  m,
		mapper:   NewBookMapper(authors),
		cfg:      cfg,
		progress: cfg.Progress && term.IsTerminal(int(os.Stderr.Fd())),
	}
	if cfg.WritesPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.WritesPerSecond), 1)
	}
	return s
}

// Run records an ingest run and executes the selected pipelines. The works
// pipeline only starts after the authors pipeline finished without error.
func (s *Service) Run(ctx context.Context, phase Phase) (err error) {
	run := &Run{
		Status:      StatusRunning,
		Phase:       phase,
		AuthorsFile: s.cfg.AuthorsPath,
		WorksFile:   s.cfg.WorksPath,
		StartedAt:   time.Now().UTC(),
	}
	runID, err := s.runs.CreateRun(ctx, run)
	if err != nil {
		return fmt.Errorf("create ingest run: %w", err)
	}
	run.ID = runID

	defer func() {
		now := time.Now().UTC()
		run.FinishedAt = &now
		if err != nil {
			run.Status = StatusFailed
			run.Error = err.Error()
		} else {
			run.Status = StatusCompleted
		}
		// The run row is finalized even when ctx was cancelled.
		if updateErr := s.runs.UpdateRun(context.WithoutCancel(ctx), run); updateErr != nil {
			log.Errorf("Failed to update ingest run %s: %v", run.ID, updateErr)
		}
		if flushErr := s.metrics.Flush(); flushErr != nil {
			log.Warnf("Failed to flush metrics: %v", flushErr)
		}
		logSummary(run)
	}()

	if phase != PhaseWorks {
		run.Authors, err = s.LoadAuthors(ctx)
		if err != nil {
			return fmt.Errorf("authors pipeline: %w", err)
		}
	}
	if phase != PhaseAuthors {
		run.Books, err = s.LoadWorks(ctx)
		if err != nil {
			return fmt.Errorf("works pipeline: %w", err)
		}
	}
	return nil
}

// LoadAuthors upserts every author of the authors dump.
func (s *Service) LoadAuthors(ctx context.Context) (Tally, error) {
	return s.runFile(ctx, PhaseAuthors, "author", s.cfg.AuthorsPath, s.loadAuthor)
}

// LoadWorks upserts every work that carries an authors array, resolving
// author names against the author store.
func (s *Service) LoadWorks(ctx context.Context) (Tally, error) {
	return s.runFile(ctx, PhaseWorks, "book", s.cfg.WorksPath, s.loadWork)
}

func (s *Service) loadAuthor(ctx context.Context, line string) (Outcome, error) {
	rec, err := dump.Extract(line)
	if err != nil {
		return OutcomeSkipped, err
	}
	author := MapAuthor(rec)

	if err := s.wait(ctx); err != nil {
		return OutcomeFatal, err
	}
	if err := s.authors.SaveAuthor(ctx, &author); err != nil {
		return OutcomeFatal, &StoreError{Op: "save author " + author.ID, Err: err}
	}
	s.logSave("saving the author %s", author.Name)
	return OutcomeSaved, nil
}

func (s *Service) loadWork(ctx context.Context, line string) (Outcome, error) {
	rec, err := dump.Extract(line)
	if err != nil {
		return OutcomeSkipped, err
	}
	book, ok, err := s.mapper.Map(ctx, rec)
	if err != nil {
		return classify(err), err
	}
	if !ok {
		return OutcomeDiscarded, nil
	}

	if err := s.wait(ctx); err != nil {
		return OutcomeFatal, err
	}
	if err := s.books.SaveBook(ctx, &book); err != nil {
		return OutcomeFatal, &StoreError{Op: "save book " + book.ID, Err: err}
	}
	s.logSave("saving the book %s", book.Name)
	return OutcomeSaved, nil
}

type lineFunc func(ctx context.Context, line string) (Outcome, error)

// runFile reads path line by line and hands each line to handle. It stops at
// the first fatal outcome, read error or context cancellation.
func (s *Service) runFile(ctx context.Context, phase Phase, kind, path string, handle lineFunc) (tally Tally, err error) {
	start := time.Now()
	defer func() {
		status := "completed"
		if err != nil {
			status = "failed"
		}
		labels := metrics.Labels{"phase": string(phase), "status": status}
		s.metrics.IncCounter(metrics.PhaseTotal, 1, labels)
		s.metrics.ObserveHistogram(metrics.PhaseDurationSeconds, time.Since(start).Seconds(), labels)
	}()

	var bar *progressbar.ProgressBar
	opts := dump.Options{MaxLineBytes: s.cfg.MaxLineBytes}
	if s.progress {
		opts.Wrap = func(r io.Reader, size int64) io.Reader {
			bar = newProgressBar(size, "loading "+string(phase))
			return io.TeeReader(r, bar)
		}
	}

	r, err := dump.Open(path, opts)
	if err != nil {
		return tally, err
	}
	defer r.Close()
	log.Infof("Loading %s from %s (%s)", phase, path, humanize.Bytes(uint64(r.Size())))

	for r.Next() {
		if err := ctx.Err(); err != nil {
			return tally, err
		}
		var (
			outcome Outcome
			lineErr error
		)
		if lineErr = r.LineErr(); lineErr != nil {
			outcome = OutcomeSkipped
		} else {
			outcome, lineErr = handle(ctx, r.Text())
		}
		tally.add(outcome)
		s.metrics.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": kind, "status": outcome.String()})

		switch outcome {
		case OutcomeSkipped:
			log.WithFields(log.Fields{
				"phase":  phase,
				"line":   r.Line(),
				"reason": lineErr,
			}).Warn("Skipping dump line")
		case OutcomeFatal:
			return tally, fmt.Errorf("line %d: %w", r.Line(), lineErr)
		}
	}
	if err := r.Err(); err != nil {
		return tally, err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	log.WithFields(log.Fields{
		"phase":     phase,
		"read":      tally.Read,
		"saved":     tally.Saved,
		"skipped":   tally.Skipped,
		"discarded": tally.Discarded,
		"elapsed":   time.Since(start).Round(time.Millisecond).String(),
	}).Infof("Finished %s", phase)
	return tally, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// logSave drops to debug while the progress bar owns the terminal.
func (s *Service) logSave(format, name string) {
	if s.progress {
		log.Debugf(format, name)
		return
	}
	log.Infof(format, name)
}

func newProgressBar(size int64, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func logSummary(run *Run) {
	elapsed := ""
	if run.FinishedAt != nil {
		elapsed = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
	}
	log.Infof("Ingest run %s %s after %s: authors %s saved of %s (%s skipped), books %s saved of %s (%s skipped, %s without authors)",
		run.ID, run.Status, elapsed,
		humanize.Comma(run.Authors.Saved), humanize.Comma(run.Authors.Read), humanize.Comma(run.Authors.Skipped),
		humanize.Comma(run.Books.Saved), humanize.Comma(run.Books.Read), humanize.Comma(run.Books.Skipped),
		humanize.Comma(run.Books.Discarded),
	)
}
