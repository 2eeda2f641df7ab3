package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ent0n29/deadliner/internal/extract"
	"github.com/ent0n29/deadliner/internal/observability"
	"github.com/ent0n29/deadliner/internal/tasks"
)

const (
	DefaultMinChars = 20
	defaultTimeout  = 30 * time.Second
	commandPrefix   = "!"
)

// CollaboratorError wraps any failure of the extraction call.
type CollaboratorError struct {
	Code string
	Err  error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("extract tasks (%s): %v", e.Code, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Added is a newly stored task with its urgency at ingestion time.
type Added struct {
	Task    tasks.Task
	Urgency tasks.Urgency
}

type Result struct {
	Added []Added
}

func (r Result) Empty() bool { return len(r.Added) == 0 }

type Options struct {
	MinChars int
	Timeout  time.Duration
}

type Pipeline struct {
	extractor extract.Extractor
	store     tasks.Store
	metrics   *observability.Metrics
	logger    *slog.Logger
	minChars  int
	timeout   time.Duration
}

func New(extractor extract.Extractor, store tasks.Store, metrics *observability.Metrics, logger *slog.Logger, opts Options) *Pipeline {
	if opts.MinChars <= 0 {
		opts.MinChars = DefaultMinChars
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		minChars:  opts.MinChars,
		timeout:   opts.Timeout,
	}
}

// Eligible reports whether text should be treated as an announcement: longer
// than the minimum and not a command.
func (p *Pipeline) Eligible(text string) bool {
	text = strings.TrimSpace(text)
	return utf8.RuneCountInString(text) > p.minChars && !strings.HasPrefix(text, commandPrefix)
}

// Ingest extracts candidates from text and stores them. An empty extraction
// leaves the store untouched and returns an empty Result.
func (p *Pipeline) Ingest(ctx context.Context, text string, now time.Time) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	candidates, err := p.extractor.Extract(callCtx, extract.NewRequest(text, now))
	p.metrics.ObserveExtractionLatency(time.Since(started))
	if err != nil {
		code := extract.Code(err)
		p.metrics.ObserveExtractionError(code)
		p.logger.Warn("extraction failed", "code", code, "err", err)
		return Result{}, &CollaboratorError{Code: code, Err: err}
	}
	if len(candidates) == 0 {
		return Result{}, nil
	}

	created, err := p.store.AddMany(ctx, candidates)
	if err != nil {
		return Result{}, fmt.Errorf("add tasks: %w", err)
	}
	p.metrics.ObserveIngested(len(created))

	res := Result{Added: make([]Added, 0, len(created))}
	for _, t := range created {
		res.Added = append(res.Added, Added{Task: t, Urgency: tasks.Classify(t.Deadline, now)})
	}
	p.logger.Info("tasks ingested", "count", len(created))
	return res, nil
}
