package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/exposure-keys-etl/internal/domain"
	"github.com/couchcryptid/exposure-keys-etl/internal/observability"
)

// ErrNoLoader is returned when a mode's output has nowhere to go.
var ErrNoLoader = errors.New("no loader configured")

// Extractor reads the input location file.
type Extractor interface {
	Extract(ctx context.Context) (domain.LocationTable, error)
}

// LocationLoader writes pre-analysed locations.
type LocationLoader interface {
	LoadLocations(ctx context.Context, header []string, locs []domain.LocationRecord) error
}

// KeysLoader writes key results.
type KeysLoader interface {
	LoadKeys(ctx context.Context, run domain.Run, results []domain.ResultRecord) error
}

// Mode selects which stages a run executes.
type Mode int

const (
	// ModeFull runs pre-analysis then keys lookup.
	ModeFull Mode = iota
	// ModePreAnalysis resolves and disaggregates only.
	ModePreAnalysis
	// ModeKeys looks up keys on an already pre-analysed location file.
	ModeKeys
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModePreAnalysis:
		return "preanalysis"
	case ModeKeys:
		return "keys"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func (m Mode) schema() domain.Schema {
	if m == ModeKeys {
		return domain.KeysSchema
	}
	return domain.PreAnalysisSchema
}

// Summary describes a completed run.
type Summary struct {
	RunID            string        `json:"run_id"`
	Mode             string        `json:"mode"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	LocationsRead    int           `json:"locations_read"`
	LocationsEmitted int           `json:"locations_emitted"`
	Skipped          int           `json:"skipped"`
	Disaggregated    int           `json:"disaggregated"`
	KeysSucceeded    int           `json:"keys_succeeded"`
	KeysFailed       int           `json:"keys_failed"`
}

const (
	defaultLoadAttempts   = 3
	defaultInitialBackoff = 200 * time.Millisecond
	maxBackoff            = 5 * time.Second
)

// Pipeline runs the extract, pre-analysis, keys and load stages once per call.
type Pipeline struct {
	engine    *domain.Engine
	extractor Extractor
	locations LocationLoader
	keys      []KeysLoader
	logger    *slog.Logger
	metrics   *observability.Metrics

	workers        int
	loadAttempts   int
	initialBackoff time.Duration

	ready atomic.Bool
	mu    sync.Mutex
	last  Summary
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds the per-location worker pool.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLocationLoader sets the destination of pre-analysed locations.
func WithLocationLoader(l LocationLoader) Option {
	return func(p *Pipeline) { p.locations = l }
}

// WithKeysLoader adds a destination for key results. Every loader receives
// the full result set.
func WithKeysLoader(l KeysLoader) Option {
	return func(p *Pipeline) { p.keys = append(p.keys, l) }
}

// WithRetry sets how many times a loader is attempted and the first backoff.
func WithRetry(attempts int, initial time.Duration) Option {
	return func(p *Pipeline) {
		if attempts > 0 {
			p.loadAttempts = attempts
		}
		p.initialBackoff = initial
	}
}

// New creates a Pipeline over an engine and an input source.
func New(engine *domain.Engine, e Extractor, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:         engine,
		extractor:      e,
		logger:         logger,
		metrics:        metrics,
		workers:        runtime.NumCPU(),
		loadAttempts:   defaultLoadAttempts,
		initialBackoff: defaultInitialBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastSummary returns the summary of the most recent successful run.
func (p *Pipeline) LastSummary() (Summary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.ready.Load()
}

// Run executes the stages selected by mode over the whole input.
func (p *Pipeline) Run(ctx context.Context, mode Mode) (Summary, error) {
	if err := p.checkLoaders(mode); err != nil {
		return Summary{}, err
	}

	run := domain.NewRun()
	sum := Summary{RunID: run.ID, Mode: mode.String(), StartedAt: run.StartedAt}
	start := time.Now()
	logger := p.logger.With("run_id", run.ID, "mode", mode.String())
	logger.Info("pipeline started", "workers", p.workers)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	table, locs, err := p.extract(ctx, mode.schema())
	if err != nil {
		return Summary{}, err
	}
	sum.LocationsRead = len(locs)

	if mode != ModeKeys {
		stage := time.Now()
		var stats preAnalysisStats
		locs, stats, err = p.preAnalyze(ctx, locs)
		if err != nil {
			return Summary{}, fmt.Errorf("pre-analysis: %w", err)
		}
		p.observeStage("preanalysis", stage)
		sum.Skipped, sum.Disaggregated = stats.skipped, stats.disaggregated

		stage = time.Now()
		locs = domain.Renumber(locs)
		p.observeStage("renumber", stage)
		sum.LocationsEmitted = len(locs)
		p.metrics.LocationsEmitted.Add(float64(len(locs)))

		if p.locations != nil {
			header := table.OutputHeader()
			err := p.load(ctx, logger, "load locations", func(ctx context.Context) error {
				return p.locations.LoadLocations(ctx, header, locs)
			})
			if err != nil {
				return Summary{}, err
			}
		}
	}

	if mode != ModePreAnalysis {
		stage := time.Now()
		results, err := p.lookupKeys(ctx, locs)
		if err != nil {
			return Summary{}, fmt.Errorf("keys lookup: %w", err)
		}
		p.observeStage("keys", stage)
		for _, r := range results {
			if r.Success() {
				sum.KeysSucceeded++
			} else {
				sum.KeysFailed++
			}
		}

		for _, kl := range p.keys {
			err := p.load(ctx, logger, "load keys", func(ctx context.Context) error {
				return kl.LoadKeys(ctx, run, results)
			})
			if err != nil {
				return Summary{}, err
			}
		}
	}

	sum.Duration = time.Since(start)
	p.mu.Lock()
	p.last = sum
	p.mu.Unlock()
	p.ready.Store(true)

	logger.Info("pipeline finished",
		"locations_read", sum.LocationsRead,
		"locations_emitted", sum.LocationsEmitted,
		"skipped", sum.Skipped,
		"disaggregated", sum.Disaggregated,
		"keys_succeeded", sum.KeysSucceeded,
		"keys_failed", sum.KeysFailed,
		"duration", sum.Duration,
	)
	return sum, nil
}

func (p *Pipeline) checkLoaders(mode Mode) error {
	switch {
	case mode == ModePreAnalysis && p.locations == nil:
		return fmt.Errorf("%s: %w for locations", mode, ErrNoLoader)
	case mode == ModeKeys && len(p.keys) == 0:
		return fmt.Errorf("%s: %w for keys", mode, ErrNoLoader)
	case mode == ModeFull && p.locations == nil && len(p.keys) == 0:
		return fmt.Errorf("%s: %w", mode, ErrNoLoader)
	}
	return nil
}

// extract reads the input and parses every row. A missing required column
// aborts the run.
func (p *Pipeline) extract(ctx context.Context, schema domain.Schema) (domain.LocationTable, []domain.LocationRecord, error) {
	start := time.Now()
	table, err := p.extractor.Extract(ctx)
	if err != nil {
		return domain.LocationTable{}, nil, fmt.Errorf("extract: %w", err)
	}
	if err := schema.ValidateHeader(table.Header); err != nil {
		return domain.LocationTable{}, nil, err
	}

	locs := make([]domain.LocationRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		loc, err := domain.ParseLocation(row, schema)
		if err != nil {
			return domain.LocationTable{}, nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		locs = append(locs, loc)
	}
	p.metrics.LocationsRead.Add(float64(len(locs)))
	p.observeStage("extract", start)
	return table, locs, nil
}

// load runs fn until it succeeds, the attempts are spent, or ctx ends.
func (p *Pipeline) load(ctx context.Context, logger *slog.Logger, op string, fn func(context.Context) error) error {
	start := time.Now()
	defer p.observeStage("load", start)

	backoff := p.initialBackoff
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= p.loadAttempts || ctx.Err() != nil {
			break
		}
		logger.Warn("load failed, retrying", "op", op, "attempt", attempt, "backoff", backoff, "error", err)
		p.metrics.LoadRetries.Inc()
		if !sleepWithContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
