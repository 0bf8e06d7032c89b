// Package pipeline runs a collection stage across all routing domains: one
// sequential worker per domain, domains in parallel.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/lol-match-collector/pkg/aggregate"
	"github.com/Sternrassler/lol-match-collector/pkg/logging"
	"github.com/Sternrassler/lol-match-collector/pkg/routing"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var lolPipelineRunSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "lol_pipeline_run_duration_seconds",
	Help:    "Duration of complete pipeline runs by stage",
	Buckets: prometheus.ExponentialBuckets(1, 4, 10),
}, []string{"stage"})

// Config holds orchestrator configuration.
type Config struct {
	// MaxConcurrency bounds the number of domain workers running at once.
	// The default matches the number of routing domains.
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// DefaultConfig returns one worker slot per routing domain.
func DefaultConfig() Config {
	return Config{MaxConcurrency: len(routing.Domains())}
}

// Report summarizes a run. Per-item failures only show up here.
type Report struct {
	RunID      string
	Stage      string
	Input      int
	Unroutable int

	// Duplicates were dropped by partitioning.
	Duplicates int

	Processed   int
	Contributed int
	Empty       int
	Failed      int
	Malformed   int

	PerDomain map[routing.Domain]DomainReport
	Duration  time.Duration

	// Results holds everything merged during the run.
	Results *aggregate.Aggregator
}

// Orchestrator partitions work by routing domain and runs the domain workers.
type Orchestrator struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(fetcher Fetcher, cfg Config) (*Orchestrator, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.MaxConcurrency < 1 {
		return nil, fmt.Errorf("max_concurrency must be >= 1 (got %d)", cfg.MaxConcurrency)
	}
	return &Orchestrator{
		fetcher: fetcher,
		config:  cfg,
		logger:  logging.NewLogger("pipeline"),
	}, nil
}

// Run processes items with stage and blocks until every domain worker is done.
// Only invalid input returns an error; failed items are counted in the report.
func (o *Orchestrator) Run(ctx context.Context, stage Stage, items []routing.WorkItem) (*Report, error) {
	if stage == nil {
		return nil, fmt.Errorf("stage is required")
	}
	for _, item := range items {
		if item.Kind != stage.Kind() {
			return nil, fmt.Errorf("stage %s accepts %s items, got %s item %q",
				stage.Name(), stage.Kind(), item.Kind, item.Key)
		}
	}

	start := time.Now()
	runID := uuid.NewString()
	logger := logging.WithRun(o.logger, runID, stage.Name())
	ctx = logger.WithContext(ctx)

	groups, unroutable := routing.Partition(items)
	for _, item := range unroutable {
		logger.Warn().Str("item_id", item.Key).Str("region", item.Region).Msg("Skipping unroutable item")
	}

	report := &Report{
		RunID:      runID,
		Stage:      stage.Name(),
		Input:      len(items),
		Unroutable: len(unroutable),
		PerDomain:  make(map[routing.Domain]DomainReport, len(groups)),
		Results:    aggregate.New(),
	}

	queued := 0
	for _, queue := range groups {
		queued += len(queue)
	}
	report.Duplicates = len(items) - len(unroutable) - queued

	logger.Info().
		Int("items", len(items)).
		Int("domains", len(groups)).
		Int("max_concurrency", o.config.MaxConcurrency).
		Msg("Run started")

	domains := routing.Domains()
	results := make([]DomainReport, len(domains))

	var g errgroup.Group
	g.SetLimit(o.config.MaxConcurrency)
	for i, domain := range domains {
		queue, ok := groups[domain]
		if !ok {
			continue
		}
		worker := NewWorker(domain, o.fetcher, stage, report.Results, logger)
		g.Go(func() error {
			results[i] = worker.Run(ctx, queue)
			return nil
		})
	}
	// Workers contain their own failures; Wait only joins them.
	_ = g.Wait()

	for i, domain := range domains {
		if _, ok := groups[domain]; !ok {
			continue
		}
		r := results[i]
		report.PerDomain[domain] = r
		report.Processed += r.Processed
		report.Contributed += r.Contributed
		report.Empty += r.Empty
		report.Failed += r.Failed
		report.Malformed += r.Malformed
	}

	report.Duration = time.Since(start)
	lolPipelineRunSeconds.WithLabelValues(stage.Name()).Observe(report.Duration.Seconds())

	counts := report.Results.Counts()
	logger.Info().
		Int("input", report.Input).
		Int("unroutable", report.Unroutable).
		Int("processed", report.Processed).
		Int("contributed", report.Contributed).
		Int("failed", report.Failed).
		Int("malformed", report.Malformed).
		Int("match_ids", counts.MatchIDs).
		Int("roles", counts.Roles).
		Int("trajectories", counts.Trajectories).
		Int("filtered_matches", counts.FilteredMatches).
		Dur("duration", report.Duration).
		Msg("Run finished")

	return report, nil
}
