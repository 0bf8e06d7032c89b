package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Sternrassler/lol-match-collector/pkg/aggregate"
	"github.com/Sternrassler/lol-match-collector/pkg/parser"
	"github.com/Sternrassler/lol-match-collector/pkg/routing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Item outcomes reported in metrics.
const (
	outcomeContributed = "contributed"
	outcomeEmpty       = "empty"
	outcomeFailed      = "failed"
	outcomeMalformed   = "malformed"
)

var lolPipelineItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "lol_pipeline_items_total",
	Help: "Work items finished by stage, routing domain and outcome",
}, []string{"stage", "domain", "outcome"})

// Fetcher retrieves the payload of one work item. *client.Client implements it;
// a nil payload with an error means the item produced nothing.
type Fetcher interface {
	Fetch(ctx context.Context, domain routing.Domain, itemID, url string) (json.RawMessage, error)
}

// DomainReport counts what one domain worker did.
type DomainReport struct {
	Domain routing.Domain

	// Items is the length of the domain queue.
	Items int

	// Processed items were fetched, successfully or not.
	Processed int

	// Contributed items merged at least one row or id.
	Contributed int

	// Empty items were fetched and parsed but had nothing to merge.
	Empty int

	// Failed items got no payload or were skipped after cancellation.
	Failed int

	// Malformed items had a payload the parser rejected.
	Malformed int

	Duration time.Duration
}

// Worker processes the queue of one routing domain strictly in order.
type Worker struct {
	domain  routing.Domain
	fetcher Fetcher
	stage   Stage
	agg     *aggregate.Aggregator
	logger  zerolog.Logger
}

// NewWorker creates a worker for one domain.
func NewWorker(domain routing.Domain, fetcher Fetcher, stage Stage, agg *aggregate.Aggregator, logger zerolog.Logger) *Worker {
	return &Worker{
		domain:  domain,
		fetcher: fetcher,
		stage:   stage,
		agg:     agg,
		logger:  logger.With().Str("domain", domain.String()).Logger(),
	}
}

// Run fetches, parses and merges every item. Item failures are logged and
// counted; they never stop the queue. A cancelled context ends the queue early
// and the remaining items count as failed.
func (w *Worker) Run(ctx context.Context, items []routing.WorkItem) DomainReport {
	start := time.Now()
	report := DomainReport{Domain: w.domain, Items: len(items)}

	every := w.stage.ProgressEvery()
	if every < 1 {
		every = 100
	}

	w.logger.Info().Int("items", len(items)).Msg("Domain worker started")

	for idx, item := range items {
		if ctx.Err() != nil {
			remaining := len(items) - idx
			report.Failed += remaining
			lolPipelineItemsTotal.WithLabelValues(w.stage.Name(), w.domain.String(), outcomeFailed).Add(float64(remaining))
			w.logger.Warn().Int("remaining", remaining).Msg("Context ended, skipping remaining items")
			break
		}

		w.process(ctx, item, &report)

		if (idx+1)%every == 0 {
			w.logger.Info().
				Int("processed", idx+1).
				Int("total", len(items)).
				Dur("elapsed", time.Since(start)).
				Msg("Progress")
		}
	}

	report.Duration = time.Since(start)
	w.logger.Info().
		Int("processed", report.Processed).
		Int("contributed", report.Contributed).
		Int("failed", report.Failed).
		Int("malformed", report.Malformed).
		Dur("duration", report.Duration).
		Msg("Domain worker finished")

	return report
}

func (w *Worker) process(ctx context.Context, item routing.WorkItem, report *DomainReport) {
	report.Processed++

	payload, err := w.fetcher.Fetch(ctx, w.domain, item.Key, w.stage.URL(item))
	if err != nil || payload == nil {
		// The client already logged the terminal failure.
		w.count(report, outcomeFailed)
		return
	}

	n, err := w.stage.Handle(item, payload, w.agg)
	switch {
	case errors.Is(err, parser.ErrMalformedPayload):
		w.logger.Warn().Err(err).Str("item_id", item.Key).Msg("Skipping malformed payload")
		w.count(report, outcomeMalformed)
	case err != nil:
		w.logger.Error().Err(err).Str("item_id", item.Key).Msg("Handling payload failed")
		w.count(report, outcomeFailed)
	case n == 0:
		w.logger.Debug().Str("item_id", item.Key).Msg("Payload contributed nothing")
		w.count(report, outcomeEmpty)
	default:
		w.count(report, outcomeContributed)
	}
}

func (w *Worker) count(report *DomainReport, outcome string) {
	switch outcome {
	case outcomeContributed:
		report.Contributed++
	case outcomeEmpty:
		report.Empty++
	case outcomeFailed:
		report.Failed++
	case outcomeMalformed:
		report.Malformed++
	}
	lolPipelineItemsTotal.WithLabelValues(w.stage.Name(), w.domain.String(), outcome).Inc()
}
