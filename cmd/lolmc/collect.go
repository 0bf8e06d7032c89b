package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Sternrassler/lol-match-collector/internal/config"
	"github.com/Sternrassler/lol-match-collector/pkg/aggregate"
	"github.com/Sternrassler/lol-match-collector/pkg/cache"
	"github.com/Sternrassler/lol-match-collector/pkg/client"
	"github.com/Sternrassler/lol-match-collector/pkg/dataset"
	"github.com/Sternrassler/lol-match-collector/pkg/logging"
	"github.com/Sternrassler/lol-match-collector/pkg/metrics"
	"github.com/Sternrassler/lol-match-collector/pkg/pipeline"
	"github.com/Sternrassler/lol-match-collector/pkg/ratelimit"
	"github.com/Sternrassler/lol-match-collector/pkg/routing"
)

// runStage wires the collector from cfg, runs one stage over items, exports
// the results and prints the run summary to out.
func runStage(ctx context.Context, cfg *config.Config, stageName string, items []routing.WorkItem, out io.Writer) error {
	logger := logging.NewLogger("lolmc")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("Metrics endpoint failed")
			}
		}()
	}

	registry, err := ratelimit.NewRegistry(cfg.RateLimit, logging.NewLogger("ratelimit"))
	if err != nil {
		return fmt.Errorf("failed to create rate limiters: %w", err)
	}

	clientCfg := client.DefaultConfig(registry)
	clientCfg.Retry = cfg.Retry
	clientCfg.Timeout = cfg.Timeout
	clientCfg.UserAgent = cfg.UserAgent

	if cfg.Cache.Enabled() {
		redisClient, err := cache.Connect(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to cache: %w", err)
		}
		defer redisClient.Close()
		clientCfg.Cache = cache.NewManager(redisClient, cfg.Cache.Options)
		logger.Info().Str("addr", cfg.Cache.Addr).Msg("Connected to Redis payload cache")
	}

	matchClient, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("failed to create match client: %w", err)
	}

	stage, err := pipeline.NewStage(stageName, client.NewEndpoints(cfg.BaseURL, cfg.APIKey), cfg.MatchCount)
	if err != nil {
		return err
	}

	orchestrator, err := pipeline.NewOrchestrator(matchClient, cfg.Pipeline)
	if err != nil {
		return err
	}

	// Open the sink first so a bad database setting fails before any request.
	sink, err := dataset.Open(ctx, cfg.Output)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer sink.Close()

	report, err := orchestrator.Run(ctx, stage, items)
	if err != nil {
		return err
	}

	// Interrupted runs still export what they collected.
	if err := export(context.WithoutCancel(ctx), sink, stageName, report.Results); err != nil {
		logger.Error().Err(err).Str("stage", stageName).Msg("Failed to write results")
		return fmt.Errorf("failed to write results: %w", err)
	}

	return writeSummary(out, report)
}

// export writes the collections a stage produces.
func export(ctx context.Context, sink dataset.Sink, stageName string, results *aggregate.Aggregator) error {
	switch stageName {
	case pipeline.StageMatchIDs:
		return sink.WriteMatchIDs(ctx, results.MatchIDs())
	case pipeline.StageRoles:
		if err := sink.WriteRoles(ctx, results.Roles()); err != nil {
			return err
		}
		return sink.WriteFilteredMatches(ctx, results.FilteredMatches())
	case pipeline.StageTrajectories:
		return sink.WriteTrajectories(ctx, results.Trajectories())
	default:
		return fmt.Errorf("unknown stage %q", stageName)
	}
}
