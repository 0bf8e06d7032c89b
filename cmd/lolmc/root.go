package main

import (
	"fmt"
	"path/filepath"

	"github.com/Sternrassler/lol-match-collector/internal/config"
	"github.com/Sternrassler/lol-match-collector/pkg/dataset"
	"github.com/Sternrassler/lol-match-collector/pkg/logging"
	"github.com/Sternrassler/lol-match-collector/pkg/pipeline"
	"github.com/Sternrassler/lol-match-collector/pkg/routing"
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every stage command.
type rootOptions struct {
	configFile  string
	logLevel    string
	pretty      bool
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "lolmc",
		Short: "Collect League of Legends match data from the match-v5 API",
		Long: `lolmc fetches match data for every routing domain in parallel while
keeping each domain under its rate limit.

Stages chain through the data directory:
  match-ids      player_index.csv   -> match_ids.csv
  roles          match_ids.csv      -> player_roles.csv, match_ids_filtered.csv
  trajectories   match_ids_filtered.csv -> trajectories.csv`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.pretty, "pretty", false, "human-readable console logs")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")

	root.AddCommand(
		newStageCmd(opts, pipeline.StageMatchIDs, "Collect recent match ids for every player", dataset.PlayersFile, dataset.ReadPlayers),
		newStageCmd(opts, pipeline.StageRoles, "Collect player roles from CLASSIC matches", dataset.MatchIDsFile, dataset.ReadMatchIDs),
		newStageCmd(opts, pipeline.StageTrajectories, "Collect per-minute positions from match timelines", dataset.FilteredMatchesFile, dataset.ReadMatchIDs),
	)
	return root
}

// newStageCmd builds the command running one pipeline stage over a CSV input.
func newStageCmd(opts *rootOptions, stage, short, defaultInput string, read func(string) ([]routing.WorkItem, error)) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   stage,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if input == "" {
				input = filepath.Join(cfg.Output.Dir, defaultInput)
			}
			items, err := read(input)
			if err != nil {
				return err
			}
			return runStage(cmd.Context(), cfg, stage, items, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", fmt.Sprintf("input CSV (default <output.dir>/%s)", defaultInput))
	return cmd
}

// load reads the configuration, applies flag overrides and sets up logging.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = logging.LogLevel(o.logLevel)
	}
	if flags.Changed("pretty") {
		cfg.Logging.Pretty = o.pretty
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Logging.Output = cmd.ErrOrStderr()
	logger := logging.Setup(cfg.Logging)
	logger.Debug().
		Str("config_file", o.configFile).
		Str("rate_limit_kind", string(cfg.RateLimit.Kind)).
		Int("requests", cfg.RateLimit.Policy.Requests).
		Dur("period", cfg.RateLimit.Policy.Period).
		Str("output_format", cfg.Output.Format).
		Bool("cache", cfg.Cache.Enabled()).
		Msg("Configuration loaded")
	return cfg, nil
}
