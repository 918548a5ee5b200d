// Package cli implements the kbopts command line tool.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	kbopts "github.com/goliatone/go-kbopts"
	"github.com/goliatone/go-kbopts/pkg/logging"
	"github.com/goliatone/go-kbopts/pkg/metrics"
)

type rootFlags struct {
	verbosity   int
	batch       string
	sets        []string
	format      string
	engine      string
	metricsPath string

	// gatherer is set once a registry records metrics.
	gatherer prometheus.Gatherer
}

// NewRootCmd builds the kbopts command tree.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "kbopts",
		Short: "Inspect scoped keyboard options",
		Long: `kbopts loads a batch of keyboard and environment options into a
registry and serializes, looks up, or evaluates rules against them.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(flags.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.CountVarP(&flags.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	pf.StringVarP(&flags.batch, "file", "f", "", "Batch file (.toml, .yaml, or a serialized .json document) to load before running")
	pf.StringArrayVarP(&flags.sets, "set", "s", nil, "Extra option as scope.key=value (repeatable)")
	pf.StringVar(&flags.format, "format", "", "Document format: json, yaml or toml (overrides KBOPTS_FORMAT)")
	pf.StringVar(&flags.engine, "engine", "", "Rule engine: expr, cel or js (overrides KBOPTS_ENGINE)")
	pf.StringVar(&flags.metricsPath, "metrics", "", "Write Prometheus metrics for the run to this file (- for stderr)")

	root.AddCommand(
		newSerializeCmd(flags),
		newLookupCmd(flags),
		newEvalCmd(flags),
	)
	return root
}

// Execute runs the command tree with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

func (f *rootFlags) config() (*Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if f.format != "" {
		cfg.Format = f.format
	}
	if f.engine != "" {
		cfg.Engine = f.engine
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// registry builds the registry for a command and applies the batch file
// followed by --set assignments.
func (f *rootFlags) registry(extra ...kbopts.Option) (*kbopts.Options, error) {
	cfg, err := f.config()
	if err != nil {
		return nil, err
	}

	loggers := []kbopts.Logger{logging.New(logging.GetLogger("registry"))}
	if f.metricsPath != "" {
		reg := metrics.NewRegistry()
		rec, err := metrics.NewRecorder(reg)
		if err != nil {
			return nil, fmt.Errorf("failed to set up metrics: %w", err)
		}
		f.gatherer = reg
		loggers = append(loggers, rec)
	}
	opts := append(cfg.registryOptions(), kbopts.WithLogger(loggers...))
	registry := kbopts.New(append(opts, extra...)...)

	items := []kbopts.Item{}
	if f.batch != "" {
		loaded, err := LoadBatch(f.batch)
		if err != nil {
			return nil, err
		}
		items = append(items, loaded...)
	}
	for _, set := range f.sets {
		item, err := ParseAssignment(set)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := registry.Update(items); err != nil {
		return nil, fmt.Errorf("failed to apply options: %w", err)
	}
	log.Info().Int("items", len(items)).Str("registry", registry.ID()).Msg("Options applied")
	return registry, nil
}

// observed wraps run so that metrics are written after the command, also
// when it fails.
func (f *rootFlags) observed(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if f.gatherer == nil {
			return err
		}
		return errors.Join(err, f.writeMetrics(cmd))
	}
}

func (f *rootFlags) writeMetrics(cmd *cobra.Command) error {
	if f.metricsPath == "-" {
		return metrics.WriteText(cmd.ErrOrStderr(), f.gatherer)
	}
	file, err := os.Create(f.metricsPath)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer file.Close()
	if err := metrics.WriteText(file, f.gatherer); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return file.Close()
}
