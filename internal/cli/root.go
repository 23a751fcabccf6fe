package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/linkcast/internal/config"
	"github.com/roach88/linkcast/internal/logging"
	"github.com/roach88/linkcast/internal/telemetry"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Database   string
	Format     string // "json" | "text"
	Verbosity  int

	// Config is the loaded configuration with flag overrides applied.
	Config *config.Config

	shutdown telemetry.Shutdown
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the linkcast CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "linkcast",
		Short: "linkcast - linked items across nodes",
		Long: `Maintain equivalence links between copies of one item on many nodes and
cascade delete, trash and restore across them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides database.path)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().CountVarP(&opts.Verbosity, "verbose", "v", "verbose output (repeat for more)")

	// Add subcommands
	cmd.AddCommand(NewNodeCommand(opts))
	cmd.AddCommand(NewItemCommand(opts))
	cmd.AddCommand(NewLinkCommand(opts))
	cmd.AddCommand(NewPropagateCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewFindUnlinkedCommand(opts))
	cmd.AddCommand(NewActionCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	withTeardown(cmd, opts)
	return cmd
}

// withTeardown makes every runnable command tear down after RunE, including
// when RunE fails, so failed cascades still show up in the metrics file.
func withTeardown(cmd *cobra.Command, opts *RootOptions) {
	for _, sub := range cmd.Commands() {
		withTeardown(sub, opts)
	}
	if cmd.RunE == nil {
		return
	}
	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if terr := opts.teardown(cmd.Context()); terr != nil && err == nil {
			return WrapExitError(ExitCommandError, "failed to finish", terr)
		}
		return err
	}
}

// setup loads configuration, applies flag overrides and starts logging and
// tracing. Flags win over the config file and environment.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database.Path = o.Database
	}
	if flags.Changed("format") {
		cfg.Output.Format = o.Format
	}
	if flags.Changed("verbose") {
		cfg.Log.Verbosity = o.Verbosity
	}
	if !isValidFormat(cfg.Output.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", cfg.Output.Format, ValidFormats))
	}
	o.Config = cfg

	logging.Setup(cfg.Log.Verbosity, cmd.ErrOrStderr())

	shutdown, err := telemetry.Setup(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	o.shutdown = shutdown
	return nil
}

// teardown flushes spans and writes the metrics file.
func (o *RootOptions) teardown(ctx context.Context) error {
	var errs []error
	if o.shutdown != nil {
		errs = append(errs, o.shutdown(ctx))
	}
	if o.Config != nil {
		errs = append(errs, telemetry.WriteMetrics(o.Config.Telemetry.MetricsFile, prometheus.DefaultGatherer))
	}
	return errors.Join(errs...)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
