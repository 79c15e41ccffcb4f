package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/sproc/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigPath string
	Driver     string
	DSN        string
	Dialect    string
	LogLevel   string
	LogFormat  string

	// Config is the loaded configuration with flag overrides applied. It is
	// populated before any subcommand runs.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sproc CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sproc",
		Short: "sproc - stored procedure access with tiered caching",
		Long: `Execute parameterized stored procedures and shape their result sets,
optionally served from a frozen, timed or distributed cache.

SQLite has no stored procedures; sproc keeps a catalog of named statement
lists in the database and runs them as procedures.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				opts.formatter(cmd).Error(ErrCodeConfig, err.Error(), nil)
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Config = cfg
			InitLog(cfg.Log, cmd.ErrOrStderr())
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&opts.Driver, "driver", "", "database/sql driver name (overrides config)")
	flags.StringVar(&opts.DSN, "dsn", "", "data source name (overrides config)")
	flags.StringVar(&opts.Dialect, "dialect", "", "call dialect: sqlite|postgres|sqlserver (overrides config)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level: trace|debug|info|warn|error|fatal (overrides config)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "log format: text|json|color (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))

	return cmd
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Driver = opts.Driver
	}
	if flags.Changed("dsn") {
		cfg.DSN = opts.DSN
	}
	if flags.Changed("dialect") {
		cfg.Dialect = opts.Dialect
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.LogFormat
	}
	if opts.Verbose && !flags.Changed("log-level") {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
