// Package cli implements the cobra command tree for painless.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/painless-params/painless/server/internal/config"
	"github.com/painless-params/painless/server/internal/logging"
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// rootOptions carries the persistent flags and the config built from them
// in PersistentPreRunE. The logger travels in the command context.
type rootOptions struct {
	cfgFile   string
	dir       string
	logLevel  string
	logFormat string

	cfg *config.Config
}

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "painless",
		Short: "Edit file-backed parameters from the browser",
		Long: `painless keeps one parameter per file in a base directory: the file name
is the parameter name and the first line of the file is its value.

"painless serve" runs a web page that lists, edits and removes parameters
and pushes every change to all open pages. The other commands operate on
the directory directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.setup(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.cfgFile, "config", "", "YAML config file (default: none, built-in defaults)")
	pf.StringVar(&o.dir, "dir", "", "parameter base directory (overrides config)")
	pf.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&o.logFormat, "log-format", "", "log format: json, text")

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	cmd.AddCommand(
		newServeCommand(o),
		newListCommand(o),
		newGetCommand(o),
		newSetCommand(o),
		newRemoveCommand(o),
		newDemoCommand(o),
	)

	return cmd
}

// setup loads .env and the config file, applies flag overrides and installs
// the logger.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &ExitError{Code: 2, Err: fmt.Errorf("load .env: %w", err)}
	}

	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	if o.dir != "" {
		cfg.Server.BaseDir = o.dir
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	o.cfg = cfg
	logger := logging.SetupWithWriter(cfg.Log, cmd.ErrOrStderr())
	cmd.SetContext(logging.NewContext(cmd.Context(), logger))

	logger.Debug("configuration loaded",
		slog.String("config", o.cfgFile),
		slog.String("base_dir", cfg.Server.BaseDir),
		slog.String("log_level", cfg.Log.Level),
	)
	return nil
}
