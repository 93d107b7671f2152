package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/painless-params/painless/pkg/param"
	"github.com/painless-params/painless/server/internal/logging"
)

type demoOptions struct {
	interval time.Duration
	count    int
}

func newDemoCommand(o *rootOptions) *cobra.Command {
	d := &demoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Declare sample parameters and print their values as they change",
		Long: `demo declares demo_float, demo_int, demo_bool and demo_string in the base
directory and prints their current values at a fixed interval. Edit the
files, or use the web page of "painless serve", to see the values change.
The files are removed when demo exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDemo(ctx, cmd, o, d)
		},
	}

	cmd.Flags().DurationVar(&d.interval, "interval", time.Second, "print interval")
	cmd.Flags().IntVar(&d.count, "count", 0, "stop after this many prints (0: until interrupted)")

	return cmd
}

func runDemo(ctx context.Context, cmd *cobra.Command, o *rootOptions, d *demoOptions) (err error) {
	if d.interval <= 0 {
		return &ExitError{Code: 2, Err: fmt.Errorf("--interval must be positive, got %s", d.interval)}
	}

	logger := logging.FromContext(ctx)
	opts := []param.Option{param.WithDir(o.cfg.Server.BaseDir), param.WithLogger(logger)}

	f, err := param.New("demo_float", 1.4, opts...)
	if err != nil {
		return err
	}
	defer closeParam(f, &err)

	i, err := param.New("demo_int", 42, opts...)
	if err != nil {
		return err
	}
	defer closeParam(i, &err)

	b, err := param.New("demo_bool", true, opts...)
	if err != nil {
		return err
	}
	defer closeParam(b, &err)

	s, err := param.New("demo_string", "hello", opts...)
	if err != nil {
		return err
	}
	defer closeParam(s, &err)

	logger.Info("demo parameters declared", "dir", o.cfg.Server.BaseDir)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s=%s %s=%s %s=%s %s=%q\n",
			f.Name(), f, i.Name(), i, b.Name(), b, s.Name(), s.Value()); err != nil {
			return err
		}
		if d.count > 0 && n >= d.count {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type closer interface{ Close() error }

func closeParam(p closer, err *error) {
	if cerr := p.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
