package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/painless-params/painless/server/internal/api"
	"github.com/painless-params/painless/server/internal/config"
	"github.com/painless-params/painless/server/internal/logging"
	"github.com/painless-params/painless/server/internal/store"
	"github.com/painless-params/painless/server/internal/watch"
	"github.com/painless-params/painless/server/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(o *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the parameter editor web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				o.cfg.Server.HTTPPort = port
				if err := o.cfg.Validate(); err != nil {
					return &ExitError{Code: 2, Err: err}
				}
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			srv, err := newServer(o.cfg, logging.FromContext(ctx))
			if err != nil {
				return err
			}

			lis, err := net.Listen("tcp", fmt.Sprintf(":%d", o.cfg.Server.HTTPPort))
			if err != nil {
				return fmt.Errorf("listen on port %d: %w", o.cfg.Server.HTTPPort, err)
			}
			return srv.Run(ctx, lis)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultHTTPPort, "HTTP port (overrides config)")

	return cmd
}

// server owns the store, the hub and the single filesystem watcher.
type server struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	hub    *ws.Hub
}

func newServer(cfg *config.Config, logger *slog.Logger) (*server, error) {
	st := store.New(cfg.Server.BaseDir)
	if err := st.EnsureDir(); err != nil {
		return nil, err
	}

	hub := ws.New(st, ws.Options{
		CommandsPerSecond: cfg.Realtime.CommandsPerSecond,
		Burst:             cfg.Realtime.Burst,
		Logger:            logger,
	})

	return &server{cfg: cfg, logger: logger, store: st, hub: hub}, nil
}

// Run serves HTTP on lis until ctx is cancelled, then shuts down gracefully.
// The watcher is started before the first connection is accepted.
func (s *server) Run(ctx context.Context, lis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Info("painless starting",
		"base_dir", s.cfg.Server.BaseDir,
		"addr", lis.Addr().String(),
		"watch", s.cfg.Realtime.Watch,
	)

	go s.hub.Run(ctx)

	if s.cfg.Realtime.Watch {
		if err := s.startWatcher(ctx); err != nil {
			lis.Close()
			return err
		}
	}

	httpSrv := &http.Server{
		Handler:           api.New(s.store, s.hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", lis.Addr().String())
		if err := httpSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	s.logger.Info("painless shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return httpSrv.Shutdown(shutdownCtx)
}

// startWatcher runs the directory watcher in the background and waits until
// its watch is registered.
func (s *server) startWatcher(ctx context.Context) error {
	w := watch.New(s.cfg.Server.BaseDir, s.hub.Broadcast).WithLogger(s.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()

	select {
	case <-w.Ready():
		go func() {
			if err := <-errCh; err != nil {
				s.logger.Error("watch: stopped", "err", err)
			}
		}()
		return nil
	case err := <-errCh:
		if err == nil {
			err = ctx.Err()
		}
		return fmt.Errorf("start watcher: %w", err)
	}
}
