package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/media-subtitle-translator/internal/artifact"
	"github.com/MimeLyc/media-subtitle-translator/internal/config"
	"github.com/MimeLyc/media-subtitle-translator/internal/httpapi"
	"github.com/MimeLyc/media-subtitle-translator/internal/janitor"
	"github.com/MimeLyc/media-subtitle-translator/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type scheduler interface {
	Schedule(ctx context.Context) error
}

type scheduleFunc func(ctx context.Context) error

func (f scheduleFunc) Schedule(ctx context.Context) error { return f(ctx) }

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the temp directory janitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			artifacts := artifact.NewStore(cfg.Media.OutputDir)
			orch, err := newOrchestrator(cfg, artifacts)
			if err != nil {
				return err
			}

			srv := httpapi.NewServer(orch, store, artifacts,
				httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled),
				httpapi.WithMaxUploadMemory(int64(cfg.HTTP.MaxUploadMemory)),
			)
			engine := cron.New()
			sweeper := janitor.New(cfg.Media.TempDir, cfg.Janitor.CronExpr, time.Duration(cfg.Janitor.MaxAge))

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runWithComponents(runCtx, cfg, scheduleFunc(func(ctx context.Context) error {
				return sweeper.Schedule(ctx, engine)
			}), engine, srv)
		},
	}
}

// runWithComponents starts the scheduler and the HTTP server and blocks
// until ctx is done or the server fails.
func runWithComponents(ctx context.Context, cfg *config.Config, sched scheduler, engine cronEngine, srv httpServer) error {
	if err := sched.Schedule(ctx); err != nil {
		return err
	}
	engine.Start()
	defer engine.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()
	log.Info("HTTP server listening on %s", cfg.HTTP.Addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
