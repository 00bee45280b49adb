package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/benny59/architetti/internal/api"
	"github.com/benny59/architetti/internal/logger"
)

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scrape loop and the operator HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, regs, err := a.scheduler(ctx)
			if err != nil {
				return err
			}

			// ── HTTP server ──────────────────────────────────────────────────
			h := api.NewHandler(a.store, regs, a.metrics.Handler(), version, a.log)
			srv := &http.Server{
				Addr:         a.cfg.Server.Addr,
				Handler:      h.Routes(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}

			go func() {
				a.log.Info("HTTP server listening",
					logger.String("addr", a.cfg.Server.Addr),
					logger.String("version", version),
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.log.Error("HTTP server error", logger.Error(err))
					cancel()
				}
			}()

			// ── Scheduler ────────────────────────────────────────────────────
			done := make(chan error, 1)
			go func() { done <- sched.Run(ctx) }()

			// ── Graceful shutdown ────────────────────────────────────────────
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			var runErr error
			select {
			case sig := <-quit:
				a.log.Info("Shutting down", logger.String("signal", sig.String()))
				cancel()
				runErr = <-done
			case <-ctx.Done():
				runErr = <-done
			case runErr = <-done:
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Warn("HTTP shutdown error", logger.Error(err))
			}

			a.log.Info("Stopped")
			return runErr
		},
	}
}
