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

	delivery "eventroster/internal/delivery/http"
	"eventroster/internal/delivery/http/controllers"
	"eventroster/internal/delivery/http/middleware"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the RSVP and staff HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cfg.NewLogger(os.Stdout)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Error("close", "error", err)
				}
			}()

			a.dispatcher.Start(context.WithoutCancel(ctx))
			defer a.dispatcher.Stop()

			router := delivery.NewRouter(
				controllers.NewRSVPController(logger, a.invitations),
				controllers.NewRosterController(logger, a.sync, a.memberships, a.invitations),
				a.tokens,
				a.metrics.Handler(),
				logger,
			)
			handler := middleware.LoggingMiddleware(logger, middleware.CORS(cfg.AllowedOrigins, router))
			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment, "storage", cfg.Storage)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("server shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
}
