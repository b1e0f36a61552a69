package command

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tangled-dev/tangled/internal/router"
	"github.com/tangled-dev/tangled/internal/setup"
	"github.com/tangled-dev/tangled/shared/logger"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the composer web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, err := setup.SetupDependencies(ctx, cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			if deps.Bus.Enabled() {
				if err := deps.Feed.Listen(ctx); err != nil {
					logger.Log.Warn("thread list refresh from other instances disabled", "error", err)
				}
			}

			srv := &http.Server{
				Addr:              cfg.Public.Http.Addr,
				Handler:           router.New(deps),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       2 * time.Minute,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Log.Info("server started", "addr", srv.Addr, "store", cfg.Public.Store.Driver)
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

			logger.Log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
