package cmd

import (
	"os"
	"os/signal"
	"sma-crossover/internal/delivery/http"
	"sma-crossover/pkg/middleware"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the backtest API and run the scheduled bar cache refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		appDep, err := NewAppDependency(ctx)
		if err != nil {
			return err
		}
		defer appDep.Close()

		scheduler := appDep.service.SchedulerService
		if err := scheduler.Start(ctx); err != nil {
			return err
		}

		if appDep.cfg.API.RateLimit > 0 {
			appDep.echo.Use(middleware.NewRateLimiterMiddleware(appDep.cfg.API.RateLimit, appDep.cfg.API.RateBurst))
		}
		handler := http.NewHttpAPIHandler(ctx, appDep.echo, appDep.validator, appDep.service, appDep.log)
		server := NewHTTPServer(ctx, appDep, handler)

		serverErr := make(chan error, 1)
		go func() {
			serverErr <- server.Start()
		}()

		select {
		case <-ctx.Done():
			appDep.log.Info("Received shutdown signal")
		case err = <-serverErr:
			if err != nil {
				appDep.log.Error("HTTP server failed", zap.Error(err))
			}
		}

		if stopErr := server.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}

		// let an in-flight refresh finish, but not forever
		select {
		case <-scheduler.Stop().Done():
		case <-time.After(appDep.cfg.Scheduler.RefreshTimeout):
			appDep.log.Warn("Timeout while waiting for scheduled refresh to finish")
		}
		return err
	},
}
