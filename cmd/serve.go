package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/api"
	"github.com/recifedata/crimecast/internal/app"
	"github.com/recifedata/crimecast/internal/monitoring"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions, profiles and rankings over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		metrics := monitoring.New()
		svc, err := initServices(ctx, "serve", app.Options{Metrics: metrics})
		if err != nil {
			return err
		}
		defer svc.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.New(apiDeps(svc, metrics)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// apiDeps exposes the services that loaded. A nil service stays nil so
// its endpoints answer 503.
func apiDeps(svc *app.Services, metrics *monitoring.Metrics) api.Deps {
	return api.Deps{
		Aggregates:  svc.Aggregates,
		Predictions: svc.Predictions,
		Batch:       svc.Batch,
		Profiles:    svc.Profiles,
		Metrics:     metrics,
		Components:  svc.Components,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
