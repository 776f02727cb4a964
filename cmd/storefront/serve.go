package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bazaarlab/storefront/internal/app"
	"github.com/bazaarlab/storefront/internal/shopapi"
	"github.com/bazaarlab/storefront/internal/webserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		application := app.NewApplication(cfg)
		if err := application.Init(); err != nil {
			return err
		}
		defer application.Release()
		application.StartBackgroundJobs()

		srv := webserver.Init(cfg)
		shopapi.Init(&shopapi.Deps{
			DB:         application.DB(),
			Config:     cfg,
			I18n:       application.I18n(),
			Media:      application.Media(),
			Checkout:   application.Checkout(),
			Dispatcher: application.Dispatcher(),
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		zap.L().Info("shutting down", zap.String("namespace", "web"))
		return srv.Shutdown(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
