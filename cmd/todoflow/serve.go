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
	"go.uber.org/zap"

	"todoflow/infrastructure/logger"
	"todoflow/pkg/todoflow"
	"todoflow/server"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			app, err := todoflow.New(
				todoflow.FromConfig(cfg),
				todoflow.WithLogger(logger.Get()),
			)
			if err != nil {
				return err
			}

			srv, err := server.NewServer(cfg.Server, app, logger.Named("server"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			log.Info("Server started",
				zap.String("address", cfg.Server.Address()),
				zap.String("driver", cfg.Database.Driver),
				zap.Int("workers", cfg.Worker.PoolSize),
			)

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("Server failed", zap.Error(err))
					_ = app.Shutdown(context.Background())
					return err
				}
			case <-ctx.Done():
			}

			log.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("Server shutdown failed", zap.Error(err))
				return err
			}

			log.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port (overrides server.port)")
	return cmd
}
