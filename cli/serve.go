package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itish2003/semsearch/controller"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and search page",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	gin.SetMode(cfg.Server.Mode)
	router := controller.NewRouter(a.service, a.logger, cfg.Server.MaxUploadBytes)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	port := cfg.Server.Port
	a.logger.Info("Go Gin backend server starting on http://localhost:" + port)
	a.logger.Info("Health check available at: http://localhost:" + port + "/health")
	a.logger.Info("API endpoints:",
		zap.Strings("routes", []string{
			"POST   /api/v1/sessions",
			"POST   /api/v1/sessions/:id/dataset",
			"GET    /api/v1/sessions/:id/progress",
			"POST   /api/v1/sessions/:id/query",
			"DELETE /api/v1/sessions/:id/namespace",
			"DELETE /api/v1/sessions/:id",
		}))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.logger.Error("Failed to start server", zap.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
