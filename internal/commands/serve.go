package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"prompt2web_server/internal/api"
	"prompt2web_server/internal/generation"
	"prompt2web_server/internal/preview"
	"prompt2web_server/internal/session"
	"prompt2web_server/internal/users"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	// --- Dependency Initialization ---
	db, err := users.OpenDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return err
	}
	userStore := users.NewStore(db)

	generator := newGenerator(cfg, logger)

	sessions := session.NewStore(generator, userStore, cfg.SessionCapacity, cfg.SessionTTL, logger,
		generation.WithProgressInterval(cfg.ProgressInterval))
	defer sessions.Close()

	previews, err := preview.NewCache(cfg.PreviewCacheMaxCost, cfg.SessionTTL)
	if err != nil {
		return err
	}
	defer previews.Close()

	apiHandler := api.NewAPIHandler(generator, sessions, userStore, previews, logger)

	// --- Start API Server ---
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
		logger.Info("running in gin debug mode")
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	api.RegisterRoutes(router, apiHandler)

	server := &http.Server{
		Addr:        cfg.ServerAddress,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: event streams stay open for a whole run.
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting API server", "addr", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("received signal, shutting down server", "signal", sig.String())
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("API server listen error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server forced shutdown", "error", err)
	} else {
		logger.Info("API server gracefully stopped")
	}
	return nil
}
