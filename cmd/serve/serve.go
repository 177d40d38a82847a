// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/speechcoach/speechcoach-go/internal/analysis"
	api "github.com/speechcoach/speechcoach-go/internal/api/v2"
	"github.com/speechcoach/speechcoach-go/internal/conf"
	"github.com/speechcoach/speechcoach-go/internal/datastore"
	"github.com/speechcoach/speechcoach-go/internal/logging"
	"github.com/speechcoach/speechcoach-go/internal/observability"
	"github.com/speechcoach/speechcoach-go/internal/oracle"
)

// Command returns the serve subcommand
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the speechcoach API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings)
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Host, "host", settings.WebServer.Host, "Address to bind the server to")
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", settings.WebServer.Port, "Port to listen on")

	return cmd
}

func run(settings *conf.Settings) error {
	logger := logging.ForService("server")

	ds := datastore.New(settings)
	if ds == nil {
		return fmt.Errorf("no database backend enabled in configuration")
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logger.Error("closing datastore", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	oracleClient, err := oracle.FromSettings(settings, metrics.Oracle)
	if err != nil {
		return fmt.Errorf("initializing oracle client: %w", err)
	}
	defer oracleClient.Close()

	analysisService := analysis.NewService(settings, ds, oracleClient, metrics)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())
	e.Use(middleware.CORS())

	controller, err := api.New(e, ds, settings, analysisService, metrics, log.Default())
	if err != nil {
		return fmt.Errorf("initializing API controller: %w", err)
	}
	defer controller.Shutdown()

	addr := fmt.Sprintf("%s:%s", settings.WebServer.Host, settings.WebServer.Port)
	errChan := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr, "version", settings.Version)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
