package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mcphub/internal/config"
	"mcphub/internal/hub"
	"mcphub/internal/server"
	"mcphub/pkg/logging"

	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the graceful drain of in-flight calls and the
// HTTP listener.
const shutdownTimeout = 15 * time.Second

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveConfigDir is the directory holding config.yaml, the optional .env
// file and the API-tool definitions.
var serveConfigDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mcphub gateway",
	Long: `Starts the hub: connects the configured MCP servers, loads the
HTTP-tool bridge and serves the REST API and SSE event stream.

Configuration is read from <config-dir>/config.yaml. A .env file in the
same directory is merged into the process environment for ${env.*}
substitution in API-tool templates.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(serveConfigDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return err
	}

	level := logging.ParseLevel(cfg.Log.Level)
	if serveDebug {
		level = logging.LevelDebug
	}
	if cfg.Log.File != "" {
		out := logging.InitWithRotation(level, logging.RotationConfig{
			Filename:   cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
		defer out.Close()
	} else {
		logging.InitForCLI(level, os.Stdout)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.New(cfg)
	if err := h.Initialize(ctx); err != nil {
		logging.Error("Serve", err, "Hub initialization failed")
		return err
	}

	httpServer := server.New(cfg.HTTP, h)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Serve", "Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logging.Error("Serve", err, "HTTP server failed")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = h.Shutdown(shutdownCtx)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logging.Warn("Serve", "HTTP server shutdown: %v", err)
	}
	if err := h.Shutdown(shutdownCtx); err != nil {
		logging.Error("Serve", err, "Hub shutdown reported errors")
		return err
	}

	logging.Info("Serve", "Goodbye")
	return nil
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveConfigDir, "config-dir", ".", "Directory containing config.yaml")
	rootCmd.AddCommand(serveCmd)
}
