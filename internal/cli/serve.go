package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/acmap/internal/mapdata"
	"github.com/ppiankov/acmap/internal/mapview"
	"github.com/ppiankov/acmap/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the accident map",
	Long: `Serve starts the HTTP server with the interactive accident map.

The accident list is loaded in the background on startup and published to
every open map. Searches from any browser replace the displayed markers.

Example:
  acmap serve
  acmap serve --addr :9000 --api-url https://accidents.example.org/api
  acmap serve --snapshot-fallback --snapshot-path ./acmap.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config, :8090)")
	serveCmd.Flags().String("mode", "", "gin mode: release, debug, test")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.mode", serveCmd.Flags().Lookup("mode"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	st, closeStore, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server, mapview.SettingsFromConfig(cfg.Map), st, mapdata.NewFeed(mapdata.DefaultBuffer), logger)

	fmt.Fprintf(os.Stderr, "Serving accident map on %s (API: %s)\n", cfg.Server.Addr, cfg.API.BaseURL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		// The next request retries a failed load
		if err := srv.Warmup(gctx); err != nil && gctx.Err() == nil {
			logger.Warn("Initial accident load failed", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
