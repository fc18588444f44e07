package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/sunmap/internal/fitsfile"
	"github.com/ironsheep/sunmap/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Serves the map tools over the Model Context Protocol (JSON-RPC 2.0, one
request per line). stdout carries the protocol; logs go to stderr.

Loaded FITS files stay cached for the life of the server and are dropped as
soon as they change on disk.

Configure it in your MCP client (e.g., Claude Desktop) as:
  sunmap serve --config /path/to/sunmap.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("MCP server starting",
			zap.String("version", Version),
			zap.String("build_time", BuildTime),
			zap.String("commit", GitCommit))
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cache := fitsfile.NewCache()
		watcher, err := fitsfile.NewWatcher(cache, logger)
		if err != nil {
			return err
		}
		watcher.Start(ctx)
		defer watcher.Close()

		srv := server.New(
			server.WithLogger(logger),
			server.WithCache(cache),
			server.WithFigureSize(cfg.Figure.Width, cfg.Figure.Height),
		)
		if err := srv.Run(); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "sunmap %s\n", Version)
		fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  MCP server: %s\n", server.Version)
	},
}
