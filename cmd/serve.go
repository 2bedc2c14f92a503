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

	"github.com/carveworks/fabline/internal/server"
)

var (
	serveWarehouseDir string
	servePort         int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the feature table and quality report over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDirOverrides("", serveWarehouseDir)
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	wh, err := openWarehouse(ctx)
	if err != nil {
		return eris.Wrap(err, "serve: open warehouse")
	}
	defer wh.Close()

	srv := server.New(fmt.Sprintf(":%d", cfg.Server.Port), wh, cfg.Warehouse.Dir, cfg.Server)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("serve: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func init() {
	serveCmd.Flags().StringVar(&serveWarehouseDir, "warehouse-dir", "", "directory for warehouse artifacts")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
