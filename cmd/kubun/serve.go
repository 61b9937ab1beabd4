package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/server"
	"github.com/hyperjump/kubun/internal/watcher"
)

var noWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the inbox watcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		env, err := setup(ctx, true, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		var watchSvc server.WatchService
		if !noWatch {
			w := watcher.FromConfig(&env.cfg.Watch, env.c.Indexer, env.logger)
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()
			w.SyncExistingFiles()
			watchSvc = w
		}

		srv := server.NewServer(env.c, watchSvc, env.configPath, env.logger)
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
		}
		env.logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			env.logger.Warn("server shutdown", zap.Error(err))
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [directory]...",
	Short: "Watch inbox directories and extract new documents",
	Long: `Watch the configured inbox directories (plus any given as arguments) and extract
every new or changed document. Removing a file deletes its extraction.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		env, err := setup(ctx, true, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		w := watcher.FromConfig(&env.cfg.Watch, env.c.Indexer, env.logger)
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
		for _, dir := range args {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			if err := w.AddDirectory(abs, false); err != nil {
				return err
			}
		}
		w.SyncExistingFiles()
		env.logger.Info("watching", zap.Strings("directories", w.Directories()))

		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				st := w.Stats()
				env.logger.Info("stopping watcher",
					zap.Int64("extracted", st.Extracted),
					zap.Int64("failed", st.Failed),
					zap.Int64("removed", st.Removed))
				return nil
			case <-ticker.C:
				if err := env.c.SaveVectors(); err != nil {
					env.logger.Warn("vector index save failed", zap.Error(err))
				}
			}
		}
	},
}

func init() {
	serveCmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch inbox directories")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}
