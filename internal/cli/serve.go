package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/apiarylab/hivemind/effects"
	"github.com/apiarylab/hivemind/engine"
	"github.com/apiarylab/hivemind/internal/api"
	"github.com/apiarylab/hivemind/rules"
	"github.com/apiarylab/hivemind/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		pg := store.NewPostgres(db)
		registry := engine.NewRegistry(pg)

		catalog, err := rules.Load(cfg.RulesPath, registry.ConditionTypes())
		if err != nil {
			return fmt.Errorf("load rule catalog: %w", err)
		}

		var cache store.DashboardCache
		if cfg.RedisURL != "" {
			redisCache, err := store.NewRedisCache(cfg.RedisURL, cfg.CacheTTL, log)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer redisCache.Close()
			cache = redisCache
			log.Info("dashboard cache backed by redis")
		} else {
			cache = store.NewMemoryCache(cfg.CacheTTL)
		}

		generator := engine.NewGenerator(catalog, registry, pg, pg, log)
		processor := effects.NewProcessor(pg, pg, pg, pg, log)
		server := api.NewServer(generator, processor, pg, pg, cache, db, log)

		httpServer := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           server.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("server listening", "port", cfg.Port)
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return err
			}
		}
		return nil
	},
}
