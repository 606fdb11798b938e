// Package cli wires the hivemind commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/apiarylab/hivemind/internal/config"
	"github.com/apiarylab/hivemind/internal/logger"
)

var (
	cfg         *config.Config
	log         *slog.Logger
	logShutdown func(context.Context) error

	rootCmd = &cobra.Command{
		Use:   "hivemind",
		Short: "Hivemind: rule-based analysis engine for apiary operations",
		Long: `Hivemind evaluates a declarative rule catalog against hive records,
turning overdue treatments, stale inspections, aging queens and hornet
activity spikes into actionable insights with a prioritized worklist.`,
	}
)

// Execute runs the root command and flushes the log exporter on exit.
func Execute() error {
	err := rootCmd.Execute()
	if logShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := logShutdown(ctx); serr != nil {
			fmt.Fprintf(os.Stderr, "flush logs: %v\n", serr)
		}
	}
	return err
}

func init() {
	cobra.OnInitialize(func() {
		cfg = config.Load()
		if cfg.OTLPEndpoint != "" {
			otlpLog, shutdown, err := logger.NewOTLP(context.Background(), cfg.ServiceName, cfg.LogLevel)
			if err == nil {
				log = otlpLog
				logShutdown = shutdown
				return
			}
			fmt.Fprintf(os.Stderr, "OTLP logging unavailable, using %s: %v\n", cfg.LogFormat, err)
		}
		log = logger.New(cfg.LogLevel, cfg.LogFormat)
	})

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(analyzeCmd)
}
