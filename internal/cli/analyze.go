package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apiarylab/hivemind/engine"
	"github.com/apiarylab/hivemind/rules"
	"github.com/apiarylab/hivemind/store"
)

var (
	analyzeTenant string
	analyzeHive   string
	analyzeReset  bool
	pruneDays     int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a one-off analysis for a tenant or a single hive and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeTenant == "" {
			return fmt.Errorf("--tenant is required")
		}

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

		if analyzeReset {
			dismissed, err := pg.DismissAllActiveInsights(cmd.Context(), analyzeTenant)
			if err != nil {
				return fmt.Errorf("dismiss active insights: %w", err)
			}
			log.Info("active insights dismissed before run", "tenant_id", analyzeTenant, "count", dismissed)
		}
		if pruneDays > 0 {
			deleted, err := pg.DeleteOldInsights(cmd.Context(), analyzeTenant, pruneDays)
			if err != nil {
				return fmt.Errorf("prune old insights: %w", err)
			}
			log.Info("old dismissed insights pruned", "tenant_id", analyzeTenant, "days", pruneDays, "count", deleted)
		}

		generator := engine.NewGenerator(catalog, registry, pg, pg, log)

		var result any
		if analyzeHive != "" {
			result, err = generator.AnalyzeHive(cmd.Context(), analyzeTenant, analyzeHive)
		} else {
			result, err = generator.AnalyzeTenant(cmd.Context(), analyzeTenant)
		}
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTenant, "tenant", "", "tenant id to analyze")
	analyzeCmd.Flags().StringVar(&analyzeHive, "hive", "", "analyze a single hive instead of the whole tenant")
	analyzeCmd.Flags().BoolVar(&analyzeReset, "reset", false, "dismiss all active insights before running")
	analyzeCmd.Flags().IntVar(&pruneDays, "prune-days", 0, "delete dismissed insights older than this many days")
}
