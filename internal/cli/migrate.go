package cli

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

var migrationsPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down]",
	Short: "Apply or roll back database migrations",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}

		m, err := migrate.New("file://"+migrationsPath, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("init migrations: %w", err)
		}
		defer m.Close()

		switch direction {
		case "up":
			err = m.Up()
		case "down":
			err = m.Steps(-1)
		default:
			return fmt.Errorf("unknown direction: %s", direction)
		}

		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("migrations up to date")
			return nil
		}
		if err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		log.Info("migrations applied", "direction", direction)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsPath, "path", "migrations", "migrations directory")
}
