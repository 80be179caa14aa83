package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storewatch/sentinel/internal/bootstrap"
	"github.com/storewatch/sentinel/internal/config"
	"github.com/storewatch/sentinel/internal/migrations"
)

func init() {
	var migrateStatus bool
	var migrateRollback bool
	migrateCmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Database migration management",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenSQLite(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrateStatus {
				return migrations.Status(db)
			}
			if migrateRollback {
				return migrations.Down(db)
			}

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}
			switch action {
			case "up":
				return migrations.Up(db)
			case "down":
				return migrations.Down(db)
			case "status":
				return migrations.Status(db)
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
		},
	}
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show migration status")
	migrateCmd.Flags().BoolVar(&migrateRollback, "rollback", false, "Rollback the last migration")
	rootCmd.AddCommand(migrateCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("sentinel-server %s (commit %s, built %s)\n", Version, Commit, BuildTime)
			return nil
		},
	}
	rootCmd.AddCommand(versionCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one health-sweep pass against the current database and exit",
		RunE:  runSweepOnce,
	}
	rootCmd.AddCommand(sweepCmd)
}
