package cmd

import (
	"errors"
	"fmt"

	"github.com/prperemyshlev/guild-rejoin/internal/config"
	"github.com/prperemyshlev/guild-rejoin/pkg/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *database.Migrator) error {
			if err := m.Up(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *database.Migrator) error {
			if err := m.Down(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Last migration rolled back")
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *database.Migrator) error {
			status, err := m.Status()
			if err != nil {
				return err
			}
			if !status.Applied {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %d (dirty: %t)\n", status.Version, status.Dirty)
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func withMigrator(cmd *cobra.Command, fn func(m *database.Migrator) error) error {
	pg, err := config.LoadPostgres(cmd.Context())
	if err != nil {
		return err
	}

	m, err := database.NewMigrator(pg.URL())
	if err != nil {
		return err
	}

	return errors.Join(fn(m), m.Close())
}
