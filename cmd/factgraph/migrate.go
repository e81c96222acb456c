package main

import (
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/factgraph/internal/util"
	"github.com/OFFIS-RIT/factgraph/migrations"
	"github.com/OFFIS-RIT/factgraph/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var (
		dsn  string
		path string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL fact store schema",
		Long: `Runs the schema migrations against DATABASE_URL. The migrations built
into the binary are used unless --path points to a directory of .sql files.
The SQLite store creates its schema on open and needs no migrations.`,
	}
	cmd.PersistentFlags().StringVar(&dsn, "database-url", "", "database URL (default $DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&path, "path", "", "directory with migration files")

	open := func() (*migrate.Migrate, error) {
		if dsn == "" {
			dsn = util.GetEnv("DATABASE_URL")
		}
		if dsn == "" {
			return nil, errors.New("no database URL given")
		}
		return newMigrator(dsn, path)
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer closeMigrator(m)
			return report(cmd, m, m.Up())
		},
	}

	var steps int
	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 && !all {
				return errors.New("--steps must be positive")
			}
			m, err := open()
			if err != nil {
				return err
			}
			defer closeMigrator(m)
			if all {
				return report(cmd, m, m.Down())
			}
			return report(cmd, m, m.Steps(-steps))
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")
	down.Flags().BoolVar(&all, "all", false, "revert every migration")

	cmd.AddCommand(up, down)
	return cmd
}

func newMigrator(dsn, path string) (*migrate.Migrate, error) {
	if path != "" {
		return migrate.New("file://"+path, dsn)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", src, dsn)
}

func report(cmd *cobra.Command, m *migrate.Migrate, err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		cmd.Println("No change.")
		return nil
	}
	if err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		cmd.Println("Schema is empty.")
		return nil
	}
	if err != nil {
		return err
	}
	cmd.Printf("Schema at version %d (dirty: %t)\n", version, dirty)
	return nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		logger.Warn("[Migrate] Failed to close migrator", "source_err", srcErr, "db_err", dbErr)
	}
}
