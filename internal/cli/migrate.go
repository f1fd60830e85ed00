package cli

import (
	"database/sql"

	"inkwell/internal/database"

	"github.com/spf13/cobra"
)

// MigrateOptions holds flags for the migrate commands.
type MigrateOptions struct {
	*RootOptions
	To int64
}

// NewMigrateCommand creates the migrate command group.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or roll back the embedded SQL migrations against the database
named by the DB_* settings.

Examples:
  inkwellctl migrate up
  inkwellctl migrate down --to 1
  inkwellctl migrate status`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withDB(cmd, func(db *sql.DB) error {
				return database.MigrateUp(cmd.Context(), db, opts.logger())
			})
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration, or down to --to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withDB(cmd, func(db *sql.DB) error {
				return database.MigrateDown(cmd.Context(), db, opts.To, opts.logger())
			})
		},
	}
	down.Flags().Int64Var(&opts.To, "to", 0, "target version to roll back to")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withDB(cmd, func(db *sql.DB) error {
				return database.MigrationStatus(cmd.Context(), db)
			})
		},
	})

	return cmd
}

func (o *MigrateOptions) withDB(cmd *cobra.Command, fn func(*sql.DB) error) error {
	cfg, err := o.config()
	if err != nil {
		return err
	}
	db, err := database.OpenSQL(cmd.Context(), cfg.DSN())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}
