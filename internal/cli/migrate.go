package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	appMigrations "github.com/yigit/marketday/internal/app/migrations"
	"github.com/yigit/marketday/internal/bootstrap"
	"github.com/yigit/marketday/internal/config"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations to Postgres",
		Long: `Apply every embedded SQL migration that the database has not recorded yet.

With --list the migrations compiled into the binary are printed and nothing is applied.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return listMigrations(cmd)
			}
			return runMigrate(cmd.Context(), rootOpts, cmd)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list embedded migrations without connecting")
	return cmd
}

func listMigrations(cmd *cobra.Command) error {
	migrations, err := appMigrations.NewMigrator(nil).Pending()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.Version, m.Name)
	}
	return nil
}

func runMigrate(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	cfg, lgr, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate needs the postgres driver, config uses %q", cfg.Database.Driver)
	}

	database, err := bootstrap.ConnectPostgres(cfg, lgr)
	if err != nil {
		return err
	}
	defer database.Close()

	applied, err := appMigrations.NewMigrator(database.Pool).Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migration failed after %d applied: %w", applied, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", applied)
	return nil
}
