package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"pragent/internal/bootstrap/logging"
	"pragent/internal/errs"
)

// migrateCmd imports a legacy JSON event archive into the store.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Import a legacy JSON event archive",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		file, _ := cmd.Flags().GetString("file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if file == "" {
			return errors.New("--file is required")
		}

		if !dryRun {
			if err := deps.App.InitSchema(ctx); err != nil {
				return errs.Wrap(err, "initialize schema")
			}
		}

		stats, err := deps.Service.ImportArchive(ctx, file, dryRun)
		if err != nil {
			logging.Error(ctx, "archive import failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "import archive")
		}

		out := cmd.OutOrStdout()
		if stats.DryRun {
			fmt.Fprintf(out, "dry run: %d records parsed, %d would be imported, %d unreadable\n",
				stats.Total, stats.Planned, stats.Failed)
			return nil
		}

		fmt.Fprintf(out, "imported %d of %d records (%d already present, %d unreadable)\n",
			stats.Inserted, stats.Total, stats.Skipped, stats.Failed)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().String("file", "", "Path to the legacy JSON archive")
	migrateCmd.Flags().Bool("dry-run", false, "Parse and report without writing to the database")
}
