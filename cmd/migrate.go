package cmd

import (
	"github.com/spf13/cobra"

	"kennel-portal/databases"
	"kennel-portal/observability"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := observability.WithLogger(cmd.Context(), observability.GetLogger())

		db, err := databases.Open(ctx, appCfg)
		if err != nil {
			return err
		}
		defer db.Close()

		return databases.Migrate(ctx, db)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
