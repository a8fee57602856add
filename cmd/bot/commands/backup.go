package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Armin-kho/currency-rate-bot/internal/db"
)

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [dst]",
		Short: "Copy the SQLite session database to dst",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.Open(cfg.DBPath())
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.BackupTo(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", args[0])
			return nil
		},
	}
}
