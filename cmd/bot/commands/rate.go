package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Armin-kho/currency-rate-bot/internal/items"
	"github.com/Armin-kho/currency-rate-bot/internal/utils"
)

func rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate [from] [to]",
		Short: "Resolve one exchange rate and print it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oracle := newOracle()
			defer oracle.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
			defer cancel()

			from, to := items.Normalize(args[0]), items.Normalize(args[1])
			out := newResolver(oracle).Explain(ctx, from, to)
			if !out.OK {
				return fmt.Errorf("rate %s/%s unavailable: %w", from, to, out.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "1 %s = %s %s\n", from, utils.FormatRate(out.Rate), to)
			fmt.Fprintf(cmd.OutOrStdout(), "1 %s = %s %s\n", to, utils.FormatRate(1/out.Rate), from)
			return nil
		},
	}
}
