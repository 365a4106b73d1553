package cli

import (
	"github.com/spf13/cobra"
)

func newCacheCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Cache management",
	}

	var symbols []string
	clear := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached concern records",
		Long: `Remove every concern's cached record, forcing the next fetch to hit the
providers. Per-symbol fundamentals entries are cleared for the given symbols.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Facade.Invalidate(cmd.Context(), symbols); err != nil {
				return err
			}
			output.Success("cache cleared")
			return nil
		},
	}
	clear.Flags().StringSliceVar(&symbols, "symbols", nil,
		"stock symbols whose fundamentals entries to clear")

	cmd.AddCommand(clear)
	return cmd
}
