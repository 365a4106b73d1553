package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"marketbrief/internal/models"
)

var allConcerns = []models.ConcernName{
	models.ConcernTreasuryYields,
	models.ConcernInflation,
	models.ConcernFedPolicy,
	models.ConcernFundamentals,
	models.ConcernGeopoliticalRisks,
}

func newFetchCmd(app *App) *cobra.Command {
	var concernFlags []string
	var symbols []string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Retrieve newsletter data across all concerns",
		Long: `Retrieve the composite newsletter record. Every requested concern is
resolved through its provider fallback chain; failures degrade the affected
section while the rest of the composite stays usable.`,
		Example: `  marketbrief fetch
  marketbrief fetch --concerns treasuryYields,inflation
  marketbrief fetch --symbols AAPL,MSFT --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			concerns, err := resolveConcerns(concernFlags)
			if err != nil {
				return err
			}

			composite := app.Facade.Aggregate(cmd.Context(), concerns, symbols)

			if output.IsJSON() {
				return output.JSON(composite)
			}
			printComposite(output, composite)
			if !composite.Success {
				return fmt.Errorf("every concern failed")
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&concernFlags, "concerns", nil,
		"concerns to retrieve (default: all)")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil,
		"stock symbols for the fundamentals concern")

	return cmd
}

func resolveConcerns(flags []string) ([]models.ConcernName, error) {
	if len(flags) == 0 {
		return allConcerns, nil
	}

	known := make(map[models.ConcernName]bool, len(allConcerns))
	for _, c := range allConcerns {
		known[c] = true
	}

	out := make([]models.ConcernName, 0, len(flags))
	for _, f := range flags {
		name := models.ConcernName(strings.TrimSpace(f))
		if !known[name] {
			return nil, fmt.Errorf("unknown concern %q", f)
		}
		out = append(out, name)
	}
	return out, nil
}

func printComposite(output *Output, composite models.CompositeResult) {
	for _, name := range allConcerns {
		result, ok := composite.Results[name]
		if !ok {
			continue
		}
		if result.Success {
			output.Success("%-18s ok", name)
			continue
		}
		output.Error("%-18s %s", name, result.Message)
	}
}
