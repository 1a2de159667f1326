package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/graham/internal/rebalance"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Size the trades for a given equity target",
	Long: `Computes the stock and bond trades that move the holdings to --equity
percent of the investable total. No scoring, no state.

Example:
  go run ./cmd/graham plan --equity 60 --holdings data/holdings.csv
  go run ./cmd/graham plan --equity 40 --include-cash=false`,
	RunE: runPlan,
}

var (
	planHoldings    string
	planEquity      int
	planIncludeCash bool
)

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planHoldings, "holdings", "", "holdings CSV (default: policy holdings.path or $HOLDINGS_PATH)")
	planCmd.Flags().IntVar(&planEquity, "equity", 0, "equity target, percent")
	planCmd.Flags().BoolVar(&planIncludeCash, "include-cash", true, "count Cash in the investable total")
	_ = planCmd.MarkFlagRequired("equity")
}

func runPlan(cmd *cobra.Command, args []string) error {
	if planEquity < 0 || planEquity > 100 {
		return fmt.Errorf("--equity must be within 0..100")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	includeCash := a.policy.Preferences.IncludeCash
	if cmd.Flags().Changed("include-cash") {
		includeCash = planIncludeCash
	}

	hs, err := a.holdingsProvider(planHoldings).Load(ctx)
	if err != nil {
		return err
	}
	weights, err := rebalance.WeightsByClass(hs, includeCash)
	if err != nil {
		return err
	}
	plan, err := rebalance.Plan(hs, planEquity, includeCash)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		data, err := json.MarshalIndent(map[string]interface{}{"weights": weights, "plan": plan}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	PrintHeader(out, "Current allocation")
	printWeights(out, weights)
	fmt.Fprintln(out)
	PrintHeader(out, "Rebalance plan")
	printPlan(out, plan)
	return nil
}
