package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/graham/internal/reporting"
	"github.com/wonny/graham/internal/scoring"
	"github.com/wonny/graham/internal/target"
)

// breakdownCmd represents the breakdown command
var breakdownCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "Show each signal's contribution to the score",
	Long: `Prints the per-signal contributions (earnings-yield scorer, CAPE never
counted), the score of the selected mode and the equity target it maps to.
Nothing is stored.

Example:
  go run ./cmd/graham breakdown --ey 5.2 --spx200 2 --yc -50 --vix 18 --hy 390 --unemp 0.1
  go run ./cmd/graham breakdown --live --mode full --include-cape`,
	RunE: runBreakdown,
}

var (
	bdSignals signalFlags
	bdSource  sourceFlags
	bdMode    string
)

func init() {
	rootCmd.AddCommand(breakdownCmd)

	bdSignals.register(breakdownCmd.Flags())
	bdSource.register(breakdownCmd.Flags())
	breakdownCmd.Flags().StringVar(&bdMode, "mode", "", "score mode for the total: full | earnings_yield_only (default: policy)")
}

func runBreakdown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	modeName := a.policy.Scoring.Mode
	if cmd.Flags().Changed("mode") {
		modeName = bdMode
	}
	mode, err := scoring.ParseMode(modeName)
	if err != nil {
		return err
	}

	live, includeCAPE := bdSource.resolve(cmd, a)
	provider := a.marketProvider(live, includeCAPE, bdSignals.overrides(cmd))
	signals, err := provider.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch signals: %w", err)
	}

	breakdown := scoring.Breakdown(*signals)
	score := scoring.Evaluate(*signals, mode).Total
	proposed := target.MapToEquity(score, a.policy.Preferences)

	out := cmd.OutOrStdout()
	if jsonOutput {
		data, err := json.MarshalIndent(map[string]interface{}{
			"signals":      signals,
			"breakdown":    breakdown,
			"mode":         mode,
			"score":        score,
			"proposed_pct": proposed,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprint(out, reporting.FormatBreakdown(breakdown))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Score (%s): %+.2f\n", mode, score)
	fmt.Fprintf(out, "Proposed equity %% (no hysteresis): %d\n", proposed)
	return nil
}
