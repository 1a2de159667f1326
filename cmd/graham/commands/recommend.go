package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/graham/internal/advisor"
	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/internal/reporting"
	"github.com/wonny/graham/internal/scoring"
)

// recommendCmd represents the recommend command
var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend an equity target and rebalance plan",
	Long: `Scores the market, maps the score to an equity target, applies the
hysteresis band against the previous target and sizes the trades.

The accepted target is stored for the next run unless --dry-run is given.
Signal flags override the policy's manual values, or the live values with --live.

Example:
  go run ./cmd/graham recommend --holdings data/holdings.csv --spx200 2 --yc -50 --vix 18 --hy 390 --unemp 0.1 --explain
  go run ./cmd/graham recommend --live --include-cape --band 10
  go run ./cmd/graham recommend --prev-target 55 --dry-run --json`,
	RunE: runRecommend,
}

var (
	recSignals     signalFlags
	recSource      sourceFlags
	recHoldings    string
	recTilt        int
	recIncludeCash bool
	recBand        int
	recPrevTarget  int
	recMode        string
	recExplain     bool
	recDryRun      bool
)

func init() {
	rootCmd.AddCommand(recommendCmd)

	fs := recommendCmd.Flags()
	recSignals.register(fs)
	recSource.register(fs)
	fs.StringVar(&recHoldings, "holdings", "", "holdings CSV (default: policy holdings.path or $HOLDINGS_PATH)")
	fs.IntVar(&recTilt, "tilt", 0, "risk tilt in percentage points")
	fs.BoolVar(&recIncludeCash, "include-cash", false, "count Cash in the investable total")
	fs.IntVar(&recBand, "band", 5, "hysteresis band in percentage points")
	fs.IntVar(&recPrevTarget, "prev-target", 0, "previous equity target to compare against (overrides stored state)")
	fs.StringVar(&recMode, "mode", "", "score mode: full | earnings_yield_only")
	fs.BoolVar(&recExplain, "explain", false, "print the human-readable explanation")
	fs.BoolVar(&recDryRun, "dry-run", false, "do not store the accepted target")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	cfg, err := a.runConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, &cfg); err != nil {
		return err
	}

	live, includeCAPE := recSource.resolve(cmd, a)
	provider := a.marketProvider(live, includeCAPE, recSignals.overrides(cmd))

	adv := advisor.New(provider, a.holdingsProvider(recHoldings), a.state, a.recorder, a.log)
	d, err := adv.Run(ctx, cfg)
	if err != nil {
		return err
	}

	explain := a.policy.Output.Explain
	if cmd.Flags().Changed("explain") {
		explain = recExplain
	}
	return printDecision(cmd.OutOrStdout(), d, jsonOutput || a.policy.Output.JSON, explain)
}

// applyRunFlags lays the command-line knobs over the policy's run config
func applyRunFlags(cmd *cobra.Command, cfg *advisor.RunConfig) error {
	flags := cmd.Flags()
	if flags.Changed("tilt") {
		cfg.Preferences.RiskTiltPct = recTilt
	}
	if flags.Changed("include-cash") {
		cfg.Preferences.IncludeCash = recIncludeCash
	}
	if flags.Changed("band") {
		cfg.Band = recBand
	}
	if flags.Changed("prev-target") {
		prev := recPrevTarget
		cfg.PreviousOverride = &prev
	}
	if flags.Changed("mode") {
		mode, err := scoring.ParseMode(recMode)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	cfg.DryRun = recDryRun
	return nil
}

// printDecision prints the run report, or the JSON document
func printDecision(w io.Writer, d *contracts.Decision, asJSON, explain bool) error {
	if asJSON {
		data, err := reporting.JSON(d)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprint(w, reporting.FormatBreakdown(d.Breakdown))
	fmt.Fprintln(w)
	fmt.Fprint(w, reporting.FormatHysteresis(d.Recommendation))
	fmt.Fprintln(w)

	if d.Plan == nil {
		return nil
	}
	if explain {
		fmt.Fprintln(w, reporting.Explain(d.Recommendation, d.Plan))
	} else {
		printPlan(w, d.Plan)
	}
	if d.DryRun {
		fmt.Fprintln(w)
		PrintWarning(w, "dry run: target not stored")
	}
	return nil
}
