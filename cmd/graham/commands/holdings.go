package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/graham/internal/holdings"
	"github.com/wonny/graham/internal/rebalance"
)

// holdingsCmd represents the holdings command
var holdingsCmd = &cobra.Command{
	Use:   "holdings",
	Short: "Inspect or import the portfolio",
	Long: `Subcommands:
  show          - allocation by asset class
  import [csv]  - replace the PostgreSQL holdings with a CSV file

Example:
  go run ./cmd/graham holdings show --holdings data/holdings.csv
  go run ./cmd/graham holdings import data/holdings.csv`,
}

var (
	holdingsShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show allocation by asset class",
		RunE:  runHoldingsShow,
	}

	holdingsImportCmd = &cobra.Command{
		Use:   "import [csv]",
		Short: "Replace the PostgreSQL holdings with a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE:  runHoldingsImport,
	}

	holdingsPath string
)

func init() {
	rootCmd.AddCommand(holdingsCmd)
	holdingsCmd.AddCommand(holdingsShowCmd, holdingsImportCmd)

	holdingsShowCmd.Flags().StringVar(&holdingsPath, "holdings", "", "holdings CSV (default: policy holdings.path or $HOLDINGS_PATH)")
}

func runHoldingsShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		hs, err := a.holdingsProvider(holdingsPath).Load(ctx)
		if err != nil {
			return err
		}
		weights, err := rebalance.WeightsByClass(hs, a.policy.Preferences.IncludeCash)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		PrintHeader(out, fmt.Sprintf("Holdings (%d positions)", len(hs)))
		printWeights(out, weights)
		return nil
	})
}

func runHoldingsImport(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if a.db == nil {
			return fmt.Errorf("holdings import needs PostgreSQL: set HOLDINGS_SOURCE=postgres and DATABASE_URL")
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open holdings: %w", err)
		}
		defer f.Close()

		hs, err := holdings.ParseCSV(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		if err := holdings.NewPostgresProvider(a.db.Pool).Replace(ctx, hs); err != nil {
			return err
		}

		a.log.WithFields(map[string]interface{}{
			"file":      args[0],
			"positions": len(hs),
		}).Info("Holdings imported")
		PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Imported %d holdings", len(hs)))
		return nil
	})
}
