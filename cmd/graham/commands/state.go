package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/internal/state"
)

// stateCmd represents the state command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or change the stored equity target",
	Long: `The stored target is what the hysteresis band compares the next
proposal against.

Subcommands:
  show   - print the stored target
  set N  - store N (0..100)
  reset  - forget the stored target

Example:
  go run ./cmd/graham state show
  go run ./cmd/graham state set 55`,
}

var (
	stateShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the stored target",
		RunE:  runStateShow,
	}

	stateSetCmd = &cobra.Command{
		Use:   "set [pct]",
		Short: "Store a target",
		Args:  cobra.ExactArgs(1),
		RunE:  runStateSet,
	}

	stateResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored target",
		RunE:  runStateReset,
	}
)

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd, stateSetCmd, stateResetCmd)
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}

func runStateShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		v, err := a.state.ReadTarget(ctx)
		if errors.Is(err, contracts.ErrNoPreviousTarget) {
			fmt.Fprintln(out, "No previous target stored")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Previous target: %d\n", v)
		return nil
	})
}

func runStateSet(cmd *cobra.Command, args []string) error {
	pct, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("target must be an integer: %w", err)
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.state.WriteTarget(ctx, pct); err != nil {
			return err
		}
		PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Stored target %d", pct))
		return nil
	})
}

func runStateReset(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		r, ok := a.state.(state.Resetter)
		if !ok {
			return fmt.Errorf("state backend %s cannot be reset", a.cfg.State.Backend)
		}
		if err := r.Reset(ctx); err != nil {
			return err
		}
		PrintSuccess(cmd.OutOrStdout(), "Stored target cleared")
		return nil
	})
}
