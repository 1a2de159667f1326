package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/graham/internal/advisor"
	"github.com/wonny/graham/internal/policy"
	"github.com/wonny/graham/internal/api"
	"github.com/wonny/graham/internal/api/handlers"
	"github.com/wonny/graham/internal/scheduler"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Starts the HTTP API and the decision websocket.

Endpoints:
  GET  /health          - Health check
  POST /api/score       - Score a signal set
  POST /api/target      - Map a score to an equity target with hysteresis
  POST /api/plan        - Size trades for an equity target
  POST /api/run         - Full advisor run (stores the target)
  GET  /api/state       - Stored target
  GET  /api/decisions   - Recorded decisions
  GET  /ws/decisions    - Live decision stream

Example:
  go run ./cmd/graham serve
  go run ./cmd/graham serve --port 9000 --with-scheduler`,
	RunE: runServe,
}

var (
	servePort          string
	serveWithScheduler bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default: $PORT)")
	serveCmd.Flags().BoolVar(&serveWithScheduler, "with-scheduler", false, "also run the scheduled advisor job")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	runCfg, err := a.runConfig()
	if err != nil {
		return err
	}

	live := a.policy.Market.Source == policy.SourceLive
	provider := a.marketProvider(live, a.policy.Market.IncludeCAPE, emptySignals)

	hub := handlers.NewDecisionHub(a.log)
	adv := advisor.New(provider, a.holdingsProvider(""), a.state, a.recorder, a.log, advisor.WithPublisher(hub))

	handler := handlers.NewAdvisorHandler(adv, runCfg, a.state, a.history, a.log)
	server := api.New(a.cfg, a.log, api.NewRouter(handler, hub, a.log))

	var sched *scheduler.Scheduler
	if serveWithScheduler {
		sched, err = newScheduler(a, adv, runCfg)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	PrintSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", a.cfg.Port))
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
