package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/graham/internal/advisor"
	"github.com/wonny/graham/internal/policy"
	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/internal/recorder"
	"github.com/wonny/graham/internal/scheduler"
	"github.com/wonny/graham/internal/scheduler/jobs"
)

// emptySignals: no command-line overrides
var emptySignals contracts.SignalSet

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the advisor on a cron schedule",
	Long: `Subcommands:
  start       - run the scheduler until Ctrl+C
  list        - registered jobs and their next run
  run [job]   - run one job now

Jobs:
  advisor        - full advisor run ($SCHEDULE_CRON, default weekdays 21:30)
  history_prune  - delete decisions older than $RECORDER_RETENTION (Sundays 03:00)

Example:
  go run ./cmd/graham schedule start
  go run ./cmd/graham schedule run advisor`,
}

var (
	scheduleStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		RunE:  runScheduleStart,
	}

	scheduleListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  runScheduleList,
	}

	scheduleRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleRun,
	}
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleStartCmd, scheduleListCmd, scheduleRunCmd)
}

// newScheduler registers the advisor job, and the prune job when history is kept
func newScheduler(a *app, adv *advisor.Advisor, runCfg advisor.RunConfig) (*scheduler.Scheduler, error) {
	s := scheduler.New(a.log)

	if err := s.AddJob(jobs.NewAdvisorJob(adv, runCfg, a.cfg.Schedule.Cron, a.log)); err != nil {
		return nil, err
	}

	if pruner, ok := a.recorder.(recorder.Pruner); ok && a.cfg.Recorder.SQLitePath != "" {
		if err := s.AddJob(jobs.NewHistoryPruneJob(pruner, a.cfg.Recorder.Retention, a.log)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// schedulerApp builds the app, the advisor and the scheduler from config and policy
func schedulerApp(ctx context.Context, cmd *cobra.Command) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	runCfg, err := a.runConfig()
	if err != nil {
		a.close()
		return nil, nil, err
	}

	live := a.policy.Market.Source == policy.SourceLive
	provider := a.marketProvider(live, a.policy.Market.IncludeCAPE, emptySignals)
	adv := advisor.New(provider, a.holdingsProvider(""), a.state, a.recorder, a.log)

	s, err := newScheduler(a, adv, runCfg)
	if err != nil {
		a.close()
		return nil, nil, err
	}
	return a, s, nil
}

func runScheduleStart(cmd *cobra.Command, args []string) error {
	a, s, err := schedulerApp(context.Background(), cmd)
	if err != nil {
		return err
	}
	defer a.close()

	s.Start()

	out := cmd.OutOrStdout()
	for _, name := range s.GetAllJobs() {
		if next, err := s.NextRun(name); err == nil {
			PrintKeyValue(out, name, "next run "+next.Format("2006-01-02 15:04:05 MST"), 14)
		}
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	s.Stop()
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	a, s, err := schedulerApp(context.Background(), cmd)
	if err != nil {
		return err
	}
	defer a.close()

	printJobStats(cmd.OutOrStdout(), s.GetJobStats())
	return nil
}

func runScheduleRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, s, err := schedulerApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := s.RunJob(ctx, args[0])
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("job %s failed after %d attempts: %s", result.JobName, result.Attempts, result.Error)
	}

	PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Job %s completed in %.2fs", result.JobName, result.Duration.Seconds()))
	return nil
}
