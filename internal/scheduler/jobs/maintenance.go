package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/graham/internal/recorder"
	"github.com/wonny/graham/pkg/logger"
)

// HistoryPruneJob deletes decision history older than the retention window
type HistoryPruneJob struct {
	pruner    recorder.Pruner
	retention time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewHistoryPruneJob creates a new prune job
func NewHistoryPruneJob(pruner recorder.Pruner, retention time.Duration, log *logger.Logger) *HistoryPruneJob {
	return &HistoryPruneJob{
		pruner:    pruner,
		retention: retention,
		logger:    log.WithComponent("history_prune"),
		now:       time.Now,
	}
}

// Name returns the job name
func (j *HistoryPruneJob) Name() string {
	return "history_prune"
}

// Schedule returns the cron schedule (Sundays 03:00)
func (j *HistoryPruneJob) Schedule() string {
	return "0 0 3 * * 0"
}

// Run removes expired decisions
func (j *HistoryPruneJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)

	count, err := j.pruner.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}

	if count > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": count,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Decision history pruned")
	}

	return nil
}
