package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/graham/internal/advisor"
	"github.com/wonny/graham/pkg/logger"
)

// AdvisorJob runs the allocation pipeline on a schedule
// ⭐ SSOT: the scheduled recommendation run is only defined here
type AdvisorJob struct {
	advisor  *advisor.Advisor
	cfg      advisor.RunConfig
	schedule string
	logger   *logger.Logger
}

// NewAdvisorJob creates the job; schedule is a cron expression with seconds
func NewAdvisorJob(adv *advisor.Advisor, cfg advisor.RunConfig, schedule string, log *logger.Logger) *AdvisorJob {
	return &AdvisorJob{
		advisor:  adv,
		cfg:      cfg,
		schedule: schedule,
		logger:   log.WithComponent("advisor_job"),
	}
}

// Name returns the job name
func (j *AdvisorJob) Name() string {
	return "advisor"
}

// Schedule returns the cron schedule (default: weekdays 21:30, after the US close)
func (j *AdvisorJob) Schedule() string {
	return j.schedule
}

// Run executes one advisor run
func (j *AdvisorJob) Run(ctx context.Context) error {
	d, err := j.advisor.Run(ctx, j.cfg)
	if err != nil {
		return fmt.Errorf("advisor run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"decision_id": d.ID,
		"final_pct":   d.Recommendation.FinalPct,
		"held":        d.Recommendation.Held,
	}).Info("Scheduled recommendation ready")

	return nil
}
