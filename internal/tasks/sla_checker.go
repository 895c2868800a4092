// internal/tasks/sla_checker.go
package tasks

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/vendora/marketplace-backend/internal/config"
	"github.com/vendora/marketplace-backend/internal/services"
)

// SLAChecker runs the periodic sweep that escalates return requests whose
// seller response deadline has passed.
type SLAChecker struct {
	cron    *cron.Cron
	returns *services.ReturnsService
	cfg     *config.Config
}

func NewSLAChecker(returns *services.ReturnsService, cfg *config.Config) *SLAChecker {
	return &SLAChecker{
		cron:    cron.New(),
		returns: returns,
		cfg:     cfg,
	}
}

// Start schedules the sweep and begins running it.
func (c *SLAChecker) Start() error {
	_, err := c.cron.AddFunc(c.cfg.Returns.EscalationCron, c.run)
	if err != nil {
		return fmt.Errorf("failed to schedule SLA checker: %w", err)
	}

	c.cron.Start()
	logrus.WithField("schedule", c.cfg.Returns.EscalationCron).Info("Return SLA checker started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (c *SLAChecker) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
	logrus.Info("Return SLA checker stopped")
}

func (c *SLAChecker) run() {
	escalated, err := c.returns.EscalateOverdueReturns(context.Background())
	if err != nil {
		logrus.WithError(err).Error("Return SLA sweep failed")
		return
	}

	if escalated > 0 {
		logrus.WithField("count", escalated).Info("Escalated overdue return requests")
	}
}
