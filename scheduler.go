package main

import (
	"context"
	"time"

	"github.com/mmdatafocus/invoice_audit/config"
	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/mmdatafocus/invoice_audit/utils"
)

// nextConsolidationTime returns the first hour:00 in loc strictly after now.
func nextConsolidationTime(now time.Time, hour int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
	}
	return next
}

// runScheduler fires the daily consolidation at CONSOLIDATION_HOUR until ctx is done.
// With several instances running, the run lock lets only one of them produce the summary.
func (s *server) runScheduler(ctx context.Context) {
	for {
		next := nextConsolidationTime(time.Now(), s.cfg.ConsolidationHour, s.cfg.Location)
		s.logger.WithField("next_run", next.Format(time.RFC3339)).Info("consolidation scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		runCtx := utils.SetTriggerInContext(ctx, string(models.RunTriggerSchedule))
		outcome, err := s.consolidator.Run(runCtx, models.RunTriggerSchedule)
		switch {
		case err == nil:
			s.logger.WithField("run_id", outcome.RunId).WithField("produced", outcome.Produced).Info("scheduled consolidation finished")
		case utils.ErrorKindOf(err) == utils.ErrorKindBusy:
			s.logger.Info("scheduled consolidation skipped: another instance holds the run lock")
		default:
			config.LogError(s.logger, "scheduler.go", "runScheduler", "Running consolidation", next, err)
		}
	}
}
