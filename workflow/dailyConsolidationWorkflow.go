package workflow

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/invoice_audit/config"
	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/mmdatafocus/invoice_audit/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ConsolidationWindow is how far back a report's storage write time may be.
const ConsolidationWindow = 24 * time.Hour

type DailyConsolidator struct {
	Config   *config.AuditConfig
	Store    utils.BlobStore
	Locker   RunLocker
	Recorder Recorder
	Notifier Notifier
	Logger   *logrus.Logger
	Now      func() time.Time
}

type ConsolidationOutcome struct {
	RunId         string
	SummaryBucket string
	SummaryName   string
	WindowStart   time.Time
	WindowEnd     time.Time
	// Produced is false when no report qualified; no summary is written then.
	Produced     bool
	ReportCount  int
	SkippedCount int
	RowCount     int
	AnomalyCount int
}

// Run consolidates the reports written in the 24 hours before now.
func (d *DailyConsolidator) Run(ctx context.Context, trigger models.RunTrigger) (*ConsolidationOutcome, error) {
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	return d.RunAt(ctx, now, trigger)
}

func (d *DailyConsolidator) RunAt(ctx context.Context, at time.Time, trigger models.RunTrigger) (*ConsolidationOutcome, error) {
	ctx, span := tracer.Start(ctx, "DailyConsolidator.RunAt")
	defer span.End()

	runId := uuid.NewString()
	ctx = utils.SetRunIdInContext(ctx, runId)
	ctx = utils.SetTriggerInContext(ctx, string(trigger))

	if d.Locker != nil {
		release, err := d.Locker.Obtain(ctx, ConsolidationLockKey, ConsolidationLockTTL)
		if err != nil {
			kind := utils.ErrorKindStorage
			if errors.Is(err, utils.ErrorRunLocked) {
				kind = utils.ErrorKindBusy
			}
			err = utils.NewAuditError(kind, "obtain consolidation lock", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		defer release()
	}

	outcome, err := d.consolidate(ctx, at)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Bool("produced", outcome.Produced),
		attribute.Int("rows", outcome.RowCount),
		attribute.Int("anomalies", outcome.AnomalyCount),
	)

	d.recordRun(ctx, outcome, trigger)
	if outcome.Produced {
		d.notify(ctx, outcome)
	}
	return outcome, nil
}

func (d *DailyConsolidator) consolidate(ctx context.Context, at time.Time) (*ConsolidationOutcome, error) {
	cfg := d.Config
	runId, _ := utils.GetRunIdFromContext(ctx)
	entry := d.Logger.WithFields(logrus.Fields{"run_id": runId})
	if trigger, ok := utils.GetTriggerFromContext(ctx); ok {
		entry = entry.WithField("trigger", trigger)
	}

	outcome := &ConsolidationOutcome{
		RunId:         runId,
		SummaryBucket: cfg.SummaryBucket,
		WindowStart:   at.Add(-ConsolidationWindow).UTC(),
		WindowEnd:     at.UTC(),
	}

	if err := d.Store.EnsureBucket(ctx, cfg.SummaryBucket); err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindStorage, "ensure bucket "+cfg.SummaryBucket, err)
	}

	objects, err := d.Store.List(ctx, cfg.ReportBucket, "")
	if err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindStorage, "list reports", err)
	}
	qualifying := QualifyingReports(objects, outcome.WindowStart, outcome.WindowEnd)
	outcome.ReportCount = len(qualifying)

	var rows []*models.ReconciliationResult
	for _, obj := range qualifying {
		data, err := d.Store.Download(ctx, cfg.ReportBucket, obj.Name)
		if err != nil {
			return nil, utils.NewAuditError(utils.ErrorKindStorage, "download report "+obj.Name, err)
		}
		results, err := ReadReportWorkbook(data)
		if err != nil {
			config.LogError(d.Logger, "dailyConsolidationWorkflow.go", "consolidate", "Parsing report "+obj.Name, runId,
				utils.NewAuditError(utils.ErrorKindMalformedInput, "read report "+obj.Name, err))
			outcome.SkippedCount++
			continue
		}
		rows = append(rows, results...)
	}

	if len(rows) == 0 {
		entry.WithField("reports", outcome.ReportCount).Info("no reports found for the last 24 hours; no summary written")
		return outcome, nil
	}

	for _, r := range rows {
		r.PrintIQLink = models.BuildPrintIQLink(cfg.PrintIQBaseURL, r.InvoiceId)
		if r.Status == models.AuditStatusAnomaly {
			outcome.AnomalyCount++
		}
	}
	outcome.RowCount = len(rows)

	workbook, err := BuildSummaryWorkbook(rows)
	if err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindUnknown, "render summary", err)
	}
	outcome.SummaryName = SummaryName(at, cfg.Location)
	if err := d.Store.Upload(ctx, cfg.SummaryBucket, outcome.SummaryName, workbook, utils.ContentTypeXLSX); err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindStorage, "upload summary "+outcome.SummaryName, err)
	}
	outcome.Produced = true

	entry.WithFields(logrus.Fields{
		"summary":   outcome.SummaryName,
		"rows":      outcome.RowCount,
		"anomalies": outcome.AnomalyCount,
		"skipped":   outcome.SkippedCount,
	}).Info("daily summary uploaded")
	return outcome, nil
}

// QualifyingReports keeps .xlsx objects written after windowStart and no later than
// windowEnd, ordered by name.
func QualifyingReports(objects []utils.ObjectInfo, windowStart, windowEnd time.Time) []utils.ObjectInfo {
	var out []utils.ObjectInfo
	for _, o := range objects {
		if !strings.HasSuffix(o.Name, ".xlsx") {
			continue
		}
		if !o.LastModified.After(windowStart) || o.LastModified.After(windowEnd) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *DailyConsolidator) recordRun(ctx context.Context, outcome *ConsolidationOutcome, trigger models.RunTrigger) {
	if d.Recorder == nil {
		return
	}
	run := &models.ConsolidationRun{
		RunId:         outcome.RunId,
		Trigger:       trigger,
		SummaryDate:   SummaryDate(outcome.WindowEnd, d.Config.Location),
		SummaryBucket: outcome.SummaryBucket,
		SummaryName:   outcome.SummaryName,
		WindowStart:   outcome.WindowStart,
		WindowEnd:     outcome.WindowEnd,
		ReportCount:   outcome.ReportCount,
		SkippedCount:  outcome.SkippedCount,
		RowCount:      outcome.RowCount,
		AnomalyCount:  outcome.AnomalyCount,
		Produced:      outcome.Produced,
	}
	if err := d.Recorder.RecordRun(ctx, run); err != nil {
		config.LogError(d.Logger, "dailyConsolidationWorkflow.go", "recordRun", "Recording consolidation run", outcome.RunId, err)
	}
}

func (d *DailyConsolidator) notify(ctx context.Context, outcome *ConsolidationOutcome) {
	if d.Notifier == nil {
		return
	}
	msg := config.AuditEventMessage{
		EventType:     config.AuditEventDailySummary,
		ReportBucket:  outcome.SummaryBucket,
		ReportName:    outcome.SummaryName,
		RowCount:      outcome.RowCount,
		AnomalyCount:  outcome.AnomalyCount,
		OccurredAt:    outcome.WindowEnd,
		CorrelationId: outcome.RunId,
	}
	if err := d.Notifier.Notify(ctx, msg); err != nil {
		config.LogError(d.Logger, "dailyConsolidationWorkflow.go", "notify", "Publishing summary event", outcome.SummaryName, err)
	}
}
