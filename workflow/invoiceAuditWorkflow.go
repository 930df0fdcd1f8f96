package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/invoice_audit/config"
	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/mmdatafocus/invoice_audit/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("invoice-audit/workflow")

// InvoiceAuditor reconciles one invoice export per call. Store holds the exports,
// the per-invoice reports and the daily summaries.
type InvoiceAuditor struct {
	Config   *config.AuditConfig
	Clients  ClientFactory
	Store    utils.BlobStore
	Recorder Recorder
	Notifier Notifier
	Logger   *logrus.Logger
	Now      func() time.Time
}

type InvoiceOutcome struct {
	Result       *models.ReconciliationResult
	ReportBucket string
	ReportName   string
	// DocumentName is empty when no source PDF was found.
	DocumentName       string
	ExtractionDegraded bool
}

func (a *InvoiceAuditor) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// ProcessExportObject reads an export written to the export bucket and reconciles it.
func (a *InvoiceAuditor) ProcessExportObject(ctx context.Context, bucket, name string) (*InvoiceOutcome, error) {
	payload, err := a.Store.Download(ctx, bucket, name)
	if err != nil {
		if errors.Is(err, utils.ErrorObjectNotFound) {
			return nil, utils.NewAuditError(utils.ErrorKindMalformedInput, "download export "+name, err)
		}
		return nil, utils.NewAuditError(utils.ErrorKindStorage, "download export "+name, err)
	}
	return a.ProcessInvoiceEvent(ctx, payload)
}

// ProcessInvoiceEvent reconciles one invoice payload and uploads its report. Missing
// PDFs and extraction failures degrade to zero extracted totals; everything else
// returns a classified *utils.AuditError and produces no report.
func (a *InvoiceAuditor) ProcessInvoiceEvent(ctx context.Context, payload []byte) (*InvoiceOutcome, error) {
	ctx, span := tracer.Start(ctx, "InvoiceAuditor.ProcessInvoiceEvent")
	defer span.End()

	outcome, err := a.processInvoiceEvent(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("invid", outcome.Result.InvoiceId),
		attribute.String("status", outcome.Result.Status.String()),
	)
	return outcome, nil
}

func (a *InvoiceAuditor) processInvoiceEvent(ctx context.Context, payload []byte) (*InvoiceOutcome, error) {
	logger := a.Logger

	record, err := models.ParseInvoiceRecord(payload)
	if err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindMalformedInput, "parse invoice", err)
	}
	ctx = utils.SetInvoiceIdInContext(ctx, record.InvoiceId)
	fields := a.logFields(ctx)

	extractor, err := a.Clients.NewExtractor(ctx)
	if err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindConfiguration, "extraction client", err)
	}
	source, err := a.Clients.NewSourceStore(ctx)
	if err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindConfiguration, "source storage", err)
	}
	defer source.Close()

	outcome := &InvoiceOutcome{}
	extracted := models.ZeroExtractedFields()

	locator := &DocumentLocator{Store: source, Bucket: a.Config.SourceBucket}
	docName, found, err := locator.Locate(ctx, record.InvoiceId)
	if err != nil {
		fields.WithError(err).Warn("listing source documents failed; using zero extracted totals")
		outcome.ExtractionDegraded = true
	} else if !found {
		fields.Info("no source PDF found; using zero extracted totals")
	} else {
		outcome.DocumentName = docName
		extracted, err = a.extract(ctx, source, extractor, docName)
		if err != nil {
			config.LogError(logger, "invoiceAuditWorkflow.go", "processInvoiceEvent", "Extracting "+docName, record.InvoiceId,
				utils.NewAuditError(utils.ErrorKindExtraction, "extract "+docName, err))
			extracted = models.ZeroExtractedFields()
			outcome.ExtractionDegraded = true
		}
	}

	now := a.now()
	decision := Reconcile(record.Total, extracted.Total, a.Config.Flags.SignMismatchIsAnomaly)
	result := NewReconciliationResult(record, extracted, decision, a.Config.PrintIQBaseURL, now)
	result.ReportBucket = a.Config.ReportBucket
	result.ReportName = ReportName(result.Status, record.InvoiceId, now, a.Config.Location)

	workbook, err := BuildReportWorkbook(result)
	if err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindUnknown, "render report", err)
	}
	if err := a.Store.EnsureBucket(ctx, a.Config.ReportBucket); err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindStorage, "ensure bucket "+a.Config.ReportBucket, err)
	}
	if err := a.Store.Upload(ctx, a.Config.ReportBucket, result.ReportName, workbook, utils.ContentTypeXLSX); err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindStorage, "upload report "+result.ReportName, err)
	}
	fields.WithFields(logrus.Fields{
		"report": result.ReportName,
		"status": result.Status,
		"reason": result.Reason,
	}).Info("report uploaded")

	outcome.Result = result
	outcome.ReportBucket = a.Config.ReportBucket
	outcome.ReportName = result.ReportName

	a.record(ctx, result)
	if result.Status == models.AuditStatusAnomaly {
		a.notify(ctx, result)
	}
	return outcome, nil
}

func (a *InvoiceAuditor) extract(ctx context.Context, source utils.BlobStore, extractor Extractor, docName string) (models.ExtractedFields, error) {
	document, err := source.Download(ctx, a.Config.SourceBucket, docName)
	if err != nil {
		return models.ZeroExtractedFields(), err
	}
	return extractor.ExtractFields(ctx, document)
}

func (a *InvoiceAuditor) record(ctx context.Context, result *models.ReconciliationResult) {
	if a.Recorder == nil {
		return
	}
	if err := a.Recorder.RecordResult(ctx, result); err != nil {
		config.LogError(a.Logger, "invoiceAuditWorkflow.go", "record", "Recording reconciliation result", result.ReportName, err)
	}
}

func (a *InvoiceAuditor) notify(ctx context.Context, result *models.ReconciliationResult) {
	if a.Notifier == nil {
		return
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	msg := config.AuditEventMessage{
		EventType:     config.AuditEventAnomaly,
		InvoiceId:     result.InvoiceId,
		Status:        result.Status.String(),
		Reason:        result.Reason,
		ReportBucket:  result.ReportBucket,
		ReportName:    result.ReportName,
		OccurredAt:    result.CapturedAt,
		CorrelationId: correlationId,
	}
	if err := a.Notifier.Notify(ctx, msg); err != nil {
		config.LogError(a.Logger, "invoiceAuditWorkflow.go", "notify", "Publishing anomaly event", result.ReportName, err)
	}
}

func (a *InvoiceAuditor) logFields(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(a.Logger)
	if id, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		entry = entry.WithField("correlation_id", id)
	}
	if id, ok := utils.GetMessageIdFromContext(ctx); ok {
		entry = entry.WithField("message_id", id)
	}
	if trigger, ok := utils.GetTriggerFromContext(ctx); ok {
		entry = entry.WithField("trigger", trigger)
	}
	if invid, ok := utils.GetInvoiceIdFromContext(ctx); ok {
		entry = entry.WithField("invid", invid)
	}
	return entry
}
