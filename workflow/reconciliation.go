package workflow

import (
	"fmt"
	"time"

	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/shopspring/decimal"
)

// Tolerance is the absolute difference, in the invoice currency, above which totals
// disagree.
var Tolerance = decimal.RequireFromString("0.10")

const ReasonSignMismatch = "Sign mismatch"

type Decision struct {
	Status     models.AuditStatus
	Difference decimal.Decimal
	Reason     string
}

// Reconcile compares magnitudes only: declared 100 against extracted -100 is OK unless
// flagSignMismatch is set and neither total is zero.
func Reconcile(declared, extracted decimal.Decimal, flagSignMismatch bool) Decision {
	diff := extracted.Abs().Sub(declared.Abs()).Abs()
	if diff.GreaterThan(Tolerance) {
		return Decision{
			Status:     models.AuditStatusAnomaly,
			Difference: diff,
			Reason:     FormatDifference(diff),
		}
	}
	if flagSignMismatch && !declared.IsZero() && !extracted.IsZero() && declared.Sign() != extracted.Sign() {
		return Decision{
			Status:     models.AuditStatusAnomaly,
			Difference: diff,
			Reason:     ReasonSignMismatch,
		}
	}
	return Decision{
		Status:     models.AuditStatusOK,
		Difference: diff,
		Reason:     string(models.AuditStatusOK),
	}
}

func FormatDifference(diff decimal.Decimal) string {
	return fmt.Sprintf("Diff: £%s", diff.StringFixedBank(2))
}

// NewReconciliationResult merges the declared record, the extracted fields and the
// decision into the row that gets reported.
func NewReconciliationResult(record *models.InvoiceRecord, fields models.ExtractedFields, decision Decision, printIQBaseURL string, capturedAt time.Time) *models.ReconciliationResult {
	return &models.ReconciliationResult{
		InvoiceId:         record.InvoiceId,
		InvoiceNumber:     record.InvoiceNumber,
		Supplier:          record.Supplier,
		IsCreditNote:      record.IsCreditNote,
		Status:            decision.Status,
		Reason:            decision.Reason,
		Difference:        decision.Difference,
		PrintIQLink:       models.BuildPrintIQLink(printIQBaseURL, record.InvoiceId),
		DeclaredSubTotal:  record.SubTotal,
		ExtractedSubTotal: fields.SubTotal,
		DeclaredTax:       record.Tax,
		ExtractedTax:      fields.Tax,
		DeclaredTotal:     record.Total,
		ExtractedTotal:    fields.Total,
		CapturedAt:        capturedAt.UTC().Truncate(time.Second),
	}
}

// ReportName is {Status}_{invid}_{HHMMSS}.xlsx with the clock read in loc.
func ReportName(status models.AuditStatus, invoiceId string, at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("%s_%s_%s.xlsx", status, invoiceId, at.In(loc).Format("150405"))
}

// SummaryName is Daily_Master_Audit_{YYYY-MM-DD}.xlsx for the date in loc.
func SummaryName(at time.Time, loc *time.Location) string {
	return fmt.Sprintf("Daily_Master_Audit_%s.xlsx", SummaryDate(at, loc))
}

func SummaryDate(at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return at.In(loc).Format("2006-01-02")
}
