package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/invoice_audit/utils"
	"github.com/shopspring/decimal"
)

// Report columns, in the order every workbook carries them.
const (
	ColumnInvoiceNumber     = "Invoice_Number"
	ColumnPrintIQLink       = "PrintIQ_Link"
	ColumnStatus            = "Status"
	ColumnSupplier          = "Supplier"
	ColumnDeclaredSubTotal  = "JSON_Subtotal"
	ColumnExtractedSubTotal = "AI_Subtotal"
	ColumnDeclaredTax       = "JSON_VAT"
	ColumnExtractedTax      = "AI_VAT"
	ColumnDeclaredTotal     = "JSON_Total"
	ColumnExtractedTotal    = "AI_Total"
	ColumnReason            = "Reason"
	ColumnInvoiceId         = "INVID"
	ColumnTimestamp         = "Timestamp"
)

var ReportColumns = []string{
	ColumnInvoiceNumber, ColumnPrintIQLink, ColumnStatus, ColumnSupplier,
	ColumnDeclaredSubTotal, ColumnExtractedSubTotal,
	ColumnDeclaredTax, ColumnExtractedTax,
	ColumnDeclaredTotal, ColumnExtractedTotal,
	ColumnReason, ColumnInvoiceId, ColumnTimestamp,
}

// TimestampLayout is the UTC capture time as written to the Timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

const PrintIQLinkText = "Open in PrintIQ"

// Formula marks a cell value that is written as a spreadsheet formula. Plain strings
// are always written as text, even when they start with "=".
type Formula string

// ReconciliationResult is one reconciled invoice. It is written once as a single-row
// workbook and indexed in reconciliation_results when a database is configured.
type ReconciliationResult struct {
	ID                int             `gorm:"primary_key" json:"id"`
	ReportName        string          `gorm:"size:255;uniqueIndex;not null" json:"report_name"`
	ReportBucket      string          `gorm:"size:255" json:"report_bucket"`
	InvoiceId         string          `gorm:"size:64;index" json:"invid"`
	InvoiceNumber     string          `gorm:"size:100" json:"invoice_number"`
	Supplier          string          `gorm:"size:255" json:"supplier"`
	IsCreditNote      bool            `gorm:"not null;default:false" json:"is_credit_note"`
	Status            AuditStatus     `gorm:"size:20;index;not null" json:"status"`
	Reason            string          `gorm:"size:100" json:"reason"`
	PrintIQLink       string          `gorm:"size:512" json:"printiq_link"`
	DeclaredSubTotal  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"declared_sub_total"`
	ExtractedSubTotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"extracted_sub_total"`
	DeclaredTax       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"declared_tax"`
	ExtractedTax      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"extracted_tax"`
	DeclaredTotal     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"declared_total"`
	ExtractedTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"extracted_total"`
	Difference        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"difference"`
	CapturedAt        time.Time       `gorm:"index;not null" json:"captured_at"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// BuildPrintIQLink renders the spreadsheet HYPERLINK formula for an invoice.
func BuildPrintIQLink(baseURL, invoiceId string) string {
	url := fmt.Sprintf("%s/Invoicing/CreateInvoice.aspx?INVID=%s", strings.TrimRight(baseURL, "/"), invoiceId)
	return fmt.Sprintf(`=HYPERLINK("%s", "%s")`, strings.ReplaceAll(url, `"`, `""`), PrintIQLinkText)
}

func (r *ReconciliationResult) Timestamp() string {
	return r.CapturedAt.UTC().Format(TimestampLayout)
}

// GetCellValues returns the row cells in ReportColumns order. Amounts stay decimals and
// the link is a Formula.
func (r *ReconciliationResult) GetCellValues() []any {
	return []any{
		r.InvoiceNumber,
		Formula(r.PrintIQLink),
		r.Status.String(),
		r.Supplier,
		r.DeclaredSubTotal,
		r.ExtractedSubTotal,
		r.DeclaredTax,
		r.ExtractedTax,
		r.DeclaredTotal,
		r.ExtractedTotal,
		r.Reason,
		r.InvoiceId,
		r.Timestamp(),
	}
}

// ReconciliationResultFromRow rebuilds a result from a report row keyed by column name.
// Empty amount cells read as zero. The stored link is kept; callers regenerate it.
func ReconciliationResultFromRow(row map[string]string) (*ReconciliationResult, error) {
	status, err := ParseAuditStatus(row[ColumnStatus])
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", ColumnStatus, row[ColumnStatus], err)
	}

	r := &ReconciliationResult{
		InvoiceNumber: row[ColumnInvoiceNumber],
		PrintIQLink:   row[ColumnPrintIQLink],
		Status:        status,
		Supplier:      row[ColumnSupplier],
		Reason:        row[ColumnReason],
		InvoiceId:     row[ColumnInvoiceId],
	}

	amounts := []struct {
		column string
		dest   *decimal.Decimal
	}{
		{ColumnDeclaredSubTotal, &r.DeclaredSubTotal},
		{ColumnExtractedSubTotal, &r.ExtractedSubTotal},
		{ColumnDeclaredTax, &r.DeclaredTax},
		{ColumnExtractedTax, &r.ExtractedTax},
		{ColumnDeclaredTotal, &r.DeclaredTotal},
		{ColumnExtractedTotal, &r.ExtractedTotal},
	}
	for _, a := range amounts {
		raw := strings.TrimSpace(row[a.column])
		if raw == "" {
			*a.dest = decimal.Zero
			continue
		}
		v, err := utils.ParseDecimal(raw)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", a.column, raw, err)
		}
		*a.dest = v
	}

	if ts := strings.TrimSpace(row[ColumnTimestamp]); ts != "" {
		captured, err := time.ParseInLocation(TimestampLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", ColumnTimestamp, ts, err)
		}
		r.CapturedAt = captured
	}
	return r, nil
}
