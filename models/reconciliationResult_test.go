package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBuildPrintIQLink(t *testing.T) {
	tests := []struct {
		base string
		id   string
		want string
	}{
		{
			"https://printiq.example.com", "31337",
			`=HYPERLINK("https://printiq.example.com/Invoicing/CreateInvoice.aspx?INVID=31337", "Open in PrintIQ")`,
		},
		{
			"https://printiq.example.com/", "1",
			`=HYPERLINK("https://printiq.example.com/Invoicing/CreateInvoice.aspx?INVID=1", "Open in PrintIQ")`,
		},
		{
			"https://printiq.example.com", `9"9`,
			`=HYPERLINK("https://printiq.example.com/Invoicing/CreateInvoice.aspx?INVID=9""9", "Open in PrintIQ")`,
		},
	}
	for _, tt := range tests {
		if got := BuildPrintIQLink(tt.base, tt.id); got != tt.want {
			t.Fatalf("BuildPrintIQLink(%q, %q) = %s", tt.base, tt.id, got)
		}
	}
}

func TestGetCellValuesOrder(t *testing.T) {
	r := &ReconciliationResult{
		InvoiceNumber:  "INV-1",
		PrintIQLink:    "=HYPERLINK(\"x\", \"y\")",
		Status:         AuditStatusAnomaly,
		Supplier:       "Acme",
		DeclaredTotal:  decimal.RequireFromString("100"),
		ExtractedTotal: decimal.RequireFromString("90"),
		Reason:         "Diff: £10.00",
		InvoiceId:      "31337",
		CapturedAt:     time.Date(2026, 6, 1, 14, 5, 6, 0, time.UTC),
	}
	cells := r.GetCellValues()
	if len(cells) != len(ReportColumns) {
		t.Fatalf("cells = %d, columns = %d", len(cells), len(ReportColumns))
	}
	if cells[0] != "INV-1" || cells[2] != "Anomaly" || cells[10] != "Diff: £10.00" || cells[11] != "31337" {
		t.Fatalf("cells = %v", cells)
	}
	if cells[12] != "2026-06-01 14:05:06" {
		t.Fatalf("timestamp = %v", cells[12])
	}
	if d, ok := cells[8].(decimal.Decimal); !ok || !d.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("declared total cell = %#v", cells[8])
	}
}

func TestReconciliationResultFromRow(t *testing.T) {
	row := map[string]string{
		ColumnInvoiceNumber:     "INV-1",
		ColumnStatus:            "Anomaly",
		ColumnSupplier:          "Acme",
		ColumnDeclaredSubTotal:  "83.33",
		ColumnExtractedSubTotal: "",
		ColumnDeclaredTax:       "16.67",
		ColumnExtractedTax:      "0",
		ColumnDeclaredTotal:     "100",
		ColumnExtractedTotal:    "0",
		ColumnReason:            "Diff: £100.00",
		ColumnInvoiceId:         "31337",
		ColumnTimestamp:         "2026-06-01 14:05:06",
	}
	r, err := ReconciliationResultFromRow(row)
	if err != nil {
		t.Fatalf("ReconciliationResultFromRow: %v", err)
	}
	if r.Status != AuditStatusAnomaly || r.InvoiceId != "31337" || r.Supplier != "Acme" {
		t.Fatalf("result = %+v", r)
	}
	if !r.DeclaredTotal.Equal(decimal.NewFromInt(100)) || !r.ExtractedSubTotal.IsZero() {
		t.Fatalf("amounts = %s / %s", r.DeclaredTotal, r.ExtractedSubTotal)
	}
	if !r.CapturedAt.Equal(time.Date(2026, 6, 1, 14, 5, 6, 0, time.UTC)) {
		t.Fatalf("captured = %s", r.CapturedAt)
	}

	bad := []map[string]string{
		{ColumnStatus: "Maybe"},
		{ColumnStatus: "OK", ColumnDeclaredTotal: "ten"},
		{ColumnStatus: "OK", ColumnTimestamp: "yesterday"},
	}
	for _, row := range bad {
		if _, err := ReconciliationResultFromRow(row); err == nil {
			t.Fatalf("expected error for %v", row)
		}
	}
}
