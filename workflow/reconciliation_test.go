package workflow

import (
	"testing"
	"time"

	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestReconcile(t *testing.T) {
	cases := []struct {
		name      string
		declared  string
		extracted string
		flagSign  bool
		status    models.AuditStatus
		reason    string
	}{
		{"within tolerance", "100.00", "100.05", false, models.AuditStatusOK, "OK"},
		{"above tolerance", "100.00", "100.20", false, models.AuditStatusAnomaly, "Diff: £0.20"},
		{"exactly tolerance", "100.00", "100.10", false, models.AuditStatusOK, "OK"},
		{"just above tolerance", "100.00", "100.11", false, models.AuditStatusAnomaly, "Diff: £0.11"},
		{"extracted lower", "250.00", "200.00", false, models.AuditStatusAnomaly, "Diff: £50.00"},
		{"nothing extracted", "50.00", "0", false, models.AuditStatusAnomaly, "Diff: £50.00"},
		{"both zero", "0", "0", false, models.AuditStatusOK, "OK"},
		{"credit note vs positive pdf", "-50.00", "50.00", false, models.AuditStatusOK, "OK"},
		{"sign mismatch flagged", "-50.00", "50.00", true, models.AuditStatusAnomaly, ReasonSignMismatch},
		{"sign flag ignores zero", "0", "0.05", true, models.AuditStatusOK, "OK"},
		{"sign flag same sign", "-50.00", "-50.02", true, models.AuditStatusOK, "OK"},
		{"magnitude wins over sign", "-50.00", "60.00", true, models.AuditStatusAnomaly, "Diff: £10.00"},
	}

	for _, tc := range cases {
		got := Reconcile(d(tc.declared), d(tc.extracted), tc.flagSign)
		if got.Status != tc.status {
			t.Fatalf("%s: status = %s, want %s", tc.name, got.Status, tc.status)
		}
		if got.Reason != tc.reason {
			t.Fatalf("%s: reason = %q, want %q", tc.name, got.Reason, tc.reason)
		}
	}
}

func TestReconcileDifferenceIsMagnitudeOnly(t *testing.T) {
	got := Reconcile(d("100"), d("-100.20"), false)
	if !got.Difference.Equal(d("0.20")) {
		t.Fatalf("difference = %s, want 0.20", got.Difference)
	}
}

func TestNewReconciliationResult(t *testing.T) {
	record := &models.InvoiceRecord{
		InvoiceId:     "9001",
		InvoiceNumber: "INV-1",
		Supplier:      "Acme",
		SubTotal:      d("80"),
		Tax:           d("20"),
		Total:         d("100"),
	}
	fields := models.ExtractedFields{SubTotal: d("80"), Tax: d("20"), Total: d("100.2")}
	at := time.Date(2026, 3, 4, 10, 11, 12, 999, time.UTC)

	r := NewReconciliationResult(record, fields, Reconcile(record.Total, fields.Total, false), "https://printiq.example.com/", at)
	if r.Status != models.AuditStatusAnomaly || r.Reason != "Diff: £0.20" {
		t.Fatalf("status/reason = %s/%s", r.Status, r.Reason)
	}
	wantLink := `=HYPERLINK("https://printiq.example.com/Invoicing/CreateInvoice.aspx?INVID=9001", "Open in PrintIQ")`
	if r.PrintIQLink != wantLink {
		t.Fatalf("link = %s", r.PrintIQLink)
	}
	if r.Timestamp() != "2026-03-04 10:11:12" {
		t.Fatalf("timestamp = %s", r.Timestamp())
	}
	if !r.ExtractedTotal.Equal(d("100.2")) || !r.DeclaredTax.Equal(d("20")) {
		t.Fatalf("amounts not carried: %+v", r)
	}
}

func TestReportAndSummaryNames(t *testing.T) {
	at := time.Date(2026, 1, 31, 23, 30, 5, 0, time.UTC)
	if got := ReportName(models.AuditStatusOK, "123", at, time.UTC); got != "OK_123_233005.xlsx" {
		t.Fatalf("ReportName = %s", got)
	}
	if got := SummaryName(at, time.UTC); got != "Daily_Master_Audit_2026-01-31.xlsx" {
		t.Fatalf("SummaryName = %s", got)
	}

	tokyo := time.FixedZone("JST", 9*60*60)
	if got := ReportName(models.AuditStatusAnomaly, "123", at, tokyo); got != "Anomaly_123_083005.xlsx" {
		t.Fatalf("ReportName in zone = %s", got)
	}
	if got := SummaryName(at, tokyo); got != "Daily_Master_Audit_2026-02-01.xlsx" {
		t.Fatalf("SummaryName in zone = %s", got)
	}
}

func TestFormatDifferenceRoundsHalfToEven(t *testing.T) {
	cases := map[string]string{
		"0.125": "Diff: £0.12",
		"0.135": "Diff: £0.14",
		"3.4":   "Diff: £3.40",
		"0.126": "Diff: £0.13",
	}
	for in, want := range cases {
		if got := FormatDifference(d(in)); got != want {
			t.Fatalf("FormatDifference(%s) = %q, want %q", in, got, want)
		}
	}
}
