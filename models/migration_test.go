package models

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/invoice_audit/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Runs against a real database: INTEGRATION_TESTS=1 DB_DRIVER=... DB_HOST=... go test ./models
func integrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run database tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db, err := config.ConnectDatabaseWithRetry(ctx, config.DatabaseConfig{
		Driver:   os.Getenv("DB_DRIVER"),
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := MigrateTables(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestReconciliationResultIndex(t *testing.T) {
	db := integrationDB(t)
	ctx := context.Background()

	captured := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	name := "Anomaly_it-" + uuid.NewString()[:8] + "_140506.xlsx"
	r := &ReconciliationResult{
		ReportName:     name,
		ReportBucket:   "audit-reports",
		InvoiceId:      "it",
		Status:         AuditStatusAnomaly,
		Reason:         "Diff: £1.00",
		DeclaredTotal:  decimal.NewFromInt(10),
		ExtractedTotal: decimal.NewFromInt(9),
		Difference:     decimal.NewFromInt(1),
		CapturedAt:     captured,
	}
	if err := SaveReconciliationResult(ctx, db, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Same report name again updates in place.
	r.ID = 0
	r.Reason = "Diff: £2.00"
	if err := SaveReconciliationResult(ctx, db, r); err != nil {
		t.Fatalf("resave: %v", err)
	}

	results, err := ListReconciliationResults(ctx, db, ResultFilter{
		From:   captured.Add(-time.Minute),
		To:     captured.Add(time.Minute),
		Status: AuditStatusAnomaly,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	matches := 0
	for _, got := range results {
		if got.ReportName == name {
			matches++
			if got.Reason != "Diff: £2.00" {
				t.Fatalf("reason = %q", got.Reason)
			}
		}
	}
	if matches != 1 {
		t.Fatalf("rows for %s = %d", name, matches)
	}
}

func TestLatestConsolidationRun(t *testing.T) {
	db := integrationDB(t)
	ctx := context.Background()

	date := "1999-01-01"
	now := time.Now().UTC().Truncate(time.Second)
	for i, produced := range []bool{false, true} {
		run := &ConsolidationRun{
			RunId:       uuid.NewString(),
			Trigger:     RunTriggerCLI,
			SummaryDate: date,
			WindowStart: now.Add(-24 * time.Hour),
			WindowEnd:   now,
			ReportCount: i,
			Produced:    produced,
		}
		if err := SaveConsolidationRun(ctx, db, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}
	latest, err := LatestConsolidationRun(ctx, db, date)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !latest.Produced || latest.ReportCount != 1 {
		t.Fatalf("latest = %+v", latest)
	}
}
