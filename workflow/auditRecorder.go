package workflow

import (
	"context"

	"github.com/mmdatafocus/invoice_audit/models"
	"gorm.io/gorm"
)

// Recorder indexes results and consolidation runs. Failures are logged by the
// caller and never fail the invocation.
type Recorder interface {
	RecordResult(ctx context.Context, result *models.ReconciliationResult) error
	RecordRun(ctx context.Context, run *models.ConsolidationRun) error
}

type GormRecorder struct {
	DB *gorm.DB
}

func (r *GormRecorder) RecordResult(ctx context.Context, result *models.ReconciliationResult) error {
	return models.SaveReconciliationResult(ctx, r.DB, result)
}

func (r *GormRecorder) RecordRun(ctx context.Context, run *models.ConsolidationRun) error {
	return models.SaveConsolidationRun(ctx, r.DB, run)
}

type NopRecorder struct{}

func (NopRecorder) RecordResult(context.Context, *models.ReconciliationResult) error { return nil }
func (NopRecorder) RecordRun(context.Context, *models.ConsolidationRun) error         { return nil }
