package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func MigrateTables(db *gorm.DB) error {
	if db == nil {
		return errors.New("database is not connected")
	}
	return db.AutoMigrate(&ReconciliationResult{}, &ConsolidationRun{})
}

// SaveReconciliationResult upserts on report_name so reprocessing the same
// export overwrites its row instead of duplicating it.
func SaveReconciliationResult(ctx context.Context, db *gorm.DB, r *ReconciliationResult) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "report_name"}},
		UpdateAll: true,
	}).Create(r).Error
}

func SaveConsolidationRun(ctx context.Context, db *gorm.DB, run *ConsolidationRun) error {
	return db.WithContext(ctx).Create(run).Error
}

type ResultFilter struct {
	From   time.Time
	To     time.Time
	Status AuditStatus
	Limit  int
}

func ListReconciliationResults(ctx context.Context, db *gorm.DB, f ResultFilter) ([]*ReconciliationResult, error) {
	q := db.WithContext(ctx).Model(&ReconciliationResult{})
	if !f.From.IsZero() {
		q = q.Where("captured_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("captured_at < ?", f.To.UTC())
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	var results []*ReconciliationResult
	err := q.Order("captured_at, id").Limit(limit).Find(&results).Error
	return results, err
}

func LatestConsolidationRun(ctx context.Context, db *gorm.DB, summaryDate string) (*ConsolidationRun, error) {
	var run ConsolidationRun
	err := db.WithContext(ctx).Where("summary_date = ?", summaryDate).Order("id DESC").First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}
