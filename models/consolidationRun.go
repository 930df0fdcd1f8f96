package models

import "time"

// ConsolidationRun records one daily aggregation attempt, including the ones that found
// nothing to summarise.
type ConsolidationRun struct {
	ID            int        `gorm:"primary_key" json:"id"`
	RunId         string     `gorm:"size:64;uniqueIndex;not null" json:"run_id"`
	Trigger       RunTrigger `gorm:"size:20" json:"trigger"`
	SummaryDate   string     `gorm:"size:10;index" json:"summary_date"`
	SummaryBucket string     `gorm:"size:255" json:"summary_bucket"`
	SummaryName   string     `gorm:"size:255" json:"summary_name"`
	WindowStart   time.Time  `json:"window_start"`
	WindowEnd     time.Time  `json:"window_end"`
	ReportCount   int        `json:"report_count"`
	SkippedCount  int        `json:"skipped_count"`
	RowCount      int        `json:"row_count"`
	AnomalyCount  int        `json:"anomaly_count"`
	Produced      bool       `gorm:"not null;default:false" json:"produced"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
