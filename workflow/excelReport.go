package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	ReportSheetName  = "AuditReport"
	SummarySheetName = "DailySummary"
	AnomalyFillColor = "FFC7CE"
)

var ErrEmptyWorkbook = errors.New("workbook has no header row")

type ExcelExporter interface {
	GetCellValues() []any
}

// BuildReportWorkbook renders one result as a single-row AuditReport sheet.
func BuildReportWorkbook(result *models.ReconciliationResult) ([]byte, error) {
	return writeWorkbook(ReportSheetName, []*models.ReconciliationResult{result}, false)
}

// BuildSummaryWorkbook renders the daily summary with every Anomaly row filled red.
func BuildSummaryWorkbook(results []*models.ReconciliationResult) ([]byte, error) {
	return writeWorkbook(SummarySheetName, results, true)
}

func writeWorkbook(sheetName string, results []*models.ReconciliationResult, highlight bool) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, err
	}

	for i, h := range models.ReportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}

	anomalyStyle := 0
	if highlight {
		var err error
		anomalyStyle, err = f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{AnomalyFillColor}, Pattern: 1},
		})
		if err != nil {
			return nil, err
		}
	}

	rowNo := 2
	for _, r := range results {
		if err := insertRow(f, sheetName, rowNo, r); err != nil {
			return nil, err
		}
		if highlight && r.Status == models.AuditStatusAnomaly {
			first, _ := excelize.CoordinatesToCellName(1, rowNo)
			last, _ := excelize.CoordinatesToCellName(len(models.ReportColumns), rowNo)
			if err := f.SetCellStyle(sheetName, first, last, anomalyStyle); err != nil {
				return nil, err
			}
		}
		rowNo++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func insertRow(f *excelize.File, sheetName string, rowNo int, d ExcelExporter) error {
	for i, value := range d.GetCellValues() {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
		if err != nil {
			return err
		}
		switch v := value.(type) {
		case decimal.Decimal:
			err = f.SetCellValue(sheetName, cell, v.InexactFloat64())
		case models.Formula:
			if v == "" {
				continue
			}
			err = f.SetCellFormula(sheetName, cell, strings.TrimPrefix(string(v), "="))
		case string:
			err = f.SetCellStr(sheetName, cell, v)
		default:
			err = f.SetCellValue(sheetName, cell, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadReportWorkbook parses the first sheet of a report back into results, matching
// columns by header name.
func ReadReportWorkbook(data []byte) ([]*models.ReconciliationResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range models.ReportColumns {
		if col == models.ColumnPrintIQLink {
			continue
		}
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %s", col)
		}
	}

	var results []*models.ReconciliationResult
	for n, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		values := make(map[string]string, len(models.ReportColumns))
		for _, col := range models.ReportColumns {
			i, ok := index[col]
			if ok && i < len(row) {
				values[col] = row[i]
			}
		}
		r, err := models.ReconciliationResultFromRow(values)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
