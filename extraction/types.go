package extraction

import (
	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/shopspring/decimal"
)

const (
	StatusNotStarted = "notstarted"
	StatusRunning    = "running"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

type AnalyzeOperation struct {
	Status        string         `json:"status"`
	Error         *ErrorDetail   `json:"error,omitempty"`
	AnalyzeResult *AnalyzeResult `json:"analyzeResult,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AnalyzeResult struct {
	APIVersion string             `json:"apiVersion"`
	ModelID    string             `json:"modelId"`
	Documents  []AnalyzedDocument `json:"documents"`
}

type AnalyzedDocument struct {
	DocType    string                   `json:"docType"`
	Confidence float64                  `json:"confidence"`
	Fields     map[string]DocumentField `json:"fields"`
}

type DocumentField struct {
	Type          string           `json:"type"`
	Content       string           `json:"content,omitempty"`
	Confidence    *float64         `json:"confidence,omitempty"`
	ValueCurrency *CurrencyValue   `json:"valueCurrency,omitempty"`
	ValueNumber   *decimal.Decimal `json:"valueNumber,omitempty"`
}

type CurrencyValue struct {
	Amount         *decimal.Decimal `json:"amount"`
	CurrencySymbol string           `json:"currencySymbol,omitempty"`
	CurrencyCode   string           `json:"currencyCode,omitempty"`
}

// Amount prefers the currency value, then the plain number, then zero.
func (f DocumentField) Amount() decimal.Decimal {
	if f.ValueCurrency != nil && f.ValueCurrency.Amount != nil {
		return *f.ValueCurrency.Amount
	}
	if f.ValueNumber != nil {
		return *f.ValueNumber
	}
	return decimal.Zero
}

func fieldAmount(fields map[string]DocumentField, name string) decimal.Decimal {
	f, ok := fields[name]
	if !ok {
		return decimal.Zero
	}
	return f.Amount()
}

// FieldsFromResult reads the totals of the first analyzed document. No documents
// means all zero.
func FieldsFromResult(result *AnalyzeResult) models.ExtractedFields {
	if result == nil || len(result.Documents) == 0 {
		return models.ZeroExtractedFields()
	}
	fields := result.Documents[0].Fields
	return models.ExtractedFields{
		SubTotal: fieldAmount(fields, FieldSubTotal),
		Tax:      fieldAmount(fields, FieldTotalTax),
		Total:    fieldAmount(fields, FieldInvoiceTotal),
	}
}
