package models

import "github.com/shopspring/decimal"

// ExtractedFields are the totals read from the invoice PDF. The zero value stands for
// "no document" and "no structured result" alike.
type ExtractedFields struct {
	SubTotal decimal.Decimal `json:"sub_total"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

func ZeroExtractedFields() ExtractedFields {
	return ExtractedFields{SubTotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
}

func (f ExtractedFields) IsZero() bool {
	return f.SubTotal.IsZero() && f.Tax.IsZero() && f.Total.IsZero()
}
