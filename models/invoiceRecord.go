package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmdatafocus/invoice_audit/utils"
	"github.com/shopspring/decimal"
)

// Keys of the invoice export payload.
const (
	FieldIsCreditNote  = "IsCreditNote"
	FieldInvoiceId     = "INVID"
	FieldInvoiceNumber = "INVInvoiceNumber"
	FieldSupplier      = "BillingCusName"
	FieldSubTotal      = "INVInvoiceSubTotal"
	FieldTax           = "INVInvoiceGST"
	FieldTotal         = "INVInvoiceTotal"
)

const (
	DefaultInvoiceNumber = "N/A"
	DefaultSupplier      = "Unknown"
)

// InvoiceRecord holds the declared figures of one invoice export. For credit notes the
// three amounts are already negated.
type InvoiceRecord struct {
	InvoiceId     string          `json:"invid"`
	InvoiceNumber string          `json:"invoice_number"`
	Supplier      string          `json:"supplier"`
	IsCreditNote  bool            `json:"is_credit_note"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
}

// ParseInvoiceRecord decodes a UTF-8 JSON object. Unknown keys are ignored, missing or
// null keys take their defaults, and a non-numeric amount fails the whole record.
func ParseInvoiceRecord(payload []byte) (*InvoiceRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode invoice payload: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("invoice payload is not an object")
	}
	return InvoiceRecordFromMap(raw)
}

func InvoiceRecordFromMap(raw map[string]any) (*InvoiceRecord, error) {
	isCredit, err := parseCreditFlag(raw[FieldIsCreditNote])
	if err != nil {
		return nil, err
	}

	record := &InvoiceRecord{
		InvoiceId:     utils.StringifyValue(raw[FieldInvoiceId]),
		InvoiceNumber: stringOrDefault(raw, FieldInvoiceNumber, DefaultInvoiceNumber),
		Supplier:      stringOrDefault(raw, FieldSupplier, DefaultSupplier),
		IsCreditNote:  isCredit,
	}

	amounts := []struct {
		key  string
		dest *decimal.Decimal
	}{
		{FieldSubTotal, &record.SubTotal},
		{FieldTax, &record.Tax},
		{FieldTotal, &record.Total},
	}
	for _, a := range amounts {
		v, err := utils.ParseAmount(raw[a.key])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.key, err)
		}
		if isCredit {
			v = v.Neg()
		}
		*a.dest = v
	}
	return record, nil
}

func stringOrDefault(raw map[string]any, key, def string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	return utils.StringifyValue(v)
}

// parseCreditFlag accepts JSON booleans, "true"/"false" style strings and numbers
// (non-zero is a credit note).
func parseCreditFlag(v any) (bool, error) {
	switch flag := v.(type) {
	case nil:
		return false, nil
	case bool:
		return flag, nil
	case string:
		if strings.TrimSpace(flag) == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(flag))
		if err != nil {
			return false, fmt.Errorf("%s: %w", FieldIsCreditNote, err)
		}
		return b, nil
	case json.Number:
		d, err := decimal.NewFromString(flag.String())
		if err != nil {
			return false, fmt.Errorf("%s: %w", FieldIsCreditNote, err)
		}
		return !d.IsZero(), nil
	default:
		return false, fmt.Errorf("%s: unsupported type %T", FieldIsCreditNote, v)
	}
}
