package workflow

import (
	"context"
	"sort"
	"strings"

	"github.com/mmdatafocus/invoice_audit/utils"
)

// DocumentLocator finds the source PDF of an invoice under {invid}/ in the
// supplier invoices bucket.
type DocumentLocator struct {
	Store  utils.BlobStore
	Bucket string
}

func InvoicePrefix(invoiceId string) string {
	return invoiceId + "/"
}

// Locate returns the chosen object name, or false when there is none. An empty
// invoice id never matches.
func (l *DocumentLocator) Locate(ctx context.Context, invoiceId string) (string, bool, error) {
	if invoiceId == "" {
		return "", false, nil
	}
	prefix := InvoicePrefix(invoiceId)
	objects, err := l.Store.List(ctx, l.Bucket, prefix)
	if err != nil {
		return "", false, err
	}
	name, ok := SelectInvoicePDF(objects, prefix)
	return name, ok, nil
}

// SelectInvoicePDF picks the lexicographically smallest .pdf (any case) under prefix.
func SelectInvoicePDF(objects []utils.ObjectInfo, prefix string) (string, bool) {
	var candidates []string
	for _, o := range objects {
		if !strings.HasPrefix(o.Name, prefix) {
			continue
		}
		if strings.HasSuffix(strings.ToLower(o.Name), ".pdf") {
			candidates = append(candidates, o.Name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return candidates[0], true
}
