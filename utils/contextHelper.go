package utils

import (
	"context"

	"github.com/mmdatafocus/invoice_audit/appctx"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyMessageId     = appctx.ContextKeyMessageId
	ContextKeyInvoiceId     = appctx.ContextKeyInvoiceId
	ContextKeyRunId         = appctx.ContextKeyRunId
	ContextKeyTrigger       = appctx.ContextKeyTrigger
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetMessageIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyMessageId)
}

func SetMessageIdInContext(ctx context.Context, messageId string) context.Context {
	return appctx.Set(ctx, ContextKeyMessageId, messageId)
}

func GetInvoiceIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyInvoiceId)
}

func SetInvoiceIdInContext(ctx context.Context, invId string) context.Context {
	return appctx.Set(ctx, ContextKeyInvoiceId, invId)
}

func GetRunIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRunId)
}

func SetRunIdInContext(ctx context.Context, runId string) context.Context {
	return appctx.Set(ctx, ContextKeyRunId, runId)
}

func GetTriggerFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyTrigger)
}

func SetTriggerInContext(ctx context.Context, trigger string) context.Context {
	return appctx.Set(ctx, ContextKeyTrigger, trigger)
}
