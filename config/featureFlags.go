package config

import "github.com/mmdatafocus/invoice_audit/utils"

// SignMismatchIsAnomaly makes the reconciler also flag invoices whose declared and
// extracted totals have opposite signs, even when the magnitudes agree.
// Off by default: the comparison is magnitude-only.
//
// Set via env:
// - FLAG_SIGN_MISMATCH_ANOMALY=true
func SignMismatchIsAnomaly() bool {
	return utils.EnvBoolDefault("FLAG_SIGN_MISMATCH_ANOMALY", false)
}

// ConsolidationSchedulerEnabled starts the in-process daily consolidation timer.
// Leave it off when an external scheduler calls POST /tasks/daily-consolidation.
//
// Set via env:
// - ENABLE_CONSOLIDATION_SCHEDULER=true
func ConsolidationSchedulerEnabled() bool {
	return utils.EnvBoolDefault("ENABLE_CONSOLIDATION_SCHEDULER", false)
}

// PushRetryTransient makes the Pub/Sub push endpoint answer 503 on configuration and
// storage failures so Pub/Sub redelivers. By default every failure is acked and dropped.
//
// Set via env:
// - PUSH_RETRY_TRANSIENT=true
func PushRetryTransient() bool {
	return utils.EnvBoolDefault("PUSH_RETRY_TRANSIENT", false)
}
