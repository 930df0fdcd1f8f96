package models

import (
	"errors"
	"strings"
)

type AuditStatus string

const (
	AuditStatusOK      AuditStatus = "OK"
	AuditStatusAnomaly AuditStatus = "Anomaly"
)

func (s AuditStatus) IsValid() bool {
	return s == AuditStatusOK || s == AuditStatusAnomaly
}

func (s AuditStatus) String() string {
	return string(s)
}

// ParseAuditStatus accepts the report spelling case-insensitively.
func ParseAuditStatus(str string) (AuditStatus, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "ok":
		return AuditStatusOK, nil
	case "anomaly":
		return AuditStatusAnomaly, nil
	default:
		return "", errors.New("invalid audit status")
	}
}

type RunTrigger string

const (
	RunTriggerSchedule RunTrigger = "schedule"
	RunTriggerTask     RunTrigger = "task"
	RunTriggerCLI      RunTrigger = "cli"
	RunTriggerPush     RunTrigger = "push"
	RunTriggerPull     RunTrigger = "pull"
)
