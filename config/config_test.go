package config

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSecretEnvName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DocIntelApiKey", "DOC_INTEL_API_KEY"},
		{"StorageAccountKey", "STORAGE_ACCOUNT_KEY"},
		{"audit-storage-key", "AUDIT_STORAGE_KEY"},
		{"Key2Value", "KEY2_VALUE"},
		{"ALREADY_UPPER", "ALREADY_UPPER"},
	}
	for _, tt := range tests {
		if got := SecretEnvName(tt.in); got != tt.want {
			t.Fatalf("SecretEnvName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvSecretStore(t *testing.T) {
	env := map[string]string{"DOC_INTEL_API_KEY": "k-123", "STORAGE_ACCOUNT_KEY": ""}
	store := EnvSecretStore{Lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	got, err := store.GetSecret(context.Background(), DefaultDocIntelKey)
	if err != nil || got != "k-123" {
		t.Fatalf("GetSecret = %q, %v", got, err)
	}
	for _, name := range []string{DefaultStorageKeySecret, "Missing"} {
		if _, err := store.GetSecret(context.Background(), name); !errors.Is(err, ErrSecretNotFound) {
			t.Fatalf("GetSecret(%s) err = %v", name, err)
		}
	}
}

func TestDSNs(t *testing.T) {
	tcp := MysqlDSN(DatabaseConfig{Host: "db.internal", User: "audit", Password: "pw", Name: "audit"})
	for _, want := range []string{"audit:pw@", "tcp(db.internal:3306)", "/audit", "parseTime=true"} {
		if !strings.Contains(tcp, want) {
			t.Fatalf("MysqlDSN = %q, missing %q", tcp, want)
		}
	}
	socket := MysqlDSN(DatabaseConfig{Host: "/cloudsql/p:r:i", User: "audit", Name: "audit"})
	if !strings.Contains(socket, "unix(/cloudsql/p:r:i)") {
		t.Fatalf("MysqlDSN socket = %q", socket)
	}
	pg := PostgresDSN(DatabaseConfig{Driver: "postgres", Host: "pg", User: "u", Password: "p", Name: "n"})
	if pg != "host=pg port=5432 user=u password=p dbname=n sslmode=disable TimeZone=UTC" {
		t.Fatalf("PostgresDSN = %q", pg)
	}
	if _, err := dialector(DatabaseConfig{Driver: "sqlite"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func setBaseEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"DOC_INTEL_ENDPOINT":      "https://docintel.example.com",
		"SOURCE_STORAGE_PROVIDER": "minio",
		"SOURCE_STORAGE_ENDPOINT": "storage.example.com",
		"DEST_STORAGE_PROVIDER":   "gcs",
		"AUDIT_TIMEZONE":          "UTC",
		"CONSOLIDATION_HOUR":      "",
		"KEY_VAULT_URI":           "",
		"PRINTIQ_BASE_URL":        "",
		"REPORT_BUCKET":           "",
		"DB_DRIVER":               "",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadAuditConfig(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PRINTIQ_BASE_URL", "https://printiq.example.com/")
	t.Setenv("AUDIT_TIMEZONE", "Europe/London")

	cfg, err := LoadAuditConfig()
	if err != nil {
		t.Fatalf("LoadAuditConfig: %v", err)
	}
	if cfg.PrintIQBaseURL != "https://printiq.example.com" {
		t.Fatalf("PrintIQBaseURL = %q", cfg.PrintIQBaseURL)
	}
	if cfg.ReportBucket != DefaultReportBucket || cfg.SummaryBucket != DefaultSummaryBucket || cfg.SourceBucket != DefaultSourceBucket {
		t.Fatalf("buckets = %s %s %s", cfg.ReportBucket, cfg.SummaryBucket, cfg.SourceBucket)
	}
	if cfg.ConsolidationHour != 23 || cfg.Location.String() != "Europe/London" {
		t.Fatalf("schedule = %d %s", cfg.ConsolidationHour, cfg.Location)
	}
	if cfg.DocIntelKeySecret != DefaultDocIntelKey || cfg.Database.Driver != "mysql" || cfg.Database.Enabled() {
		t.Fatalf("defaults = %+v", cfg)
	}
	if len(cfg.CORSAllowOrigins) != 1 || cfg.CORSAllowOrigins[0] != "*" {
		t.Fatalf("CORSAllowOrigins = %v", cfg.CORSAllowOrigins)
	}
}

func TestLoadAuditConfigServerSettings(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("API_SECRET", "s3cret")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://ops.example.com, https://audit.example.com ,")

	cfg, err := LoadAuditConfig()
	if err != nil {
		t.Fatalf("LoadAuditConfig: %v", err)
	}
	if cfg.APISecret != "s3cret" {
		t.Fatalf("APISecret = %q", cfg.APISecret)
	}
	if len(cfg.CORSAllowOrigins) != 2 || cfg.CORSAllowOrigins[0] != "https://ops.example.com" || cfg.CORSAllowOrigins[1] != "https://audit.example.com" {
		t.Fatalf("CORSAllowOrigins = %v", cfg.CORSAllowOrigins)
	}
}

func TestLoadAuditConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing extraction endpoint", map[string]string{"DOC_INTEL_ENDPOINT": ""}},
		{"minio source without endpoint", map[string]string{"SOURCE_STORAGE_ENDPOINT": ""}},
		{"unknown storage provider", map[string]string{"DEST_STORAGE_PROVIDER": "ftp"}},
		{"unknown timezone", map[string]string{"AUDIT_TIMEZONE": "Mars/Olympus"}},
		{"hour out of range", map[string]string{"CONSOLIDATION_HOUR": "24"}},
		{"unsupported database", map[string]string{"DB_DRIVER": "sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadAuditConfig(); err == nil {
				t.Fatalf("expected configuration error")
			}
		})
	}
}
