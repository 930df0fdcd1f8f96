package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mmdatafocus/invoice_audit/utils"
)

const (
	DefaultPrintIQBaseURL   = "https://printiq.cubiquityonline.com"
	DefaultSourceBucket     = "supplierinvoices"
	DefaultExportBucket     = "invoiceexports"
	DefaultReportBucket     = "audit-reports"
	DefaultSummaryBucket    = "daily-summaries"
	DefaultDocIntelKey      = "DocIntelApiKey"
	DefaultStorageKeySecret = "StorageAccountKey"
	DefaultDestKeySecret    = "AuditStorageAccountKey"
)

type StorageConfig struct {
	Provider        string `validate:"oneof=gcs minio"`
	Endpoint        string `validate:"required_if=Provider minio"`
	AccountName     string
	UseSSL          bool
	ProjectID       string
	CredentialsJSON string
}

type DatabaseConfig struct {
	Driver   string `validate:"omitempty,oneof=mysql postgres"`
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

type FeatureFlags struct {
	SignMismatchIsAnomaly  bool
	ConsolidationScheduler bool
	PushRetryTransient     bool
}

// AuditConfig is read from the environment once and handed to every component.
// Components never look at the environment themselves.
type AuditConfig struct {
	KeyVaultURI       string `validate:"omitempty,url"`
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
	DocIntelEndpoint  string `validate:"required,url"`
	DocIntelKeySecret string `validate:"required"`
	DocIntelPoll      time.Duration
	StorageKeySecret  string `validate:"required"`
	DestKeySecret     string `validate:"required"`
	PrintIQBaseURL    string `validate:"required,url"`

	Source        StorageConfig
	SourceBucket  string `validate:"required"`
	ExportBucket  string `validate:"required"`
	Dest          StorageConfig
	ReportBucket  string `validate:"required"`
	SummaryBucket string `validate:"required"`

	Location          *time.Location `validate:"required"`
	ConsolidationHour int            `validate:"min=0,max=23"`

	RedisAddress        string
	Database            DatabaseConfig
	PubSubProjectID     string
	PubSubCredJSON      string
	InvoiceSubscription string
	AuditTopic          string

	APISecret        string
	PushTokenHash    string
	Port             string
	CORSAllowOrigins []string

	Flags FeatureFlags
}

var validate = validator.New()

func init() {
	// Load env from .env
	godotenv.Load()
}

func LoadAuditConfig() (*AuditConfig, error) {
	tzName := utils.EnvString("AUDIT_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("AUDIT_TIMEZONE %q: %w", tzName, err)
	}

	cfg := &AuditConfig{
		KeyVaultURI:       strings.TrimSpace(os.Getenv("KEY_VAULT_URI")),
		AzureTenantID:     strings.TrimSpace(os.Getenv("AZURE_TENANT_ID")),
		AzureClientID:     strings.TrimSpace(os.Getenv("AZURE_CLIENT_ID")),
		AzureClientSecret: os.Getenv("AZURE_CLIENT_SECRET"),
		DocIntelEndpoint:  strings.TrimSpace(os.Getenv("DOC_INTEL_ENDPOINT")),
		DocIntelKeySecret: utils.EnvString("DOC_INTEL_KEY_SECRET", DefaultDocIntelKey),
		DocIntelPoll:      time.Duration(utils.IntFromEnv("DOC_INTEL_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		StorageKeySecret:  utils.EnvString("SOURCE_STORAGE_KEY_SECRET", DefaultStorageKeySecret),
		DestKeySecret:     utils.EnvString("DEST_STORAGE_KEY_SECRET", DefaultDestKeySecret),
		PrintIQBaseURL:    strings.TrimRight(utils.EnvString("PRINTIQ_BASE_URL", DefaultPrintIQBaseURL), "/"),

		Source: StorageConfig{
			Provider:    utils.NormalizeStorageProvider(os.Getenv("SOURCE_STORAGE_PROVIDER"), utils.StorageProviderMinio),
			Endpoint:    strings.TrimSpace(os.Getenv("SOURCE_STORAGE_ENDPOINT")),
			AccountName: strings.TrimSpace(os.Getenv("SOURCE_STORAGE_ACCOUNT")),
			UseSSL:      utils.EnvBoolDefault("SOURCE_STORAGE_USE_SSL", true),
			ProjectID:   strings.TrimSpace(os.Getenv("GCS_PROJECT_ID")),
		},
		SourceBucket: utils.EnvString("SOURCE_BUCKET", DefaultSourceBucket),
		ExportBucket: utils.EnvString("EXPORT_BUCKET", DefaultExportBucket),
		Dest: StorageConfig{
			Provider:        utils.NormalizeStorageProvider(os.Getenv("DEST_STORAGE_PROVIDER"), utils.StorageProviderGCS),
			Endpoint:        strings.TrimSpace(os.Getenv("DEST_STORAGE_ENDPOINT")),
			AccountName:     strings.TrimSpace(os.Getenv("DEST_STORAGE_ACCOUNT")),
			UseSSL:          utils.EnvBoolDefault("DEST_STORAGE_USE_SSL", true),
			ProjectID:       strings.TrimSpace(os.Getenv("GCS_PROJECT_ID")),
			CredentialsJSON: os.Getenv("GCS_CREDENTIALS_JSON"),
		},
		ReportBucket:  utils.EnvString("REPORT_BUCKET", DefaultReportBucket),
		SummaryBucket: utils.EnvString("SUMMARY_BUCKET", DefaultSummaryBucket),

		Location:          loc,
		ConsolidationHour: utils.IntFromEnv("CONSOLIDATION_HOUR", 23),

		RedisAddress: strings.TrimSpace(os.Getenv("REDIS_ADDRESS")),
		Database: DatabaseConfig{
			Driver:   utils.EnvString("DB_DRIVER", "mysql"),
			Host:     strings.TrimSpace(os.Getenv("DB_HOST")),
			Port:     strings.TrimSpace(os.Getenv("DB_PORT")),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
		},
		PubSubProjectID:     getPubSubProjectID(),
		PubSubCredJSON:      os.Getenv("PUBSUB_CREDENTIALS_JSON"),
		InvoiceSubscription: strings.TrimSpace(os.Getenv("PUBSUB_INVOICE_SUBSCRIPTION")),
		AuditTopic:          strings.TrimSpace(os.Getenv("PUBSUB_AUDIT_TOPIC")),

		APISecret:        os.Getenv("API_SECRET"),
		PushTokenHash:    strings.TrimSpace(os.Getenv("PUBSUB_PUSH_TOKEN_HASH")),
		Port:             utils.EnvString("PORT", "8080"),
		CORSAllowOrigins: utils.SplitAndTrim(utils.EnvString("CORS_ALLOW_ORIGINS", "*")),

		Flags: FeatureFlags{
			SignMismatchIsAnomaly:  SignMismatchIsAnomaly(),
			ConsolidationScheduler: ConsolidationSchedulerEnabled(),
			PushRetryTransient:     PushRetryTransient(),
		},
	}

	if cfg.DocIntelPoll <= 0 {
		cfg.DocIntelPoll = time.Second
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
