package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/invoice_audit/config"
	"github.com/mmdatafocus/invoice_audit/extraction"
	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/mmdatafocus/invoice_audit/utils"
)

type Extractor interface {
	ExtractFields(ctx context.Context, document []byte) (models.ExtractedFields, error)
}

// ClientFactory builds the secret-backed clients of one reconciliation.
type ClientFactory interface {
	NewExtractor(ctx context.Context) (Extractor, error)
	NewSourceStore(ctx context.Context) (utils.BlobStore, error)
}

// SecretClientFactory resolves the extraction key and the source storage key from
// the secret store every time a client is built.
type SecretClientFactory struct {
	Config  *config.AuditConfig
	Secrets config.SecretStore
}

func (f *SecretClientFactory) NewExtractor(ctx context.Context) (Extractor, error) {
	key, err := f.Secrets.GetSecret(ctx, f.Config.DocIntelKeySecret)
	if err != nil {
		return nil, err
	}
	c := extraction.New(f.Config.DocIntelEndpoint, key)
	c.PollInterval = f.Config.DocIntelPoll
	return c, nil
}

func (f *SecretClientFactory) NewSourceStore(ctx context.Context) (utils.BlobStore, error) {
	src := f.Config.Source
	opts := utils.StorageOptions{
		Provider:        src.Provider,
		Endpoint:        src.Endpoint,
		AccessKey:       src.AccountName,
		UseSSL:          src.UseSSL,
		ProjectID:       src.ProjectID,
		CredentialsJSON: src.CredentialsJSON,
	}
	if src.Provider == utils.StorageProviderMinio {
		key, err := f.Secrets.GetSecret(ctx, f.Config.StorageKeySecret)
		if err != nil {
			return nil, err
		}
		opts.SecretKey = key
	}
	store, err := utils.NewBlobStore(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("source storage: %w", err)
	}
	return store, nil
}

// NewDestinationStore opens the store holding exports, reports and summaries.
func NewDestinationStore(ctx context.Context, cfg *config.AuditConfig, secrets config.SecretStore) (utils.BlobStore, error) {
	dst := cfg.Dest
	opts := utils.StorageOptions{
		Provider:        dst.Provider,
		Endpoint:        dst.Endpoint,
		AccessKey:       dst.AccountName,
		UseSSL:          dst.UseSSL,
		ProjectID:       dst.ProjectID,
		CredentialsJSON: dst.CredentialsJSON,
	}
	if dst.Provider == utils.StorageProviderMinio {
		key, err := secrets.GetSecret(ctx, cfg.DestKeySecret)
		if err != nil {
			return nil, err
		}
		opts.SecretKey = key
	}
	return utils.NewBlobStore(ctx, opts)
}
