package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/Azure/azure-sdk-for-go/services/keyvault/v7.0/keyvault"
	"github.com/Azure/go-autorest/autorest"
	"github.com/Azure/go-autorest/autorest/adal"
	"github.com/Azure/go-autorest/autorest/azure"
)

// SecretStore resolves named secrets (the extraction key and the source storage key).
type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

var ErrSecretNotFound = errors.New("secret not found")

type KeyVaultSecretStore struct {
	client   keyvault.BaseClient
	vaultURI string
}

// NewKeyVaultSecretStore authenticates with a service principal when the tenant,
// client id and client secret are all set, and with the managed identity otherwise.
func NewKeyVaultSecretStore(cfg *AuditConfig) (*KeyVaultSecretStore, error) {
	if cfg.KeyVaultURI == "" {
		return nil, errors.New("KEY_VAULT_URI not set")
	}
	resource := strings.TrimSuffix(azure.PublicCloud.ResourceIdentifiers.KeyVault, "/")

	var (
		token *adal.ServicePrincipalToken
		err   error
	)
	if cfg.AzureTenantID != "" && cfg.AzureClientID != "" && cfg.AzureClientSecret != "" {
		oauthConfig, oerr := adal.NewOAuthConfig(azure.PublicCloud.ActiveDirectoryEndpoint, cfg.AzureTenantID)
		if oerr != nil {
			return nil, fmt.Errorf("key vault oauth config: %w", oerr)
		}
		token, err = adal.NewServicePrincipalToken(*oauthConfig, cfg.AzureClientID, cfg.AzureClientSecret, resource)
	} else {
		token, err = adal.NewServicePrincipalTokenFromManagedIdentity(resource, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("key vault token: %w", err)
	}

	client := keyvault.New()
	client.Authorizer = autorest.NewBearerAuthorizer(token)
	return &KeyVaultSecretStore{
		client:   client,
		vaultURI: strings.TrimRight(cfg.KeyVaultURI, "/"),
	}, nil
}

func (s *KeyVaultSecretStore) GetSecret(ctx context.Context, name string) (string, error) {
	// "" selects the latest version.
	bundle, err := s.client.GetSecret(ctx, s.vaultURI, name, "")
	if err != nil {
		var derr autorest.DetailedError
		if errors.As(err, &derr) && derr.StatusCode == 404 {
			return "", fmt.Errorf("%s: %w", name, ErrSecretNotFound)
		}
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}
	if bundle.Value == nil || *bundle.Value == "" {
		return "", fmt.Errorf("%s: %w", name, ErrSecretNotFound)
	}
	return *bundle.Value, nil
}

// EnvSecretStore reads secrets from the environment for local runs. DocIntelApiKey is
// looked up as DOC_INTEL_API_KEY.
type EnvSecretStore struct {
	Lookup func(string) (string, bool)
}

func (s EnvSecretStore) GetSecret(_ context.Context, name string) (string, error) {
	lookup := s.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(SecretEnvName(name)); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", name, ErrSecretNotFound)
}

func SecretEnvName(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if r == '-' || r == '.' || r == ' ' {
			b.WriteRune('_')
			continue
		}
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			b.WriteRune('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// NewSecretStore picks Key Vault when KEY_VAULT_URI is set.
func NewSecretStore(cfg *AuditConfig) (SecretStore, error) {
	if cfg.KeyVaultURI == "" {
		GetLogger().Warn("KEY_VAULT_URI not set; reading secrets from the environment")
		return EnvSecretStore{}, nil
	}
	return NewKeyVaultSecretStore(cfg)
}
