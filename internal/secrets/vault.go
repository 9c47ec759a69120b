package secrets

import (
	"context"
	"fmt"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
)

// VaultProvider reads secrets from a Vault KV v2 engine using token auth.
type VaultProvider struct {
	api     *vaultapi.Client
	timeout time.Duration
	logger  observability.Logger
}

// NewVaultProvider creates a Vault provider from configuration.
func NewVaultProvider(cfg *config.VaultConfig, logger observability.Logger) (*VaultProvider, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("%w: vault is disabled", ErrProviderNotConfigured)
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: vault address is required", ErrProviderNotConfigured)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = cfg.Address
	apiConfig.MaxRetries = 2

	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	apiConfig.Timeout = timeout

	api, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		api.SetToken(cfg.Token)
	}
	if cfg.Namespace != "" {
		api.SetNamespace(cfg.Namespace)
	}

	logger.Info("vault secrets provider initialized",
		observability.String("address", cfg.Address),
	)

	return &VaultProvider{
		api:     api,
		timeout: timeout,
		logger:  logger.With(observability.String("component", "vault")),
	}, nil
}

// Read reads a KV v2 secret. The path has the form "mount/path" and is
// expanded to "mount/data/path".
func (p *VaultProvider) Read(ctx context.Context, path string) (map[string]interface{}, error) {
	mount, secretPath, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fullPath := fmt.Sprintf("%s/data/%s", mount, secretPath)
	secret, err := p.api.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		return nil, fmt.Errorf("vault read %s failed: %w", fullPath, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, fullPath)
	}

	// Soft-deleted KV v2 secrets come back with data: null.
	dataValue, hasData := secret.Data["data"]
	if hasData && dataValue == nil {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, fullPath)
	}

	data, ok := dataValue.(map[string]interface{})
	if !ok {
		data = secret.Data
	}

	p.logger.Debug("secret read", observability.String("path", fullPath))

	return data, nil
}
