// Package secrets reads credentials the gateway needs at startup, such as
// the redis password, from HashiCorp Vault.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common errors for secrets providers.
var (
	// ErrSecretNotFound is returned when a secret or key does not exist.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrProviderNotConfigured is returned when the provider is not properly configured.
	ErrProviderNotConfigured = errors.New("provider not configured")
	// ErrInvalidPath is returned when the secret path is invalid.
	ErrInvalidPath = errors.New("invalid secret path")
)

// Provider reads key-value secrets.
type Provider interface {
	// Read returns the key-value data stored at path ("mount/path").
	Read(ctx context.Context, path string) (map[string]interface{}, error)
}

// ReadString reads a single string value from the secret at path.
func ReadString(ctx context.Context, p Provider, path, key string) (string, error) {
	if p == nil {
		return "", ErrProviderNotConfigured
	}
	data, err := p.Read(ctx, path)
	if err != nil {
		return "", err
	}
	v, ok := data[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: key %q at %s", ErrSecretNotFound, key, path)
	}
	return v, nil
}

// splitPath splits "mount/path" into its mount and path components.
func splitPath(p string) (mount, path string, err error) {
	parts := strings.SplitN(strings.Trim(p, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q, expected mount/path", ErrInvalidPath, p)
	}
	return parts[0], parts[1], nil
}
