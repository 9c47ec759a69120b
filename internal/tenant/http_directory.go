package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
)

// maxResponseBytes caps the tenant service response body.
const maxResponseBytes = 1 << 20

// HTTPDirectory queries the tenant service:
//
//	GET {baseURL}/tenants/resolve?host=<domain>
//
// 200 carries the tenant as JSON, 404 means not found. Calls go through a
// circuit breaker; not-found answers count as successes.
type HTTPDirectory struct {
	endpoint string
	client   *http.Client
	cb       *gobreaker.CircuitBreaker
	logger   observability.Logger
}

// NewHTTPDirectory creates an HTTP directory.
func NewHTTPDirectory(
	baseURL string,
	breaker *config.BreakerConfig,
	timeout time.Duration,
	logger observability.Logger,
) (*HTTPDirectory, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid tenant service URL %q", baseURL)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	if breaker == nil {
		breaker = &config.DefaultConfig().Tenant.Directory.Breaker
	}

	d := &HTTPDirectory{
		endpoint: u.String() + "/tenants/resolve",
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}

	threshold := breaker.FailureThreshold
	d.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "tenant-directory",
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval.Duration(),
		Timeout:     breaker.Timeout.Duration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			GetMetrics().breakerState.Set(float64(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrTenantNotFound)
		},
	})

	return d, nil
}

// Lookup queries the tenant service.
func (d *HTTPDirectory) Lookup(ctx context.Context, domain string) (*Tenant, error) {
	out, err := d.cb.Execute(func() (interface{}, error) {
		return d.fetch(ctx, domain)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrTenantUnavailable, err)
		}
		return nil, err
	}
	t, _ := out.(*Tenant)
	return t, nil
}

func (d *HTTPDirectory) fetch(ctx context.Context, domain string) (*Tenant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		d.endpoint+"?host="+url.QueryEscape(domain), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, ErrTenantNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("tenant service returned status %d", resp.StatusCode)
	}

	var t Tenant
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode tenant: %w", err)
	}
	if t.ID == "" {
		return nil, fmt.Errorf("tenant service returned a tenant without id")
	}
	if t.Domain == "" {
		t.Domain = domain
	}
	return &t, nil
}

// State returns the breaker state.
func (d *HTTPDirectory) State() gobreaker.State {
	return d.cb.State()
}

// Close releases idle connections.
func (d *HTTPDirectory) Close() error {
	d.client.CloseIdleConnections()
	return nil
}
