package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/edgegate/internal/config"
)

func tenantService(t *testing.T, status *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tenants/resolve" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if code := int(status.Load()); code != 0 {
			w.WriteHeader(code)
			return
		}
		switch r.URL.Query().Get("host") {
		case "first.example.com":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":                "t1",
				"name":              "First Bank",
				"domain":            "first.example.com",
				"status":            "active",
				"subscription_plan": "pro",
				"settings":          map[string]interface{}{"currency": "EUR"},
			})
		case "broken.example.com":
			_, _ = w.Write([]byte(`{"name":"no id"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPDirectory_Lookup(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	srv := tenantService(t, &status)

	d, err := NewHTTPDirectory(srv.URL+"/", nil, time.Second, nil)
	require.NoError(t, err)
	defer func() { _ = d.Close() }()

	got, err := d.Lookup(context.Background(), "first.example.com")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, "pro", got.SubscriptionPlan)
	assert.Equal(t, "EUR", got.Settings.Currency)

	_, err = d.Lookup(context.Background(), "nobody.example.com")
	assert.ErrorIs(t, err, ErrTenantNotFound)

	_, err = d.Lookup(context.Background(), "broken.example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTenantNotFound)
}

func TestHTTPDirectory_BreakerOpens(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusBadGateway)
	srv := tenantService(t, &status)

	d, err := NewHTTPDirectory(srv.URL, &config.BreakerConfig{
		MaxRequests:      1,
		Interval:         config.Duration(time.Minute),
		Timeout:          config.Duration(time.Minute),
		FailureThreshold: 2,
	}, time.Second, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = d.Lookup(context.Background(), "first.example.com")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, d.State())

	status.Store(0)
	_, err = d.Lookup(context.Background(), "first.example.com")
	assert.ErrorIs(t, err, ErrTenantUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestHTTPDirectory_NotFoundKeepsBreakerClosed(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	srv := tenantService(t, &status)

	d, err := NewHTTPDirectory(srv.URL, &config.BreakerConfig{FailureThreshold: 1}, time.Second, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = d.Lookup(context.Background(), "nobody.example.com")
		assert.ErrorIs(t, err, ErrTenantNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, d.State())
}

func TestHTTPDirectory_ThroughResolverTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	cfg := config.DefaultConfig().Tenant
	cfg.ResolveTimeout = config.Duration(30 * time.Millisecond)
	d, err := NewHTTPDirectory(srv.URL, &cfg.Directory.Breaker, 0, nil)
	require.NoError(t, err)

	_, err = NewResolver(&cfg, d).Resolve(context.Background(), "first.example.com")
	assert.ErrorIs(t, err, ErrTenantUnavailable)
}

func TestNewHTTPDirectory_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPDirectory("not a url", nil, time.Second, nil)
	assert.Error(t, err)
}

type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *[]byte:
			*p = r.values[i].([]byte)
		default:
			return errors.New("unexpected scan target")
		}
	}
	return nil
}

type fakeQuerier struct {
	row     fakeRow
	lastArg interface{}
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, args ...interface{}) pgx.Row {
	q.lastArg = args[0]
	return q.row
}

func TestPostgresDirectory_Lookup(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{row: fakeRow{values: []interface{}{
		"t1", "First Bank", "first.example.com", "active", "pro",
		[]byte(`{"currency":"EUR","timezone":"Europe/Berlin","branding":{"logo":"/l.svg"}}`),
	}}}
	d := &PostgresDirectory{db: q}

	got, err := d.Lookup(context.Background(), "first.example.com")
	require.NoError(t, err)
	assert.Equal(t, "first.example.com", q.lastArg)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, "Europe/Berlin", got.Settings.Timezone)
	assert.Equal(t, "/l.svg", got.Settings.Branding["logo"])
	assert.NoError(t, d.Close())
}

func TestPostgresDirectory_Errors(t *testing.T) {
	t.Parallel()

	d := &PostgresDirectory{db: &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}}
	_, err := d.Lookup(context.Background(), "x")
	assert.ErrorIs(t, err, ErrTenantNotFound)

	boom := errors.New("conn reset")
	d = &PostgresDirectory{db: &fakeQuerier{row: fakeRow{err: boom}}}
	_, err = d.Lookup(context.Background(), "x")
	assert.ErrorIs(t, err, boom)

	d = &PostgresDirectory{db: &fakeQuerier{row: fakeRow{values: []interface{}{
		"t1", "n", "d", "active", "", []byte(`{`),
	}}}}
	_, err = d.Lookup(context.Background(), "x")
	assert.Error(t, err)
}

func TestNewPostgresDirectory_BadDSN(t *testing.T) {
	t.Parallel()

	_, err := NewPostgresDirectory(context.Background(), &config.PostgresConfig{DSN: "postgres://%zz"})
	assert.Error(t, err)
}

func TestNewDirectory(t *testing.T) {
	t.Parallel()

	d, err := NewDirectory(context.Background(), &config.DirectoryConfig{Type: config.DirectoryStatic}, time.Second, nil)
	require.NoError(t, err)
	assert.IsType(t, &StaticDirectory{}, d)

	d, err = NewDirectory(context.Background(), &config.DirectoryConfig{
		Type:    config.DirectoryHTTP,
		BaseURL: "http://tenants.internal",
	}, time.Second, nil)
	require.NoError(t, err)
	assert.IsType(t, &HTTPDirectory{}, d)

	d, err = NewDirectory(context.Background(), &config.DirectoryConfig{
		Type:     config.DirectoryPostgres,
		Postgres: config.PostgresConfig{DSN: "postgres://edgegate@127.0.0.1:1/platform", MaxConns: 2},
	}, time.Second, nil)
	require.NoError(t, err)
	assert.IsType(t, &PostgresDirectory{}, d)
	assert.NoError(t, d.Close())

	_, err = NewDirectory(context.Background(), &config.DirectoryConfig{Type: "ldap"}, time.Second, nil)
	assert.Error(t, err)
}
