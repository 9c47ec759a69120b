package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// hopHeaders are headers that should not be forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy forwards requests to the application.
type Proxy struct {
	target        *url.URL
	proxy         *httputil.ReverseProxy
	logger        observability.Logger
	transport     http.RoundTripper
	flushInterval time.Duration
	stripHeaders  []string
}

// ProxyOption is a functional option for configuring the proxy.
type ProxyOption func(*Proxy)

// WithProxyLogger sets the logger for the proxy.
func WithProxyLogger(logger observability.Logger) ProxyOption {
	return func(p *Proxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTransport sets the transport for the proxy.
func WithTransport(transport http.RoundTripper) ProxyOption {
	return func(p *Proxy) {
		p.transport = transport
	}
}

// WithFlushInterval sets the flush interval for streaming responses.
func WithFlushInterval(interval time.Duration) ProxyOption {
	return func(p *Proxy) {
		p.flushInterval = interval
	}
}

// WithStrippedResponseHeaders removes the named headers from application
// responses, so headers owned by the gateway are never duplicated.
func WithStrippedResponseHeaders(names ...string) ProxyOption {
	return func(p *Proxy) {
		p.stripHeaders = append(p.stripHeaders, names...)
	}
}

// NewProxy creates a reverse proxy to rawURL.
func NewProxy(rawURL string, opts ...ProxyOption) (*Proxy, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	if (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("%w: %q needs an http(s) scheme and a host", ErrInvalidTarget, rawURL)
	}

	p := &Proxy{
		target:        target,
		logger:        observability.NopLogger(),
		flushInterval: -1,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.proxy = &httputil.ReverseProxy{
		Director:       p.director,
		Transport:      p.transport,
		FlushInterval:  p.flushInterval,
		ErrorHandler:   p.errorHandler,
		ModifyResponse: p.modifyResponse,
	}
	return p, nil
}

// New returns the upstream handler for cfg: a proxy when a URL is set,
// otherwise the echo handler.
func New(cfg *config.UpstreamConfig, opts ...ProxyOption) (http.Handler, error) {
	if cfg == nil || cfg.URL == "" {
		return Echo(), nil
	}
	opts = append([]ProxyOption{WithFlushInterval(flushInterval(cfg))}, opts...)
	return NewProxy(cfg.URL, opts...)
}

func flushInterval(cfg *config.UpstreamConfig) time.Duration {
	if cfg.FlushInterval == 0 {
		return -1
	}
	return cfg.FlushInterval.Duration()
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.proxy.ServeHTTP(w, r)
}

// director rewrites the request for the application. X-Forwarded-For is
// appended by httputil.ReverseProxy itself.
func (p *Proxy) director(req *http.Request) {
	originalHost := req.Host

	req.URL.Scheme = p.target.Scheme
	req.URL.Host = p.target.Host
	if p.target.Path != "" && p.target.Path != "/" {
		req.URL.Path = singleJoiningSlash(p.target.Path, req.URL.Path)
		req.URL.RawPath = ""
	}

	for _, h := range hopHeaders {
		req.Header.Del(h)
	}

	if req.TLS != nil {
		req.Header.Set("X-Forwarded-Proto", "https")
	} else {
		req.Header.Set("X-Forwarded-Proto", "http")
	}
	req.Header.Set("X-Forwarded-Host", originalHost)
	req.Host = p.target.Host

	observability.InjectTraceContext(req.Context(), req)
}

func (p *Proxy) modifyResponse(res *http.Response) error {
	for _, h := range p.stripHeaders {
		res.Header.Del(h)
	}
	return nil
}

func (p *Proxy) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	code := "bad_gateway"
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
		code = "gateway_timeout"
	}

	p.logger.Error("upstream error",
		observability.String("path", r.URL.Path),
		observability.String("method", r.Method),
		observability.String("target", p.target.Host),
		observability.String("request_id", observability.RequestIDFromContext(r.Context())),
		observability.Error(err),
	)
	util.WriteJSON(w, status, map[string]string{"error": code})
}

func singleJoiningSlash(a, b string) string {
	aslash := a[len(a)-1] == '/'
	bslash := b != "" && b[0] == '/'
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}
