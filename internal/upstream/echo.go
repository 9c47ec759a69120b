package upstream

import (
	"net/http"

	"github.com/vyrodovalexey/edgegate/internal/auth"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/tenant"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// EchoResponse is the body written by the echo handler.
type EchoResponse struct {
	Method     string         `json:"method"`
	Path       string         `json:"path"`
	Host       string         `json:"host"`
	RequestID  string         `json:"request_id,omitempty"`
	RouteClass string         `json:"route_class"`
	Tenant     *tenant.Tenant `json:"tenant,omitempty"`
	Subject    string         `json:"subject,omitempty"`
	Roles      []string       `json:"roles,omitempty"`
	Token      string         `json:"token_source,omitempty"`
}

// Echo returns a handler that describes the request it received. It stands
// in for the application during development.
func Echo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := EchoResponse{
			Method:     r.Method,
			Path:       r.URL.Path,
			Host:       r.Host,
			RequestID:  observability.RequestIDFromContext(ctx),
			RouteClass: observability.RouteClassFromContext(ctx),
		}
		if t, ok := tenant.FromContext(ctx); ok {
			resp.Tenant = t
		}
		if ac, ok := auth.FromContext(ctx); ok && ac.TokenPresent {
			resp.Subject = ac.Subject()
			resp.Roles = ac.Roles()
			resp.Token = ac.Source
		}
		util.WriteJSON(w, http.StatusOK, resp)
	})
}
