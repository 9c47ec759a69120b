package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/routing"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Outcome is the result of the auth gate.
type Outcome uint8

// Gate outcomes.
const (
	OutcomeAllow Outcome = iota
	OutcomeRedirect
	OutcomeUnauthorized
	OutcomeForbidden
)

// String returns the metric label of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Decision is the verdict of the gate for one request.
type Decision struct {
	Outcome Outcome
	Status  int

	// Location is set for redirects.
	Location string

	// Code is the "error" field of JSON responses.
	Code string
	Err  error
}

// Gate enforces token presence per route classification.
type Gate struct {
	extractor    *Extractor
	signInPath   string
	includeNext  bool
	mfaSetupPath string
	apiPrefix    string
	adminRoles   []string
}

// NewGate creates a gate.
func NewGate(cfg *config.AuthConfig) *Gate {
	if cfg == nil {
		cfg = &config.DefaultConfig().Auth
	}
	apiPrefix := util.CleanPath(cfg.APIPrefix)
	if apiPrefix != "/" {
		apiPrefix += "/"
	}
	return &Gate{
		extractor:    NewExtractor(cfg.CookieNames),
		signInPath:   cfg.SignInPath,
		includeNext:  cfg.IncludeNext,
		mfaSetupPath: cfg.MFASetupPath,
		apiPrefix:    apiPrefix,
		adminRoles:   cfg.AdminRoles,
	}
}

// IsAPI reports whether path is an API route, which gets JSON errors
// instead of redirects.
func (g *Gate) IsAPI(path string) bool {
	return strings.HasPrefix(util.CleanPath(path)+"/", g.apiPrefix)
}

// Check evaluates r against class and returns the decision along with the
// extracted credentials.
func (g *Gate) Check(r *http.Request, class routing.Classification) (Decision, *Context) {
	ac := g.extractor.Extract(r)
	if !class.RequiresTenant() {
		return Decision{Outcome: OutcomeAllow}, ac
	}

	api := g.IsAPI(r.URL.Path)

	if !ac.TokenPresent {
		if api {
			return Decision{
				Outcome: OutcomeUnauthorized,
				Status:  http.StatusUnauthorized,
				Code:    "authentication_required",
				Err:     ErrAuthMissing,
			}, ac
		}
		return Decision{
			Outcome:  OutcomeRedirect,
			Status:   http.StatusSeeOther,
			Location: g.signInLocation(r),
			Err:      ErrAuthMissing,
		}, ac
	}

	if class == routing.Admin && !ac.HasAnyRole(g.adminRoles) {
		return Decision{
			Outcome: OutcomeForbidden,
			Status:  http.StatusForbidden,
			Code:    "forbidden",
			Err:     ErrForbidden,
		}, ac
	}

	if class != routing.MFASetup && ac.MFAPending() {
		if api {
			return Decision{
				Outcome: OutcomeForbidden,
				Status:  http.StatusForbidden,
				Code:    "mfa_required",
				Err:     ErrForbidden,
			}, ac
		}
		return Decision{
			Outcome:  OutcomeRedirect,
			Status:   http.StatusSeeOther,
			Location: g.mfaSetupPath,
			Err:      ErrForbidden,
		}, ac
	}

	return Decision{Outcome: OutcomeAllow}, ac
}

func (g *Gate) signInLocation(r *http.Request) string {
	if !g.includeNext {
		return g.signInPath
	}
	next := r.URL.Path
	if r.URL.RawQuery != "" {
		next += "?" + r.URL.RawQuery
	}
	sep := "?"
	if strings.Contains(g.signInPath, "?") {
		sep = "&"
	}
	return g.signInPath + sep + "next=" + url.QueryEscape(next)
}

// Write sends the response for a non-allow decision.
func (g *Gate) Write(w http.ResponseWriter, r *http.Request, d Decision) {
	if d.Outcome == OutcomeRedirect {
		http.Redirect(w, r, d.Location, d.Status)
		return
	}
	util.WriteJSON(w, d.Status, map[string]string{"error": d.Code})
}
