package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Extractor finds the session token of a request.
type Extractor struct {
	cookieNames []string
}

// NewExtractor creates an extractor checking the Authorization header and
// then cookieNames in order.
func NewExtractor(cookieNames []string) *Extractor {
	return &Extractor{cookieNames: cookieNames}
}

// Extract returns the credentials of r. It never returns nil.
func (e *Extractor) Extract(r *http.Request) *Context {
	if token := ExtractBearerToken(r); token != "" {
		return newContext(token, "header:Authorization")
	}
	for _, name := range e.cookieNames {
		if c, err := r.Cookie(name); err == nil {
			if v := strings.TrimSpace(c.Value); v != "" {
				return newContext(v, "cookie:"+name)
			}
		}
	}
	return &Context{}
}

func newContext(token, source string) *Context {
	return &Context{
		TokenPresent: true,
		RawToken:     token,
		Source:       source,
		Claims:       PeekClaims(token),
	}
}

// ExtractBearerToken extracts a bearer token from the Authorization header.
func ExtractBearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[len("Bearer "):])
}

// PeekClaims parses a JWT without verifying its signature or validating
// its claims. It returns nil for anything that is not a JWT.
func PeekClaims(token string) map[string]interface{} {
	if strings.Count(token, ".") != 2 {
		return nil
	}
	tok, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return nil
	}
	claims, err := tok.AsMap(context.Background())
	if err != nil {
		return nil
	}
	return claims
}
