package auth

import (
	"context"
	"strings"
)

// Context describes the credentials of a request. It lives for one request.
type Context struct {
	TokenPresent bool
	RawToken     string

	// Source is "header:Authorization" or "cookie:<name>".
	Source string

	// Claims are the unverified JWT claims; nil for opaque tokens.
	Claims map[string]interface{}
}

// Roles returns the "role" and "roles" claims.
func (c *Context) Roles() []string {
	if c == nil || c.Claims == nil {
		return nil
	}
	var roles []string
	for _, key := range []string{"role", "roles"} {
		switch v := c.Claims[key].(type) {
		case string:
			roles = append(roles, strings.FieldsFunc(v, func(r rune) bool { return r == ' ' || r == ',' })...)
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					roles = append(roles, s)
				}
			}
		case []string:
			roles = append(roles, v...)
		}
	}
	return roles
}

// HasAnyRole reports whether the claims carry one of roles.
func (c *Context) HasAnyRole(roles []string) bool {
	for _, have := range c.Roles() {
		for _, want := range roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// MFAPending reports whether the session still has to enrol a second factor.
func (c *Context) MFAPending() bool {
	if c == nil || c.Claims == nil {
		return false
	}
	switch v := c.Claims["mfa_pending"].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

// Subject returns the "sub" claim.
func (c *Context) Subject() string {
	if c == nil || c.Claims == nil {
		return ""
	}
	s, _ := c.Claims["sub"].(string)
	return s
}

type authContextKey struct{}

// NewContext returns a context carrying ac.
func NewContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// FromContext returns the auth context stored in ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	ac, ok := ctx.Value(authContextKey{}).(*Context)
	return ac, ok && ac != nil
}
