// Package auth implements the presence-only auth gate.
//
// The gate does not verify tokens; the application behind the gateway does.
// It only checks that a bearer token or session cookie is present on routes
// that need one, and peeks at JWT claims (without verification) to keep
// non-admin sessions off admin routes and to send sessions with a pending
// MFA enrolment to the setup page.
//
//	gate := auth.NewGate(&cfg.Auth)
//	d := gate.Check(r, routing.Protected)
//	if d.Outcome != auth.OutcomeAllow {
//		gate.Write(w, r, d)
//		return
//	}
package auth
