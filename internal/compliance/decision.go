package compliance

import "net/http"

// Reason names why a request was rejected.
type Reason string

// Rejection reasons.
const (
	ReasonProhibitedRoute     Reason = "prohibited_route"
	ReasonProhibitedOperation Reason = "prohibited_operation"
	ReasonReadOnlyResource    Reason = "read_only_resource"
	ReasonPolicyRule          Reason = "policy_rule"
)

// Decision is the outcome of a compliance check.
type Decision struct {
	Blocked bool
	Reason  Reason

	// Rule is the deny-list term, route pattern or expression rule name
	// that matched.
	Rule   string
	Status int
}

// Pass is the decision for an allowed request.
func Pass() Decision {
	return Decision{}
}

func reject(reason Reason, rule string) Decision {
	return Decision{
		Blocked: true,
		Reason:  reason,
		Rule:    rule,
		Status:  http.StatusForbidden,
	}
}

// Err returns nil for a pass and a *BlockedError otherwise.
func (d Decision) Err() error {
	if !d.Blocked {
		return nil
	}
	return &BlockedError{Reason: d.Reason, Rule: d.Rule}
}

// Rejection is the JSON body of a compliance rejection.
type Rejection struct {
	Error      string         `json:"error"`
	Message    string         `json:"message"`
	Compliance RejectionNotes `json:"compliance"`
	Path       string         `json:"path"`
	Method     string         `json:"method"`
	RequestID  string         `json:"request_id,omitempty"`
}

// RejectionNotes explains the regulatory reason of a rejection.
type RejectionNotes struct {
	Reason Reason `json:"reason"`
	Rule   string `json:"rule"`
	Policy string `json:"policy"`
}
