package audit

import (
	"context"
	"time"
)

// Violation is one blocked compliance attempt.
type Violation struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
	RemoteIP   string    `json:"remote_ip"`
	UserAgent  string    `json:"user_agent"`
	Timestamp  time.Time `json:"timestamp"`
	Reason     string    `json:"reason"`
	Rule       string    `json:"rule,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	TenantHost string    `json:"tenant_host,omitempty"`
}

// Recorder accepts violations.
type Recorder interface {
	Record(ctx context.Context, v *Violation)
}

type discard struct{}

func (discard) Record(context.Context, *Violation) {}

// Discard is a Recorder that drops everything.
var Discard Recorder = discard{}
