package compliance

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/vyrodovalexey/edgegate/internal/config"
)

type expressionRule struct {
	name    string
	reason  Reason
	program cel.Program
}

func newExpressionEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("request", cel.MapType(cel.StringType, cel.DynType)),
	)
}

func compileRules(rules []config.ExpressionRule) ([]expressionRule, error) {
	if len(rules) == 0 {
		return nil, nil
	}

	env, err := newExpressionEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	compiled := make([]expressionRule, 0, len(rules))
	for _, r := range rules {
		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRule, r.Name, issues.Err())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRule, r.Name, err)
		}

		reason := Reason(r.Reason)
		if reason == "" {
			reason = ReasonPolicyRule
		}
		compiled = append(compiled, expressionRule{name: r.Name, reason: reason, program: program})
	}
	return compiled, nil
}

// activation builds the "request" variable. Header names are lowercased and
// only the first value is kept.
func activation(req *Request, foldedPath string) map[string]interface{} {
	headers := make(map[string]string, len(req.Headers))
	for name, values := range req.Headers {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}
	return map[string]interface{}{
		"request": map[string]interface{}{
			"path":     foldedPath,
			"raw_path": req.Path,
			"method":   req.Method,
			"host":     req.Host,
			"headers":  headers,
		},
	}
}
