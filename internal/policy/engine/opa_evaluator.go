package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const policyQuery = "data.poker.authz.allow"

// DefaultPolicy lets any authenticated participant create sessions and vote, and keeps the
// facilitation actions with the session creator.
const DefaultPolicy = `package poker.authz

default allow := false

creator_actions := {"start_voting", "reveal_votes", "complete_session"}

allow if {
	input.action in {"create_session", "cast_vote"}
	input.principal.id != ""
}

allow if {
	creator_actions[input.action]
	input.principal.id != ""
	input.principal.id == input.session.created_by
}
`

// OPAEvaluator answers authorization questions with a prepared Rego query.
type OPAEvaluator struct {
	source string
	query  rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles source (DefaultPolicy when empty). The module must define data.poker.authz.allow.
func NewOPAEvaluator(ctx context.Context, source string) (*OPAEvaluator, error) {
	if source == "" {
		source = DefaultPolicy
	}
	pq, err := rego.New(
		rego.Query(policyQuery),
		rego.Module("authz.rego", source),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	return &OPAEvaluator{source: source, query: pq}, nil
}

// LoadPolicyFile reads a Rego module from path. An empty path yields DefaultPolicy.
func LoadPolicyFile(path string) (string, error) {
	if path == "" {
		return DefaultPolicy, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read policy file: %w", err)
	}
	return string(b), nil
}

// Authorize evaluates the policy for in.
func (e *OPAEvaluator) Authorize(ctx context.Context, in Input) (bool, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(in)))
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	return rs.Allowed(), nil
}

// HealthCheck verifies that the configured module still compiles and that the query evaluates
// to a boolean for a minimal input.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	if _, err := ast.CompileModules(map[string]string{"authz.rego": e.source}); err != nil {
		return fmt.Errorf("compile policy: %w", err)
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(Input{Action: ActionCastVote})))
	if err != nil {
		return fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	if _, ok := rs[0].Expressions[0].Value.(bool); !ok {
		return fmt.Errorf("policy query returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return nil
}

func buildInput(in Input) map[string]interface{} {
	out := map[string]interface{}{
		"action":    in.Action,
		"team_id":   in.TeamID,
		"principal": map[string]interface{}{"id": in.PrincipalID},
	}
	if in.Session != nil {
		out["session"] = map[string]interface{}{
			"id":         in.Session.ID,
			"team_id":    in.Session.TeamID,
			"created_by": in.Session.CreatedBy,
			"status":     in.Session.Status,
		}
	}
	return out
}
