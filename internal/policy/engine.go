// Package policy decides which models a caller may use.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query   rego.PreparedEvalQuery
	allowed []string
}

// NewEngine prepares policyContent for evaluation. allowedModels is handed to
// the policy as input.allowed_models on every evaluation.
func NewEngine(ctx context.Context, policyContent string, allowedModels []string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chatstream.models.allow"),
		rego.Module("models.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query, allowed: append([]string{}, allowedModels...)}, nil
}

// Input is the document a model decision is made on.
type Input struct {
	UserID        string   `json:"user_id"`
	Model         string   `json:"model"`
	AllowedModels []string `json:"allowed_models"`
}

// AllowModel reports whether userID may run a turn against model.
func (e *Engine) AllowModel(ctx context.Context, userID, model string) (bool, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(Input{
		UserID:        userID,
		Model:         model,
		AllowedModels: e.allowed,
	}))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// An undefined decision denies.
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	return ok && allowed, nil
}

// FilterModels returns the subset of models userID may use, in order.
func (e *Engine) FilterModels(ctx context.Context, userID string, models []string) ([]string, error) {
	out := make([]string, 0, len(models))
	for _, m := range models {
		ok, err := e.AllowModel(ctx, userID, m)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// DefaultPolicy allows any model on the configured allowlist. An empty
// allowlist allows every non-empty model name.
const DefaultPolicy = `
package chatstream.models

default allow := false

allow if {
	input.model != ""
	count(input.allowed_models) == 0
}

allow if {
	input.model in input.allowed_models
}
`
