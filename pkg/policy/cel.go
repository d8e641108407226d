package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
)

// Evaluator compiles and runs CEL deny rules over a sandbox report and case
// context. Rules are compiled once at construction; a rule evaluating to
// true denies the deliberation. Evaluation is fail-closed: a rule that
// errors at runtime counts as a denial.
type Evaluator struct {
	rules    []string
	programs []cel.Program
}

// NewEvaluator compiles the given CEL expressions. Each rule sees:
//
//	report  — the sandbox report (domain, is_domain_prohibited, is_bypass_attempt)
//	context — the numeric case context (agency_loss, entropy_delta, imminent_threat)
func NewEvaluator(rules []string) (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("report", cel.DynType),
		cel.Variable("context", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	e := &Evaluator{rules: rules}
	for i, rule := range rules {
		ast, issues := env.Compile(rule)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile deny rule %d: %w", i, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program deny rule %d: %w", i, err)
		}
		e.programs = append(e.programs, prg)
	}
	return e, nil
}

// Denies evaluates all rules and reports the first one that fires.
func (e *Evaluator) Denies(report contracts.SandboxReport, caseCtx contracts.CaseContext) (bool, string) {
	if e == nil || len(e.programs) == 0 {
		return false, ""
	}

	input := map[string]any{
		"report": map[string]any{
			"domain":               report.Domain,
			"is_domain_prohibited": report.DomainProhibited,
			"is_bypass_attempt":    report.BypassAttempt,
		},
		"context": map[string]any{
			"agency_loss":     caseCtx.AgencyLoss,
			"entropy_delta":   caseCtx.EntropyDelta,
			"imminent_threat": caseCtx.ImminentThreat,
		},
	}

	for i, prg := range e.programs {
		out, _, err := prg.Eval(input)
		if err != nil {
			// Fail closed: an unevaluable rule blocks rather than passes.
			return true, fmt.Sprintf("deny rule %d unevaluable: %v", i, err)
		}
		if allowed, ok := out.Value().(bool); ok && allowed {
			return true, e.rules[i]
		}
	}
	return false, ""
}
