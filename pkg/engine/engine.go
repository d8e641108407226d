// Package engine implements the decision orchestrator. One deliberation runs
// in a fixed order: sandbox pre-check, threshold classification, action
// mapping, a zero-power budget probe, and exactly one registry write —
// before the verdict is returned.
//
// The engine holds no global state: registry and safelock are injected and
// owned by the caller per session.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/moralogy-labs/moralogy/pkg/audit"
	"github.com/moralogy-labs/moralogy/pkg/contracts"
	"github.com/moralogy-labs/moralogy/pkg/policy"
	"github.com/moralogy-labs/moralogy/pkg/registry"
	"github.com/moralogy-labs/moralogy/pkg/safelock"
	"github.com/moralogy-labs/moralogy/pkg/thresholds"
)

// JustificationBlocked is recorded when the sandbox refuses a deliberation.
const JustificationBlocked = "Sandbox blocked prohibited domain or bypass attempt."

// probePower is the elective power requested from the budget gate on every
// deliberation. It is always denied; the probe exists so the attempt itself
// is auditable.
const probePower = 1

// Engine orchestrates sandbox, thresholds, safelock, and registry into one
// deliberation per input case.
type Engine struct {
	registry  registry.Registry
	lock      *safelock.Safelock
	profile   *policy.Profile
	denyRules *policy.Evaluator
	auditLog  audit.Logger
	clock     func() time.Time
	newID     func() string
}

// New creates an engine over a registry and safelock with the built-in
// sandbox profile and a discarded audit stream.
func New(reg registry.Registry, lock *safelock.Safelock) *Engine {
	return &Engine{
		registry: reg,
		lock:     lock,
		profile:  policy.Default(),
		auditLog: audit.Nop(),
		clock:    time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// WithProfile replaces the sandbox profile.
func (e *Engine) WithProfile(p *policy.Profile) *Engine {
	if p != nil {
		e.profile = p
	}
	return e
}

// WithDenyRules attaches a compiled CEL deny-rule evaluator.
func (e *Engine) WithDenyRules(ev *policy.Evaluator) *Engine {
	e.denyRules = ev
	return e
}

// WithAuditLogger attaches an audit event stream.
func (e *Engine) WithAuditLogger(l audit.Logger) *Engine {
	if l != nil {
		e.auditLog = l
	}
	return e
}

// WithClock overrides the clock for deterministic testing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Deliberate runs one deliberation over the case text and optional numeric
// overrides. A nil override bag degrades to conservative zero defaults; the
// call never fails for a well-formed context. If the registry write fails
// the verdict is still returned alongside the error — partial results are
// preferred over silent loss.
func (e *Engine) Deliberate(ctx context.Context, caseText string, overrides *contracts.CaseContext) (contracts.Verdict, error) {
	caseID := e.newID()

	caseCtx := contracts.CaseContext{}
	if overrides != nil {
		caseCtx = *overrides
	}

	report := e.profile.Analyze(caseText)
	if blocked, detail := e.blocked(report, caseCtx); blocked {
		return e.deny(ctx, caseID, report, caseCtx, detail)
	}

	// The gate is probed for audit only: elective power is always denied
	// and the outcome never changes the mandated action.
	if !safelock.DenyOmnipotence(e.lock, probePower, "deliberation "+caseID) {
		_ = e.auditLog.Record(ctx, audit.EventBudget, "elective_power_denied", caseID,
			map[string]any{"requested_power": probePower, "safelock_status": string(e.lock.Status())})
	}

	assessment := thresholds.Classify(caseCtx)
	action := thresholds.ActionFor(assessment.Tier)

	decision := contracts.Decision{
		Action:        action,
		Justification: assessment.Justification,
		Guilt:         assessment.Tier.ImpliesGuilt(),
		Metadata: map[string]any{
			"agency_loss":   assessment.AgencyLoss,
			"entropy_delta": assessment.EntropyDelta,
			"threshold":     string(assessment.Tier),
		},
	}

	err := e.register(ctx, caseID, decision, assessment.Tier, report, caseCtx)
	return e.finalize(caseID, decision), err
}

// blocked evaluates the structural pre-check and the optional deny rules.
func (e *Engine) blocked(report contracts.SandboxReport, caseCtx contracts.CaseContext) (bool, string) {
	if report.DomainProhibited {
		return true, "prohibited domain: " + report.Domain
	}
	if report.BypassAttempt {
		return true, "bypass attempt"
	}
	if denied, rule := e.denyRules.Denies(report, caseCtx); denied {
		return true, "deny rule fired: " + rule
	}
	return false, ""
}

// deny short-circuits a blocked deliberation: no classification, guilt
// stays false, and the block itself is registered. Bypass attempts are
// recorded at tier THREAT, everything else at RISK.
func (e *Engine) deny(ctx context.Context, caseID string, report contracts.SandboxReport, caseCtx contracts.CaseContext, detail string) (contracts.Verdict, error) {
	tier := contracts.TierRisk
	if report.BypassAttempt {
		tier = contracts.TierThreat
	}

	decision := contracts.Decision{
		Action:        contracts.ActionDeny,
		Justification: JustificationBlocked,
		Guilt:         false,
		Metadata:      sandboxMetadata(report, caseCtx),
	}

	_ = e.auditLog.Record(ctx, audit.EventPolicy, "deliberation_blocked", caseID,
		map[string]any{"detail": detail, "tier": string(tier)})

	err := e.register(ctx, caseID, decision, tier, report, caseCtx)
	return e.finalize(caseID, decision), err
}

// register writes the single moral record of this deliberation.
func (e *Engine) register(ctx context.Context, caseID string, decision contracts.Decision, tier contracts.Tier, report contracts.SandboxReport, caseCtx contracts.CaseContext) error {
	record := contracts.MoralRecord{
		RecordID:      e.newID(),
		Timestamp:     e.clock().UTC(),
		CaseID:        caseID,
		Action:        decision.Action,
		Tier:          tier,
		Justification: decision.Justification,
		Guilt:         decision.Guilt,
		Metadata:      map[string]any{"sandbox": sandboxMetadata(report, caseCtx)},
	}

	if err := e.registry.Write(ctx, record); err != nil {
		_ = e.auditLog.Record(ctx, audit.EventSystem, "registry_write_failed", caseID,
			map[string]any{"error": err.Error()})
		return fmt.Errorf("write moral record: %w", err)
	}

	_ = e.auditLog.Record(ctx, audit.EventDecision, "record_written", caseID,
		map[string]any{"action": string(decision.Action), "tier": string(tier), "guilt": decision.Guilt})
	return nil
}

// finalize returns only the verdict. Deliberation detail is preserved in
// the registry, not in memory.
func (e *Engine) finalize(caseID string, decision contracts.Decision) contracts.Verdict {
	return contracts.Verdict{
		CaseID:         caseID,
		Action:         decision.Action,
		Justification:  decision.Justification,
		Guilt:          decision.Guilt,
		SafelockStatus: string(e.lock.Status()),
	}
}

func sandboxMetadata(report contracts.SandboxReport, caseCtx contracts.CaseContext) map[string]any {
	return map[string]any{
		"domain":               report.Domain,
		"is_domain_prohibited": report.DomainProhibited,
		"is_bypass_attempt":    report.BypassAttempt,
		"agency_loss":          caseCtx.AgencyLoss,
		"entropy_delta":        caseCtx.EntropyDelta,
		"imminent_threat":      caseCtx.ImminentThreat,
	}
}
