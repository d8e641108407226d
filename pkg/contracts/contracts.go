// Package contracts defines the shared data contracts of the moralogy core:
// case contexts, severity tiers, mandated actions, decisions, moral records,
// and debate results. All downstream packages exchange these types; none of
// them carries behavior beyond trivial accessors.
package contracts

import "time"

// Tier is the severity tier assigned by the threshold classifier.
// Tiers form a closed set; THREAT and DAMAGE are not totally ordered
// relative to each other — only classification precedence is defined.
type Tier string

const (
	TierNone   Tier = "none"
	TierRisk   Tier = "risk"
	TierThreat Tier = "threat"
	TierDamage Tier = "damage"
)

// Implies reports whether the tier assumes culpability on its own.
// RISK and NONE are guilt-free; a DENY decision stays guilt-free too.
func (t Tier) ImpliesGuilt() bool {
	return t == TierThreat || t == TierDamage
}

// Action is a mandatory action identifier. The mapper performs no
// optimization: one tier, one action.
type Action string

const (
	ActionNone       Action = "NO_ACTION"
	ActionIntervene  Action = "INTERVENE_FIRST"
	ActionNeutralize Action = "NEUTRALIZE_IMMEDIATELY"
	ActionRestore    Action = "RESTORE_PUNISH_REPUDIATE_PREVENT"
	ActionDeny       Action = "DENY"
)

// CaseContext is the numeric context a deliberation is classified on.
// It is supplied by the caller and immutable once classified.
type CaseContext struct {
	// AgencyLoss is the fraction of agency the situation removes,
	// clamped to [0,1] before evaluation.
	AgencyLoss float64 `json:"agency_loss"`
	// EntropyDelta is the magnitude of future-possibility collapse.
	// Taken as given; no clamping.
	EntropyDelta float64 `json:"entropy_delta"`
	// ImminentThreat short-circuits classification to THREAT.
	ImminentThreat bool `json:"imminent_threat"`
}

// Assessment is the classifier output: a tier plus its fixed justification,
// echoing the evaluated inputs for audit.
type Assessment struct {
	Tier          Tier    `json:"tier"`
	AgencyLoss    float64 `json:"agency_loss"`
	EntropyDelta  float64 `json:"entropy_delta"`
	Justification string  `json:"justification"`
}

// SandboxReport is the structural pre-check over raw case text.
// It flags domain and bypass structure only; it makes no moral claims.
type SandboxReport struct {
	Domain           string `json:"domain"`
	DomainProhibited bool   `json:"is_domain_prohibited"`
	BypassAttempt    bool   `json:"is_bypass_attempt"`
}

// Decision is the result entity of one deliberation.
type Decision struct {
	Action        Action         `json:"action"`
	Justification string         `json:"justification"`
	Guilt         bool           `json:"guilt"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Verdict is the caller-facing summary returned by the orchestrator.
// Deliberation detail lives in the registry, not here.
type Verdict struct {
	CaseID         string `json:"case_id"`
	Action         Action `json:"action"`
	Justification  string `json:"justification"`
	Guilt          bool   `json:"guilt"`
	SafelockStatus string `json:"safelock_status"`
}

// MoralRecord is the persisted unit of the append-only registry.
// Created exactly once when a decision is finalized; never updated
// or removed. Insertion order is temporal order.
type MoralRecord struct {
	RecordID      string         `json:"record_id"`
	Timestamp     time.Time      `json:"timestamp"`
	CaseID        string         `json:"case_id"`
	Action        Action         `json:"action"`
	Tier          Tier           `json:"tier"`
	Justification string         `json:"justification"`
	Guilt         bool           `json:"guilt"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// DebateStatus is the terminal state of a debate run.
type DebateStatus string

const (
	DebateConsensus  DebateStatus = "CONSENSUS"
	DebateUnresolved DebateStatus = "UNRESOLVED"
	DebateBedrock    DebateStatus = "BEDROCK"
)

// DebateResult is the advisory artifact produced by the debate loop.
// It never produces a moral record of its own.
type DebateResult struct {
	Status           DebateStatus `json:"status"`
	Justification    string       `json:"justification"`
	FinalConvergence float64      `json:"final_convergence"`
}
