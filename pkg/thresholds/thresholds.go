// Package thresholds implements the threshold classifier and the action
// mapper. Both are pure, total functions: the same context always yields the
// same tier and action, and no finite numeric input can make them fail.
//
// Classification follows a strict precedence — first match wins:
//
//  1. imminent threat        → THREAT
//  2. agency loss ≥ 0.6      → DAMAGE
//  3. agency loss ≥ 0.2 or
//     entropy delta > 0.3    → RISK
//  4. otherwise              → NONE
//
// THREAT and DAMAGE carry no relative ordering beyond this precedence.
package thresholds

import "github.com/moralogy-labs/moralogy/pkg/contracts"

// Classification thresholds. Damage is defined as diminished agency;
// entropy reduction is the collapse of harmful future branches.
const (
	DamageAgencyLoss = 0.6
	RiskAgencyLoss   = 0.2
	RiskEntropyDelta = 0.3
)

// Fixed justification strings. These are part of the audit contract and
// must not be rephrased.
const (
	JustificationThreat = "Imminent threat detected; immediate neutralization required."
	JustificationDamage = "Agency already diminished; restoration and prevention required."
	JustificationRisk   = "Significant risk detected; early intervention justified."
	JustificationNone   = "No actionable threshold crossed."
)

// ClampAgencyLoss clamps an agency-loss estimate to [0,1].
// Conservative and explainable: out-of-range inputs saturate.
func ClampAgencyLoss(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Classify maps a case context to a severity tier and its justification.
func Classify(ctx contracts.CaseContext) contracts.Assessment {
	agencyLoss := ClampAgencyLoss(ctx.AgencyLoss)
	entropyDelta := ctx.EntropyDelta

	switch {
	case ctx.ImminentThreat:
		return assessment(contracts.TierThreat, agencyLoss, entropyDelta, JustificationThreat)
	case agencyLoss >= DamageAgencyLoss:
		return assessment(contracts.TierDamage, agencyLoss, entropyDelta, JustificationDamage)
	case agencyLoss >= RiskAgencyLoss || entropyDelta > RiskEntropyDelta:
		return assessment(contracts.TierRisk, agencyLoss, entropyDelta, JustificationRisk)
	default:
		return assessment(contracts.TierNone, agencyLoss, entropyDelta, JustificationNone)
	}
}

// ActionFor maps a tier to its mandatory action. No weighing of
// alternatives happens here; completeness is traded for auditability.
func ActionFor(tier contracts.Tier) contracts.Action {
	switch tier {
	case contracts.TierThreat:
		return contracts.ActionNeutralize
	case contracts.TierRisk:
		return contracts.ActionIntervene
	case contracts.TierDamage:
		return contracts.ActionRestore
	default:
		return contracts.ActionNone
	}
}

func assessment(tier contracts.Tier, agencyLoss, entropyDelta float64, justification string) contracts.Assessment {
	return contracts.Assessment{
		Tier:          tier,
		AgencyLoss:    agencyLoss,
		EntropyDelta:  entropyDelta,
		Justification: justification,
	}
}
