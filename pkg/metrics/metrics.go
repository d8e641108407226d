// Package metrics derives numeric indicators from position texts using plain
// string heuristics: length divergence, opposing-term matching, and keyword
// tiers. All scores are deterministic — the same inputs always produce the
// same numbers, across runs and processes.
package metrics

import (
	"strings"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
)

// Score caps. Absolute entropy is treated as theoretically impossible, so
// scores saturate below 100.
const (
	maxLengthEntropy = 40.0
	maxScore         = 95.0
	conflictWeight   = 20.0

	convergenceBase       = 60.0
	commonTermWeight      = 10.0
	unresolvedConvergence = 15.0
)

// opposingPairs are philosophical term pairs whose co-occurrence across the
// two positions signals axiom-level conflict.
var opposingPairs = [][2]string{
	{"duty", "outcome"},
	{"principle", "pragmatic"},
	{"rights", "utility"},
	{"dignity", "maximize"},
	{"categorical", "consequential"},
	{"inherent", "instrumental"},
}

// commonTerms mark synthesis language in a resolution text.
var commonTerms = []string{"both", "balance", "consider", "integrate", "synthesis"}

// PositionEntropy measures contraction of accessible future states from the
// divergence between two positions: length difference plus opposing-term
// conflicts, capped at 95.
func PositionEntropy(noblePos, adversaryPos string) float64 {
	lengthDiff := float64(len(noblePos) - len(adversaryPos))
	if lengthDiff < 0 {
		lengthDiff = -lengthDiff
	}
	entropy := lengthDiff / 10
	if entropy > maxLengthEntropy {
		entropy = maxLengthEntropy
	}

	nobleLower := strings.ToLower(noblePos)
	adversaryLower := strings.ToLower(adversaryPos)
	for _, pair := range opposingPairs {
		if strings.Contains(nobleLower, pair[0]) && strings.Contains(adversaryLower, pair[1]) {
			entropy += conflictWeight
		}
	}

	if entropy > maxScore {
		return maxScore
	}
	return entropy
}

// PositionConvergence scores how much common ground a resolution found.
// An empty resolution scores the fixed unresolved floor.
func PositionConvergence(resolution string) float64 {
	if resolution == "" {
		return unresolvedConvergence
	}

	score := convergenceBase
	lower := strings.ToLower(resolution)
	for _, term := range commonTerms {
		if strings.Contains(lower, term) {
			score += commonTermWeight
		}
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// Keyword indicator sets for damage assessment, checked in tier precedence
// order. Damage is the reduction of capacity to choose and act.
var (
	threatIndicators = []string{"kill", "death", "murder", "destroy", "eliminate"}
	damageIndicators = []string{"damaged", "hurt", "suffering", "harmed", "injured"}
	riskIndicators   = []string{"risk", "danger", "might", "could harm", "potential"}
)

// AssessDamageLevel estimates a severity tier from agency-loss indicator
// words in the dilemma text. Advisory only — the threshold classifier over
// the numeric context remains authoritative.
func AssessDamageLevel(dilemma string) contracts.Tier {
	lower := strings.ToLower(dilemma)

	if containsAny(lower, threatIndicators) {
		return contracts.TierThreat
	}
	if containsAny(lower, damageIndicators) {
		return contracts.TierDamage
	}
	if containsAny(lower, riskIndicators) {
		return contracts.TierRisk
	}
	return contracts.TierNone
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
