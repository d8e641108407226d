package debate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
	"github.com/moralogy-labs/moralogy/pkg/debate"
)

func TestRun_ConsensusOnFirstIteration(t *testing.T) {
	// Equal stance entropies, no paradox: convergence 1.0.
	result := debate.New().Run(contracts.CaseContext{AgencyLoss: 0, EntropyDelta: 0})

	assert.Equal(t, contracts.DebateConsensus, result.Status)
	assert.Equal(t, debate.JustificationConsensus, result.Justification)
	assert.InDelta(t, 1.0, result.FinalConvergence, 1e-9)
}

func TestRun_BedrockOnMutualOverconfidence(t *testing.T) {
	// Both stances confident (entropy 0.1 < 0.3) and consistent: paradox
	// every round, so consensus is refused and the loop ends in BEDROCK.
	result := debate.New().Run(contracts.CaseContext{AgencyLoss: 0.95, EntropyDelta: 0.95})

	assert.Equal(t, contracts.DebateBedrock, result.Status)
	assert.Equal(t, debate.JustificationBedrock, result.Justification)
	assert.InDelta(t, 1.0, result.FinalConvergence, 1e-9)
}

func TestRun_UnresolvedAveragesConvergence(t *testing.T) {
	// Entropy distance 0.5 yields convergence 0.5 each round.
	result := debate.New().Run(contracts.CaseContext{AgencyLoss: 0, EntropyDelta: 0.5})

	assert.Equal(t, contracts.DebateUnresolved, result.Status)
	assert.Equal(t, debate.JustificationUnresolved, result.Justification)
	assert.InDelta(t, 0.5, result.FinalConvergence, 1e-9)
}

func TestConvergence_PenalizesInconsistentNoble(t *testing.T) {
	noble := debate.Stance{Entropy: 0.6, Consistent: false}
	adversary := debate.Stance{Entropy: 0.6, Consistent: true}

	assert.InDelta(t, 0.8, debate.Convergence(noble, adversary), 1e-9)

	noble.Consistent = true
	assert.InDelta(t, 1.0, debate.Convergence(noble, adversary), 1e-9)
}

func TestConvergence_NeverNegative(t *testing.T) {
	noble := debate.Stance{Entropy: 1.0, Consistent: false}
	adversary := debate.Stance{Entropy: 0.0, Consistent: true}
	assert.Equal(t, 0.0, debate.Convergence(noble, adversary))
}

func TestParadox(t *testing.T) {
	confident := debate.Stance{Entropy: 0.1, Consistent: true}
	uncertain := debate.Stance{Entropy: 0.8, Consistent: true}
	inconsistent := debate.Stance{Entropy: 0.1, Consistent: false}

	assert.True(t, debate.Paradox(confident, confident))
	assert.False(t, debate.Paradox(confident, uncertain))
	assert.False(t, debate.Paradox(inconsistent, confident))
}

type countingArguer struct {
	calls  int
	stance debate.Stance
}

func (a *countingArguer) Argue(contracts.CaseContext) debate.Stance {
	a.calls++
	return a.stance
}

func TestRun_BoundedIterations(t *testing.T) {
	// Divergent stances never converge; the loop must stop at the ceiling.
	noble := &countingArguer{stance: debate.Stance{Entropy: 1.0, Consistent: true}}
	adversary := &countingArguer{stance: debate.Stance{Entropy: 0.0, Consistent: true}}

	result := debate.NewWithArguers(noble, adversary).Run(contracts.CaseContext{})

	assert.Equal(t, contracts.DebateUnresolved, result.Status)
	assert.Equal(t, debate.MaxIterations, noble.calls)
	assert.Equal(t, debate.MaxIterations, adversary.calls)
}

func TestRun_StatelessAcrossInvocations(t *testing.T) {
	engine := debate.New()
	ctx := contracts.CaseContext{AgencyLoss: 0.4, EntropyDelta: 0.5}

	first := engine.Run(ctx)
	second := engine.Run(ctx)
	assert.Equal(t, first, second)
}
