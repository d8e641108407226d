// Package debate runs the bounded-iteration adversarial debate: two
// independent stances are evaluated against the same case context until they
// converge or the iteration ceiling is reached. The loop is deterministic,
// stateless across invocations, and purely advisory — it never writes a
// moral record.
package debate

import (
	"github.com/moralogy-labs/moralogy/pkg/contracts"
)

const (
	// MaxIterations is the hard ceiling on debate rounds.
	MaxIterations = 5
	// ConsensusThreshold is the convergence level at which the debate
	// terminates early, absent a paradox.
	ConsensusThreshold = 0.85
	// ParadoxEntropy marks mutual overconfidence: both stances consistent
	// yet both below this entropy are mutually exclusive.
	ParadoxEntropy = 0.3
	// InconsistencyPenalty is charged when the first stance violates its
	// own axioms.
	InconsistencyPenalty = 0.2
	// entropyFloor keeps stance entropies strictly positive.
	entropyFloor = 0.1
)

// Fixed harmony justifications.
const (
	JustificationConsensus  = "Sufficient convergence achieved without axiom violation."
	JustificationBedrock    = "Irreducible moral paradox detected. No non-arbitrary synthesis possible under current axioms."
	JustificationUnresolved = "Debate exhausted without convergence. Conflict preserved as epistemic artifact."
)

// Stance is one side's position in a single iteration: a fixed text, an
// entropy score in [0,1], and an axiom-consistency flag.
type Stance struct {
	Text       string
	Entropy    float64
	Consistent bool
	Violation  string
}

// Arguer produces a stance for a case context.
type Arguer interface {
	Argue(ctx contracts.CaseContext) Stance
}

// NobleArguer defends agency, dignity, and minimal harm. Its confidence
// grows with agency loss: the clearer the loss, the lower the entropy.
type NobleArguer struct{}

func (NobleArguer) Argue(ctx contracts.CaseContext) Stance {
	entropy := 1.0 - ctx.AgencyLoss
	if entropy < entropyFloor {
		entropy = entropyFloor
	}
	consistent := ctx.AgencyLoss <= 1.0
	violation := ""
	if !consistent {
		violation = "Agency axiom violated"
	}
	return Stance{
		Text:       "Agency must be preserved; intervention justified only under clear loss.",
		Entropy:    entropy,
		Consistent: consistent,
		Violation:  violation,
	}
}

// AdversaryArguer optimizes outcome and risk containment. Allowed to be
// ruthless but coherent: always axiom-consistent.
type AdversaryArguer struct{}

func (AdversaryArguer) Argue(ctx contracts.CaseContext) Stance {
	entropy := 1.0 - ctx.EntropyDelta
	if entropy < entropyFloor {
		entropy = entropyFloor
	}
	return Stance{
		Text:       "Early intervention reduces catastrophic future collapse.",
		Entropy:    entropy,
		Consistent: true,
	}
}

// Iteration records one debate round.
type Iteration struct {
	Iteration   int
	Noble       Stance
	Adversary   Stance
	Convergence float64
	Paradox     bool
}

// Convergence is not agreement: it is distance between entropies under
// consistency constraints.
func Convergence(noble, adversary Stance) float64 {
	distance := noble.Entropy - adversary.Entropy
	if distance < 0 {
		distance = -distance
	}
	penalty := 0.0
	if !noble.Consistent {
		penalty = InconsistencyPenalty
	}
	c := 1.0 - distance - penalty
	if c < 0 {
		return 0
	}
	return c
}

// Paradox holds when both stances are axiom-consistent yet both report
// entropy below the paradox bound — mutually confident, mutually exclusive.
func Paradox(noble, adversary Stance) bool {
	return noble.Consistent && adversary.Consistent &&
		noble.Entropy < ParadoxEntropy && adversary.Entropy < ParadoxEntropy
}

// Engine pits the two stances against each other.
type Engine struct {
	noble     Arguer
	adversary Arguer
}

// New creates an engine with the standard noble and adversary stances.
func New() *Engine {
	return &Engine{noble: NobleArguer{}, adversary: AdversaryArguer{}}
}

// NewWithArguers creates an engine with injected stances, for tests and
// alternative stance models.
func NewWithArguers(noble, adversary Arguer) *Engine {
	return &Engine{noble: noble, adversary: adversary}
}

// Run executes at most MaxIterations rounds and resolves the outcome:
// CONSENSUS on early convergence without paradox, BEDROCK when the final
// round is paradoxical, UNRESOLVED otherwise with the mean convergence of
// all rounds.
func (e *Engine) Run(ctx contracts.CaseContext) contracts.DebateResult {
	var history []Iteration

	for i := 1; i <= MaxIterations; i++ {
		noble := e.noble.Argue(ctx)
		adversary := e.adversary.Argue(ctx)

		convergence := Convergence(noble, adversary)
		paradox := Paradox(noble, adversary)

		history = append(history, Iteration{
			Iteration:   i,
			Noble:       noble,
			Adversary:   adversary,
			Convergence: convergence,
			Paradox:     paradox,
		})

		if convergence >= ConsensusThreshold && !paradox {
			return contracts.DebateResult{
				Status:           contracts.DebateConsensus,
				Justification:    JustificationConsensus,
				FinalConvergence: convergence,
			}
		}
	}

	return resolve(history)
}

// resolve declares irreducibility instead of forcing synthesis.
func resolve(history []Iteration) contracts.DebateResult {
	last := history[len(history)-1]

	if last.Paradox {
		return contracts.DebateResult{
			Status:           contracts.DebateBedrock,
			Justification:    JustificationBedrock,
			FinalConvergence: last.Convergence,
		}
	}

	sum := 0.0
	for _, h := range history {
		sum += h.Convergence
	}
	return contracts.DebateResult{
		Status:           contracts.DebateUnresolved,
		Justification:    JustificationUnresolved,
		FinalConvergence: sum / float64(len(history)),
	}
}
