// Package export builds and serializes the self-contained moral report: the
// final verdict, the optional debate outcome, and the registry slice for the
// case. The core defines the field names; serialization here is a thin
// shell over them.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
	"github.com/moralogy-labs/moralogy/pkg/registry"
)

// Disclaimer accompanies every report. The system never claims moral
// correctness.
const Disclaimer = "This report does not claim moral correctness. " +
	"It documents actions taken under explicit thresholds, " +
	"preserving unresolved moral conflict where applicable."

// Meta identifies a report.
type Meta struct {
	ReportID        string    `json:"report_id"`
	GeneratedAt     time.Time `json:"generated_at"`
	EpistemicStatus string    `json:"epistemic_status"` // OPEN when a debate ran, PROCEDURAL otherwise
}

// RegistrySection carries the audit slice of the report.
type RegistrySection struct {
	Records           []contracts.MoralRecord `json:"records"`
	GuiltAcknowledged bool                    `json:"guilt_acknowledged"`
	RequiresAudit     bool                    `json:"requires_audit"`
}

// Report is the full, self-contained moral report for one case.
type Report struct {
	Meta         Meta                    `json:"meta"`
	FinalVerdict contracts.Verdict       `json:"final_verdict"`
	Debate       *contracts.DebateResult `json:"debate,omitempty"`
	Registry     RegistrySection         `json:"registry"`
	Disclaimer   string                  `json:"disclaimer"`
}

// Build assembles a report from the verdict, the registry, and an optional
// debate result.
func Build(ctx context.Context, verdict contracts.Verdict, reg registry.Registry, debate *contracts.DebateResult) (*Report, error) {
	records, err := reg.ByCase(ctx, verdict.CaseID)
	if err != nil {
		return nil, fmt.Errorf("collect case records: %w", err)
	}

	guilt := false
	for _, r := range records {
		if r.Guilt {
			guilt = true
			break
		}
	}

	status := "PROCEDURAL"
	if debate != nil {
		status = "OPEN"
	}

	return &Report{
		Meta: Meta{
			ReportID:        "moral-report-" + verdict.CaseID,
			GeneratedAt:     time.Now().UTC(),
			EpistemicStatus: status,
		},
		FinalVerdict: verdict,
		Debate:       debate,
		Registry: RegistrySection{
			Records:           records,
			GuiltAcknowledged: guilt,
			RequiresAudit:     guilt,
		},
		Disclaimer: Disclaimer,
	}, nil
}
