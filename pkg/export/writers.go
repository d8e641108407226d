package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// WriteJSON writes the canonical machine-readable form.
func WriteJSON(report *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteText writes the human-readable, judge-friendly form.
func WriteText(report *Report, w io.Writer) error {
	var b strings.Builder

	b.WriteString("MORALOGY ENGINE — AUDIT REPORT\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "Report ID: %s\n", report.Meta.ReportID)
	fmt.Fprintf(&b, "Generated: %s\n", report.Meta.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Epistemic Status: %s\n\n", report.Meta.EpistemicStatus)

	b.WriteString("FINAL ACTION\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	fmt.Fprintf(&b, "Action: %s\n", report.FinalVerdict.Action)
	fmt.Fprintf(&b, "Justification: %s\n", report.FinalVerdict.Justification)
	fmt.Fprintf(&b, "Guilt Acknowledged: %t\n\n", report.FinalVerdict.Guilt)

	if report.Debate != nil {
		b.WriteString("DEBATE OUTCOME\n")
		b.WriteString(strings.Repeat("-", 20) + "\n")
		fmt.Fprintf(&b, "Status: %s\n", report.Debate.Status)
		fmt.Fprintf(&b, "Justification: %s\n", report.Debate.Justification)
		fmt.Fprintf(&b, "Convergence: %g\n\n", report.Debate.FinalConvergence)
	}

	b.WriteString("REGISTRY RECORDS\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	for _, r := range report.Registry.Records {
		fmt.Fprintf(&b, "- [%s] %s\n", r.Timestamp.Format(time.RFC3339), r.Action)
		fmt.Fprintf(&b, "  Threshold: %s\n", r.Tier)
		fmt.Fprintf(&b, "  Guilt: %t\n", r.Guilt)
		fmt.Fprintf(&b, "  Reason: %s\n", r.Justification)
	}

	b.WriteString("\nDISCLAIMER\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	b.WriteString(report.Disclaimer + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFiles writes both forms next to each other:
// <basePath>_<caseID>.json and <basePath>_<caseID>.txt.
func WriteFiles(report *Report, basePath string) error {
	caseID := report.FinalVerdict.CaseID

	jsonFile, err := os.Create(fmt.Sprintf("%s_%s.json", basePath, caseID))
	if err != nil {
		return err
	}
	defer func() { _ = jsonFile.Close() }()
	if err := WriteJSON(report, jsonFile); err != nil {
		return err
	}

	txtFile, err := os.Create(fmt.Sprintf("%s_%s.txt", basePath, caseID))
	if err != nil {
		return err
	}
	defer func() { _ = txtFile.Close() }()
	return WriteText(report, txtFile)
}
