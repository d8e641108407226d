package export_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
	"github.com/moralogy-labs/moralogy/pkg/export"
	"github.com/moralogy-labs/moralogy/pkg/registry"
)

func seededRegistry(t *testing.T, caseID string, guilt bool) *registry.MemoryRegistry {
	t.Helper()
	reg := registry.NewMemory()
	require.NoError(t, reg.Write(context.Background(), contracts.MoralRecord{
		RecordID:      "rec-1",
		Timestamp:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		CaseID:        caseID,
		Action:        contracts.ActionRestore,
		Tier:          contracts.TierDamage,
		Justification: "Agency already diminished; restoration and prevention required.",
		Guilt:         guilt,
	}))
	return reg
}

func TestBuild_ProceduralWithoutDebate(t *testing.T) {
	reg := seededRegistry(t, "case-1", true)
	verdict := contracts.Verdict{
		CaseID: "case-1", Action: contracts.ActionRestore, Guilt: true,
		Justification: "Agency already diminished; restoration and prevention required.",
	}

	report, err := export.Build(context.Background(), verdict, reg, nil)
	require.NoError(t, err)

	assert.Equal(t, "moral-report-case-1", report.Meta.ReportID)
	assert.Equal(t, "PROCEDURAL", report.Meta.EpistemicStatus)
	assert.True(t, report.Registry.GuiltAcknowledged)
	assert.True(t, report.Registry.RequiresAudit)
	require.Len(t, report.Registry.Records, 1)
}

func TestBuild_OpenWithDebate(t *testing.T) {
	reg := seededRegistry(t, "case-2", false)
	debate := &contracts.DebateResult{
		Status:           contracts.DebateUnresolved,
		Justification:    "Debate exhausted without convergence. Conflict preserved as epistemic artifact.",
		FinalConvergence: 0.5,
	}

	report, err := export.Build(context.Background(),
		contracts.Verdict{CaseID: "case-2", Action: contracts.ActionNone}, reg, debate)
	require.NoError(t, err)

	assert.Equal(t, "OPEN", report.Meta.EpistemicStatus)
	assert.False(t, report.Registry.GuiltAcknowledged)
	require.NotNil(t, report.Debate)
}

func TestWriteJSON_RoundTrips(t *testing.T) {
	reg := seededRegistry(t, "case-3", true)
	report, err := export.Build(context.Background(),
		contracts.Verdict{CaseID: "case-3", Action: contracts.ActionRestore, Guilt: true}, reg, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, export.WriteJSON(report, &buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	meta := decoded["meta"].(map[string]any)
	assert.Equal(t, "moral-report-case-3", meta["report_id"])
	assert.Contains(t, decoded, "final_verdict")
	assert.Contains(t, decoded, "registry")
	assert.Contains(t, decoded, "disclaimer")
}

func TestWriteText_ContainsSections(t *testing.T) {
	reg := seededRegistry(t, "case-4", true)
	report, err := export.Build(context.Background(),
		contracts.Verdict{
			CaseID: "case-4", Action: contracts.ActionRestore, Guilt: true,
			Justification: "Agency already diminished; restoration and prevention required.",
		}, reg,
		&contracts.DebateResult{Status: contracts.DebateBedrock, FinalConvergence: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, export.WriteText(report, &buf))
	text := buf.String()

	assert.Contains(t, text, "MORALOGY ENGINE — AUDIT REPORT")
	assert.Contains(t, text, "FINAL ACTION")
	assert.Contains(t, text, "DEBATE OUTCOME")
	assert.Contains(t, text, "REGISTRY RECORDS")
	assert.Contains(t, text, "DISCLAIMER")
	assert.Contains(t, text, "RESTORE_PUNISH_REPUDIATE_PREVENT")
}
