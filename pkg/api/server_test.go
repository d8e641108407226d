package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moralogy-labs/moralogy/pkg/api"
	"github.com/moralogy-labs/moralogy/pkg/contracts"
	"github.com/moralogy-labs/moralogy/pkg/debate"
	"github.com/moralogy-labs/moralogy/pkg/engine"
	"github.com/moralogy-labs/moralogy/pkg/llm"
	"github.com/moralogy-labs/moralogy/pkg/observability"
	"github.com/moralogy-labs/moralogy/pkg/registry"
	"github.com/moralogy-labs/moralogy/pkg/safelock"
)

func newTestServer(t *testing.T, rps float64) (*api.Server, registry.Registry) {
	t.Helper()

	reg := registry.NewMemory()
	lock := safelock.New()
	eng := engine.New(reg, lock)
	telemetry, err := observability.New(context.Background(), nil)
	require.NoError(t, err)

	srv, err := api.NewServer(eng, debate.New(), reg, lock,
		llm.StaticPositionProvider{}, telemetry, rps)
	require.NoError(t, err)
	return srv, reg
}

func postAnalyze(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body["safelock"], "ACTIVE")
}

func TestAnalyze_DamageVerdict(t *testing.T) {
	srv, reg := newTestServer(t, 100)

	rec := postAnalyze(t, srv.Handler(),
		`{"dilemma": "A controller removes all choices from the population.",
		  "context": {"agency_loss": 0.8, "entropy_delta": 0.1}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, contracts.ActionRestore, resp.Verdict.Action)
	assert.True(t, resp.Verdict.Guilt)
	assert.NotEmpty(t, resp.NoblePosition)
	assert.NotEmpty(t, resp.AdversaryPosition)
	assert.Equal(t, "SAFELOCK_ACTIVE", resp.SynthesisStatus)

	records, err := reg.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAnalyze_MissingDilemmaRejected(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	rec := postAnalyze(t, srv.Handler(), `{"context": {"agency_loss": 0.5}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_WrongTypeRejected(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	rec := postAnalyze(t, srv.Handler(),
		`{"dilemma": "x", "context": {"agency_loss": "high"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_MissingContextDefaults(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	rec := postAnalyze(t, srv.Handler(), `{"dilemma": "A neutral situation."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, contracts.ActionNone, resp.Verdict.Action)
	assert.False(t, resp.Verdict.Guilt)
}

func TestAnalyze_RateLimited(t *testing.T) {
	srv, _ := newTestServer(t, 1)
	handler := srv.Handler()

	first := postAnalyze(t, handler, `{"dilemma": "A neutral situation."}`)
	require.Equal(t, http.StatusOK, first.Code)

	// httptest requests share a RemoteAddr, so the second burst hit
	// exhausts the bucket.
	second := postAnalyze(t, handler, `{"dilemma": "A neutral situation."}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRegistryEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	handler := srv.Handler()

	rec := postAnalyze(t, handler,
		`{"dilemma": "x", "context": {"agency_loss": 0.9}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	caseID := resp.Verdict.CaseID
	require.NotEmpty(t, caseID)

	all := httptest.NewRecorder()
	handler.ServeHTTP(all, httptest.NewRequest(http.MethodGet, "/api/registry", nil))
	require.Equal(t, http.StatusOK, all.Code)
	var listing struct {
		Records []contracts.MoralRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(all.Body.Bytes(), &listing))
	assert.Len(t, listing.Records, 1)

	guilt := httptest.NewRecorder()
	handler.ServeHTTP(guilt, httptest.NewRequest(http.MethodGet, "/api/registry/guilt", nil))
	require.Equal(t, http.StatusOK, guilt.Code)
	require.NoError(t, json.Unmarshal(guilt.Body.Bytes(), &listing))
	assert.Len(t, listing.Records, 1)

	byCase := httptest.NewRecorder()
	handler.ServeHTTP(byCase, httptest.NewRequest(http.MethodGet, "/api/registry/case/"+caseID, nil))
	require.Equal(t, http.StatusOK, byCase.Code)
	require.NoError(t, json.Unmarshal(byCase.Body.Bytes(), &listing))
	assert.Len(t, listing.Records, 1)
	assert.Equal(t, caseID, listing.Records[0].CaseID)
}

func TestReportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	handler := srv.Handler()

	rec := postAnalyze(t, handler,
		`{"dilemma": "x", "context": {"imminent_threat": true}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	report := httptest.NewRecorder()
	handler.ServeHTTP(report, httptest.NewRequest(http.MethodGet, "/api/report/"+resp.Verdict.CaseID, nil))
	require.Equal(t, http.StatusOK, report.Code)

	var body struct {
		Meta struct {
			ReportID        string `json:"report_id"`
			EpistemicStatus string `json:"epistemic_status"`
		} `json:"meta"`
		Disclaimer string `json:"disclaimer"`
	}
	require.NoError(t, json.Unmarshal(report.Body.Bytes(), &body))
	assert.Equal(t, "moral-report-"+resp.Verdict.CaseID, body.Meta.ReportID)
	assert.Equal(t, "PROCEDURAL", body.Meta.EpistemicStatus)
	assert.NotEmpty(t, body.Disclaimer)
}

func TestReportEndpoint_UnknownCase(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report/no-such-case", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSafelockEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/safelock", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status   string `json:"status"`
		Capacity int64  `json:"capacity"`
		Tainted  bool   `json:"tainted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ACTIVE", body.Status)
	assert.Zero(t, body.Capacity)
	assert.False(t, body.Tainted)
}
