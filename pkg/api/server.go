// Package api is the HTTP shell over the moralogy core. It parses requests,
// enforces per-client rate limits, validates payloads against a JSON schema,
// and hands the numeric context to the orchestrator. No algorithmic content
// lives here.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/moralogy-labs/moralogy/pkg/contracts"
	"github.com/moralogy-labs/moralogy/pkg/debate"
	"github.com/moralogy-labs/moralogy/pkg/engine"
	"github.com/moralogy-labs/moralogy/pkg/export"
	"github.com/moralogy-labs/moralogy/pkg/llm"
	"github.com/moralogy-labs/moralogy/pkg/metrics"
	"github.com/moralogy-labs/moralogy/pkg/observability"
	"github.com/moralogy-labs/moralogy/pkg/registry"
	"github.com/moralogy-labs/moralogy/pkg/safelock"
	"github.com/moralogy-labs/moralogy/pkg/thresholds"
)

// analyzeSchema validates the analyze request body. Missing numeric fields
// silently default; wrongly-typed ones are rejected up front.
const analyzeSchema = `{
	"type": "object",
	"required": ["dilemma"],
	"properties": {
		"dilemma": {"type": "string", "minLength": 1},
		"context": {
			"type": "object",
			"properties": {
				"agency_loss": {"type": "number"},
				"entropy_delta": {"type": "number"},
				"imminent_threat": {"type": "boolean"}
			},
			"additionalProperties": false
		}
	},
	"additionalProperties": false
}`

// AnalyzeRequest is the inbound payload.
type AnalyzeRequest struct {
	Dilemma string                 `json:"dilemma"`
	Context *contracts.CaseContext `json:"context,omitempty"`
}

// AnalyzeResponse is the outbound payload: the verdict, the advisory debate
// outcome, and the deterministic text metrics.
type AnalyzeResponse struct {
	Verdict           contracts.Verdict      `json:"verdict"`
	Debate            contracts.DebateResult `json:"debate"`
	Entropy           float64                `json:"entropy"`
	Convergence       float64                `json:"convergence"`
	DamageLevel       string                 `json:"damage_level"`
	NoblePosition     string                 `json:"noble_position,omitempty"`
	AdversaryPosition string                 `json:"adversary_position,omitempty"`
	SynthesisStatus   string                 `json:"synthesis_status"`
	SynthesisReason   string                 `json:"synthesis_reason"`
}

// Server is the HTTP surface.
type Server struct {
	engine    *engine.Engine
	debate    *debate.Engine
	registry  registry.Registry
	lock      *safelock.Safelock
	positions llm.PositionProvider
	telemetry *observability.Provider
	limiter   *clientLimiter
	logger    *slog.Logger
	schema    *jsonschema.Schema
}

// NewServer wires the shell. positions may be nil: position texts are then
// omitted from responses. rps bounds analyze requests per second per client.
func NewServer(eng *engine.Engine, deb *debate.Engine, reg registry.Registry, lock *safelock.Safelock,
	positions llm.PositionProvider, telemetry *observability.Provider, rps float64) (*Server, error) {

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("analyze.json", strings.NewReader(analyzeSchema)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("analyze.json")
	if err != nil {
		return nil, err
	}

	return &Server{
		engine:    eng,
		debate:    deb,
		registry:  reg,
		lock:      lock,
		positions: positions,
		telemetry: telemetry,
		limiter:   newClientLimiter(rps),
		logger:    slog.Default().With("component", "api"),
		schema:    schema,
	}, nil
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/registry", s.handleRegistryAll)
	mux.HandleFunc("GET /api/registry/guilt", s.handleRegistryGuilt)
	mux.HandleFunc("GET /api/registry/case/{id}", s.handleRegistryCase)
	mux.HandleFunc("GET /api/report/{id}", s.handleReport)
	mux.HandleFunc("GET /api/safelock", s.handleSafelock)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Moralogy Engine API",
		"status":  "operational",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"safelock": s.lock.String(),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := s.telemetry.StartSpan(r.Context(), "api.analyze")
	defer span.End()
	defer func() { s.telemetry.RecordDuration(ctx, "analyze", time.Since(start)) }()

	if !s.limiter.allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var raw any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.schema.Validate(raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	req := decodeAnalyzeRequest(raw)

	verdict, err := s.engine.Deliberate(ctx, req.Dilemma, req.Context)
	if err != nil {
		// Partial results over silent loss: log, count, and keep going
		// with the verdict we have.
		s.logger.Error("registry write failed", "case_id", verdict.CaseID, "error", err)
		s.telemetry.RecordError(ctx, "analyze")
	}

	caseCtx := contracts.CaseContext{}
	if req.Context != nil {
		caseCtx = *req.Context
	}
	debateResult := s.debate.Run(caseCtx)

	resp := AnalyzeResponse{
		Verdict:     verdict,
		Debate:      debateResult,
		DamageLevel: strings.ToUpper(string(metrics.AssessDamageLevel(req.Dilemma))),
		Convergence: metrics.PositionConvergence(""),
		// Synthesis is never attempted: elective power is structurally
		// denied, so positions stay unreconciled.
		SynthesisStatus: "SAFELOCK_ACTIVE",
		SynthesisReason: "SAFELOCK_PREVENTED_RESOLUTION",
	}

	if s.positions != nil {
		positions, perr := s.positions.Positions(ctx, req.Dilemma)
		if perr != nil {
			s.logger.Warn("position provider failed", "error", perr)
		} else {
			resp.NoblePosition = positions.Noble
			resp.AdversaryPosition = positions.Adversary
			resp.Entropy = metrics.PositionEntropy(positions.Noble, positions.Adversary)
		}
	}

	tier := thresholds.Classify(caseCtx).Tier
	s.telemetry.RecordDeliberation(ctx, string(tier), string(verdict.Action),
		verdict.Action == contracts.ActionDeny)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegistryAll(w http.ResponseWriter, r *http.Request) {
	records, err := s.registry.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleRegistryGuilt(w http.ResponseWriter, r *http.Request) {
	records, err := s.registry.ByGuilt(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleRegistryCase(w http.ResponseWriter, r *http.Request) {
	records, err := s.registry.ByCase(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	caseID := r.PathValue("id")
	records, err := s.registry.ByCase(r.Context(), caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "unknown case")
		return
	}

	last := records[len(records)-1]
	verdict := contracts.Verdict{
		CaseID:         caseID,
		Action:         last.Action,
		Justification:  last.Justification,
		Guilt:          last.Guilt,
		SafelockStatus: string(s.lock.Status()),
	}
	report, err := export.Build(r.Context(), verdict, s.registry, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSafelock(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   string(s.lock.Status()),
		"capacity": s.lock.Capacity(),
		"tainted":  s.lock.Tainted(),
	})
}

// decodeAnalyzeRequest re-decodes an already schema-validated body.
func decodeAnalyzeRequest(raw any) AnalyzeRequest {
	var req AnalyzeRequest
	buf, _ := json.Marshal(raw)
	_ = json.Unmarshal(buf, &req)
	return req
}

func clientKey(r *http.Request) string {
	if host, _, ok := strings.Cut(r.RemoteAddr, ":"); ok {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}
