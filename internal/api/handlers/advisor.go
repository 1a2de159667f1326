package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/wonny/graham/internal/advisor"
	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/internal/rebalance"
	"github.com/wonny/graham/internal/recorder"
	"github.com/wonny/graham/internal/scoring"
	"github.com/wonny/graham/internal/target"
	"github.com/wonny/graham/pkg/logger"
)

// AdvisorHandler serves scoring, targeting, planning and full advisor runs
// ⭐ SSOT: allocation API handlers live here
type AdvisorHandler struct {
	advisor  *advisor.Advisor
	defaults advisor.RunConfig
	state    contracts.StateStore
	history  recorder.Reader
	logger   *logger.Logger
}

// NewAdvisorHandler creates a handler. defaults fills fields a request leaves out.
func NewAdvisorHandler(
	adv *advisor.Advisor,
	defaults advisor.RunConfig,
	state contracts.StateStore,
	history recorder.Reader,
	log *logger.Logger,
) *AdvisorHandler {
	if history == nil {
		history = recorder.NoopRecorder{}
	}
	return &AdvisorHandler{
		advisor:  adv,
		defaults: defaults,
		state:    state,
		history:  history,
		logger:   log.WithComponent("api"),
	}
}

// ScoreRequest asks for the score of a signal set
type ScoreRequest struct {
	Signals contracts.SignalSet `json:"signals"`
	Mode    string              `json:"mode"`
}

// ScoreResponse is the score with its per-signal contributions
type ScoreResponse struct {
	Mode      scoring.Mode             `json:"mode"`
	Score     float64                  `json:"score"`
	Breakdown contracts.ScoreBreakdown `json:"breakdown"`
}

// Score evaluates a signal set
// POST /api/score
func (h *AdvisorHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	mode, err := scoring.ParseMode(req.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	b := scoring.Evaluate(req.Signals, mode)
	respondJSON(w, http.StatusOK, ScoreResponse{Mode: mode, Score: b.Total, Breakdown: b})
}

// TargetRequest maps a score (or a signal set) to an equity target.
// Exactly one of Score and Signals must be given.
type TargetRequest struct {
	Score          *float64               `json:"score"`
	Signals        *contracts.SignalSet   `json:"signals"`
	Mode           string                 `json:"mode"`
	Preferences    *contracts.Preferences `json:"preferences"`
	PreviousTarget *int                   `json:"previous_target"`
	Band           *int                   `json:"band"`
}

// Target computes the proposal and applies hysteresis against previous_target
// POST /api/target
func (h *AdvisorHandler) Target(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if (req.Score == nil) == (req.Signals == nil) {
		respondError(w, http.StatusBadRequest, "exactly one of score and signals is required")
		return
	}

	prefs := h.defaults.Preferences
	if req.Preferences != nil {
		prefs = *req.Preferences
	}
	if err := prefs.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	band := h.defaults.Band
	if req.Band != nil {
		band = *req.Band
	}
	if band < 0 {
		respondError(w, http.StatusUnprocessableEntity, "band: must not be negative")
		return
	}

	var score float64
	if req.Score != nil {
		score = *req.Score
	} else {
		mode, err := scoring.ParseMode(req.Mode)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		score = scoring.Evaluate(*req.Signals, mode).Total
	}

	respondJSON(w, http.StatusOK, target.Next(req.PreviousTarget, score, prefs, band))
}

// PlanRequest sizes the trades toward equity_pct
type PlanRequest struct {
	Holdings    []contracts.Holding `json:"holdings"`
	EquityPct   int                 `json:"equity_pct"`
	IncludeCash *bool               `json:"include_cash"`
}

// Plan returns the rebalance plan of the given holdings
// POST /api/plan
func (h *AdvisorHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.EquityPct < 0 || req.EquityPct > 100 {
		respondError(w, http.StatusUnprocessableEntity, "equity_pct: must be within 0..100")
		return
	}

	includeCash := h.defaults.Preferences.IncludeCash
	if req.IncludeCash != nil {
		includeCash = *req.IncludeCash
	}

	plan, err := rebalance.Plan(req.Holdings, req.EquityPct, includeCash)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// RunRequest overrides parts of the default run
type RunRequest struct {
	DryRun         bool `json:"dry_run"`
	PreviousTarget *int `json:"previous_target"`
}

// Run executes the full advisor pipeline
// POST /api/run
func (h *AdvisorHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg := h.defaults
	cfg.DryRun = cfg.DryRun || req.DryRun
	if req.PreviousTarget != nil {
		cfg.PreviousOverride = req.PreviousTarget
	}

	d, err := h.advisor.Run(r.Context(), cfg)
	if err != nil {
		h.logger.WithError(err).Error("Advisor run failed")
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// StateResponse is the stored target; PrevTarget is null when none was accepted yet
type StateResponse struct {
	PrevTarget *int `json:"prev_target"`
}

// GetState returns the last accepted target
// GET /api/state
func (h *AdvisorHandler) GetState(w http.ResponseWriter, r *http.Request) {
	v, err := h.state.ReadTarget(r.Context())
	if errors.Is(err, contracts.ErrNoPreviousTarget) {
		respondJSON(w, http.StatusOK, StateResponse{})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to read state")
		respondError(w, http.StatusInternalServerError, "Failed to read state")
		return
	}
	respondJSON(w, http.StatusOK, StateResponse{PrevTarget: &v})
}

// ListDecisions returns recorded decisions, newest first
// GET /api/decisions?limit=N
func (h *AdvisorHandler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	decisions, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list decisions")
		respondError(w, http.StatusInternalServerError, "Failed to list decisions")
		return
	}
	respondJSON(w, http.StatusOK, decisions)
}
