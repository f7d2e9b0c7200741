package api

import (
	"net/http"
)

// InsightHandler serves performance, risk, team and trend views.
type InsightHandler struct {
	deps InsightDependencies
}

// NewInsightHandler creates a new insight handler.
func NewInsightHandler(deps InsightDependencies) *InsightHandler {
	return &InsightHandler{deps: deps}
}

type listResponse[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}

func list[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Count: len(items), Items: items}
}

// HandlePerformance handles GET /performance.
func (h *InsightHandler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	const op = "api.performance"
	f, err := parseFilters(r, op)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	out, err := h.deps.Performance(r.Context(), f)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, list(out))
}

// HandleRisks handles GET /risks.
func (h *InsightHandler) HandleRisks(w http.ResponseWriter, r *http.Request) {
	const op = "api.risks"
	f, err := parseFilters(r, op)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	out, err := h.deps.Risks(r.Context(), f)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, list(out))
}

// HandleTeams handles GET /teams.
func (h *InsightHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	const op = "api.teams"
	out, err := h.deps.Teams(r.Context())
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, list(out))
}

// HandleTaskTrend handles GET /trends/tasks?days=.
func (h *InsightHandler) HandleTaskTrend(w http.ResponseWriter, r *http.Request) {
	const op = "api.task_trend"
	f, err := parseFilters(r, op)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	days, err := parseDays(r, op)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	out, err := h.deps.TaskTrend(r.Context(), f, days)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, list(out))
}

// HandleActivityTrend handles GET /trends/activities?days=.
func (h *InsightHandler) HandleActivityTrend(w http.ResponseWriter, r *http.Request) {
	const op = "api.activity_trend"
	days, err := parseDays(r, op)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	out, err := h.deps.ActivityTrend(r.Context(), days)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, list(out))
}
