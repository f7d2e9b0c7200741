package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/gamepulse/internal/domain/query"
	"github.com/okian/gamepulse/internal/domain/types"
)

// QueryHandler serves the employee queries.
type QueryHandler struct {
	deps QueryDependencies
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(deps QueryDependencies) *QueryHandler {
	return &QueryHandler{deps: deps}
}

type queryRequest struct {
	Type string `json:"type"`
	filterParams
	Refresh bool `json:"refresh,omitempty"`
}

type queryResponse struct {
	Type      string                 `json:"type"`
	Count     int                    `json:"count"`
	Results   []types.EmployeeResult `json:"results"`
	RequestID string                 `json:"requestId,omitempty"`
}

// HandleGetQuery handles GET /queries/{type}?team=&project=&start=&end=&refresh=.
func (h *QueryHandler) HandleGetQuery(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_query"
	f, err := parseFilters(r, op)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	h.run(w, r, op, mux.Vars(r)["type"], f, parseBool(r, "refresh"))
}

// HandlePostQuery handles POST /queries with a JSON body.
func (h *QueryHandler) HandlePostQuery(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_query"
	var body queryRequest
	if err := decodeBody(r, op, &body); err != nil {
		writeError(w, r, op, err)
		return
	}
	f, err := body.filters(op)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	qt, err := query.Request{Type: body.Type, Filters: f}.Validate()
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	h.run(w, r, op, string(qt), f, body.Refresh)
}

func (h *QueryHandler) run(w http.ResponseWriter, r *http.Request, op, queryType string, f query.Filters, refresh bool) {
	run := h.deps.RunQuery
	if refresh {
		run = h.deps.Refetch
	}
	results, err := run(r.Context(), queryType, f)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	if results == nil {
		results = []types.EmployeeResult{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Type:      queryType,
		Count:     len(results),
		Results:   results,
		RequestID: RequestIDFrom(r.Context()),
	})
}
