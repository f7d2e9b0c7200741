// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/gamepulse/internal/domain/failure"
	"github.com/okian/gamepulse/internal/domain/query"
	"github.com/okian/gamepulse/internal/domain/types"
	"github.com/okian/gamepulse/pkg/metrics"
)

// QueryDependencies answers employee queries.
type QueryDependencies interface {
	RunQuery(ctx context.Context, queryType string, f query.Filters) ([]types.EmployeeResult, error)
	Refetch(ctx context.Context, queryType string, f query.Filters) ([]types.EmployeeResult, error)
}

// InsightDependencies computes the scored views.
type InsightDependencies interface {
	Performance(ctx context.Context, f query.Filters) ([]types.PerformanceMetrics, error)
	Risks(ctx context.Context, f query.Filters) ([]types.RiskIndicator, error)
	Teams(ctx context.Context) ([]types.TeamMetrics, error)
	TaskTrend(ctx context.Context, f query.Filters, days int) ([]types.TrendPoint, error)
	ActivityTrend(ctx context.Context, days int) ([]types.TrendPoint, error)
}

// SettingsDependencies manages the API key and the cache.
type SettingsDependencies interface {
	APIKey(ctx context.Context) (key string, fromFallback bool, err error)
	SetAPIKey(ctx context.Context, key string) error
	ClearAPIKey(ctx context.Context) error
	TestConnection(ctx context.Context, key string) error
	Invalidate(ctx context.Context) error
}

// Dependencies required by HTTP handlers.
type Dependencies interface {
	QueryDependencies
	InsightDependencies
	SettingsDependencies
	StatsProvider
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	queryHandler    *QueryHandler
	insightHandler  *InsightHandler
	settingsHandler *SettingsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		queryHandler:    NewQueryHandler(deps),
		insightHandler:  NewInsightHandler(deps),
		settingsHandler: NewSettingsHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.Use(RequestID, MetricsMiddleware)

	r.HandleFunc("/healthz", s.healthHandler.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.statsHandler.HandleStats).Methods(http.MethodGet)

	r.HandleFunc("/queries", s.queryHandler.HandlePostQuery).Methods(http.MethodPost)
	r.HandleFunc("/queries/{type}", s.queryHandler.HandleGetQuery).Methods(http.MethodGet)

	r.HandleFunc("/performance", s.insightHandler.HandlePerformance).Methods(http.MethodGet)
	r.HandleFunc("/risks", s.insightHandler.HandleRisks).Methods(http.MethodGet)
	r.HandleFunc("/teams", s.insightHandler.HandleTeams).Methods(http.MethodGet)
	r.HandleFunc("/trends/tasks", s.insightHandler.HandleTaskTrend).Methods(http.MethodGet)
	r.HandleFunc("/trends/activities", s.insightHandler.HandleActivityTrend).Methods(http.MethodGet)

	r.HandleFunc("/cache/invalidate", s.settingsHandler.HandleInvalidate).Methods(http.MethodPost)
	r.HandleFunc("/settings/api-key", s.settingsHandler.HandleGetKey).Methods(http.MethodGet)
	r.HandleFunc("/settings/api-key", s.settingsHandler.HandlePutKey).Methods(http.MethodPut)
	r.HandleFunc("/settings/api-key", s.settingsHandler.HandleDeleteKey).Methods(http.MethodDelete)
	r.HandleFunc("/settings/api-key/test", s.settingsHandler.HandleTestKey).Methods(http.MethodPost)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err's kind to a status and writes the friendly message.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	fe := failure.As(op, err)
	status := statusFor(fe.Kind)
	metrics.RecordHTTPError(routeName(r), string(fe.Kind))
	writeJSON(w, status, errorResponse{
		Code:    string(fe.Kind),
		Message: failure.Friendly(fe),
		Status:  fe.StatusCode,
		Data:    fe.Data,
	})
}

func statusFor(kind failure.Kind) int {
	switch kind {
	case failure.KindAuth:
		return http.StatusUnauthorized
	case failure.KindValidation:
		return http.StatusBadRequest
	case failure.KindTransient:
		return http.StatusServiceUnavailable
	case failure.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// routeName is the matched route template, so path variables do not
// explode metric cardinality.
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
