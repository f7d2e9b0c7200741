package testupstream

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/okian/gamepulse/internal/domain/model"
)

// ResourcePrefix is the path the server mounts collections under.
const ResourcePrefix = "/api/resource/"

// Frappe returns 20 rows when limit_page_length is absent.
const defaultPageLength = 20

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithAPIKey sets the accepted token. An empty key accepts any token.
func WithAPIKey(key string) ServerOption {
	return func(s *Server) { s.apiKey = key }
}

// WithFailures makes the next n requests for docType answer with status.
func WithFailures(docType string, n, status int) ServerOption {
	return func(s *Server) { s.failures[docType] = failurePlan{remaining: n, status: status} }
}

// WithBareArrays serves pages as bare JSON arrays instead of the data envelope.
func WithBareArrays() ServerOption {
	return func(s *Server) { s.bare = true }
}

type failurePlan struct {
	remaining int
	status    int
}

// Server serves a snapshot the way the GamePlan API does.
type Server struct {
	mu          sync.Mutex
	collections map[string][]any
	apiKey      string
	bare        bool
	failures    map[string]failurePlan
	requests    map[string]int
}

// NewServer creates a server for s.
func NewServer(s model.Snapshot, opts ...ServerOption) *Server {
	srv := &Server{
		collections: map[string][]any{
			model.DocTypeTask:        toAny(s.Tasks),
			model.DocTypeComment:     toAny(s.Comments),
			model.DocTypeActivity:    toAny(s.Activities),
			model.DocTypeProject:     toAny(s.Projects),
			model.DocTypeTeam:        toAny(s.Teams),
			model.DocTypeUserProfile: toAny(s.Profiles),
		},
		failures: make(map[string]failurePlan),
		requests: make(map[string]int),
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// Requests returns how many requests reached docType, failed ones included.
func (s *Server) Requests(docType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[docType]
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
		return
	}
	if !strings.HasPrefix(r.URL.Path, ResourcePrefix) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	docType, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, ResourcePrefix))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	s.requests[docType]++
	failStatus := 0
	if plan := s.failures[docType]; plan.remaining > 0 {
		plan.remaining--
		s.failures[docType] = plan
		failStatus = plan.status
	}
	rows, known := s.collections[docType]
	s.mu.Unlock()

	if !s.authorized(r.Header.Get("Authorization")) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"exc_type": "AuthenticationError",
			"message":  "Invalid API key",
		})
		return
	}
	if failStatus != 0 {
		writeJSON(w, failStatus, map[string]string{"message": http.StatusText(failStatus)})
		return
	}
	if !known {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"exc_type": "DoesNotExistError",
			"message":  "DocType " + docType + " not found",
		})
		return
	}

	start := queryInt(r, "limit_start", 0)
	length := queryInt(r, "limit_page_length", defaultPageLength)
	page := []any{}
	if start < len(rows) {
		end := len(rows)
		if length > 0 && start+length < end {
			end = start + length
		}
		page = rows[start:end]
	}

	if s.bare {
		writeJSON(w, http.StatusOK, page)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": page})
}

func (s *Server) authorized(header string) bool {
	if s.apiKey == "" {
		return strings.HasPrefix(header, "token ")
	}
	return header == "token "+s.apiKey
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
