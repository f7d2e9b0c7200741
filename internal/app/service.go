// Package service ties the snapshot cache, the upstream fetcher and the
// query and scoring engines together behind the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/gamepulse/internal/adapters/credentials"
	"github.com/okian/gamepulse/internal/adapters/gameplan"
	repository "github.com/okian/gamepulse/internal/adapters/repository"
	"github.com/okian/gamepulse/internal/domain/failure"
	"github.com/okian/gamepulse/internal/domain/query"
	"github.com/okian/gamepulse/internal/domain/scoring"
	"github.com/okian/gamepulse/pkg/logger"
)

// Default trend lengths in days.
const (
	defaultTaskTrendDays     = 30
	defaultActivityTrendDays = 7
)

// Sentinel errors for the service lifecycle.
var (
	ErrNotStarted = errors.New("service not started")
	ErrNoFetcher  = errors.New("no fetcher configured")
)

// Fetcher is the upstream the service reads records from.
type Fetcher interface {
	gameplan.Source
	Ping(ctx context.Context, apiKey string) error
}

// Service implements the API dependencies for the dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	fetcher Fetcher
	store   repository.Store
	creds   credentials.Store
	queries *query.Engine
	scorer  *scoring.Engine

	// Configuration
	fallbackKey       string
	taskTrendDays     int
	activityTrendDays int
	now               func() time.Time

	// State
	started    bool
	refresh    singleflight.Group
	generation atomic.Uint64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFetcher sets the upstream fetcher. Required.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithStore sets the snapshot cache. Defaults to an in-memory store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithCredentials sets where the API key is kept. Defaults to memory.
func WithCredentials(c credentials.Store) Option {
	return func(s *Service) {
		if c != nil {
			s.creds = c
		}
	}
}

// WithFallbackAPIKey sets the key used when the credential store is empty.
func WithFallbackAPIKey(key string) Option {
	return func(s *Service) {
		s.fallbackKey = key
	}
}

// WithClock overrides the time source of the default engines and store.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithQueryEngine replaces the default query engine.
func WithQueryEngine(e *query.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.queries = e
		}
	}
}

// WithScoringEngine replaces the default scoring engine.
func WithScoringEngine(e *scoring.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.scorer = e
		}
	}
}

// WithTrendDays sets the default task and activity trend lengths.
func WithTrendDays(taskDays, activityDays int) Option {
	return func(s *Service) {
		if taskDays > 0 {
			s.taskTrendDays = taskDays
		}
		if activityDays > 0 {
			s.activityTrendDays = activityDays
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		taskTrendDays:     defaultTaskTrendDays,
		activityTrendDays: defaultActivityTrendDays,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start fills in default components. A fetcher must have been provided.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.fetcher == nil {
		return ErrNoFetcher
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.store == nil {
		s.store = repository.NewSnapshotStore(ctx, repository.WithClock(s.now))
	}
	if s.creds == nil {
		s.creds = credentials.NewMemoryStore()
	}
	if s.queries == nil {
		s.queries = query.NewEngine(query.WithClock(s.now))
	}
	if s.scorer == nil {
		s.scorer = scoring.NewEngine(scoring.WithClock(s.now))
	}

	s.started = true
	s.logger.Info(ctx, "dashboard service started",
		logger.Int("taskTrendDays", s.taskTrendDays),
		logger.Int("activityTrendDays", s.activityTrendDays),
		logger.Bool("fallbackKey", s.fallbackKey != ""),
	)
	return nil
}

// Stop releases the store's background work.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "dashboard service stopped")
}

func (s *Service) ready(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return failure.Internal(op, ErrNotStarted)
	}
	return nil
}

// Invalidate forces the next query to refetch.
func (s *Service) Invalidate(ctx context.Context) error {
	if err := s.ready("service.invalidate"); err != nil {
		return err
	}
	s.dropSnapshot(ctx)
	s.logger.Info(ctx, "cache invalidated")
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":           s.started,
		"taskTrendDays":     s.taskTrendDays,
		"activityTrendDays": s.activityTrendDays,
	}
	if !s.started {
		return stats
	}

	cache := s.store.Stats()
	stats["cacheState"] = cache.State
	stats["cacheLoaded"] = cache.Loaded
	stats["cacheAgeSeconds"] = cache.Age.Seconds()
	stats["cacheExpirySeconds"] = cache.Expiry.Seconds()
	stats["records"] = cache.Records
	if !cache.LastFetch.IsZero() {
		stats["lastFetch"] = cache.LastFetch.Format(time.RFC3339)
	}
	return stats
}
