package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/gamepulse/internal/domain/model"
	"github.com/okian/gamepulse/pkg/metrics"
)

const (
	defaultExpiry                = 5 * time.Minute
	defaultMetricsUpdateInterval = 5 * time.Second
)

// SnapshotStore is the in-memory Store. Held slices are shared with readers
// and must not be modified.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshot  model.Snapshot
	loaded    bool
	lastFetch time.Time
	expiry    time.Duration
	now       func() time.Time

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewSnapshotStore constructs an empty, STALE store. The age gauge is
// refreshed in the background until ctx ends or Close is called.
func NewSnapshotStore(ctx context.Context, opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		expiry:                defaultExpiry,
		now:                   time.Now,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Lookup returns the snapshot and its state, recording a cache hit or miss.
func (s *SnapshotStore) Lookup(_ context.Context) (model.Snapshot, State) {
	s.mu.RLock()
	snap, state := s.snapshot, s.stateLocked()
	s.mu.RUnlock()

	metrics.RecordCacheLookup(state == StateFresh)
	return snap, state
}

// Snapshot returns whatever is held regardless of freshness.
func (s *SnapshotStore) Snapshot() (model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return model.Snapshot{}, ErrNotLoaded
	}
	return s.snapshot, nil
}

// Put replaces the held snapshot and restarts the expiry timer.
func (s *SnapshotStore) Put(_ context.Context, snap model.Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.loaded = true
	s.lastFetch = s.now()
	s.mu.Unlock()

	for collection, n := range snap.Counts() {
		metrics.UpdateCacheRecords(collection, n)
	}
	metrics.UpdateCacheAge(0)
}

// Invalidate drops the held snapshot.
func (s *SnapshotStore) Invalidate(_ context.Context) {
	s.mu.Lock()
	s.snapshot = model.Snapshot{}
	s.loaded = false
	s.lastFetch = time.Time{}
	s.mu.Unlock()

	for collection := range (model.Snapshot{}).Counts() {
		metrics.UpdateCacheRecords(collection, 0)
	}
	metrics.RecordCacheInvalidation()
}

// State reports FRESH or STALE without counting a lookup.
func (s *SnapshotStore) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *SnapshotStore) stateLocked() State {
	if !s.loaded || s.now().Sub(s.lastFetch) > s.expiry {
		return StateStale
	}
	return StateFresh
}

// Loaded reports whether a snapshot is held.
func (s *SnapshotStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Age is the time since the last Put, or zero when nothing is held.
func (s *SnapshotStore) Age() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ageLocked()
}

func (s *SnapshotStore) ageLocked() time.Duration {
	if !s.loaded {
		return 0
	}
	return s.now().Sub(s.lastFetch)
}

// Expiry returns the staleness window.
func (s *SnapshotStore) Expiry() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiry
}

// SetExpiry changes the staleness window. The held snapshot is kept.
func (s *SnapshotStore) SetExpiry(d time.Duration) error {
	if d < 0 {
		return ErrInvalidExpiry
	}
	s.mu.Lock()
	s.expiry = d
	s.mu.Unlock()
	return nil
}

// Stats describes the cache.
func (s *SnapshotStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		State:     s.stateLocked(),
		Loaded:    s.loaded,
		LastFetch: s.lastFetch,
		Age:       s.ageLocked(),
		Expiry:    s.expiry,
		Records:   s.snapshot.Counts(),
	}
}

// Close stops the background metrics updater.
func (s *SnapshotStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *SnapshotStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateCacheAge(s.Age().Seconds())
			}
		}
	}()
}
