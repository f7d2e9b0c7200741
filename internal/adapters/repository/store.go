// Package repository holds the in-memory snapshot of upstream records and
// decides when it must be refreshed.
package repository

import (
	"context"
	"time"

	"github.com/okian/gamepulse/internal/domain/model"
)

// State is the freshness of the held snapshot.
type State string

const (
	StateFresh State = "FRESH"
	StateStale State = "STALE"
)

// Store provides read/write access to the cached snapshot.
type Store interface {
	// Lookup returns the held snapshot and its state. A store that was never
	// loaded, or was invalidated, is STALE with an empty snapshot.
	Lookup(ctx context.Context) (model.Snapshot, State)

	// Put replaces the snapshot in full and marks it FRESH.
	Put(ctx context.Context, s model.Snapshot)

	// Invalidate drops the snapshot and forces STALE.
	Invalidate(ctx context.Context)

	// Stats describes the current cache contents.
	Stats() Stats
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	State     State          `json:"state"`
	Loaded    bool           `json:"loaded"`
	LastFetch time.Time      `json:"lastFetch,omitzero"`
	Age       time.Duration  `json:"-"`
	Expiry    time.Duration  `json:"-"`
	Records   map[string]int `json:"records"`
}
