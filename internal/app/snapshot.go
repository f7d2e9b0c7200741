package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/gamepulse/internal/adapters/gameplan"
	repository "github.com/okian/gamepulse/internal/adapters/repository"
	"github.com/okian/gamepulse/internal/domain/failure"
	"github.com/okian/gamepulse/internal/domain/model"
	"github.com/okian/gamepulse/pkg/logger"
	"github.com/okian/gamepulse/pkg/metrics"
)

var errNoAPIKey = errors.New("no api key configured")

// refreshKey names the single in-flight refresh shared by concurrent callers.
const refreshKey = "snapshot"

// resolveKey returns the stored key, then the fallback. Blank is an auth failure.
func (s *Service) resolveKey(ctx context.Context, op string) (string, error) {
	key, err := s.creds.Get(ctx)
	if err != nil {
		return "", failure.Internal(op, err)
	}
	if key == "" {
		key = s.fallbackKey
	}
	if key == "" {
		return "", failure.Auth(op, errNoAPIKey)
	}
	return key, nil
}

// snapshot returns cached records, refreshing them first when STALE.
func (s *Service) snapshot(ctx context.Context) (model.Snapshot, error) {
	const op = "service.snapshot"

	snap, state := s.store.Lookup(ctx)
	if state == repository.StateFresh {
		return snap, nil
	}

	key, err := s.resolveKey(ctx, op)
	if err != nil {
		return model.Snapshot{}, err
	}

	// The refresh outlives a caller that gives up; later callers reuse it.
	v, err, shared := s.refresh.Do(refreshKey, func() (any, error) {
		return s.reload(context.WithoutCancel(ctx), key, s.generation.Load())
	})
	if err != nil {
		return model.Snapshot{}, err
	}
	if shared {
		s.logger.Debug(ctx, "joined in-flight refresh")
	}
	return v.(model.Snapshot), nil
}

type collection struct {
	docType string
	fetch   func(ctx context.Context) error
}

// reload fetches all six collections concurrently and waits for every one.
// An auth failure anywhere fails the whole refresh. Any other failure leaves
// that collection empty. Records are only stored if no invalidation happened
// since gen was read.
func (s *Service) reload(ctx context.Context, key string, gen uint64) (model.Snapshot, error) {
	// Another flight may have finished while this caller waited.
	if st := s.store.Stats(); st.State == repository.StateFresh {
		snap, _ := s.store.Lookup(ctx)
		return snap, nil
	}

	start := time.Now()
	var snap model.Snapshot
	collections := []collection{
		{model.DocTypeTask, func(ctx context.Context) (err error) {
			snap.Tasks, err = gameplan.FetchAll[model.Task](ctx, s.fetcher, key, model.DocTypeTask)
			return err
		}},
		{model.DocTypeComment, func(ctx context.Context) (err error) {
			snap.Comments, err = gameplan.FetchAll[model.Comment](ctx, s.fetcher, key, model.DocTypeComment)
			return err
		}},
		{model.DocTypeActivity, func(ctx context.Context) (err error) {
			snap.Activities, err = gameplan.FetchAll[model.Activity](ctx, s.fetcher, key, model.DocTypeActivity)
			return err
		}},
		{model.DocTypeProject, func(ctx context.Context) (err error) {
			snap.Projects, err = gameplan.FetchAll[model.Project](ctx, s.fetcher, key, model.DocTypeProject)
			return err
		}},
		{model.DocTypeTeam, func(ctx context.Context) (err error) {
			snap.Teams, err = gameplan.FetchAll[model.Team](ctx, s.fetcher, key, model.DocTypeTeam)
			return err
		}},
		{model.DocTypeUserProfile, func(ctx context.Context) (err error) {
			snap.Profiles, err = gameplan.FetchAll[model.UserProfile](ctx, s.fetcher, key, model.DocTypeUserProfile)
			return err
		}},
	}

	errs := make([]error, len(collections))
	var wg sync.WaitGroup
	for i, c := range collections {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.fetch(ctx)
		}()
	}
	wg.Wait()

	elapsed := float64(time.Since(start).Milliseconds())
	for _, err := range errs {
		if failure.IsAuth(err) {
			metrics.RecordCacheRefresh("auth", elapsed)
			s.logger.Warn(ctx, "refresh rejected by upstream", logger.Error(err))
			return model.Snapshot{}, err
		}
	}

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		s.logger.Warn(ctx, "collection unavailable, continuing without it",
			logger.String("doctype", collections[i].docType),
			logger.String("kind", string(failure.KindOf(err))),
			logger.Error(err),
		)
	}

	switch {
	case failed == len(collections):
		// Nothing came back; leave the cache STALE so the next query retries.
		metrics.RecordCacheRefresh("failed", elapsed)
		return snap, nil
	case failed > 0:
		metrics.RecordCacheRefresh("partial", elapsed)
	default:
		metrics.RecordCacheRefresh("ok", elapsed)
	}

	if s.generation.Load() != gen {
		s.logger.Debug(ctx, "refresh superseded by invalidation, not stored")
		return snap, nil
	}
	s.store.Put(ctx, snap)
	s.logger.Info(ctx, "snapshot refreshed",
		logger.Any("records", snap.Counts()),
		logger.Int("failedCollections", failed),
		logger.Float64("durationMs", elapsed),
	)
	return snap, nil
}

// dropSnapshot empties the cache and detaches any in-flight refresh so the
// next caller starts a new one.
func (s *Service) dropSnapshot(ctx context.Context) {
	s.generation.Add(1)
	s.refresh.Forget(refreshKey)
	s.store.Invalidate(ctx)
}

// APIKey returns the stored key, or the fallback when none is stored.
func (s *Service) APIKey(ctx context.Context) (key string, fromFallback bool, err error) {
	if err := s.ready("service.api_key"); err != nil {
		return "", false, err
	}
	key, err = s.creds.Get(ctx)
	if err != nil {
		return "", false, failure.Internal("service.api_key", err)
	}
	if key == "" && s.fallbackKey != "" {
		return s.fallbackKey, true, nil
	}
	return key, false, nil
}

// SetAPIKey stores key and drops the snapshot fetched with the old one.
func (s *Service) SetAPIKey(ctx context.Context, key string) error {
	const op = "service.set_api_key"
	if err := s.ready(op); err != nil {
		return err
	}
	if err := s.creds.Set(ctx, key); err != nil {
		return failure.Validation(op, err.Error())
	}
	s.dropSnapshot(ctx)
	s.logger.Info(ctx, "api key updated")
	return nil
}

// ClearAPIKey removes the stored key and drops the snapshot.
func (s *Service) ClearAPIKey(ctx context.Context) error {
	const op = "service.clear_api_key"
	if err := s.ready(op); err != nil {
		return err
	}
	if err := s.creds.Clear(ctx); err != nil {
		return failure.Internal(op, err)
	}
	s.dropSnapshot(ctx)
	s.logger.Info(ctx, "api key cleared")
	return nil
}

// TestConnection checks key against the upstream. An empty key tests the
// configured one.
func (s *Service) TestConnection(ctx context.Context, key string) error {
	const op = "service.test_connection"
	if err := s.ready(op); err != nil {
		return err
	}
	if key == "" {
		var err error
		if key, err = s.resolveKey(ctx, op); err != nil {
			return err
		}
	}
	if err := s.fetcher.Ping(ctx, key); err != nil {
		s.logger.Warn(ctx, "connection test failed", logger.Error(err))
		return err
	}
	return nil
}
