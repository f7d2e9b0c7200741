package service

import (
	"context"
	"time"

	"github.com/okian/gamepulse/internal/domain/failure"
	"github.com/okian/gamepulse/internal/domain/filter"
	"github.com/okian/gamepulse/internal/domain/model"
	"github.com/okian/gamepulse/internal/domain/query"
	"github.com/okian/gamepulse/internal/domain/types"
	"github.com/okian/gamepulse/pkg/logger"
	"github.com/okian/gamepulse/pkg/metrics"
)

// RunQuery answers one employee query. The type is validated before any
// record is fetched.
func (s *Service) RunQuery(ctx context.Context, queryType string, f query.Filters) (results []types.EmployeeResult, err error) {
	const op = "service.run_query"
	start := time.Now()
	label := queryType
	defer func() { s.observe(ctx, label, start, err) }()

	if err = s.ready(op); err != nil {
		return nil, err
	}
	qt, err := query.ParseType(queryType)
	if err != nil {
		return nil, err
	}
	label = string(qt)
	if err = f.Validate(); err != nil {
		return nil, err
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	results, err = s.queries.Run(qt, f, query.Dataset{
		Tasks:    snap.Tasks,
		Comments: snap.Comments,
		Projects: snap.Projects,
	})
	if err != nil {
		return nil, err
	}

	profiles := indexProfiles(snap.Profiles)
	for i := range results {
		results[i].Employee = profiles.enrich(results[i].Employee)
	}
	return results, nil
}

// Refetch drops the snapshot and reruns the query against fresh records.
func (s *Service) Refetch(ctx context.Context, queryType string, f query.Filters) ([]types.EmployeeResult, error) {
	if err := s.Invalidate(ctx); err != nil {
		return nil, err
	}
	return s.RunQuery(ctx, queryType, f)
}

// Performance scores and ranks employees on the filtered tasks.
func (s *Service) Performance(ctx context.Context, f query.Filters) (out []types.PerformanceMetrics, err error) {
	const op = "service.performance"
	start := time.Now()
	defer func() { s.observe(ctx, "PERFORMANCE", start, err) }()

	snap, err := s.scoped(ctx, op, f)
	if err != nil {
		return nil, err
	}
	out = s.scorer.Performance(snap.Tasks, snap.Comments, snap.Activities)
	profiles := indexProfiles(snap.Profiles)
	for i := range out {
		out[i].Employee = profiles.enrich(out[i].Employee)
	}
	return out, nil
}

// Risks evaluates every risk rule on the filtered tasks.
func (s *Service) Risks(ctx context.Context, f query.Filters) (out []types.RiskIndicator, err error) {
	const op = "service.risks"
	start := time.Now()
	defer func() { s.observe(ctx, "RISKS", start, err) }()

	snap, err := s.scoped(ctx, op, f)
	if err != nil {
		return nil, err
	}
	out = s.scorer.Risks(snap.Tasks, snap.Activities)

	profiles := indexProfiles(snap.Profiles)
	flags := make(map[string]map[string]int, len(out))
	for i := range out {
		bySeverity := make(map[string]int)
		for j := range out[i].Employees {
			fe := &out[i].Employees[j]
			fe.Name = profiles.enrich(types.Employee{Email: fe.Email}).DisplayName()
			bySeverity[string(fe.Severity)]++
		}
		flags[string(out[i].Category)] = bySeverity
	}
	metrics.UpdateRiskFlags(flags)
	return out, nil
}

// Teams rolls metrics up per team.
func (s *Service) Teams(ctx context.Context) (out []types.TeamMetrics, err error) {
	const op = "service.teams"
	start := time.Now()
	defer func() { s.observe(ctx, "TEAMS", start, err) }()

	if err = s.ready(op); err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out = s.scorer.Teams(snap.Tasks, snap.Projects, snap.Teams, snap.Comments, snap.Activities)
	profiles := indexProfiles(snap.Profiles)
	for i := range out {
		for j := range out[i].TopPerformers {
			tp := &out[i].TopPerformers[j]
			tp.Name = profiles.enrich(types.Employee{Email: tp.Email}).DisplayName()
		}
	}
	return out, nil
}

// TaskTrend counts task updates per day. days <= 0 uses the configured default.
func (s *Service) TaskTrend(ctx context.Context, f query.Filters, days int) (out []types.TrendPoint, err error) {
	const op = "service.task_trend"
	start := time.Now()
	defer func() { s.observe(ctx, "TASK_TREND", start, err) }()

	snap, err := s.scoped(ctx, op, f)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = s.taskTrendDays
	}
	return s.scorer.TaskTrend(snap.Tasks, days), nil
}

// ActivityTrend counts activities per day. days <= 0 uses the configured default.
func (s *Service) ActivityTrend(ctx context.Context, days int) (out []types.TrendPoint, err error) {
	const op = "service.activity_trend"
	start := time.Now()
	defer func() { s.observe(ctx, "ACTIVITY_TREND", start, err) }()

	if err = s.ready(op); err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = s.activityTrendDays
	}
	return s.scorer.ActivityTrend(snap.Activities, days), nil
}

// scoped returns the snapshot with tasks narrowed by f's team and project.
func (s *Service) scoped(ctx context.Context, op string, f query.Filters) (model.Snapshot, error) {
	if err := s.ready(op); err != nil {
		return model.Snapshot{}, err
	}
	if err := f.Validate(); err != nil {
		return model.Snapshot{}, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap.Tasks = filter.Apply(snap.Tasks, f.Criteria(), snap.Projects)
	return snap, nil
}

func (s *Service) observe(ctx context.Context, name string, start time.Time, err error) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	if err == nil {
		metrics.RecordQuery(name, "", ms)
		return
	}
	kind := failure.KindOf(err)
	metrics.RecordQuery(name, string(kind), ms)
	if s.logger != nil {
		s.logger.Warn(ctx, "query failed",
			logger.String("query", name),
			logger.String("kind", string(kind)),
			logger.Error(err),
		)
	}
}

type profileIndex map[string]model.UserProfile

func indexProfiles(profiles []model.UserProfile) profileIndex {
	idx := make(profileIndex, len(profiles))
	for _, p := range profiles {
		if p.Email != "" {
			idx[types.NormalizeEmail(p.Email)] = p
		}
	}
	return idx
}

// enrich attaches profile names, matching emails case-insensitively. An
// employee without a profile keeps the bare email.
func (idx profileIndex) enrich(e types.Employee) types.Employee {
	p, ok := idx[types.NormalizeEmail(e.Email)]
	if !ok {
		return e
	}
	e.Name = p.Name
	if e.Name == "" {
		e.Name = e.Email
	}
	e.FullName = p.FullName
	if e.FullName == "" {
		e.FullName = e.Name
	}
	return e
}
