// Package query answers the employee questions behind the dashboard. The
// engine is pure: it works on records the caller already fetched.
package query

import (
	"sort"
	"time"

	"github.com/okian/gamepulse/internal/domain/failure"
	"github.com/okian/gamepulse/internal/domain/filter"
	"github.com/okian/gamepulse/internal/domain/model"
	"github.com/okian/gamepulse/internal/domain/scoring"
	"github.com/okian/gamepulse/internal/domain/types"
)

// Dataset is the record set a query runs over.
type Dataset struct {
	Tasks    []model.Task
	Comments []model.Comment
	Projects []model.Project
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine runs queries.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a query engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run validates f and dispatches to the query named by t.
func (e *Engine) Run(t Type, f Filters, d Dataset) ([]types.EmployeeResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	switch t {
	case NotUpdatedToday:
		return e.NotUpdatedToday(f, d), nil
	case NotUpdatedYesterday:
		return e.NotUpdatedYesterday(f, d), nil
	case TasksByDate:
		return e.TasksNotUpdatedInRange(f, d)
	case NotCommentedToday:
		return e.NotCommentedToday(f, d), nil
	case Backlog:
		return e.Backlog(f, d), nil
	case CompletionRate:
		return e.CompletionRates(f, d), nil
	case EmployeeTasks:
		return e.EmployeeTasks(f, d), nil
	}
	return nil, failure.Validationf("query.run", "unknown query type %q", t)
}

func (e *Engine) scoped(f Filters, d Dataset) []model.Task {
	return filter.Apply(d.Tasks, f.Criteria(), d.Projects)
}

// NotUpdatedToday lists employees with no task modified today.
func (e *Engine) NotUpdatedToday(f Filters, d Dataset) []types.EmployeeResult {
	return e.notUpdatedOn(e.scoped(f, d), e.now())
}

// NotUpdatedYesterday lists employees with no task modified yesterday.
func (e *Engine) NotUpdatedYesterday(f Filters, d Dataset) []types.EmployeeResult {
	return e.notUpdatedOn(e.scoped(f, d), e.now().AddDate(0, 0, -1))
}

func (e *Engine) notUpdatedOn(tasks []model.Task, day time.Time) []types.EmployeeResult {
	results := []types.EmployeeResult{}
	for _, g := range filter.GroupByEmployee(tasks) {
		if len(filter.ModifiedOn(g.Tasks, day)) > 0 {
			continue
		}
		results = append(results, types.EmployeeResult{
			Employee:       types.Employee{Email: g.Email},
			TaskCount:      len(g.Tasks),
			LastUpdateDate: LatestModified(g.Tasks),
		})
	}
	return results
}

// TasksNotUpdatedInRange groups tasks not modified within the filter's
// date range. Both dates are required.
func (e *Engine) TasksNotUpdatedInRange(f Filters, d Dataset) ([]types.EmployeeResult, error) {
	if !f.HasRange() {
		return nil, failure.Validation("query.tasks_by_date", "startDate and endDate are required")
	}
	stale := filter.NotModifiedInRange(e.scoped(f, d), f.StartDate, f.EndDate)
	results := []types.EmployeeResult{}
	for _, g := range filter.GroupByEmployee(stale) {
		results = append(results, types.EmployeeResult{
			Employee:       types.Employee{Email: g.Email},
			TaskCount:      len(g.Tasks),
			Tasks:          g.Tasks,
			LastUpdateDate: LatestModified(g.Tasks),
		})
	}
	return results, nil
}

// NotCommentedToday lists employees who wrote no comment today, with the
// tasks they never commented on.
func (e *Engine) NotCommentedToday(f Filters, d Dataset) []types.EmployeeResult {
	now := e.now()

	commentedToday := make(map[string]struct{})
	for _, c := range filter.CommentsToday(d.Comments, now) {
		if c.Owner != "" {
			commentedToday[c.Owner] = struct{}{}
		}
	}

	commenters := make(map[string]map[string]struct{})
	for task, comments := range filter.IndexCommentsByTask(d.Comments) {
		for _, c := range comments {
			if c.Owner == "" {
				continue
			}
			if commenters[task] == nil {
				commenters[task] = make(map[string]struct{})
			}
			commenters[task][c.Owner] = struct{}{}
		}
	}

	results := []types.EmployeeResult{}
	for _, g := range filter.GroupByEmployee(e.scoped(f, d)) {
		if _, ok := commentedToday[g.Email]; ok {
			continue
		}
		var uncommented []model.Task
		for _, t := range g.Tasks {
			if _, ok := commenters[t.Name][g.Email]; !ok {
				uncommented = append(uncommented, t)
			}
		}
		results = append(results, types.EmployeeResult{
			Employee:        types.Employee{Email: g.Email},
			TaskCount:       len(g.Tasks),
			LastCommentDate: latestComment(filter.CommentsByUser(d.Comments, g.Email)),
			Tasks:           uncommented,
		})
	}
	return results
}

// Backlog lists employees with overdue tasks, most overdue first. TaskCount
// is the employee's active task count.
func (e *Engine) Backlog(f Filters, d Dataset) []types.EmployeeResult {
	tasks := e.scoped(f, d)
	results := []types.EmployeeResult{}
	for _, g := range filter.GroupByEmployee(filter.Backlog(tasks, e.now())) {
		total := len(filter.Active(filter.ByAssignee(tasks, g.Email)))
		results = append(results, types.EmployeeResult{
			Employee:     types.Employee{Email: g.Email},
			TaskCount:    total,
			BacklogCount: len(g.Tasks),
			Tasks:        g.Tasks,
			Metrics:      &types.TaskMetrics{TotalTasks: total, OverdueTasks: len(g.Tasks)},
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].BacklogCount > results[j].BacklogCount })
	return results
}

// CompletionRates reports completed/total per employee, worst first.
func (e *Engine) CompletionRates(f Filters, d Dataset) []types.EmployeeResult {
	now := e.now()
	results := []types.EmployeeResult{}
	for _, g := range filter.GroupByEmployee(e.scoped(f, d)) {
		completed := len(filter.Completed(g.Tasks))
		rate := 0.0
		if len(g.Tasks) > 0 {
			rate = scoring.Round2(float64(completed) / float64(len(g.Tasks)) * 100)
		}
		results = append(results, types.EmployeeResult{
			Employee:       types.Employee{Email: g.Email},
			TaskCount:      len(g.Tasks),
			CompletionRate: &rate,
			Metrics: &types.TaskMetrics{
				TotalTasks:      len(g.Tasks),
				CompletedTasks:  completed,
				OverdueTasks:    len(filter.Backlog(g.Tasks, now)),
				InProgressTasks: len(filter.InProgress(g.Tasks)),
			},
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return *results[i].CompletionRate < *results[j].CompletionRate })
	return results
}

// EmployeeTasks lists each employee's open work, busiest first.
func (e *Engine) EmployeeTasks(f Filters, d Dataset) []types.EmployeeResult {
	results := []types.EmployeeResult{}
	for _, g := range filter.GroupByEmployee(filter.Active(e.scoped(f, d))) {
		results = append(results, types.EmployeeResult{
			Employee:  types.Employee{Email: g.Email},
			TaskCount: len(g.Tasks),
			Tasks:     g.Tasks,
			Metrics: &types.TaskMetrics{
				TotalTasks:      len(g.Tasks),
				InProgressTasks: len(filter.InProgress(g.Tasks)),
			},
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].TaskCount > results[j].TaskCount })
	return results
}

// LatestModified returns the raw modified value of the most recently modified
// task. Unparseable values lose to parseable ones; if none parse the first
// non-empty value is returned.
func LatestModified(tasks []model.Task) string {
	var (
		best     time.Time
		bestRaw  string
		fallback string
	)
	for _, t := range tasks {
		if fallback == "" {
			fallback = t.Modified
		}
		if m, ok := t.ModifiedAt(); ok && (bestRaw == "" || m.After(best)) {
			best, bestRaw = m, t.Modified
		}
	}
	if bestRaw != "" {
		return bestRaw
	}
	return fallback
}

func latestComment(comments []model.Comment) string {
	var (
		best    time.Time
		bestRaw string
	)
	for _, c := range comments {
		if ts, ok := c.CreatedAt(); ok && (bestRaw == "" || ts.After(best)) {
			best, bestRaw = ts, c.Creation
		}
	}
	return bestRaw
}
