// Package scoring derives performance scores, risk flags, team rollups and
// trend series from task, comment and activity collections.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okian/gamepulse/internal/domain/filter"
	"github.com/okian/gamepulse/internal/domain/model"
	"github.com/okian/gamepulse/internal/domain/timewindow"
	"github.com/okian/gamepulse/internal/domain/types"
)

// Default scoring configuration.
const (
	defaultCompletionWeight = 50
	defaultActivityWeight   = 30
	defaultCommentWeight    = 20
	defaultActivityCap      = 10
	defaultCommentCap       = 5
	defaultWindowDays       = 7

	trendStable   = "stable"
	topPerformers = 5
)

// Risk thresholds.
const (
	overdueHigh       = 5
	overdueMedium     = 2
	overloadedLimit   = 20
	overloadedHigh    = 30
	lowPerfMinTasks   = 5
	lowPerfRate       = 30
	lowPerfHighRate   = 10
	burnoutMinTasks   = 15
	burnoutMinOverdue = 3
)

// Engine computes metrics.
type Engine struct {
	now func() time.Time

	completionWeight float64
	activityWeight   float64
	commentWeight    float64
	activityCap      int
	commentCap       int
	windowDays       int
}

// NewEngine creates a metrics engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:              time.Now,
		completionWeight: defaultCompletionWeight,
		activityWeight:   defaultActivityWeight,
		commentWeight:    defaultCommentWeight,
		activityCap:      defaultActivityCap,
		commentCap:       defaultCommentCap,
		windowDays:       defaultWindowDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score combines completion, activity and comment signals. The result is
// finite and non-negative.
func (e *Engine) Score(completed, total, activities, comments int) float64 {
	completion := 0.0
	if total > 0 {
		completion = float64(completed) / float64(total) * e.completionWeight
	}
	activity := math.Min(float64(activities)/float64(e.activityCap), 1) * e.activityWeight
	comment := math.Min(float64(comments)/float64(e.commentCap), 1) * e.commentWeight
	return SanitizeScore(Round2(completion + activity + comment))
}

// Performance scores every assignee and ranks them 1..N by descending score.
// Ties keep first-appearance order. Blank emails are skipped.
func (e *Engine) Performance(tasks []model.Task, comments []model.Comment, activities []model.Activity) []types.PerformanceMetrics {
	out := []types.PerformanceMetrics{}
	if len(tasks) == 0 {
		return out
	}
	now := e.now()
	cutoff := timewindow.DaysAgo(now, e.windowDays)

	for _, g := range groupByTrimmedEmail(tasks) {
		email := g.Email
		if len(g.Tasks) == 0 {
			continue
		}
		completed := len(filter.Completed(g.Tasks))
		userComments := filter.CommentsByUser(comments, email)
		userActivities := filter.ActivitiesByUser(activities, email)

		recent := 0
		days := make(map[string]struct{})
		var (
			last    time.Time
			lastRaw string
		)
		for _, a := range userActivities {
			ts, ok := a.CreatedAt()
			if !ok {
				continue
			}
			if lastRaw == "" || ts.After(last) {
				last, lastRaw = ts, a.Creation
			}
			if !ts.Before(cutoff) {
				recent++
				days[timewindow.DateKey(ts.In(now.Location()))] = struct{}{}
			}
		}

		out = append(out, types.PerformanceMetrics{
			Employee:         types.Employee{Email: email},
			Score:            e.Score(completed, len(g.Tasks), len(userActivities), len(userComments)),
			TasksCompleted:   completed,
			TasksTotal:       len(g.Tasks),
			CommentsCount:    len(userComments),
			ActivitiesCount:  len(userActivities),
			ActiveDays:       len(days),
			AvgDailyActivity: Round2(float64(recent) / float64(e.windowDays)),
			LastActivityDate: lastRaw,
			Trend:            trendStable,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// groupByTrimmedEmail merges assignees that differ only by surrounding
// whitespace, in first-appearance order. Blank emails are dropped.
func groupByTrimmedEmail(tasks []model.Task) filter.Groups {
	index := make(map[string]int)
	var out filter.Groups
	for _, g := range filter.GroupByEmployee(tasks) {
		email := strings.TrimSpace(g.Email)
		if email == "" {
			continue
		}
		i, ok := index[email]
		if !ok {
			i = len(out)
			index[email] = i
			out = append(out, filter.Group{Email: email})
		}
		out[i].Tasks = append(out[i].Tasks, g.Tasks...)
	}
	return out
}

// Risks evaluates the five risk rules in report order.
func (e *Engine) Risks(tasks []model.Task, activities []model.Activity) []types.RiskIndicator {
	now := e.now()
	groups := filter.GroupByEmployee(tasks)
	backlog := filter.GroupByEmployee(filter.Backlog(tasks, now))

	activeToday := make(map[string]struct{})
	for _, a := range filter.ActivitiesToday(activities, now) {
		if a.Owner != "" {
			activeToday[a.Owner] = struct{}{}
		}
	}

	overdue := []types.FlaggedEmployee{}
	for _, g := range backlog {
		n := len(g.Tasks)
		sev := types.SeverityLow
		switch {
		case n > overdueHigh:
			sev = types.SeverityHigh
		case n > overdueMedium:
			sev = types.SeverityMedium
		}
		overdue = append(overdue, flag(g.Email, fmt.Sprintf("%d overdue task(s)", n), sev))
	}

	inactive := []types.FlaggedEmployee{}
	overloaded := []types.FlaggedEmployee{}
	low := []types.FlaggedEmployee{}
	burnout := []types.FlaggedEmployee{}
	for _, g := range groups {
		active := len(filter.Active(g.Tasks))
		if _, ok := activeToday[g.Email]; active > 0 && !ok {
			inactive = append(inactive, flag(g.Email, "No activity today", types.SeverityMedium))
		}

		if active > overloadedLimit {
			sev := types.SeverityMedium
			if active > overloadedHigh {
				sev = types.SeverityHigh
			}
			overloaded = append(overloaded, flag(g.Email, fmt.Sprintf("%d active tasks", active), sev))
		}

		total := len(g.Tasks)
		rate := float64(len(filter.Completed(g.Tasks))) / float64(total) * 100
		if total >= lowPerfMinTasks && rate < lowPerfRate {
			sev := types.SeverityMedium
			if rate < lowPerfHighRate {
				sev = types.SeverityHigh
			}
			low = append(low, flag(g.Email, fmt.Sprintf("%d%% completion rate", int(math.Round(rate))), sev))
		}

		late := len(backlog.Lookup(g.Email))
		if total > burnoutMinTasks && late > burnoutMinOverdue {
			burnout = append(burnout, flag(g.Email, fmt.Sprintf("%d overdue out of %d tasks", late, total), types.SeverityHigh))
		}
	}

	return []types.RiskIndicator{
		indicator(types.RiskOverdue, overdue),
		indicator(types.RiskInactive, inactive),
		indicator(types.RiskOverloaded, overloaded),
		indicator(types.RiskLowPerformers, low),
		indicator(types.RiskBurnout, burnout),
	}
}

func flag(email, reason string, sev types.Severity) types.FlaggedEmployee {
	return types.FlaggedEmployee{Email: email, Reason: reason, Severity: sev}
}

func indicator(c types.RiskCategory, flagged []types.FlaggedEmployee) types.RiskIndicator {
	return types.RiskIndicator{Category: c, Count: len(flagged), Employees: flagged}
}

// Teams rolls tasks up to each team through task -> project -> team.
func (e *Engine) Teams(tasks []model.Task, projects []model.Project, teams []model.Team,
	comments []model.Comment, activities []model.Activity,
) []types.TeamMetrics {
	now := e.now()
	out := make([]types.TeamMetrics, 0, len(teams))
	for _, team := range teams {
		teamTasks := filter.ByTeam(tasks, team.Name, projects)

		employees := make(map[string]struct{})
		for _, t := range teamTasks {
			if t.AssignedTo != "" {
				employees[t.AssignedTo] = struct{}{}
			}
		}

		completed := len(filter.Completed(teamTasks))
		rate := 0.0
		if len(teamTasks) > 0 {
			rate = Round2(float64(completed) / float64(len(teamTasks)) * 100)
		}

		var dist types.RiskDistribution
		for _, ind := range e.Risks(teamTasks, activities) {
			dist.Add(ind.Category, ind.Count)
		}

		top := []types.TopPerformer{}
		for _, p := range e.Performance(teamTasks, comments, activities) {
			if len(top) == topPerformers {
				break
			}
			top = append(top, types.TopPerformer{Email: p.Employee.Email, Score: p.Score})
		}

		out = append(out, types.TeamMetrics{
			TeamName:              team.Name,
			TeamTitle:             team.Title,
			TotalEmployees:        len(employees),
			TotalTasks:            len(teamTasks),
			CompletedTasks:        completed,
			OverdueTasks:          len(filter.Backlog(teamTasks, now)),
			AverageCompletionRate: rate,
			RiskDistribution:      dist,
			TopPerformers:         top,
		})
	}
	return out
}

// TaskTrend counts tasks by modification day for the last days days plus
// today, oldest first.
func (e *Engine) TaskTrend(tasks []model.Task, days int) []types.TrendPoint {
	stamps := make([]time.Time, 0, len(tasks))
	for _, t := range tasks {
		if ts, ok := t.ModifiedAt(); ok {
			stamps = append(stamps, ts)
		}
	}
	return e.trend(stamps, days)
}

// ActivityTrend counts activities by creation day, oldest first.
func (e *Engine) ActivityTrend(activities []model.Activity, days int) []types.TrendPoint {
	stamps := make([]time.Time, 0, len(activities))
	for _, a := range activities {
		if ts, ok := a.CreatedAt(); ok {
			stamps = append(stamps, ts)
		}
	}
	return e.trend(stamps, days)
}

func (e *Engine) trend(stamps []time.Time, days int) []types.TrendPoint {
	now := e.now()
	out := []types.TrendPoint{}
	for i := days; i >= 0; i-- {
		day := timewindow.DaysAgo(now, i)
		start, end := timewindow.StartOfDay(day), timewindow.EndOfDay(day)
		n := 0
		for _, ts := range stamps {
			if timewindow.IsInRange(ts, start, end) {
				n++
			}
		}
		out = append(out, types.TrendPoint{Date: timewindow.DateKey(day), Value: n, Label: timewindow.Label(day)})
	}
	return out
}

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SanitizeScore maps NaN, infinities and negatives to 0.
func SanitizeScore(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
