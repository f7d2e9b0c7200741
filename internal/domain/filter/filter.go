// Package filter narrows and groups record collections. Every function returns
// a new slice and leaves its input untouched.
package filter

import (
	"time"

	"github.com/okian/gamepulse/internal/domain/model"
	"github.com/okian/gamepulse/internal/domain/timewindow"
)

// Criteria narrows tasks by team and project. Empty values are ignored.
type Criteria struct {
	Team    string
	Project string
}

func keep[T any](in []T, pred func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}

// Apply filters by team (through project membership) and then by project.
func Apply(tasks []model.Task, c Criteria, projects []model.Project) []model.Task {
	out := append([]model.Task(nil), tasks...)
	if c.Team != "" {
		out = ByTeam(out, c.Team, projects)
	}
	if c.Project != "" {
		out = ByProject(out, c.Project)
	}
	return out
}

func ByAssignee(tasks []model.Task, email string) []model.Task {
	return keep(tasks, func(t model.Task) bool { return t.AssignedTo == email })
}

func ByStatus(tasks []model.Task, status string) []model.Task {
	return keep(tasks, func(t model.Task) bool { return t.Status == status })
}

func ByProject(tasks []model.Task, project string) []model.Task {
	return keep(tasks, func(t model.Task) bool { return t.Project == project })
}

// TeamProjects returns the names of the projects that belong to team.
func TeamProjects(team string, projects []model.Project) map[string]struct{} {
	names := make(map[string]struct{})
	for _, p := range projects {
		if p.Team == team {
			names[p.Name] = struct{}{}
		}
	}
	return names
}

// ByTeam keeps tasks whose project belongs to team. Tasks without a project
// never match.
func ByTeam(tasks []model.Task, team string, projects []model.Project) []model.Task {
	names := TeamProjects(team, projects)
	return keep(tasks, func(t model.Task) bool {
		if t.Project == "" {
			return false
		}
		_, ok := names[t.Project]
		return ok
	})
}

// Backlog keeps non-terminal tasks due before now.
func Backlog(tasks []model.Task, now time.Time) []model.Task {
	return keep(tasks, func(t model.Task) bool { return t.IsOverdue(now) })
}

func Completed(tasks []model.Task) []model.Task {
	return keep(tasks, model.Task.IsTerminal)
}

func InProgress(tasks []model.Task) []model.Task {
	return keep(tasks, model.Task.IsInProgress)
}

func Active(tasks []model.Task) []model.Task {
	return keep(tasks, model.Task.IsActive)
}

// ModifiedOn keeps tasks modified on day's calendar day.
func ModifiedOn(tasks []model.Task, day time.Time) []model.Task {
	return keep(tasks, func(t model.Task) bool {
		m, ok := t.ModifiedAt()
		return ok && timewindow.SameDay(m, day)
	})
}

func ModifiedToday(tasks []model.Task, now time.Time) []model.Task {
	return ModifiedOn(tasks, now)
}

func ModifiedYesterday(tasks []model.Task, now time.Time) []model.Task {
	return ModifiedOn(tasks, now.AddDate(0, 0, -1))
}

func ModifiedInRange(tasks []model.Task, start, end time.Time) []model.Task {
	return keep(tasks, func(t model.Task) bool {
		m, ok := t.ModifiedAt()
		return ok && timewindow.IsInRange(m, start, end)
	})
}

// NotModifiedInRange keeps tasks modified outside [start, end]. A task with no
// usable modified time counts as not modified.
func NotModifiedInRange(tasks []model.Task, start, end time.Time) []model.Task {
	return keep(tasks, func(t model.Task) bool {
		m, ok := t.ModifiedAt()
		return !ok || !timewindow.IsInRange(m, start, end)
	})
}

func CommentsByUser(comments []model.Comment, email string) []model.Comment {
	return keep(comments, func(c model.Comment) bool { return c.Owner == email })
}

func CommentsToday(comments []model.Comment, now time.Time) []model.Comment {
	return CommentsOn(comments, now)
}

func CommentsOn(comments []model.Comment, day time.Time) []model.Comment {
	return keep(comments, func(c model.Comment) bool {
		ts, ok := c.CreatedAt()
		return ok && timewindow.SameDay(ts, day)
	})
}

// CommentsByTask keeps comments that reference the given task.
func CommentsByTask(comments []model.Comment, taskName string) []model.Comment {
	return keep(comments, func(c model.Comment) bool { return c.OnTask() && c.ReferenceName == taskName })
}

// IndexCommentsByTask groups task comments by referenced task name.
func IndexCommentsByTask(comments []model.Comment) map[string][]model.Comment {
	idx := make(map[string][]model.Comment)
	for _, c := range comments {
		if c.OnTask() && c.ReferenceName != "" {
			idx[c.ReferenceName] = append(idx[c.ReferenceName], c)
		}
	}
	return idx
}

func CommentsInRange(comments []model.Comment, start, end time.Time) []model.Comment {
	return keep(comments, func(c model.Comment) bool {
		ts, ok := c.CreatedAt()
		return ok && timewindow.IsInRange(ts, start, end)
	})
}

func ActivitiesByUser(activities []model.Activity, email string) []model.Activity {
	return keep(activities, func(a model.Activity) bool { return a.Owner == email })
}

func ActivitiesToday(activities []model.Activity, now time.Time) []model.Activity {
	return keep(activities, func(a model.Activity) bool {
		ts, ok := a.CreatedAt()
		return ok && timewindow.IsToday(ts, now)
	})
}

func ActivitiesByAction(activities []model.Activity, action string) []model.Activity {
	return keep(activities, func(a model.Activity) bool { return a.Action == action })
}

func ActivitiesInRange(activities []model.Activity, start, end time.Time) []model.Activity {
	return keep(activities, func(a model.Activity) bool {
		ts, ok := a.CreatedAt()
		return ok && timewindow.IsInRange(ts, start, end)
	})
}
