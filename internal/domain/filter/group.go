package filter

import "github.com/okian/gamepulse/internal/domain/model"

// Group is one assignee's tasks.
type Group struct {
	Email string
	Tasks []model.Task
}

// Groups keeps assignees in order of first appearance.
type Groups []Group

// GroupByEmployee buckets tasks by assignee. Unassigned tasks are dropped.
func GroupByEmployee(tasks []model.Task) Groups {
	index := make(map[string]int)
	var groups Groups
	for _, t := range tasks {
		if t.AssignedTo == "" {
			continue
		}
		i, ok := index[t.AssignedTo]
		if !ok {
			i = len(groups)
			index[t.AssignedTo] = i
			groups = append(groups, Group{Email: t.AssignedTo})
		}
		groups[i].Tasks = append(groups[i].Tasks, t)
	}
	return groups
}

// Lookup returns the tasks of email, or nil.
func (g Groups) Lookup(email string) []model.Task {
	for _, grp := range g {
		if grp.Email == email {
			return grp.Tasks
		}
	}
	return nil
}

// Emails lists the assignees in order.
func (g Groups) Emails() []string {
	out := make([]string, len(g))
	for i, grp := range g {
		out[i] = grp.Email
	}
	return out
}
