// Package testupstream fakes the GamePlan REST API: a generator of synthetic
// records and an http.Handler that serves them with Frappe-style pagination
// and token auth. It backs fetcher tests and the fake-gameplan dev server.
package testupstream

import "time"

// Config holds the shape of the generated dataset.
type Config struct {
	Seed                  int64     // Seed for the pseudo-random source
	Now                   time.Time // Reference time for timestamps
	Teams                 int       // Number of teams
	ProjectsPerTeam       int       // Projects owned by each team
	Employees             int       // Number of user profiles
	TasksPerEmployee      int       // Tasks assigned to each employee
	CommentsPerTask       int       // Upper bound of comments per task
	ActivitiesPerEmployee int       // Activities owned by each employee
	HistoryDays           int       // How far back timestamps may go
}

// Default dataset shape.
const (
	defaultTeams                 = 3
	defaultProjectsPerTeam       = 2
	defaultEmployees             = 12
	defaultTasksPerEmployee      = 6
	defaultCommentsPerTask       = 3
	defaultActivitiesPerEmployee = 10
	defaultHistoryDays           = 14
)

// DefaultConfig returns a small dataset anchored at now.
func DefaultConfig(now time.Time) Config {
	return Config{
		Seed:                  1,
		Now:                   now,
		Teams:                 defaultTeams,
		ProjectsPerTeam:       defaultProjectsPerTeam,
		Employees:             defaultEmployees,
		TasksPerEmployee:      defaultTasksPerEmployee,
		CommentsPerTask:       defaultCommentsPerTask,
		ActivitiesPerEmployee: defaultActivitiesPerEmployee,
		HistoryDays:           defaultHistoryDays,
	}
}
