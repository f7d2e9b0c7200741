// Package types contains the result shapes returned by the query and metrics
// engines and served over HTTP.
package types

import (
	"strings"

	"github.com/okian/gamepulse/internal/domain/model"
)

// Employee identifies a person by email, optionally enriched from profiles.
type Employee struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// DisplayName prefers the full name, then the profile name, then the email.
func (e Employee) DisplayName() string {
	switch {
	case e.FullName != "":
		return e.FullName
	case e.Name != "":
		return e.Name
	}
	return e.Email
}

// TaskMetrics breaks an employee's tasks down by state.
type TaskMetrics struct {
	TotalTasks      int `json:"totalTasks"`
	CompletedTasks  int `json:"completedTasks"`
	OverdueTasks    int `json:"overdueTasks"`
	InProgressTasks int `json:"inProgressTasks"`
}

// EmployeeResult is one row of a query result.
type EmployeeResult struct {
	Employee        Employee     `json:"employee"`
	TaskCount       int          `json:"taskCount"`
	BacklogCount    int          `json:"backlogCount,omitempty"`
	CompletionRate  *float64     `json:"completionRate,omitempty"`
	LastUpdateDate  string       `json:"lastUpdateDate,omitempty"`
	LastCommentDate string       `json:"lastCommentDate,omitempty"`
	Tasks           []model.Task `json:"tasks,omitempty"`
	Metrics         *TaskMetrics `json:"metrics,omitempty"`
}

// PerformanceMetrics is an employee's score and rank.
type PerformanceMetrics struct {
	Employee         Employee `json:"employee"`
	Score            float64  `json:"score"`
	Rank             int      `json:"rank"`
	TasksCompleted   int      `json:"tasksCompleted"`
	TasksTotal       int      `json:"tasksTotal"`
	CommentsCount    int      `json:"commentsCount"`
	ActivitiesCount  int      `json:"activitiesCount"`
	ActiveDays       int      `json:"activeDays"`
	AvgDailyActivity float64  `json:"avgDailyActivity"`
	LastActivityDate string   `json:"lastActivityDate,omitempty"`
	Trend            string   `json:"trend"`
}

// RiskCategory names an employee-flagging rule.
type RiskCategory string

// Risk categories in report order.
const (
	RiskOverdue       RiskCategory = "overdue"
	RiskInactive      RiskCategory = "inactive"
	RiskOverloaded    RiskCategory = "overloaded"
	RiskLowPerformers RiskCategory = "low_performers"
	RiskBurnout       RiskCategory = "burnout_risk"
)

// RiskCategories lists every category in report order.
var RiskCategories = []RiskCategory{RiskOverdue, RiskInactive, RiskOverloaded, RiskLowPerformers, RiskBurnout}

// Severity grades a flagged employee.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// FlaggedEmployee is one employee caught by a risk rule.
type FlaggedEmployee struct {
	Email    string   `json:"email"`
	Name     string   `json:"name,omitempty"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
}

// RiskIndicator collects the employees flagged by one rule.
type RiskIndicator struct {
	Category  RiskCategory      `json:"category"`
	Count     int               `json:"count"`
	Employees []FlaggedEmployee `json:"employees"`
}

// RiskDistribution counts flagged employees per category.
type RiskDistribution struct {
	Overdue       int `json:"overdue"`
	Inactive      int `json:"inactive"`
	Overloaded    int `json:"overloaded"`
	LowPerformers int `json:"lowPerformers"`
	BurnoutRisk   int `json:"burnoutRisk"`
}

// Add counts n employees under category.
func (d *RiskDistribution) Add(category RiskCategory, n int) {
	switch category {
	case RiskOverdue:
		d.Overdue += n
	case RiskInactive:
		d.Inactive += n
	case RiskOverloaded:
		d.Overloaded += n
	case RiskLowPerformers:
		d.LowPerformers += n
	case RiskBurnout:
		d.BurnoutRisk += n
	}
}

// TopPerformer is a compact performance entry used in team rollups.
type TopPerformer struct {
	Email string  `json:"email"`
	Name  string  `json:"name,omitempty"`
	Score float64 `json:"score"`
}

// TeamMetrics rolls tasks and performance up to a team.
type TeamMetrics struct {
	TeamName              string           `json:"teamName"`
	TeamTitle             string           `json:"teamTitle,omitempty"`
	TotalEmployees        int              `json:"totalEmployees"`
	TotalTasks            int              `json:"totalTasks"`
	CompletedTasks        int              `json:"completedTasks"`
	OverdueTasks          int              `json:"overdueTasks"`
	AverageCompletionRate float64          `json:"averageCompletionRate"`
	RiskDistribution      RiskDistribution `json:"riskDistribution"`
	TopPerformers         []TopPerformer   `json:"topPerformers"`
}

// TrendPoint is one daily bucket of a trend series.
type TrendPoint struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
	Label string `json:"label"`
}

// NormalizeEmail trims and lower-cases an email for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
