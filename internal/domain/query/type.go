package query

import (
	"strings"

	"github.com/okian/gamepulse/internal/domain/failure"
)

// Type tags a query.
type Type string

// Query types.
const (
	NotUpdatedToday     Type = "NOT_UPDATED_TODAY"
	NotUpdatedYesterday Type = "NOT_UPDATED_YESTERDAY"
	TasksByDate         Type = "TASKS_BY_DATE"
	NotCommentedToday   Type = "NOT_COMMENTED_TODAY"
	Backlog             Type = "BACKLOG"
	CompletionRate      Type = "COMPLETION_RATE"
	EmployeeTasks       Type = "EMPLOYEE_TASKS"
)

// Types lists every known query type.
var Types = []Type{
	NotUpdatedToday, NotUpdatedYesterday, TasksByDate, NotCommentedToday,
	Backlog, CompletionRate, EmployeeTasks,
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// ParseType accepts a tag in any case, with dashes or underscores.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !t.Valid() {
		return "", failure.Validationf("query.parse", "unknown query type %q", s)
	}
	return t, nil
}
