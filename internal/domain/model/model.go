// Package model holds the GamePlan records the service reads and the
// snapshot that groups them.
//
// Records keep upstream field names on the wire. Fields the service does not
// know about survive a decode/encode round trip in Extra.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Upstream doctype names.
const (
	DocTypeTask        = "GP Task"
	DocTypeComment     = "GP Comment"
	DocTypeActivity    = "GP Activity"
	DocTypeProject     = "GP Project"
	DocTypeTeam        = "GP Team"
	DocTypeUserProfile = "GP User Profile"
)

// Task statuses with special meaning. Matching is case-sensitive.
const (
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusClosed     = "Closed"
)

// Task is a GP Task.
type Task struct {
	Name        string
	Title       string
	Status      string
	Priority    string
	AssignedTo  string
	DueDate     string
	Modified    string
	Creation    string
	Project     string
	Team        string
	Description string

	Extra map[string]json.RawMessage
}

func (t *Task) fields() []field {
	return []field{
		{"name", &t.Name}, {"title", &t.Title}, {"status", &t.Status},
		{"priority", &t.Priority}, {"assigned_to", &t.AssignedTo}, {"due_date", &t.DueDate},
		{"modified", &t.Modified}, {"creation", &t.Creation}, {"project", &t.Project},
		{"team", &t.Team}, {"description", &t.Description},
	}
}

func (t *Task) UnmarshalJSON(data []byte) error {
	extra, err := decodeRecord(data, t.fields())
	t.Extra = extra
	return err
}

func (t Task) MarshalJSON() ([]byte, error) { return encodeRecord(t.fields(), t.Extra) }

// IsTerminal reports Completed or Closed.
func (t Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusClosed
}

// IsInProgress reports In Progress or Open.
func (t Task) IsInProgress() bool {
	return t.Status == StatusInProgress || t.Status == StatusOpen
}

// IsActive is the loose, case-insensitive counterpart of !IsTerminal used by
// the risk rules: anything not completed, closed or done.
func (t Task) IsActive() bool {
	switch strings.ToLower(t.Status) {
	case "completed", "closed", "done":
		return false
	}
	return true
}

func (t Task) ModifiedAt() (time.Time, bool) { return ParseTime(t.Modified) }
func (t Task) CreatedAt() (time.Time, bool)  { return ParseTime(t.Creation) }
func (t Task) DueAt() (time.Time, bool)      { return ParseTime(t.DueDate) }

// IsOverdue reports a non-terminal task whose due date is before now.
func (t Task) IsOverdue(now time.Time) bool {
	if t.IsTerminal() {
		return false
	}
	due, ok := t.DueAt()
	return ok && due.Before(now)
}

// Comment is a GP Comment.
type Comment struct {
	Name             string
	Owner            string
	Content          string
	Creation         string
	Modified         string
	ReferenceName    string
	ReferenceDoctype string

	Extra map[string]json.RawMessage
}

func (c *Comment) fields() []field {
	return []field{
		{"name", &c.Name}, {"owner", &c.Owner}, {"content", &c.Content},
		{"creation", &c.Creation}, {"modified", &c.Modified},
		{"reference_name", &c.ReferenceName}, {"reference_doctype", &c.ReferenceDoctype},
	}
}

func (c *Comment) UnmarshalJSON(data []byte) error {
	extra, err := decodeRecord(data, c.fields())
	c.Extra = extra
	return err
}

func (c Comment) MarshalJSON() ([]byte, error) { return encodeRecord(c.fields(), c.Extra) }

func (c Comment) CreatedAt() (time.Time, bool) { return ParseTime(c.Creation) }

// OnTask reports whether the comment references a task.
func (c Comment) OnTask() bool { return c.ReferenceDoctype == DocTypeTask }

// Activity is a GP Activity.
type Activity struct {
	Name             string
	Owner            string
	Action           string
	Creation         string
	Modified         string
	ReferenceName    string
	ReferenceDoctype string

	Extra map[string]json.RawMessage
}

func (a *Activity) fields() []field {
	return []field{
		{"name", &a.Name}, {"owner", &a.Owner}, {"action", &a.Action},
		{"creation", &a.Creation}, {"modified", &a.Modified},
		{"reference_name", &a.ReferenceName}, {"reference_doctype", &a.ReferenceDoctype},
	}
}

func (a *Activity) UnmarshalJSON(data []byte) error {
	extra, err := decodeRecord(data, a.fields())
	a.Extra = extra
	return err
}

func (a Activity) MarshalJSON() ([]byte, error) { return encodeRecord(a.fields(), a.Extra) }

func (a Activity) CreatedAt() (time.Time, bool) { return ParseTime(a.Creation) }

// Project is a GP Project.
type Project struct {
	Name   string
	Title  string
	Team   string
	Status string

	Extra map[string]json.RawMessage
}

func (p *Project) fields() []field {
	return []field{{"name", &p.Name}, {"title", &p.Title}, {"team", &p.Team}, {"status", &p.Status}}
}

func (p *Project) UnmarshalJSON(data []byte) error {
	extra, err := decodeRecord(data, p.fields())
	p.Extra = extra
	return err
}

func (p Project) MarshalJSON() ([]byte, error) { return encodeRecord(p.fields(), p.Extra) }

// Team is a GP Team.
type Team struct {
	Name  string
	Title string

	Extra map[string]json.RawMessage
}

func (t *Team) fields() []field {
	return []field{{"name", &t.Name}, {"title", &t.Title}}
}

func (t *Team) UnmarshalJSON(data []byte) error {
	extra, err := decodeRecord(data, t.fields())
	t.Extra = extra
	return err
}

func (t Team) MarshalJSON() ([]byte, error) { return encodeRecord(t.fields(), t.Extra) }

// UserProfile is a GP User Profile.
type UserProfile struct {
	Name     string
	Email    string
	FullName string

	Extra map[string]json.RawMessage
}

func (u *UserProfile) fields() []field {
	return []field{{"name", &u.Name}, {"email", &u.Email}, {"full_name", &u.FullName}}
}

func (u *UserProfile) UnmarshalJSON(data []byte) error {
	extra, err := decodeRecord(data, u.fields())
	u.Extra = extra
	return err
}

func (u UserProfile) MarshalJSON() ([]byte, error) { return encodeRecord(u.fields(), u.Extra) }

// Snapshot is one consistent view of all six collections.
type Snapshot struct {
	Tasks      []Task
	Comments   []Comment
	Activities []Activity
	Projects   []Project
	Teams      []Team
	Profiles   []UserProfile
}

// Counts returns the record count per doctype.
func (s Snapshot) Counts() map[string]int {
	return map[string]int{
		DocTypeTask:        len(s.Tasks),
		DocTypeComment:     len(s.Comments),
		DocTypeActivity:    len(s.Activities),
		DocTypeProject:     len(s.Projects),
		DocTypeTeam:        len(s.Teams),
		DocTypeUserProfile: len(s.Profiles),
	}
}
