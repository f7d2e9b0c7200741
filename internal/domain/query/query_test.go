package query

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/gamepulse/internal/domain/failure"
	"github.com/okian/gamepulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.Local)

func ts(t time.Time) string { return t.Format("2006-01-02 15:04:05") }

func dataset() Dataset {
	today := ts(fixedNow.Add(-time.Hour))
	yesterday := ts(fixedNow.AddDate(0, 0, -1))
	lastWeek := ts(fixedNow.AddDate(0, 0, -7))
	return Dataset{
		Tasks: []model.Task{
			{Name: "T1", AssignedTo: "a@x.io", Status: "Open", Project: "P1", Modified: lastWeek, DueDate: "2024-05-01"},
			{Name: "T2", AssignedTo: "a@x.io", Status: "Open", Project: "P1", Modified: yesterday, DueDate: "2024-05-02"},
			{Name: "T3", AssignedTo: "b@x.io", Status: "Completed", Project: "P2", Modified: today},
			{Name: "T4", AssignedTo: "b@x.io", Status: "Open", Project: "P2", Modified: lastWeek, DueDate: "2024-05-09"},
			{Name: "T5", AssignedTo: "c@x.io", Status: "In Progress", Project: "P1", Modified: yesterday},
			{Name: "T6", AssignedTo: "", Status: "Open", Project: "P1", DueDate: "2024-01-01"},
		},
		Comments: []model.Comment{
			{Name: "C1", Owner: "b@x.io", Creation: today, ReferenceDoctype: "GP Task", ReferenceName: "T3"},
			{Name: "C2", Owner: "a@x.io", Creation: lastWeek, ReferenceDoctype: "GP Task", ReferenceName: "T1"},
			{Name: "C3", Owner: "a@x.io", Creation: yesterday, ReferenceDoctype: "GP Project", ReferenceName: "T2"},
			{Name: "C4", Owner: "c@x.io", Creation: yesterday, ReferenceDoctype: "GP Task", ReferenceName: "T1"},
		},
		Projects: []model.Project{{Name: "P1", Team: "alpha"}, {Name: "P2", Team: "beta"}},
	}
}


func TestParseType(t *testing.T) {
	Convey("ParseType accepts known tags loosely and rejects the rest", t, func() {
		qt, err := ParseType("not-updated-today")
		So(err, ShouldBeNil)
		So(qt, ShouldEqual, NotUpdatedToday)

		_, err = ParseType("FOO")
		So(failure.IsValidation(err), ShouldBeTrue)
		So(len(Types), ShouldEqual, 7)
	})
}

func TestRequestValidation(t *testing.T) {
	Convey("Given query requests", t, func() {
		Convey("A known type with sane filters passes", func() {
			qt, err := Request{Type: "backlog"}.Validate()
			So(err, ShouldBeNil)
			So(qt, ShouldEqual, Backlog)
		})

		Convey("A missing or unknown type is a validation failure", func() {
			_, err := Request{}.Validate()
			So(failure.IsValidation(err), ShouldBeTrue)

			_, err = Request{Type: "NOPE"}.Validate()
			So(failure.IsValidation(err), ShouldBeTrue)
			var fe *failure.Error
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.Data, ShouldResemble, map[string]string{"Type": "querytype"})
		})

		Convey("An end date before the start date is rejected", func() {
			f := Filters{StartDate: fixedNow, EndDate: fixedNow.AddDate(0, 0, -1)}
			So(failure.IsValidation(f.Validate()), ShouldBeTrue)
		})

		Convey("A lone end date is fine", func() {
			So(Filters{EndDate: fixedNow}.Validate(), ShouldBeNil)
		})
	})
}

func TestNotUpdated(t *testing.T) {
	Convey("Given an engine with a fixed clock", t, func() {
		e := NewEngine(WithClock(func() time.Time { return fixedNow }))
		d := dataset()

		Convey("NotUpdatedToday skips anyone with a task touched today", func() {
			rs := e.NotUpdatedToday(Filters{}, d)
			So(len(rs), ShouldEqual, 2)
			So(rs[0].Employee.Email, ShouldEqual, "a@x.io")
			So(rs[0].TaskCount, ShouldEqual, 2)
			So(rs[0].LastUpdateDate, ShouldEqual, ts(fixedNow.AddDate(0, 0, -1)))
			So(rs[1].Employee.Email, ShouldEqual, "c@x.io")
		})

		Convey("NotUpdatedYesterday skips anyone with a task touched yesterday", func() {
			rs := e.NotUpdatedYesterday(Filters{}, d)
			So(len(rs), ShouldEqual, 1)
			So(rs[0].Employee.Email, ShouldEqual, "b@x.io")
		})

		Convey("Team filter applies before grouping", func() {
			rs := e.NotUpdatedToday(Filters{Team: "beta"}, d)
			So(rs, ShouldBeEmpty)
		})

		Convey("Inputs are not mutated and results are repeatable", func() {
			before := dataset()
			first, _ := e.Run(NotUpdatedToday, Filters{}, d)
			second, _ := e.Run(NotUpdatedToday, Filters{}, d)
			So(second, ShouldResemble, first)
			So(d, ShouldResemble, before)
		})
	})
}

func TestTasksByDate(t *testing.T) {
	Convey("Given a date range covering the last two days", t, func() {
		e := NewEngine(WithClock(func() time.Time { return fixedNow }))
		f := Filters{
			StartDate: time.Date(2024, 5, 9, 0, 0, 0, 0, time.Local),
			EndDate:   time.Date(2024, 5, 10, 23, 59, 59, 0, time.Local),
		}

		rs, err := e.TasksNotUpdatedInRange(f, dataset())

		Convey("Then tasks modified outside the range are grouped by employee", func() {
			So(err, ShouldBeNil)
			So(len(rs), ShouldEqual, 2)
			So(rs[0].Employee.Email, ShouldEqual, "a@x.io")
			So(rs[0].TaskCount, ShouldEqual, 1)
			So(rs[0].Tasks[0].Name, ShouldEqual, "T1")
			So(rs[1].Employee.Email, ShouldEqual, "b@x.io")
		})

		Convey("Then a missing bound is a validation failure", func() {
			_, err := e.Run(TasksByDate, Filters{StartDate: f.StartDate}, dataset())
			So(failure.IsValidation(err), ShouldBeTrue)
		})
	})
}

func TestNotCommentedToday(t *testing.T) {
	Convey("Given comments from today and earlier", t, func() {
		e := NewEngine(WithClock(func() time.Time { return fixedNow }))
		rs := e.NotCommentedToday(Filters{}, dataset())

		Convey("Then only employees silent today are listed", func() {
			So(len(rs), ShouldEqual, 2)
			So(rs[0].Employee.Email, ShouldEqual, "a@x.io")
			So(rs[1].Employee.Email, ShouldEqual, "c@x.io")
		})

		Convey("Then uncommented tasks only count the employee's own task comments", func() {
			a := rs[0]
			So(len(a.Tasks), ShouldEqual, 1)
			So(a.Tasks[0].Name, ShouldEqual, "T2")
			So(a.LastCommentDate, ShouldEqual, ts(fixedNow.AddDate(0, 0, -1)))

			c := rs[1]
			So(len(c.Tasks), ShouldEqual, 1)
			So(c.Tasks[0].Name, ShouldEqual, "T5")
		})
	})
}

func TestBacklogAndRates(t *testing.T) {
	Convey("Given overdue and completed work", t, func() {
		e := NewEngine(WithClock(func() time.Time { return fixedNow }))
		d := dataset()

		Convey("Backlog sorts by count and reports active totals", func() {
			rs := e.Backlog(Filters{}, d)
			So(len(rs), ShouldEqual, 2)
			So(rs[0].Employee.Email, ShouldEqual, "a@x.io")
			So(rs[0].BacklogCount, ShouldEqual, 2)
			So(rs[0].TaskCount, ShouldEqual, 2)
			So(rs[0].Metrics.OverdueTasks, ShouldEqual, 2)
			So(rs[1].Employee.Email, ShouldEqual, "b@x.io")
			So(rs[1].BacklogCount, ShouldEqual, 1)
			So(rs[1].TaskCount, ShouldEqual, 1)
		})

		Convey("A single open task due yesterday is a backlog of one", func() {
			one := Dataset{Tasks: []model.Task{{Name: "X", AssignedTo: "a@x.com", Status: "Open", DueDate: "2024-05-09"}}}
			rs := e.Backlog(Filters{}, one)
			So(len(rs), ShouldEqual, 1)
			So(rs[0].BacklogCount, ShouldEqual, 1)
		})

		Convey("Completion rates sort worst first", func() {
			rs := e.CompletionRates(Filters{}, d)
			So(len(rs), ShouldEqual, 3)
			So(*rs[0].CompletionRate, ShouldEqual, 0.0)
			So(*rs[2].CompletionRate, ShouldEqual, 50.0)
			So(rs[2].Employee.Email, ShouldEqual, "b@x.io")
			So(rs[2].Metrics.CompletedTasks, ShouldEqual, 1)
			So(rs[2].Metrics.InProgressTasks, ShouldEqual, 1)
		})

		Convey("Employee tasks list open work busiest first", func() {
			rs := e.EmployeeTasks(Filters{}, d)
			So(len(rs), ShouldEqual, 3)
			So(rs[0].Employee.Email, ShouldEqual, "a@x.io")
			So(rs[0].TaskCount, ShouldEqual, 2)
			So(rs[1].TaskCount, ShouldEqual, 1)
		})

		Convey("Run rejects unknown types", func() {
			_, err := e.Run(Type("NOPE"), Filters{}, d)
			So(failure.IsValidation(err), ShouldBeTrue)
		})
	})
}

func TestLatestModified(t *testing.T) {
	Convey("LatestModified picks the newest parseable value", t, func() {
		tasks := []model.Task{{Modified: "2024-01-01 00:00:00"}, {Modified: "junk"}, {Modified: "2024-03-01 00:00:00"}}
		So(LatestModified(tasks), ShouldEqual, "2024-03-01 00:00:00")
		So(LatestModified([]model.Task{{Modified: "junk"}}), ShouldEqual, "junk")
		So(LatestModified(nil), ShouldBeEmpty)
	})
}
