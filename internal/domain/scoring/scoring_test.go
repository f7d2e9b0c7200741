package scoring

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/okian/gamepulse/internal/domain/model"
	"github.com/okian/gamepulse/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.Local)

func clock() time.Time { return fixedNow }

func stamp(t time.Time) string { return t.Format("2006-01-02 15:04:05") }

func nTasks(email, status string, n int, due string) []model.Task {
	out := make([]model.Task, n)
	for i := range out {
		out[i] = model.Task{Name: fmt.Sprintf("%s-%s-%d", email, status, i), AssignedTo: email, Status: status, DueDate: due}
	}
	return out
}

func nActivities(email string, n int, at time.Time) []model.Activity {
	out := make([]model.Activity, n)
	for i := range out {
		out[i] = model.Activity{Name: fmt.Sprintf("A-%s-%d", email, i), Owner: email, Creation: stamp(at)}
	}
	return out
}

func nComments(email string, n int) []model.Comment {
	out := make([]model.Comment, n)
	for i := range out {
		out[i] = model.Comment{Name: fmt.Sprintf("C-%s-%d", email, i), Owner: email}
	}
	return out
}

func TestScore(t *testing.T) {
	Convey("Given the default weights", t, func() {
		e := NewEngine(WithClock(clock))

		Convey("10 tasks with 9 completed, 20 activities and 10 comments scores 95", func() {
			So(e.Score(9, 10, 20, 10), ShouldEqual, 95.0)
		})

		Convey("Caps stop a single signal from saturating", func() {
			So(e.Score(0, 0, 1000, 0), ShouldEqual, 30.0)
			So(e.Score(0, 0, 0, 1000), ShouldEqual, 20.0)
		})

		Convey("Scores stay within [0, 100]", func() {
			for completed := 0; completed <= 4; completed++ {
				s := e.Score(completed, 4, completed*3, completed*2)
				So(s, ShouldBeBetweenOrEqual, 0.0, 100.0)
				So(math.IsNaN(s), ShouldBeFalse)
			}
		})

		Convey("Custom weights and caps apply", func() {
			custom := NewEngine(WithWeights(60, 20, 20), WithCaps(5, 5))
			So(custom.Score(1, 2, 5, 0), ShouldEqual, 50.0)
		})
	})

	Convey("Sanitize and round helpers", t, func() {
		So(SanitizeScore(math.NaN()), ShouldEqual, 0.0)
		So(SanitizeScore(math.Inf(1)), ShouldEqual, 0.0)
		So(SanitizeScore(-3), ShouldEqual, 0.0)
		So(Round2(33.33333), ShouldEqual, 33.33)
		So(Round2(66.666), ShouldEqual, 66.67)
	})
}

func TestPerformance(t *testing.T) {
	Convey("Given three employees", t, func() {
		e := NewEngine(WithClock(clock))

		tasks := append(nTasks("low@x.io", "Open", 2, ""), nTasks("high@x.io", "Completed", 2, "")...)
		tasks = append(tasks, nTasks("tie@x.io", "Completed", 2, "")...)
		tasks = append(tasks, model.Task{Name: "blank", AssignedTo: "   ", Status: "Completed"})

		activities := append(nActivities("high@x.io", 3, fixedNow.Add(-time.Hour)), nActivities("high@x.io", 2, fixedNow.AddDate(0, 0, -2))...)
		activities = append(activities, nActivities("high@x.io", 1, fixedNow.AddDate(0, 0, -30))...)

		metrics := e.Performance(tasks, nComments("high@x.io", 5), activities)

		Convey("Then blank emails are skipped and ranks are 1..N", func() {
			So(len(metrics), ShouldEqual, 3)
			for i, m := range metrics {
				So(m.Rank, ShouldEqual, i+1)
				So(m.Trend, ShouldEqual, "stable")
			}
		})

		Convey("Then order is by score with ties kept in arrival order", func() {
			So(metrics[0].Employee.Email, ShouldEqual, "high@x.io")
			So(metrics[1].Employee.Email, ShouldEqual, "tie@x.io")
			So(metrics[2].Employee.Email, ShouldEqual, "low@x.io")
			So(metrics[2].Score, ShouldEqual, 0.0)
		})

		Convey("Then window stats only count the last seven days", func() {
			high := metrics[0]
			So(high.ActivitiesCount, ShouldEqual, 6)
			So(high.ActiveDays, ShouldEqual, 2)
			So(high.AvgDailyActivity, ShouldEqual, 0.71)
			So(high.LastActivityDate, ShouldEqual, stamp(fixedNow.Add(-time.Hour)))
			So(high.Score, ShouldEqual, 88.0)
		})
	})

	Convey("Given one assignee written with and without padding", t, func() {
		tasks := []model.Task{
			{Name: "T1", AssignedTo: "a@x.com", Status: "Completed"},
			{Name: "T2", AssignedTo: " a@x.com ", Status: "Open"},
		}
		metrics := NewEngine(WithClock(clock)).Performance(tasks, nil, nil)

		Convey("Then both tasks count toward a single entry", func() {
			So(len(metrics), ShouldEqual, 1)
			So(metrics[0].Employee.Email, ShouldEqual, "a@x.com")
			So(metrics[0].Rank, ShouldEqual, 1)
			So(metrics[0].TasksTotal, ShouldEqual, 2)
			So(metrics[0].TasksCompleted, ShouldEqual, 1)
			So(metrics[0].Score, ShouldEqual, 25.0)
		})
	})

	Convey("Given no tasks", t, func() {
		So(NewEngine().Performance(nil, nil, nil), ShouldBeEmpty)
	})
}

func TestRisks(t *testing.T) {
	Convey("Given employees that trip different rules", t, func() {
		e := NewEngine(WithClock(clock))
		yesterday := fixedNow.AddDate(0, 0, -1).Format("2006-01-02")

		var tasks []model.Task
		tasks = append(tasks, nTasks("busy@x.io", "Open", 25, "")...)
		tasks = append(tasks, nTasks("late@x.io", "Open", 4, yesterday)...)
		tasks = append(tasks, nTasks("late@x.io", "Open", 13, "")...)
		tasks = append(tasks, nTasks("done@x.io", "Completed", 6, "")...)
		tasks = append(tasks, nTasks("slow@x.io", "Open", 8, "")...)
		tasks = append(tasks, nTasks("slow@x.io", "Completed", 2, "")...)

		activities := nActivities("done@x.io", 1, fixedNow)
		risks := e.Risks(tasks, activities)

		byCategory := map[types.RiskCategory]types.RiskIndicator{}
		for _, r := range risks {
			byCategory[r.Category] = r
		}

		Convey("Then all five categories are reported in order", func() {
			So(len(risks), ShouldEqual, 5)
			for i, c := range types.RiskCategories {
				So(risks[i].Category, ShouldEqual, c)
				So(risks[i].Count, ShouldEqual, len(risks[i].Employees))
			}
		})

		Convey("Then 25 active tasks is a medium overload", func() {
			over := byCategory[types.RiskOverloaded]
			So(over.Count, ShouldEqual, 1)
			So(over.Employees[0].Email, ShouldEqual, "busy@x.io")
			So(over.Employees[0].Severity, ShouldEqual, types.SeverityMedium)
			So(over.Employees[0].Reason, ShouldEqual, "25 active tasks")
		})

		Convey("Then overdue severity follows the count", func() {
			od := byCategory[types.RiskOverdue]
			So(od.Count, ShouldEqual, 1)
			So(od.Employees[0].Reason, ShouldEqual, "4 overdue task(s)")
			So(od.Employees[0].Severity, ShouldEqual, types.SeverityMedium)
		})

		Convey("Then burnout needs more than 15 tasks and 3 overdue", func() {
			b := byCategory[types.RiskBurnout]
			So(b.Count, ShouldEqual, 1)
			So(b.Employees[0].Reason, ShouldEqual, "4 overdue out of 17 tasks")
			So(b.Employees[0].Severity, ShouldEqual, types.SeverityHigh)
		})

		Convey("Then low performers report a rounded rate", func() {
			low := byCategory[types.RiskLowPerformers]
			emails := []string{}
			for _, f := range low.Employees {
				emails = append(emails, f.Email)
			}
			So(emails, ShouldResemble, []string{"busy@x.io", "late@x.io", "slow@x.io"})
			So(low.Employees[2].Reason, ShouldEqual, "20% completion rate")
			So(low.Employees[2].Severity, ShouldEqual, types.SeverityMedium)
			So(low.Employees[0].Severity, ShouldEqual, types.SeverityHigh)
		})

		Convey("Then anyone with open work and no activity today is inactive", func() {
			in := byCategory[types.RiskInactive]
			So(in.Count, ShouldEqual, 3)
			for _, f := range in.Employees {
				So(f.Email, ShouldNotEqual, "done@x.io")
				So(f.Reason, ShouldEqual, "No activity today")
			}
		})
	})

	Convey("Given no tasks", t, func() {
		risks := NewEngine(WithClock(clock)).Risks(nil, nil)
		So(len(risks), ShouldEqual, 5)
		for _, r := range risks {
			So(r.Count, ShouldEqual, 0)
			So(r.Employees, ShouldNotBeNil)
		}
	})
}

func TestTeams(t *testing.T) {
	Convey("Given two teams joined through projects", t, func() {
		e := NewEngine(WithClock(clock))
		projects := []model.Project{{Name: "P1", Team: "alpha"}, {Name: "P2", Team: "beta"}}
		teams := []model.Team{{Name: "alpha", Title: "Alpha"}, {Name: "beta"}, {Name: "empty"}}
		tasks := []model.Task{
			{Name: "1", AssignedTo: "a@x.io", Project: "P1", Status: "Completed"},
			{Name: "2", AssignedTo: "a@x.io", Project: "P1", Status: "Open", DueDate: "2024-01-01"},
			{Name: "3", AssignedTo: "b@x.io", Project: "P1", Status: "Open"},
			{Name: "4", AssignedTo: "c@x.io", Project: "P2", Status: "Closed"},
			{Name: "5", AssignedTo: "c@x.io", Project: "", Status: "Open"},
		}

		metrics := e.Teams(tasks, projects, teams, nil, nil)

		Convey("Then each team only sees its own tasks", func() {
			So(len(metrics), ShouldEqual, 3)

			alpha := metrics[0]
			So(alpha.TeamTitle, ShouldEqual, "Alpha")
			So(alpha.TotalTasks, ShouldEqual, 3)
			So(alpha.TotalEmployees, ShouldEqual, 2)
			So(alpha.CompletedTasks, ShouldEqual, 1)
			So(alpha.OverdueTasks, ShouldEqual, 1)
			So(alpha.AverageCompletionRate, ShouldEqual, 33.33)
			So(alpha.RiskDistribution.Overdue, ShouldEqual, 1)
			So(alpha.RiskDistribution.Inactive, ShouldEqual, 2)
			So(len(alpha.TopPerformers), ShouldEqual, 2)
			So(alpha.TopPerformers[0].Email, ShouldEqual, "a@x.io")
			So(alpha.TopPerformers[0].Score, ShouldEqual, 25.0)

			beta := metrics[1]
			So(beta.TotalTasks, ShouldEqual, 1)
			So(beta.AverageCompletionRate, ShouldEqual, 100.0)
		})

		Convey("Then a team without tasks reports zeros", func() {
			empty := metrics[2]
			So(empty.TotalTasks, ShouldEqual, 0)
			So(empty.AverageCompletionRate, ShouldEqual, 0.0)
			So(empty.TopPerformers, ShouldBeEmpty)
		})
	})
}

func TestTrends(t *testing.T) {
	Convey("Given tasks and activities over the last days", t, func() {
		e := NewEngine(WithClock(clock))
		tasks := []model.Task{
			{Modified: stamp(fixedNow)},
			{Modified: stamp(fixedNow.AddDate(0, 0, -1))},
			{Modified: stamp(fixedNow.AddDate(0, 0, -1))},
			{Modified: stamp(fixedNow.AddDate(0, 0, -40))},
			{Modified: ""},
		}

		Convey("Then the task trend has days+1 buckets oldest first", func() {
			trend := e.TaskTrend(tasks, 30)
			So(len(trend), ShouldEqual, 31)
			So(trend[0].Date, ShouldEqual, "2024-04-10")
			So(trend[30].Date, ShouldEqual, "2024-05-10")
			So(trend[30].Label, ShouldEqual, "5/10/2024")
			So(trend[30].Value, ShouldEqual, 1)
			So(trend[29].Value, ShouldEqual, 1+1)
		})

		Convey("Then the activity trend buckets by creation day", func() {
			acts := append(nActivities("a@x.io", 3, fixedNow), nActivities("a@x.io", 1, fixedNow.AddDate(0, 0, -7))...)
			trend := e.ActivityTrend(acts, 7)
			So(len(trend), ShouldEqual, 8)
			So(trend[0].Value, ShouldEqual, 1)
			So(trend[7].Value, ShouldEqual, 3)
		})

		Convey("Then zero days still yields today's bucket", func() {
			So(len(e.TaskTrend(tasks, 0)), ShouldEqual, 1)
		})
	})
}
