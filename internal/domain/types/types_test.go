package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/gamepulse/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEmployee(t *testing.T) {
	Convey("Given employees with different profile data", t, func() {
		Convey("DisplayName prefers full name, then name, then email", func() {
			So(types.Employee{Email: "a@x.io", Name: "ana", FullName: "Ana Lee"}.DisplayName(), ShouldEqual, "Ana Lee")
			So(types.Employee{Email: "a@x.io", Name: "ana"}.DisplayName(), ShouldEqual, "ana")
			So(types.Employee{Email: "a@x.io"}.DisplayName(), ShouldEqual, "a@x.io")
		})

		Convey("A bare employee serializes to just the email", func() {
			raw, err := json.Marshal(types.Employee{Email: "a@x.io"})
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"email":"a@x.io"}`)
		})
	})
}

func TestEmployeeResult(t *testing.T) {
	Convey("Given a completion-rate row with a zero rate", t, func() {
		rate := 0.0
		row := types.EmployeeResult{
			Employee:       types.Employee{Email: "a@x.io"},
			TaskCount:      3,
			CompletionRate: &rate,
			Metrics:        &types.TaskMetrics{TotalTasks: 3},
		}

		Convey("Then the zero rate is still reported", func() {
			raw, err := json.Marshal(row)
			So(err, ShouldBeNil)

			var out map[string]any
			So(json.Unmarshal(raw, &out), ShouldBeNil)
			So(out, ShouldContainKey, "completionRate")
			So(out, ShouldNotContainKey, "tasks")
			So(out, ShouldNotContainKey, "lastUpdateDate")
		})
	})
}

func TestRiskDistribution(t *testing.T) {
	Convey("Add routes counts to the matching category", t, func() {
		var d types.RiskDistribution
		for _, c := range types.RiskCategories {
			d.Add(c, 1)
		}
		d.Add(types.RiskOverdue, 2)
		d.Add("unknown", 5)

		So(d, ShouldResemble, types.RiskDistribution{Overdue: 3, Inactive: 1, Overloaded: 1, LowPerformers: 1, BurnoutRisk: 1})
	})

	Convey("NormalizeEmail trims and lower-cases", t, func() {
		So(types.NormalizeEmail("  Ana@X.io "), ShouldEqual, "ana@x.io")
	})
}
