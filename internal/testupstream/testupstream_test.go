package testupstream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gamepulse/internal/domain/model"
)

var anchor = time.Date(2024, 5, 10, 12, 0, 0, 0, time.Local)

func TestGenerate(t *testing.T) {
	Convey("Given the default config", t, func() {
		cfg := DefaultConfig(anchor)
		s := Generate(cfg)

		Convey("Then collection sizes follow the config", func() {
			So(len(s.Teams), ShouldEqual, cfg.Teams)
			So(len(s.Projects), ShouldEqual, cfg.Teams*cfg.ProjectsPerTeam)
			So(len(s.Profiles), ShouldEqual, cfg.Employees)
			So(len(s.Tasks), ShouldEqual, cfg.Employees*cfg.TasksPerEmployee)
			So(len(s.Activities), ShouldEqual, cfg.Employees*cfg.ActivitiesPerEmployee)
			So(len(s.Comments), ShouldBeLessThanOrEqualTo, len(s.Tasks)*cfg.CommentsPerTask)
		})

		Convey("Then every task joins to a project of a known team", func() {
			teams := map[string]bool{}
			for _, tm := range s.Teams {
				teams[tm.Name] = true
			}
			projects := map[string]string{}
			for _, p := range s.Projects {
				projects[p.Name] = p.Team
			}
			for _, task := range s.Tasks {
				team, ok := projects[task.Project]
				So(ok, ShouldBeTrue)
				So(teams[team], ShouldBeTrue)
			}
		})

		Convey("Then timestamps parse and never lie in the future", func() {
			for _, task := range s.Tasks {
				m, ok := task.ModifiedAt()
				So(ok, ShouldBeTrue)
				So(m.After(anchor), ShouldBeFalse)
			}
		})

		Convey("Then the same seed yields the same records", func() {
			So(Generate(cfg), ShouldResemble, s)
			cfg.Seed = 2
			So(Generate(cfg).Tasks[0].Name, ShouldNotEqual, s.Tasks[0].Name)
		})
	})
}

func get(srv http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestServer(t *testing.T) {
	Convey("Given a server with five teams", t, func() {
		cfg := DefaultConfig(anchor)
		cfg.Teams = 5
		srv := NewServer(Generate(cfg), WithAPIKey("secret"))

		Convey("Pages are windows over the collection", func() {
			rec := get(srv, "/api/resource/GP%20Team?limit_start=3&limit_page_length=2", "secret")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var body struct {
				Data []model.Team `json:"data"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
			So(len(body.Data), ShouldEqual, 2)

			rec = get(srv, "/api/resource/GP%20Team?limit_start=10", "secret")
			So(rec.Body.String(), ShouldContainSubstring, `"data":[]`)
		})

		Convey("A wrong token is rejected with an API key message", func() {
			rec := get(srv, "/api/resource/GP%20Team", "nope")
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			So(rec.Body.String(), ShouldContainSubstring, "API key")
		})

		Convey("Unknown doctypes are 404", func() {
			So(get(srv, "/api/resource/GP%20Nothing", "secret").Code, ShouldEqual, http.StatusNotFound)
			So(get(srv, "/elsewhere", "secret").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Requests are counted per doctype", func() {
			get(srv, "/api/resource/GP%20Team", "secret")
			get(srv, "/api/resource/GP%20Team", "nope")
			So(srv.Requests(model.DocTypeTeam), ShouldEqual, 2)
		})
	})

	Convey("Given injected failures", t, func() {
		srv := NewServer(Generate(DefaultConfig(anchor)), WithFailures(model.DocTypeTask, 2, http.StatusBadGateway), WithBareArrays())

		Convey("The first n requests fail and then bare arrays are served", func() {
			So(get(srv, "/api/resource/GP%20Task", "any").Code, ShouldEqual, http.StatusBadGateway)
			So(get(srv, "/api/resource/GP%20Task", "any").Code, ShouldEqual, http.StatusBadGateway)
			rec := get(srv, "/api/resource/GP%20Task?limit_page_length=1", "any")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldStartWith, "[")
		})

		Convey("Without a key configured any token passes but a missing one does not", func() {
			So(get(srv, "/api/resource/GP%20Team", "").Code, ShouldEqual, http.StatusUnauthorized)
		})
	})
}
