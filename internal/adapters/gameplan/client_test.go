package gameplan_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gamepulse/internal/adapters/gameplan"
	"github.com/okian/gamepulse/internal/domain/failure"
	"github.com/okian/gamepulse/internal/domain/model"
	"github.com/okian/gamepulse/internal/testupstream"
	"github.com/okian/gamepulse/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const apiKey = "secret"

var anchor = time.Date(2024, 5, 10, 12, 0, 0, 0, time.Local)

func newUpstream(opts ...testupstream.ServerOption) (*testupstream.Server, *httptest.Server, model.Snapshot) {
	snapshot := testupstream.Generate(testupstream.DefaultConfig(anchor))
	fake := testupstream.NewServer(snapshot, append([]testupstream.ServerOption{testupstream.WithAPIKey(apiKey)}, opts...)...)
	return fake, httptest.NewServer(fake), snapshot
}

func newClient(ts *httptest.Server, opts ...gameplan.Option) *gameplan.Client {
	c, err := gameplan.New(ts.URL+testupstream.ResourcePrefix, append([]gameplan.Option{
		gameplan.WithBackoff(0),
		gameplan.WithPageSize(10),
	}, opts...)...)
	So(err, ShouldBeNil)
	return c
}

func TestNew(t *testing.T) {
	Convey("New validates the base URL", t, func() {
		_, err := gameplan.New("not a url")
		So(errors.Is(err, gameplan.ErrBaseURL), ShouldBeTrue)
		_, err = gameplan.New("ftp://host/api/resource/")
		So(errors.Is(err, gameplan.ErrBaseURL), ShouldBeTrue)

		c, err := gameplan.New("https://host/api/resource")
		So(err, ShouldBeNil)
		So(c.BaseURL(), ShouldEqual, "https://host/api/resource/")
	})
}

func TestFetchPagination(t *testing.T) {
	Convey("Given an upstream with 72 tasks", t, func() {
		fake, ts, snapshot := newUpstream()
		defer ts.Close()
		c := newClient(ts)
		ctx := context.Background()

		Convey("When fetching without an offset", func() {
			rows, err := c.Fetch(ctx, gameplan.Request{DocType: model.DocTypeTask, APIKey: apiKey})

			Convey("Then pages are walked until a short page", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, len(snapshot.Tasks))
				So(fake.Requests(model.DocTypeTask), ShouldEqual, 8)
			})
		})

		Convey("When fetching with an explicit offset", func() {
			offset := 70
			rows, err := c.Fetch(ctx, gameplan.Request{DocType: model.DocTypeTask, APIKey: apiKey, Offset: &offset})

			Convey("Then exactly one page is requested", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
				So(fake.Requests(model.DocTypeTask), ShouldEqual, 1)
			})
		})

		Convey("When a full last page is followed by an empty one", func() {
			rows, err := c.Fetch(ctx, gameplan.Request{DocType: model.DocTypeTask, APIKey: apiKey, Limit: 8})

			Convey("Then the empty page ends the walk", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 72)
				So(fake.Requests(model.DocTypeTask), ShouldEqual, 10)
			})
		})

		Convey("Typed helpers decode every collection", func() {
			tasks, err := c.Tasks(ctx, apiKey)
			So(err, ShouldBeNil)
			So(tasks, ShouldResemble, snapshot.Tasks)

			profiles, err := c.UserProfiles(ctx, apiKey)
			So(err, ShouldBeNil)
			So(len(profiles), ShouldEqual, len(snapshot.Profiles))
			So(profiles[0].Email, ShouldEqual, snapshot.Profiles[0].Email)

			teams, err := c.Teams(ctx, apiKey)
			So(err, ShouldBeNil)
			So(len(teams), ShouldEqual, 3)

			projects, err := c.Projects(ctx, apiKey)
			So(err, ShouldBeNil)
			So(len(projects), ShouldEqual, 6)

			comments, err := c.Comments(ctx, apiKey)
			So(err, ShouldBeNil)
			So(len(comments), ShouldEqual, len(snapshot.Comments))

			activities, err := c.Activities(ctx, apiKey)
			So(err, ShouldBeNil)
			So(len(activities), ShouldEqual, len(snapshot.Activities))
		})
	})

	Convey("Given an upstream that serves bare arrays", t, func() {
		_, ts, snapshot := newUpstream(testupstream.WithBareArrays())
		defer ts.Close()

		teams, err := newClient(ts).Teams(context.Background(), apiKey)
		So(err, ShouldBeNil)
		So(teams, ShouldResemble, snapshot.Teams)
	})
}

func TestFetchRetry(t *testing.T) {
	Convey("Given transient upstream failures", t, func() {
		ctx := context.Background()

		Convey("Two failures are absorbed by the retry budget", func() {
			fake, ts, snapshot := newUpstream(testupstream.WithFailures(model.DocTypeTeam, 2, http.StatusServiceUnavailable))
			defer ts.Close()

			teams, err := newClient(ts).Teams(ctx, apiKey)
			So(err, ShouldBeNil)
			So(len(teams), ShouldEqual, len(snapshot.Teams))
			So(fake.Requests(model.DocTypeTeam), ShouldEqual, 3)
		})

		Convey("Three consecutive failures exhaust it", func() {
			fake, ts, _ := newUpstream(testupstream.WithFailures(model.DocTypeTeam, 3, http.StatusBadGateway))
			defer ts.Close()

			_, err := newClient(ts).Teams(ctx, apiKey)
			So(failure.IsTransient(err), ShouldBeTrue)
			So(fake.Requests(model.DocTypeTeam), ShouldEqual, 3)

			var fe *failure.Error
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.StatusCode, ShouldEqual, http.StatusBadGateway)
			So(fe.Message, ShouldContainSubstring, "Server error")
		})

		Convey("The retry cap is configurable", func() {
			fake, ts, _ := newUpstream(testupstream.WithFailures(model.DocTypeTeam, 1, http.StatusTooManyRequests))
			defer ts.Close()

			_, err := newClient(ts, gameplan.WithMaxRetries(1)).Teams(ctx, apiKey)
			So(failure.IsTransient(err), ShouldBeTrue)
			So(fake.Requests(model.DocTypeTeam), ShouldEqual, 1)
		})

		Convey("Cancellation during backoff stops retrying", func() {
			fake, ts, _ := newUpstream(testupstream.WithFailures(model.DocTypeTeam, 3, http.StatusServiceUnavailable))
			defer ts.Close()

			cctx, cancel := context.WithCancel(ctx)
			c := newClient(ts, gameplan.WithBackoff(time.Hour))
			go func() {
				for fake.Requests(model.DocTypeTeam) == 0 {
					time.Sleep(time.Millisecond)
				}
				cancel()
			}()
			_, err := c.Teams(cctx, apiKey)
			So(err, ShouldNotBeNil)
			So(failure.IsTransient(err), ShouldBeFalse)
			So(fake.Requests(model.DocTypeTeam), ShouldEqual, 1)
		})
	})
}

func TestFetchFailures(t *testing.T) {
	Convey("Given an upstream expecting a key", t, func() {
		fake, ts, _ := newUpstream()
		defer ts.Close()
		c := newClient(ts)
		ctx := context.Background()

		Convey("A rejected key is an auth failure and is not retried", func() {
			_, err := c.Tasks(ctx, "wrong")
			So(failure.IsAuth(err), ShouldBeTrue)
			So(failure.Friendly(err), ShouldEqual, failure.AuthMessage)
			So(fake.Requests(model.DocTypeTask), ShouldEqual, 1)
		})

		Convey("A missing key fails before any request", func() {
			_, err := c.Tasks(ctx, "  ")
			So(failure.IsAuth(err), ShouldBeTrue)
			So(fake.Requests(model.DocTypeTask), ShouldEqual, 0)
		})

		Convey("A 404 is an upstream failure and is not retried", func() {
			_, err := c.Fetch(ctx, gameplan.Request{DocType: "GP Unknown", APIKey: apiKey})
			So(failure.KindOf(err), ShouldEqual, failure.KindUpstream)
			So(fake.Requests("GP Unknown"), ShouldEqual, 1)
		})

		Convey("A missing doctype is a validation failure", func() {
			_, err := c.Fetch(ctx, gameplan.Request{APIKey: apiKey})
			So(failure.IsValidation(err), ShouldBeTrue)
		})

		Convey("Ping accepts the right key and rejects the wrong one", func() {
			So(c.Ping(ctx, apiKey), ShouldBeNil)
			So(failure.IsAuth(c.Ping(ctx, "wrong")), ShouldBeTrue)
		})
	})

	Convey("Given an unreachable upstream", t, func() {
		_, ts, _ := newUpstream()
		c := newClient(ts, gameplan.WithMaxRetries(2))
		ts.Close()

		_, err := c.Teams(context.Background(), apiKey)
		So(failure.IsTransient(err), ShouldBeTrue)
		So(failure.Friendly(err), ShouldContainSubstring, "Network error")
	})
}
