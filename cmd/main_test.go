package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/gamepulse/internal/config"
	"github.com/okian/gamepulse/internal/testupstream"
	"github.com/okian/gamepulse/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When loading configuration from the environment", func() {
			_ = os.Setenv("GAMEPULSE_ADDR", ":8080")
			_ = os.Setenv("GAMEPULSE_PAGE_SIZE", "250")
			defer func() {
				_ = os.Unsetenv("GAMEPULSE_ADDR")
				_ = os.Unsetenv("GAMEPULSE_PAGE_SIZE")
			}()

			convey.Convey("Then the overrides are applied", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.PageSize, convey.ShouldEqual, 250)
			})
		})

		convey.Convey("When configuration is invalid", func() {
			_ = os.Setenv("GAMEPULSE_LOG_FORMAT", "xml")
			defer func() { _ = os.Unsetenv("GAMEPULSE_LOG_FORMAT") }()

			convey.Convey("Then loading fails", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When building the service from defaults", func() {
			svc, err := newService(context.Background(), config.New())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc, convey.ShouldNotBeNil)
		})

		convey.Convey("When the upstream URL is unusable", func() {
			cfg := config.New()
			cfg.UpstreamBaseURL = "ftp://example.com/"
			_, err := newService(context.Background(), cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When running the system metrics updater until cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When updating system metrics directly", func() {
			convey.So(func() {
				updateSystemMetrics()
			}, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the full stack against a fake GamePlan", t, func() {
		snap := testupstream.Generate(testupstream.DefaultConfig(time.Now()))
		upstream := httptest.NewServer(testupstream.NewServer(snap, testupstream.WithAPIKey("secret")))
		defer upstream.Close()

		ctx := context.Background()
		cfg := config.New()
		cfg.UpstreamBaseURL = upstream.URL + testupstream.ResourcePrefix
		cfg.APIKey = "secret"
		cfg.RetryBackoffMS = 0

		svc, err := newService(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h := newHandler(ctx, cfg, svc)
		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then queries return enriched employees", func() {
			w := get("/queries/COMPLETION_RATE")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			var body struct {
				Count   int `json:"count"`
				Results []struct {
					Employee struct {
						Email    string `json:"email"`
						FullName string `json:"full_name"`
					} `json:"employee"`
				} `json:"results"`
			}
			convey.So(json.Unmarshal(w.Body.Bytes(), &body), convey.ShouldBeNil)
			convey.So(body.Count, convey.ShouldEqual, 12)
			convey.So(body.Results[0].Employee.FullName, convey.ShouldStartWith, "User ")
		})

		convey.Convey("Then team rollups cover every team", func() {
			w := get("/teams")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			var body struct {
				Count int `json:"count"`
			}
			convey.So(json.Unmarshal(w.Body.Bytes(), &body), convey.ShouldBeNil)
			convey.So(body.Count, convey.ShouldEqual, 3)
		})

		convey.Convey("Then the fallback key is reported masked", func() {
			w := get("/settings/api-key")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"source":"fallback"`)
			convey.So(w.Body.String(), convey.ShouldNotContainSubstring, "secret")
		})

		convey.Convey("Then the docs are served", func() {
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then a wrong stored key surfaces as 401", func() {
			convey.So(svc.SetAPIKey(ctx, "wrong"), convey.ShouldBeNil)
			convey.So(get("/queries/BACKLOG").Code, convey.ShouldEqual, http.StatusUnauthorized)
		})
	})
}
