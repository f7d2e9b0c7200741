package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/gamepulse/internal/domain/failure"
	"github.com/okian/gamepulse/internal/domain/query"
	"github.com/okian/gamepulse/internal/domain/timewindow"
)

const (
	dateLayout = "2006-01-02"
	maxDays    = 365
)

// filterParams is the wire form of query.Filters: plain calendar dates.
type filterParams struct {
	Team      string `json:"team,omitempty"`
	Project   string `json:"project,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

func filterParamsFrom(q url.Values) filterParams {
	return filterParams{
		Team:      strings.TrimSpace(q.Get("team")),
		Project:   strings.TrimSpace(q.Get("project")),
		StartDate: strings.TrimSpace(q.Get("start")),
		EndDate:   strings.TrimSpace(q.Get("end")),
	}
}

// filters widens the dates to whole local days: start at 00:00:00.000 and
// end at 23:59:59.999.
func (p filterParams) filters(op string) (query.Filters, error) {
	f := query.Filters{Team: p.Team, Project: p.Project}
	if p.StartDate != "" {
		d, err := time.ParseInLocation(dateLayout, p.StartDate, time.Local)
		if err != nil {
			return f, failure.Validationf(op, "%s: %q", ErrBadDate, p.StartDate)
		}
		f.StartDate = timewindow.StartOfDay(d)
	}
	if p.EndDate != "" {
		d, err := time.ParseInLocation(dateLayout, p.EndDate, time.Local)
		if err != nil {
			return f, failure.Validationf(op, "%s: %q", ErrBadDate, p.EndDate)
		}
		f.EndDate = timewindow.EndOfDay(d)
	}
	return f, nil
}

// parseFilters reads team, project, start and end from the URL query.
func parseFilters(r *http.Request, op string) (query.Filters, error) {
	return filterParamsFrom(r.URL.Query()).filters(op)
}

// parseDays reads ?days=; absent means 0 so the service default applies.
func parseDays(r *http.Request, op string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("days"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxDays {
		return 0, failure.Validation(op, ErrBadDays.Error())
	}
	return n, nil
}

// parseBool accepts the strconv forms; anything else is false.
func parseBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func decodeBody(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return failure.Validation(op, ErrBadBody.Error()+": "+err.Error())
	}
	return nil
}
