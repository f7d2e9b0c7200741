package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/gamepulse/internal/domain/failure"
	"github.com/okian/gamepulse/internal/domain/filter"
)

// Filters narrow a query. Dates are inclusive bounds.
type Filters struct {
	Team      string    `json:"team,omitempty" validate:"omitempty,max=140"`
	Project   string    `json:"project,omitempty" validate:"omitempty,max=140"`
	StartDate time.Time `json:"startDate,omitzero"`
	EndDate   time.Time `json:"endDate,omitzero" validate:"omitempty,gtefield=StartDate"`
}

// Criteria returns the team/project part of f.
func (f Filters) Criteria() filter.Criteria {
	return filter.Criteria{Team: f.Team, Project: f.Project}
}

// HasRange reports whether both dates are set.
func (f Filters) HasRange() bool {
	return !f.StartDate.IsZero() && !f.EndDate.IsZero()
}

// Request is a query as submitted by a client.
type Request struct {
	Type    string  `json:"type" validate:"required,querytype"`
	Filters Filters `json:"filters"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("querytype", func(fl validator.FieldLevel) bool {
		_, err := ParseType(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks f and reports a validation failure naming every bad field.
func (f Filters) Validate() error {
	return check("query.filters", f)
}

// Validate checks the request and returns its parsed type.
func (r Request) Validate() (Type, error) {
	if err := check("query.request", r); err != nil {
		return "", err
	}
	return ParseType(r.Type)
}

func check(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return failure.Internal(op, err)
	}
	fields := make(map[string]string, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = e.Tag()
		msgs = append(msgs, fmt.Sprintf("%s failed %s", e.Field(), e.Tag()))
	}
	fe := failure.Validation(op, "invalid query: "+strings.Join(msgs, ", "))
	fe.Data = fields
	return fe
}
