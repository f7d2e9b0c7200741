package api

import "errors"

// Sentinel causes for request parsing failures.
var (
	ErrBadDate = errors.New("invalid date; want YYYY-MM-DD")
	ErrBadDays = errors.New("invalid days; want an integer between 1 and 365")
	ErrBadBody = errors.New("malformed JSON body")
)
