// Package failure is the closed error taxonomy shared by the fetcher, the
// engines and the HTTP layer. Every error that leaves the service is a plain,
// JSON-serializable *Error.
package failure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies a failure.
type Kind string

// Failure kinds.
const (
	KindAuth       Kind = "auth"
	KindTransient  Kind = "transient"
	KindValidation Kind = "validation"
	KindUpstream   Kind = "upstream"
	KindInternal   Kind = "internal"
)

// AuthMessage is the fixed user-facing message for any credential problem.
const AuthMessage = "API key is required or invalid. Please configure your API key in settings."

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrAuth       = errors.New("auth failure")
	ErrTransient  = errors.New("transient failure")
	ErrValidation = errors.New("validation failure")
	ErrUpstream   = errors.New("upstream failure")
	ErrInternal   = errors.New("internal failure")
)

const maxBodyData = 512

// Error is the single error type surfaced to callers.
type Error struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	StatusText string `json:"statusText,omitempty"`
	Data       any    `json:"data,omitempty"`

	Op  string `json:"-"`
	Err error  `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrUpstream:
		return e.Kind == KindUpstream
	case ErrInternal:
		return e.Kind == KindInternal
	}
	return false
}

// Auth reports a missing or rejected credential.
func Auth(op string, cause error) *Error {
	return &Error{Kind: KindAuth, Message: AuthMessage, StatusCode: http.StatusUnauthorized, Op: op, Err: cause}
}

// Validation reports bad caller input.
func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Op: op}
}

// Validationf is Validation with formatting.
func Validationf(op, format string, args ...any) *Error {
	return Validation(op, fmt.Sprintf(format, args...))
}

// Transient reports a failure that persisted through every retry.
func Transient(op string, cause error) *Error {
	e := &Error{Kind: KindTransient, Op: op, Err: cause}
	var fe *Error
	if errors.As(cause, &fe) {
		e.StatusCode = fe.StatusCode
		e.StatusText = fe.StatusText
		e.Data = fe.Data
	}
	e.Message = friendly(e.StatusCode, causeText(cause))
	return e
}

// Internal wraps an unexpected error.
func Internal(op string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: "An unexpected error occurred. Please try again.", Op: op, Err: cause}
}

// Upstream reports an upstream response the service cannot use.
func Upstream(op, msg string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Op: op, Err: cause}
}

// Network wraps a transport error (refused connection, DNS, timeout).
// Context cancellation by the caller is internal, not transient.
func Network(op string, cause error) *Error {
	if errors.Is(cause, context.Canceled) {
		return Internal(op, cause)
	}
	msg := "Network error. Please check your internet connection and try again."
	var ne net.Error
	if errors.Is(cause, context.DeadlineExceeded) || (errors.As(cause, &ne) && ne.Timeout()) {
		msg = "Request timed out. The server may be slow or unavailable. Please try again."
	}
	return &Error{Kind: KindTransient, Message: msg, Op: op, Err: cause}
}

// FromStatus builds an error from a non-2xx upstream response.
func FromStatus(op string, status int, body []byte) *Error {
	data := bodyData(body)
	kind := Classify(status, dataMessage(data))
	if kind == KindAuth {
		e := Auth(op, fmt.Errorf("upstream status %d", status))
		e.StatusCode = status
		e.StatusText = http.StatusText(status)
		e.Data = data
		return e
	}
	return &Error{
		Kind:       kind,
		Message:    friendly(status, dataMessage(data)),
		StatusCode: status,
		StatusText: http.StatusText(status),
		Data:       data,
		Op:         op,
	}
}

// Classify is the one place an upstream status and message become a Kind.
func Classify(status int, message string) Kind {
	switch {
	case status == http.StatusUnauthorized, strings.Contains(message, "API key"):
		return KindAuth
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return KindTransient
	case status >= http.StatusBadRequest:
		return KindUpstream
	}
	return KindInternal
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

func IsAuth(err error) bool       { return KindOf(err) == KindAuth }
func IsTransient(err error) bool  { return KindOf(err) == KindTransient }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// As converts any error into an *Error, wrapping foreign errors as internal.
func As(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return Internal(op, err)
}

// Friendly maps err to the message shown to users.
func Friendly(err error) string {
	if err == nil {
		return "An unknown error occurred"
	}
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Kind == KindAuth {
			return AuthMessage
		}
		if fe.Message != "" {
			return fe.Message
		}
		return friendly(fe.StatusCode, causeText(fe.Err))
	}
	return friendly(0, err.Error())
}

func friendly(status int, msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "API key"), status == http.StatusUnauthorized:
		return AuthMessage
	case strings.Contains(lower, "fetch"), strings.Contains(lower, "network"),
		strings.Contains(lower, "connection refused"), strings.Contains(lower, "no such host"):
		return "Network error. Please check your internet connection and try again."
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "deadline exceeded"), status == http.StatusGatewayTimeout:
		return "Request timed out. The server may be slow or unavailable. Please try again."
	case status >= http.StatusInternalServerError:
		return "Server error. Please try again later or contact support if the problem persists."
	case status == http.StatusNotFound:
		return "The requested resource was not found. Please check your API endpoint configuration."
	case status == http.StatusForbidden:
		return "Access forbidden. Please check your API key permissions."
	case status == http.StatusTooManyRequests:
		return "Too many requests. Please wait a moment and try again."
	case msg != "":
		return msg
	case status != 0:
		return http.StatusText(status)
	}
	return "An unexpected error occurred. Please try again."
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Err == nil {
		return fe.Message
	}
	return err.Error()
}

// bodyData keeps a JSON body as decoded data and anything else as a short string.
func bodyData(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if json.Unmarshal(body, &v) == nil {
		return v
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyData {
		s = s[:maxBodyData]
	}
	return s
}

func dataMessage(data any) string {
	switch v := data.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"message", "exception", "exc_type"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
