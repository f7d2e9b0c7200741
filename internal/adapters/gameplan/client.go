// Package gameplan fetches records from the GamePlan REST API, a Frappe
// resource endpoint of the form <base><DocType>.
package gameplan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/gamepulse/internal/domain/failure"
	"github.com/okian/gamepulse/internal/domain/model"
	"github.com/okian/gamepulse/pkg/logger"
	"github.com/okian/gamepulse/pkg/metrics"
)

const (
	defaultPageSize   = 1000
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
	defaultTimeout    = 30 * time.Second
)

// ErrBaseURL is returned by New for a missing or relative base URL.
var ErrBaseURL = errors.New("gameplan: base URL must be an absolute http(s) URL")

var allFields = []string{"*"}

// Request describes one collection fetch. A nil Offset means fetch every
// page; a set Offset fetches exactly one page.
type Request struct {
	DocType string
	APIKey  string
	Fields  []string
	Filters map[string]any
	Offset  *int
	Limit   int
}

// Source fetches raw records. *Client is the production implementation.
type Source interface {
	Fetch(ctx context.Context, req Request) ([]json.RawMessage, error)
}

// Client talks to the upstream API.
type Client struct {
	base       string
	http       *http.Client
	timeout    time.Duration
	pageSize   int
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// New creates a client for baseURL, e.g. https://host/api/resource/.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, ErrBaseURL
	}
	base := u.String()
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	c := &Client{
		base:       base,
		timeout:    defaultTimeout,
		pageSize:   defaultPageSize,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.log == nil {
		c.log = logger.Named("gameplan")
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.base }

// Fetch returns the raw records of req.DocType. Without an explicit offset it
// walks pages sequentially until a short or empty page.
func (c *Client) Fetch(ctx context.Context, req Request) ([]json.RawMessage, error) {
	const op = "gameplan.fetch"
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, failure.Auth(op, errors.New("no api key configured"))
	}
	if strings.TrimSpace(req.DocType) == "" {
		return nil, failure.Validation(op, "doctype is required")
	}

	size := c.pageSize
	if req.Limit > 0 {
		size = req.Limit
	}
	if req.Offset != nil {
		return c.pageWithRetry(ctx, req, *req.Offset, size)
	}

	var out []json.RawMessage
	for offset := 0; ; offset += size {
		rows, err := c.pageWithRetry(ctx, req, offset, size)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
		if len(rows) < size {
			break
		}
	}
	c.log.Debug(ctx, "collection fetched",
		logger.String("doctype", req.DocType),
		logger.Int("records", len(out)),
	)
	return out, nil
}

// pageWithRetry retries transient failures up to maxRetries consecutive
// attempts with a fixed delay between them.
func (c *Client) pageWithRetry(ctx context.Context, req Request, offset, size int) ([]json.RawMessage, error) {
	const op = "gameplan.fetch"
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.RecordUpstreamRetry(req.DocType)
			c.log.Warn(ctx, "retrying upstream page",
				logger.String("doctype", req.DocType),
				logger.Int("offset", offset),
				logger.Int("attempt", attempt+1),
				logger.Error(lastErr),
			)
			if err := c.wait(ctx); err != nil {
				return nil, failure.Network(op, err)
			}
		}

		rows, err := c.page(ctx, req, offset, size)
		if err == nil {
			return rows, nil
		}
		if !failure.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, failure.Transient(op, lastErr)
}

func (c *Client) wait(ctx context.Context) error {
	if c.backoff <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(c.backoff):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) page(ctx context.Context, req Request, offset, size int) ([]json.RawMessage, error) {
	const op = "gameplan.page"
	endpoint, err := c.endpoint(req, offset, size)
	if err != nil {
		return nil, failure.Validation(op, err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, failure.Internal(op, err)
	}
	httpReq.Header.Set("Authorization", "token "+req.APIKey)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.RecordUpstreamRequest(req.DocType, "network", since(start))
		return nil, failure.Network(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordUpstreamRequest(req.DocType, "network", since(start))
		return nil, failure.Network(op, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		fe := failure.FromStatus(op, resp.StatusCode, body)
		metrics.RecordUpstreamRequest(req.DocType, string(fe.Kind), since(start))
		return nil, fe
	}

	metrics.RecordUpstreamRequest(req.DocType, "ok", since(start))
	return decodePage(body), nil
}

func (c *Client) endpoint(req Request, offset, size int) (string, error) {
	fields := req.Fields
	if len(fields) == 0 {
		fields = allFields
	}
	encodedFields, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}

	q := url.Values{}
	q.Set("fields", string(encodedFields))
	if len(req.Filters) > 0 {
		encodedFilters, err := json.Marshal(req.Filters)
		if err != nil {
			return "", fmt.Errorf("encode filters: %w", err)
		}
		q.Set("filters", string(encodedFilters))
	}
	q.Set("limit_start", strconv.Itoa(offset))
	q.Set("limit_page_length", strconv.Itoa(size))
	return c.base + url.PathEscape(req.DocType) + "?" + q.Encode(), nil
}

// decodePage accepts a {"data": [...]} envelope or a bare array. Anything
// else is an empty page.
func decodePage(body []byte) []json.RawMessage {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	if body[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if json.Unmarshal(body, &envelope) != nil {
			return nil
		}
		body = bytes.TrimSpace(envelope.Data)
	}
	if len(body) == 0 || body[0] != '[' {
		return nil
	}
	var rows []json.RawMessage
	if json.Unmarshal(body, &rows) != nil {
		return nil
	}
	return rows
}

func since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// FetchAll fetches every record of docType from src and decodes it into T.
func FetchAll[T any](ctx context.Context, src Source, apiKey, docType string) ([]T, error) {
	rows, err := src.Fetch(ctx, Request{DocType: docType, APIKey: apiKey})
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for i, raw := range rows {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, failure.Upstream("gameplan.decode",
				fmt.Sprintf("malformed %s record at position %d", docType, i), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Client) Tasks(ctx context.Context, apiKey string) ([]model.Task, error) {
	return FetchAll[model.Task](ctx, c, apiKey, model.DocTypeTask)
}

func (c *Client) Comments(ctx context.Context, apiKey string) ([]model.Comment, error) {
	return FetchAll[model.Comment](ctx, c, apiKey, model.DocTypeComment)
}

func (c *Client) Activities(ctx context.Context, apiKey string) ([]model.Activity, error) {
	return FetchAll[model.Activity](ctx, c, apiKey, model.DocTypeActivity)
}

func (c *Client) Projects(ctx context.Context, apiKey string) ([]model.Project, error) {
	return FetchAll[model.Project](ctx, c, apiKey, model.DocTypeProject)
}

func (c *Client) Teams(ctx context.Context, apiKey string) ([]model.Team, error) {
	return FetchAll[model.Team](ctx, c, apiKey, model.DocTypeTeam)
}

func (c *Client) UserProfiles(ctx context.Context, apiKey string) ([]model.UserProfile, error) {
	return FetchAll[model.UserProfile](ctx, c, apiKey, model.DocTypeUserProfile)
}

// Ping requests a single team record to check that apiKey is accepted.
func (c *Client) Ping(ctx context.Context, apiKey string) error {
	offset := 0
	_, err := c.Fetch(ctx, Request{
		DocType: model.DocTypeTeam,
		APIKey:  apiKey,
		Fields:  []string{"name"},
		Offset:  &offset,
		Limit:   1,
	})
	return err
}
