package control

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"outreach/internal/engine"
	"outreach/internal/operation"
	"outreach/internal/types"

	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx answer from the control API.
type APIError struct {
	StatusCode int
	Response   ErrorResponse
}

func (e *APIError) Error() string {
	if e.Response.Message == "" {
		return fmt.Sprintf("control API returned %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (%d)", e.Response.Message, e.StatusCode)
}

// Client talks to a running control API.
type Client struct {
	http *resty.Client
}

// NewClient returns a client for baseURL, e.g. http://127.0.0.1:7777.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, query map[string]string) error {
	var apiErr ErrorResponse
	req := c.http.R().SetContext(ctx).SetResult(out).SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Response: apiErr}
	}
	return nil
}

// Health reports whether the server answers.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]any
	return c.do(ctx, http.MethodGet, "/healthz", nil, &out, nil)
}

// Status returns the engine status.
func (c *Client) Status(ctx context.Context) (engine.Status, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/v1/engine/status", nil, &out, nil)
	return out.Status, err
}

func (c *Client) command(ctx context.Context, path string, body any) (engine.Response, error) {
	var out engine.Response
	err := c.do(ctx, http.MethodPost, path, body, &out, nil)
	return out, err
}

// Start begins a run.
func (c *Client) Start(ctx context.Context) (engine.Response, error) {
	return c.command(ctx, "/v1/engine/start", nil)
}

// Stop requests the run to end.
func (c *Client) Stop(ctx context.Context) (engine.Response, error) {
	return c.command(ctx, "/v1/engine/stop", nil)
}

// DryRun evaluates the sample profiles.
func (c *Client) DryRun(ctx context.Context) (engine.Response, error) {
	return c.command(ctx, "/v1/engine/dry-run", nil)
}

// CollectOnce scrapes and evaluates the active tab once.
func (c *Client) CollectOnce(ctx context.Context) (engine.Response, error) {
	return c.command(ctx, "/v1/engine/collect", nil)
}

// ProfileBatch evaluates caller supplied profiles.
func (c *Client) ProfileBatch(ctx context.Context, profiles []types.Profile) (engine.Response, error) {
	return c.command(ctx, "/v1/engine/batch", BatchRequest{Profiles: profiles})
}

// FetchLogs returns up to limit entries, newest first. Zero uses the server default.
func (c *Client) FetchLogs(ctx context.Context, limit int) (engine.LogsResponse, error) {
	var out engine.LogsResponse
	var query map[string]string
	if limit > 0 {
		query = map[string]string{"limit": strconv.Itoa(limit)}
	}
	err := c.do(ctx, http.MethodGet, "/v1/logs", nil, &out, query)
	return out, err
}

// ClearLogs removes every log entry.
func (c *Client) ClearLogs(ctx context.Context) (engine.Response, error) {
	var out engine.Response
	err := c.do(ctx, http.MethodDelete, "/v1/logs", nil, &out, nil)
	return out, err
}

// Operations lists the registered operations.
func (c *Client) Operations(ctx context.Context) (OperationsResponse, error) {
	var out OperationsResponse
	err := c.do(ctx, http.MethodGet, "/v1/operations/", nil, &out, nil)
	return out, err
}

// OperationConfig returns the effective configuration of id.
func (c *Client) OperationConfig(ctx context.Context, id operation.ID) (ConfigResponse, error) {
	var out ConfigResponse
	err := c.do(ctx, http.MethodGet, "/v1/operations/"+string(id)+"/config", nil, &out, nil)
	return out, err
}

// SaveOperationConfig validates and stores values for id. Validation
// failures come back as *APIError carrying FieldErrors.
func (c *Client) SaveOperationConfig(ctx context.Context, id operation.ID, values map[string]any) (ConfigResponse, error) {
	var out ConfigResponse
	err := c.do(ctx, http.MethodPut, "/v1/operations/"+string(id)+"/config", ConfigRequest{Values: values}, &out, nil)
	return out, err
}

// Tabs lists the browser tabs tracked by the server.
func (c *Client) Tabs(ctx context.Context) (TabsResponse, error) {
	var out TabsResponse
	err := c.do(ctx, http.MethodGet, "/v1/debug/tabs", nil, &out, nil)
	return out, err
}

// DebugScrape scrapes the active tab without evaluating it.
func (c *Client) DebugScrape(ctx context.Context) (engine.DebugResponse, error) {
	return c.debug(ctx, "/v1/debug/scrape", nil)
}

// DebugInvite walks a simulated invitation for profileID, or the first
// profile on the page when profileID is empty.
func (c *Client) DebugInvite(ctx context.Context, profileID, note string) (engine.DebugResponse, error) {
	return c.debug(ctx, "/v1/debug/invite", InviteRequest{ProfileID: profileID, Note: note})
}

// DebugNextPage clicks the next page control once.
func (c *Client) DebugNextPage(ctx context.Context) (engine.DebugResponse, error) {
	return c.debug(ctx, "/v1/debug/next", nil)
}

func (c *Client) debug(ctx context.Context, path string, body any) (engine.DebugResponse, error) {
	var out engine.DebugResponse
	err := c.do(ctx, http.MethodPost, path, body, &out, nil)
	return out, err
}
