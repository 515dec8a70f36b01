package supabase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
)

// ErrNotFound is returned when a single-row read matches nothing.
var ErrNotFound = errors.New("row not found")

// DataClient talks to the hosted data surface (table reads/writes and
// RPCs). Every call carries the caller's access token so row-level
// security applies; an empty token falls back to the anon key, and
// service-privileged reads pass the service key explicitly.
type DataClient struct {
	*client
}

// NewDataClient creates a client for the data surface.
func NewDataClient(config Config, logger *slog.Logger) (*DataClient, error) {
	c, err := newClient(config, "rest", logger)
	if err != nil {
		return nil, err
	}
	return &DataClient{client: c}, nil
}

// ServiceToken returns the service-role key for privileged reads, or the
// anon key if none is configured.
func (c *DataClient) ServiceToken() string {
	if c.config.ServiceKey != "" {
		return c.config.ServiceKey
	}
	return c.config.AnonKey
}

// Select reads rows from a table. query is the raw filter/select string
// ("select=id,slug&topic_slug=eq.cardiology&order=name.asc").
func (c *DataClient) Select(ctx context.Context, token, table, query string, dest any) error {
	endpoint := c.tableURL(table, query)
	return c.doJSON(ctx, http.MethodGet, endpoint, token, nil, nil, dest)
}

// SelectSingle reads exactly one row. A query matching zero rows returns
// ErrNotFound rather than an upstream error.
func (c *DataClient) SelectSingle(ctx context.Context, token, table, query string, dest any) error {
	endpoint := c.tableURL(table, query)
	headers := map[string]string{"Accept": "application/vnd.pgrst.object+json"}
	err := c.doJSON(ctx, http.MethodGet, endpoint, token, headers, nil, dest)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && isNoRows(apiErr) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Insert writes rows into a table. When dest is non-nil the inserted
// representation is decoded into it.
func (c *DataClient) Insert(ctx context.Context, token, table string, body, dest any) error {
	endpoint := c.tableURL(table, "")
	headers := map[string]string{"Prefer": "return=minimal"}
	if dest != nil {
		headers["Prefer"] = "return=representation"
	}
	return c.doJSON(ctx, http.MethodPost, endpoint, token, headers, body, dest)
}

// Delete removes the rows matched by query.
func (c *DataClient) Delete(ctx context.Context, token, table, query string) error {
	endpoint := c.tableURL(table, query)
	return c.doJSON(ctx, http.MethodDelete, endpoint, token, nil, nil, nil)
}

// RPC calls a database function with JSON args.
func (c *DataClient) RPC(ctx context.Context, token, fn string, args, dest any) error {
	endpoint := c.config.BaseURL + "/rest/v1/rpc/" + url.PathEscape(fn)
	if args == nil {
		args = map[string]any{}
	}
	return c.doJSON(ctx, http.MethodPost, endpoint, token, nil, args, dest)
}

func (c *DataClient) tableURL(table, query string) string {
	endpoint := c.config.BaseURL + "/rest/v1/" + url.PathEscape(table)
	if query != "" {
		endpoint += "?" + query
	}
	return endpoint
}

// isNoRows recognizes the data surface's "no rows" answers to a
// single-object request: PGRST116 (zero or many rows) and the 406 it rides
// on.
func isNoRows(err *APIError) bool {
	if err.Code == "PGRST116" {
		return true
	}
	return err.Status == http.StatusNotAcceptable || err.Status == http.StatusNotFound
}
