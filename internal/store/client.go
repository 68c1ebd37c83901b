// Package store publishes resource manifests to the admin store API.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dotcommander/blgate/internal/config"
)

const maxBodyBytes = 1 << 20

// Response is the terminal status and body of one store call.
type Response struct {
	Status int
	Body   []byte
}

// OK reports whether the store accepted the call.
func (r *Response) OK() bool {
	return r.Status == http.StatusOK
}

// Client talks to the admin store endpoints.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewClient builds a store client from the publisher settings.
func NewClient(cfg config.Publisher) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.StoreURL, "/"),
		username: cfg.AdminUsername,
		password: cfg.AdminPassword,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Update replaces the named resource with body.
func (c *Client) Update(ctx context.Context, kind, name string, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPut, c.endpoint(kind, name), body)
}

// Create registers name in the kind collection.
func (c *Client) Create(ctx context.Context, kind, name string) (*Response, error) {
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, fmt.Errorf("encoding create body: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.endpoint(kind), body)
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, 0, len(parts)+1)
	escaped = append(escaped, c.baseURL+"/admin/store")
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return strings.Join(escaped, "/")
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", method, target, err)
	}
	return &Response{Status: resp.StatusCode, Body: data}, nil
}
