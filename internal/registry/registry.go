// Package registry reads agent and model definitions from the control plane
// and invokes chained agents through the run proxy.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dotcommander/blgate/internal/config"
	"github.com/dotcommander/blgate/internal/errs"
)

const (
	maxResponseBytes = 4 << 20
	requestTimeout   = 30 * time.Second
)

// Metadata is shared by every control-plane resource.
type Metadata struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Workspace   string `json:"workspace,omitempty"`
	Environment string `json:"environment,omitempty"`
}

// ChainLink is another agent exposed to this one as a tool.
type ChainLink struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`
}

// IsEnabled reports whether the link is active. Links are on unless
// explicitly disabled.
func (l ChainLink) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

// AgentSpec is the behavior half of an agent definition.
type AgentSpec struct {
	Description string      `json:"description,omitempty"`
	Prompt      string      `json:"prompt,omitempty"`
	Model       string      `json:"model,omitempty"`
	Functions   []string    `json:"functions,omitempty"`
	AgentChain  []ChainLink `json:"agentChain,omitempty"`
}

// AgentDefinition is the control-plane description of an agent.
type AgentDefinition struct {
	Metadata Metadata  `json:"metadata"`
	Spec     AgentSpec `json:"spec"`
}

// ModelRuntime says which provider serves a model.
type ModelRuntime struct {
	Type     string `json:"type,omitempty"`
	Model    string `json:"model,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// ModelSpec is the behavior half of a model definition.
type ModelSpec struct {
	Runtime ModelRuntime `json:"runtime"`
}

// ModelDefinition is the control-plane description of a model deployment.
type ModelDefinition struct {
	Metadata Metadata  `json:"metadata"`
	Spec     ModelSpec `json:"spec"`
}

// Client talks to the control plane.
type Client struct {
	baseURL   string
	runURL    string
	workspace string
	http      *http.Client
}

// New returns a control-plane client authenticating with creds.
func New(cfg config.Gateway, creds Credentials) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		runURL:    strings.TrimRight(cfg.RunURL, "/"),
		workspace: cfg.Workspace,
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: creds.Transport(nil),
		},
	}
}

// GetAgent fetches the named agent definition.
func (c *Client) GetAgent(ctx context.Context, name string) (*AgentDefinition, error) {
	var def AgentDefinition
	if err := c.get(ctx, "agents", name, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// GetModel fetches the named model definition.
func (c *Client) GetModel(ctx context.Context, name string) (*ModelDefinition, error) {
	var def ModelDefinition
	if err := c.get(ctx, "models", name, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// RunAgent sends input to a deployed agent and returns its raw answer.
func (c *Client) RunAgent(ctx context.Context, name, input string) (string, error) {
	body, err := json.Marshal(map[string]string{"input": input})
	if err != nil {
		return "", fmt.Errorf("encoding agent input: %w", err)
	}
	target := c.RunURL("agents", name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, data, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status >= http.StatusBadRequest {
		return "", fmt.Errorf("failed to run agent %s, %d::%s", name, status, strings.TrimSpace(string(data)))
	}
	return string(data), nil
}

// RunURL returns the run proxy address of a workspace resource.
func (c *Client) RunURL(kind, name string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.runURL, url.PathEscape(c.workspace), kind, url.PathEscape(name))
}

func (c *Client) get(ctx context.Context, kind, name string, out any) error {
	target := fmt.Sprintf("%s/%s/%s", c.baseURL, kind, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", kind, err)
	}
	req.Header.Set("Accept", "application/json")

	status, data, err := c.do(req)
	if err != nil {
		return err
	}
	singular := strings.TrimSuffix(kind, "s")
	switch {
	case status == http.StatusNotFound:
		return errs.Error{
			Kind:   errs.ErrNotFound,
			Err:    fmt.Errorf("%s %s not found", singular, name),
			Reason: fmt.Sprintf("No %s named %s in this workspace.", singular, name),
		}
	case status != http.StatusOK:
		return errs.Error{
			Err:    fmt.Errorf("GET %s: HTTP %d: %s", target, status, strings.TrimSpace(string(data))),
			Reason: fmt.Sprintf("Could not fetch %s %s.", singular, name),
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.Error{Kind: errs.ErrParse, Err: err, Reason: fmt.Sprintf("Invalid %s definition for %s.", singular, name)}
	}
	return nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s response: %w", req.URL, err)
	}
	return resp.StatusCode, data, nil
}
