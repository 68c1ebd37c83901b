// Package mcp lists and calls the tools of the platform functions bound to an
// agent. Each function is an MCP server reached over streamable HTTP through
// the run proxy.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dotcommander/blgate/internal/config"
	"github.com/dotcommander/blgate/internal/errs"
	"github.com/dotcommander/blgate/internal/logging"
)

// Service provides access to function tool discovery and execution.
type Service struct {
	runURL    string
	workspace string
	headers   map[string]string
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

// New creates a new MCP service. headers are sent on every MCP request.
func New(cfg config.Gateway, headers map[string]string, logger *zap.SugaredLogger) *Service {
	return &Service{
		runURL:    strings.TrimRight(cfg.RunURL, "/"),
		workspace: cfg.Workspace,
		headers:   headers,
		timeout:   cfg.MCPTimeout,
		logger:    logging.OrNop(logger),
	}
}

// FunctionURL returns the MCP endpoint of a function.
func (s *Service) FunctionURL(function string) string {
	return fmt.Sprintf("%s/%s/functions/%s", s.runURL, url.PathEscape(s.workspace), url.PathEscape(function))
}

// Tools returns tools grouped by function name. Functions are queried
// concurrently; the first failure cancels the rest.
func (s *Service) Tools(ctx context.Context, functions []string) (map[string][]mcp.Tool, error) {
	var mu sync.Mutex
	wg, ctx := errgroup.WithContext(ctx)
	result := map[string][]mcp.Tool{}
	for _, fn := range functions {
		wg.Go(func() error {
			listCtx, cancel := s.withTimeout(ctx)
			defer cancel()

			functionTools, err := s.toolsFor(listCtx, fn)
			if errors.Is(err, context.DeadlineExceeded) {
				return errs.Wrap(
					fmt.Errorf("timeout while listing tools for %q - make sure the function is deployed", fn),
					"Could not list tools",
				)
			}
			if err != nil {
				return errs.Wrapf(err, "Could not list tools for function %s.", fn)
			}
			s.logger.Debugw("function tools listed", "function", fn, "count", len(functionTools))
			mu.Lock()
			result[fn] = append(result[fn], functionTools...)
			mu.Unlock()
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, fmt.Errorf("mcp tools: %w", err)
	}
	return result, nil
}

// CallTool executes tool on function with JSON-encoded arguments and returns
// the concatenated text content.
func (s *Service) CallTool(ctx context.Context, function, tool string, data []byte) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var args map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &args); err != nil {
			return "", fmt.Errorf("mcp: %w: %s", err, string(data))
		}
	}

	cli, err := s.initClient(ctx, function)
	if err != nil {
		return "", fmt.Errorf("mcp: %w", err)
	}
	defer cli.Close() //nolint:errcheck

	request := mcp.CallToolRequest{}
	request.Params.Name = tool
	request.Params.Arguments = args
	result, err := cli.CallTool(ctx, request)
	if err != nil {
		return "", fmt.Errorf("mcp: %w", err)
	}

	var sb strings.Builder
	for _, content := range result.Content {
		switch content := content.(type) {
		case mcp.TextContent:
			sb.WriteString(content.Text)
		default:
			sb.WriteString("[Non-text content]")
		}
	}

	if result.IsError {
		return "", errors.New(sb.String())
	}
	return sb.String(), nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) initClient(ctx context.Context, function string) (*client.Client, error) {
	cli, err := client.NewStreamableHttpClient(s.FunctionURL(function), transport.WithHTTPHeaders(s.headers))
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := cli.Start(ctx); err != nil {
		cli.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	if _, err := cli.Initialize(ctx, mcp.InitializeRequest{}); err != nil {
		cli.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("failed to initialize MCP client: %w", err)
	}

	return cli, nil
}

func (s *Service) toolsFor(ctx context.Context, function string) ([]mcp.Tool, error) {
	cli, err := s.initClient(ctx, function)
	if err != nil {
		return nil, fmt.Errorf("could not setup %s: %w", function, err)
	}
	defer cli.Close() //nolint:errcheck

	tools, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("could not setup %s: %w", function, err)
	}
	return tools.Tools, nil
}
