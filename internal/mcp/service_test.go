package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/blgate/internal/config"
	"github.com/dotcommander/blgate/internal/logging"
)

func echoServer() http.Handler {
	s := server.NewMCPServer("echo", "1.0.0", server.WithToolCapabilities(false))
	s.AddTool(
		mcp.NewTool("echo",
			mcp.WithDescription("Echoes text back"),
			mcp.WithString("text", mcp.Required()),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			text, _ := req.GetArguments()["text"].(string)
			if text == "fail" {
				return mcp.NewToolResultError("asked to fail"), nil
			}
			return mcp.NewToolResultText("echo: " + text), nil
		},
	)
	return server.NewStreamableHTTPServer(s)
}

type headerRecorder struct {
	mu   sync.Mutex
	seen []string
}

func (h *headerRecorder) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.seen = append(h.seen, r.Header.Get("X-Beamlit-Api-Key"))
		h.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func newService(t *testing.T) (*Service, *headerRecorder) {
	t.Helper()
	rec := &headerRecorder{}
	mux := http.NewServeMux()
	mux.Handle("/ws/functions/echo", rec.wrap(echoServer()))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc := New(config.Gateway{
		RunURL:     srv.URL + "/",
		Workspace:  "ws",
		MCPTimeout: 5 * time.Second,
	}, map[string]string{"X-Beamlit-Api-Key": "k"}, logging.Nop())
	return svc, rec
}

func TestFunctionURL(t *testing.T) {
	svc := New(config.Gateway{RunURL: "https://run.test/", Workspace: "ws"}, nil, nil)
	require.Equal(t, "https://run.test/ws/functions/search", svc.FunctionURL("search"))
}

func TestTools(t *testing.T) {
	svc, rec := newService(t)

	tools, err := svc.Tools(context.Background(), []string{"echo"})
	require.NoError(t, err)
	require.Len(t, tools["echo"], 1)
	require.Equal(t, "echo", tools["echo"][0].Name)
	require.Equal(t, "Echoes text back", tools["echo"][0].Description)
	require.Equal(t, []string{"text"}, tools["echo"][0].InputSchema.Required)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.seen)
	for _, key := range rec.seen {
		require.Equal(t, "k", key)
	}
}

func TestToolsNoFunctions(t *testing.T) {
	svc, _ := newService(t)

	tools, err := svc.Tools(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, tools)
}

func TestToolsUnknownFunction(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Tools(context.Background(), []string{"echo", "missing"})
	require.ErrorContains(t, err, "missing")
}

func TestCallTool(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	out, err := svc.CallTool(ctx, "echo", "echo", []byte(`{"text":"hi"}`))
	require.NoError(t, err)
	require.Equal(t, "echo: hi", out)

	_, err = svc.CallTool(ctx, "echo", "echo", []byte(`{"text":"fail"}`))
	require.EqualError(t, err, "asked to fail")

	_, err = svc.CallTool(ctx, "echo", "echo", []byte(`{not json`))
	require.ErrorContains(t, err, "mcp:")
}
