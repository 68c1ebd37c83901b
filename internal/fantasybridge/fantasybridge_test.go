package fantasybridge

import (
	"context"
	"errors"
	"testing"

	"charm.land/fantasy"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func TestLanguageModelRouting(t *testing.T) {
	ctx := context.Background()
	tests := map[string]Config{
		"openai":            {API: "openai", APIKey: "token", BaseURL: "https://run.test/ws/models/gpt/v1"},
		"anthropic":         {API: "anthropic", APIKey: "token", BaseURL: "https://run.test/ws/models/claude/v1"},
		"azure-ad alias":    {API: "azure-ad", APIKey: "token", BaseURL: "https://example.openai.azure.com"},
		"openrouter":        {API: "openrouter", APIKey: "token"},
		"vercel":            {API: "vercel", APIKey: "token"},
		"openai-compatible": {API: "deepseek", BaseURL: "https://api.deepseek.com"},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			lm, err := LanguageModel(ctx, cfg, "some-model")
			require.NoError(t, err)
			require.NotNil(t, lm)
		})
	}
}

func TestLanguageModelMissingType(t *testing.T) {
	lm, err := LanguageModel(context.Background(), Config{}, "some-model")
	require.Error(t, err)
	require.Nil(t, lm)
}

func TestFromMCPTools(t *testing.T) {
	var gotFunction, gotTool, gotArgs string
	caller := func(_ context.Context, function, tool string, args []byte) (string, error) {
		gotFunction, gotTool, gotArgs = function, tool, string(args)
		if tool == "broken" {
			return "", errors.New("tool exploded")
		}
		return "result", nil
	}

	tools := FromMCPTools(map[string][]mcp.Tool{
		"web-search": {
			{
				Name:        "search",
				Description: "search docs",
				InputSchema: mcp.ToolInputSchema{
					Properties: map[string]any{
						"query": map[string]any{"type": "string"},
					},
					Required: []string{"query"},
				},
			},
			{Name: "broken"},
		},
		"math": {{Name: "add"}},
	}, caller)

	require.Len(t, tools, 3)
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Info().Name)
	}
	require.Equal(t, []string{"math_add", "web_search_broken", "web_search_search"}, names)

	info := tools[2].Info()
	require.Equal(t, "search docs", info.Description)
	require.Equal(t, map[string]any{"query": map[string]any{"type": "string"}}, info.Parameters)
	require.Equal(t, []string{"query"}, info.Required)

	require.NotNil(t, tools[0].Info().Parameters)
	require.NotNil(t, tools[0].Info().Required)

	resp, err := tools[2].Run(context.Background(), fantasy.ToolCall{ID: "c1", Name: "web_search_search", Input: `{"query":"go"}`})
	require.NoError(t, err)
	require.False(t, resp.IsError)
	require.Equal(t, "result", resp.Content)
	require.Equal(t, "web-search", gotFunction)
	require.Equal(t, "search", gotTool)
	require.Equal(t, `{"query":"go"}`, gotArgs)

	resp, err = tools[1].Run(context.Background(), fantasy.ToolCall{ID: "c2", Input: `{}`})
	require.NoError(t, err)
	require.True(t, resp.IsError)
	require.Equal(t, "tool exploded", resp.Content)
}

func TestChainTool(t *testing.T) {
	var gotAgent, gotInput string
	tool := NewChainTool("sub-agent", "", func(_ context.Context, agent, input string) (string, error) {
		gotAgent, gotInput = agent, input
		return "sub answer", nil
	})

	info := tool.Info()
	require.Equal(t, "chain_sub_agent", info.Name)
	require.Equal(t, "Ask the sub-agent agent.", info.Description)
	require.Equal(t, []string{"input"}, info.Required)

	resp, err := tool.Run(context.Background(), fantasy.ToolCall{Input: `{"input":"hello"}`})
	require.NoError(t, err)
	require.Equal(t, "sub answer", resp.Content)
	require.Equal(t, "sub-agent", gotAgent)
	require.Equal(t, "hello", gotInput)

	resp, err = tool.Run(context.Background(), fantasy.ToolCall{Input: `nope`})
	require.NoError(t, err)
	require.True(t, resp.IsError)
}

func TestToolProviderOptions(t *testing.T) {
	tool := NewChainTool("a", "b", nil)
	require.Nil(t, tool.ProviderOptions())

	opts := fantasy.ProviderOptions{}
	tool.SetProviderOptions(opts)
	require.NotNil(t, tool.ProviderOptions())
}
