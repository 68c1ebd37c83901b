package fantasybridge

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"charm.land/fantasy"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolCaller runs tool on function with JSON-encoded arguments.
type ToolCaller func(ctx context.Context, function, tool string, args []byte) (string, error)

// AgentCaller sends input to another agent and returns its answer.
type AgentCaller func(ctx context.Context, agent, input string) (string, error)

// FunctionTool exposes one tool of a platform function to a fantasy agent.
type FunctionTool struct {
	function string
	tool     mcp.Tool
	call     ToolCaller
	opts     fantasy.ProviderOptions
}

var _ fantasy.AgentTool = (*FunctionTool)(nil)

// FromMCPTools adapts the tools of every function, ordered by function name
// then tool name so the model sees a stable tool list.
func FromMCPTools(byFunction map[string][]mcp.Tool, call ToolCaller) []fantasy.AgentTool {
	tools := make([]fantasy.AgentTool, 0)
	for _, function := range slices.Sorted(maps.Keys(byFunction)) {
		functionTools := slices.Clone(byFunction[function])
		slices.SortFunc(functionTools, func(a, b mcp.Tool) int { return strings.Compare(a.Name, b.Name) })
		for _, tool := range functionTools {
			tools = append(tools, &FunctionTool{function: function, tool: tool, call: call})
		}
	}
	return tools
}

// Name is the tool name shown to the model.
func (t *FunctionTool) Name() string {
	return toolName(t.function, t.tool.Name)
}

// Info implements fantasy.AgentTool.
func (t *FunctionTool) Info() fantasy.ToolInfo {
	params := t.tool.InputSchema.Properties
	if params == nil {
		params = map[string]any{}
	}
	required := t.tool.InputSchema.Required
	if required == nil {
		required = []string{}
	}
	return fantasy.ToolInfo{
		Name:        t.Name(),
		Description: t.tool.Description,
		Parameters:  params,
		Required:    required,
	}
}

// Run implements fantasy.AgentTool. Tool failures are reported to the model
// as error responses, not returned.
func (t *FunctionTool) Run(ctx context.Context, call fantasy.ToolCall) (fantasy.ToolResponse, error) {
	out, err := t.call(ctx, t.function, t.tool.Name, []byte(call.Input))
	if err != nil {
		return fantasy.NewTextErrorResponse(err.Error()), nil
	}
	return fantasy.NewTextResponse(out), nil
}

// ProviderOptions implements fantasy.AgentTool.
func (t *FunctionTool) ProviderOptions() fantasy.ProviderOptions {
	return t.opts
}

// SetProviderOptions implements fantasy.AgentTool.
func (t *FunctionTool) SetProviderOptions(opts fantasy.ProviderOptions) {
	t.opts = opts
}

// ChainTool exposes another deployed agent as a tool taking one input string.
type ChainTool struct {
	agent       string
	description string
	call        AgentCaller
	opts        fantasy.ProviderOptions
}

var _ fantasy.AgentTool = (*ChainTool)(nil)

// NewChainTool returns a tool that forwards its input to agent.
func NewChainTool(agent, description string, call AgentCaller) *ChainTool {
	return &ChainTool{agent: agent, description: description, call: call}
}

// Name is the tool name shown to the model.
func (t *ChainTool) Name() string {
	return toolName("chain", t.agent)
}

// Info implements fantasy.AgentTool.
func (t *ChainTool) Info() fantasy.ToolInfo {
	description := t.description
	if description == "" {
		description = fmt.Sprintf("Ask the %s agent.", t.agent)
	}
	return fantasy.ToolInfo{
		Name:        t.Name(),
		Description: description,
		Parameters: map[string]any{
			"input": map[string]any{"type": "string", "description": description},
		},
		Required: []string{"input"},
	}
}

// Run implements fantasy.AgentTool.
func (t *ChainTool) Run(ctx context.Context, call fantasy.ToolCall) (fantasy.ToolResponse, error) {
	var params struct {
		Input string `json:"input"`
	}
	if err := json.Unmarshal([]byte(call.Input), &params); err != nil {
		return fantasy.NewTextErrorResponse(fmt.Sprintf("invalid input: %v", err)), nil
	}
	out, err := t.call(ctx, t.agent, params.Input)
	if err != nil {
		return fantasy.NewTextErrorResponse(err.Error()), nil
	}
	return fantasy.NewTextResponse(out), nil
}

// ProviderOptions implements fantasy.AgentTool.
func (t *ChainTool) ProviderOptions() fantasy.ProviderOptions {
	return t.opts
}

// SetProviderOptions implements fantasy.AgentTool.
func (t *ChainTool) SetProviderOptions(opts fantasy.ProviderOptions) {
	t.opts = opts
}

// toolName builds a provider-safe tool name: letters, digits and underscores.
func toolName(prefix, name string) string {
	return sanitize(prefix) + "_" + sanitize(name)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
