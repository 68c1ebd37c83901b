package agent

import (
	"context"
	"iter"
	"net/http"

	"charm.land/fantasy"

	"github.com/dotcommander/blgate/internal/errs"
	"github.com/dotcommander/blgate/internal/fantasybridge"
)

// Invocation is one user message sent to the agent. It is built per request
// and never shared.
type Invocation struct {
	ConversationID string
	Input          string
}

// Voice is the upstream realtime endpoint of a voice-capable model.
type Voice struct {
	URL    string
	Model  string
	Header http.Header
}

// Runtime is a resolved agent. It is read-only once returned by Resolve and
// safe to share between requests.
type Runtime struct {
	Agent      string
	Prompt     string
	ModelName  string
	Model      fantasy.LanguageModel
	Voice      *Voice
	Tools      []fantasy.AgentTool
	StepBudget int
}

// IsVoice reports whether the runtime only accepts realtime voice sessions.
func (r *Runtime) IsVoice() bool {
	return r.Voice != nil
}

// Tool returns the bound tool with the given name.
func (r *Runtime) Tool(name string) (fantasy.AgentTool, bool) {
	for _, t := range r.Tools {
		if t.Info().Name == name {
			return t, true
		}
	}
	return nil, false
}

// Stream runs inv and yields text fragments as the model produces them.
func (r *Runtime) Stream(ctx context.Context, inv Invocation) iter.Seq2[string, error] {
	if r.Model == nil {
		return func(yield func(string, error) bool) {
			yield("", errs.Error{Kind: errs.ErrRequest, Reason: "Model " + r.ModelName + " does not accept text requests."})
		}
	}
	return fantasybridge.Stream(ctx, r.Model, fantasybridge.Request{
		SystemPrompt: r.Prompt,
		Input:        inv.Input,
		Tools:        r.Tools,
		MaxSteps:     r.StepBudget,
	})
}
