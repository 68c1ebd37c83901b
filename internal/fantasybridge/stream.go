package fantasybridge

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"charm.land/fantasy"
)

// errConsumerDone aborts the agent when the consumer stops pulling.
var errConsumerDone = errors.New("stream consumer stopped")

// Request is one agent run.
type Request struct {
	SystemPrompt string
	Input        string
	Tools        []fantasy.AgentTool
	MaxSteps     int
}

// Stream runs a fantasy agent over model and yields its text deltas in
// order. Tool calls are executed by the agent between steps, bounded by
// MaxSteps. A failed run yields one final ("", err) pair.
//
// The sequence is lazy and single-use: the agent starts on the first pull and
// is cancelled when the consumer stops early.
func Stream(ctx context.Context, model fantasy.LanguageModel, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		opts := []fantasy.AgentOption{}
		if req.SystemPrompt != "" {
			opts = append(opts, fantasy.WithSystemPrompt(req.SystemPrompt))
		}
		if len(req.Tools) > 0 {
			opts = append(opts, fantasy.WithTools(req.Tools...))
		}
		if req.MaxSteps > 0 {
			opts = append(opts, fantasy.WithStopConditions(fantasy.StepCountIs(req.MaxSteps)))
		}
		agent := fantasy.NewAgent(model, opts...)

		stopped := false
		_, err := agent.Stream(ctx, fantasy.AgentStreamCall{
			Prompt: req.Input,
			OnTextDelta: func(_, text string) error {
				if stopped {
					return errConsumerDone
				}
				if text == "" {
					return nil
				}
				if !yield(text, nil) {
					stopped = true
					cancel()
					return errConsumerDone
				}
				return nil
			},
		})
		if stopped {
			return
		}
		if err != nil {
			yield("", fmt.Errorf("agent stream: %w", err))
		}
	}
}
