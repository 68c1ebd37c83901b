package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dotcommander/blgate/internal/agent"
	"github.com/dotcommander/blgate/internal/logging"
	"github.com/dotcommander/blgate/internal/metrics"
)

const maxRequestBytes = 1 << 20

// Thread id headers, checked in order.
var threadHeaders = []string{"X-Blaxel-Thread-Id", "Thread-Id"}

// Runner streams agent output for one invocation.
type Runner interface {
	Stream(ctx context.Context, inv agent.Invocation) iter.Seq2[string, error]
}

type requestBody struct {
	Inputs *string `json:"inputs"`
	Input  *string `json:"input"`
}

// textHandler serves POST / by streaming the agent answer as plain text.
type textHandler struct {
	runner Runner
	model  string
	logger *zap.SugaredLogger
}

func newTextHandler(runner Runner, model string, logger *zap.SugaredLogger) *textHandler {
	return &textHandler{runner: runner, model: model, logger: logging.OrNop(logger)}
}

func (h *textHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	input, err := decodeInput(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	inv := agent.Invocation{ConversationID: conversationID(r), Input: input}
	log := h.logger.With("thread_id", inv.ConversationID)
	log.Debugw("invoking agent", "input_bytes", len(input))

	out := newSink(w)
	defer out.Close()

	for fragment, err := range h.runner.Stream(r.Context(), inv) {
		if err != nil {
			metrics.RecordStreamError(out.Started())
			described := agent.Describe(err, h.model)
			log.Errorw("agent stream failed", "reason", described.ReasonText(), "error", err, "started", out.Started())
			out.Fail(err)
			return
		}
		if err := out.Write(fragment); err != nil {
			// Leaving the loop cancels the producer.
			log.Warnw("client write failed", "error", err)
			return
		}
		metrics.RecordFragment()
	}
}

// decodeInput reads {"inputs": "..."} or the legacy {"input": "..."}. An
// empty body or a missing field is the empty input.
func decodeInput(body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}
	var req requestBody
	if err := json.Unmarshal(data, &req); err != nil {
		return "", err
	}
	if req.Inputs != nil && *req.Inputs != "" {
		return *req.Inputs, nil
	}
	if req.Input != nil {
		return *req.Input, nil
	}
	return "", nil
}

func conversationID(r *http.Request) string {
	for _, h := range threadHeaders {
		if id := r.Header.Get(h); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
