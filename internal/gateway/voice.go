package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"charm.land/fantasy"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dotcommander/blgate/internal/agent"
	"github.com/dotcommander/blgate/internal/logging"
)

// Realtime event types the relay acts on.
const (
	eventSessionUpdate     = "session.update"
	eventFunctionCallDone  = "response.function_call_arguments.done"
	eventItemCreate        = "conversation.item.create"
	eventResponseCreate    = "response.create"
	itemFunctionCallOutput = "function_call_output"
)

type realtimeTool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type realtimeSession struct {
	Instructions string         `json:"instructions,omitempty"`
	Tools        []realtimeTool `json:"tools,omitempty"`
	ToolChoice   string         `json:"tool_choice,omitempty"`
}

type sessionUpdate struct {
	Type    string          `json:"type"`
	Session realtimeSession `json:"session"`
}

type functionCall struct {
	Type      string `json:"type"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type functionOutput struct {
	Type string `json:"type"`
	Item struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
		Output string `json:"output"`
	} `json:"item"`
}

// voiceHandler relays a client websocket to the model's realtime socket and
// runs the tool calls the model asks for.
type voiceHandler struct {
	rt       *agent.Runtime
	upgrader websocket.Upgrader
	dialer   *websocket.Dialer
	logger   *zap.SugaredLogger
}

func newVoiceHandler(rt *agent.Runtime, logger *zap.SugaredLogger) *voiceHandler {
	return &voiceHandler{
		rt: rt,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		dialer: websocket.DefaultDialer,
		logger: logging.OrNop(logger),
	}
}

// bindTools builds the session configuration sent first on every upstream
// connection.
func bindTools(rt *agent.Runtime) sessionUpdate {
	update := sessionUpdate{Type: eventSessionUpdate, Session: realtimeSession{Instructions: rt.Prompt}}
	for _, t := range rt.Tools {
		info := t.Info()
		update.Session.Tools = append(update.Session.Tools, realtimeTool{
			Type:        "function",
			Name:        info.Name,
			Description: info.Description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": info.Parameters,
				"required":   info.Required,
			},
		})
	}
	if len(update.Session.Tools) > 0 {
		update.Session.ToolChoice = "auto"
	}
	return update
}

func (h *voiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session := bindTools(h.rt)

	client, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer client.Close() //nolint:errcheck
	log := h.logger.With("thread_id", conversationID(r))
	log.Infow("websocket connected", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	upstreamConn, _, err := h.dialer.DialContext(ctx, h.rt.Voice.URL, h.rt.Voice.Header)
	if err != nil {
		log.Errorw("realtime dial failed", "error", err)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "upstream unavailable")
		_ = client.WriteMessage(websocket.CloseMessage, msg)
		return
	}
	upstream := &lockedConn{conn: upstreamConn}
	defer upstream.Close() //nolint:errcheck

	if err := upstream.WriteJSON(session); err != nil {
		log.Errorw("binding tools failed", "error", err)
		return
	}

	errc := make(chan error, 2)
	go func() { errc <- h.clientToUpstream(client, upstream) }()
	go func() { errc <- h.upstreamToClient(ctx, upstream, client, log) }()

	err = <-errc
	cancel()
	_ = client.Close()
	_ = upstream.Close()
	<-errc
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Debugw("websocket relay ended", "error", err)
	}
	log.Info("websocket closed")
}

func (h *voiceHandler) clientToUpstream(client *websocket.Conn, upstream *lockedConn) error {
	for {
		kind, data, err := client.ReadMessage()
		if err != nil {
			return err
		}
		if err := upstream.WriteMessage(kind, data); err != nil {
			return err
		}
	}
}

func (h *voiceHandler) upstreamToClient(ctx context.Context, upstream *lockedConn, client *websocket.Conn, log *zap.SugaredLogger) error {
	var calls sync.WaitGroup
	defer calls.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		kind, data, err := upstream.conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := client.WriteMessage(kind, data); err != nil {
			return err
		}
		if kind != websocket.TextMessage {
			continue
		}

		var call functionCall
		if json.Unmarshal(data, &call) != nil || call.Type != eventFunctionCallDone {
			continue
		}
		calls.Add(1)
		go func() {
			defer calls.Done()
			h.runTool(ctx, upstream, call, log)
		}()
	}
}

func (h *voiceHandler) runTool(ctx context.Context, upstream *lockedConn, call functionCall, log *zap.SugaredLogger) {
	output := ""
	tool, ok := h.rt.Tool(call.Name)
	if !ok {
		output = "unknown tool: " + call.Name
	} else {
		id := call.CallID
		if id == "" {
			id = uuid.NewString()
		}
		resp, err := tool.Run(ctx, fantasy.ToolCall{ID: id, Name: call.Name, Input: call.Arguments})
		switch {
		case err != nil:
			output = err.Error()
		default:
			output = resp.Content
		}
	}
	log.Debugw("voice tool call", "tool", call.Name, "found", ok)

	var reply functionOutput
	reply.Type = eventItemCreate
	reply.Item.Type = itemFunctionCallOutput
	reply.Item.CallID = call.CallID
	reply.Item.Output = output
	if err := upstream.WriteJSON(reply); err != nil {
		log.Warnw("sending tool output failed", "tool", call.Name, "error", err)
		return
	}
	if err := upstream.WriteJSON(map[string]string{"type": eventResponseCreate}); err != nil {
		log.Warnw("requesting response failed", "error", err)
	}
}

// lockedConn serializes writes; gorilla connections allow one writer at a
// time.
type lockedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *lockedConn) WriteMessage(kind int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(kind, data)
}

func (c *lockedConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *lockedConn) Close() error {
	return c.conn.Close()
}
