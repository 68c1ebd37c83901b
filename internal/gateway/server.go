package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dotcommander/blgate/internal/agent"
	"github.com/dotcommander/blgate/internal/logging"
	"github.com/dotcommander/blgate/internal/metrics"
)

const shutdownTimeout = 30 * time.Second

// NewHandler returns the gateway routes for a resolved runtime.
func NewHandler(rt *agent.Runtime, logger *zap.SugaredLogger) http.Handler {
	logger = logging.OrNop(logger)
	var voice http.Handler
	if rt.IsVoice() {
		voice = newVoiceHandler(rt, logger)
	}
	return routes(rt, rt.ModelName, voice, logger)
}

// routes wires the text runner and, for voice agents, the websocket relay.
// A voice agent refuses text requests.
func routes(runner Runner, model string, voice http.Handler, logger *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	text := newTextHandler(runner, model, logger)
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case voice != nil && websocket.IsWebSocketUpgrade(r):
			voice.ServeHTTP(w, r)
		case voice != nil && r.Method == http.MethodPost:
			http.Error(w, "this agent only accepts realtime voice sessions over websocket", http.StatusBadRequest)
		case r.Method == http.MethodPost:
			text.ServeHTTP(w, r)
		default:
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})

	return accessLog(mux, logger)
}

// Serve listens on addr and serves handler until ctx is done, then shuts
// down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.SugaredLogger) error {
	logger = logging.OrNop(logger)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: streams run as long as the agent does.
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	logger.Infow("gateway listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- server.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("gateway stopped")
	return nil
}

// statusWriter records the status code of a response.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach Flush on the real writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	if w.status == 0 {
		w.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

// accessLog writes one line per request: method, path, status, duration.
func accessLog(next http.Handler, logger *zap.SugaredLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		defer func() {
			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			rec := recover()
			if rec != nil {
				// Aborted mid-stream.
				status = 499
			}
			elapsed := time.Since(start)
			metrics.RecordRequest(r.Method, routeLabel(r), status, elapsed)
			logger.Infow(fmt.Sprintf("%s %s %d %dms", r.Method, r.URL.Path, status, elapsed.Milliseconds()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", elapsed,
			)
			if rec != nil {
				panic(rec)
			}
		}()

		next.ServeHTTP(sw, r)
	})
}

// routeLabel is the matched route pattern without its method, or "other" when
// no route matched.
func routeLabel(r *http.Request) string {
	pattern := r.Pattern
	if pattern == "" {
		return "other"
	}
	if _, path, ok := strings.Cut(pattern, " "); ok {
		pattern = path
	}
	return strings.TrimSuffix(pattern, "{$}")
}
