package gateway

import (
	"errors"
	"net/http"
)

var errSinkClosed = errors.New("stream already closed")

// sink writes a text stream to an HTTP response. The first write commits a
// 200; Close ends the stream exactly once.
type sink struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
	closed  bool
}

func newSink(w http.ResponseWriter) *sink {
	return &sink{w: w, rc: http.NewResponseController(w)}
}

// Started reports whether any byte has been committed to the client.
func (s *sink) Started() bool {
	return s.started
}

func (s *sink) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
}

// Write sends one fragment and flushes it.
func (s *sink) Write(fragment string) error {
	if s.closed {
		return errSinkClosed
	}
	s.start()
	if _, err := s.w.Write([]byte(fragment)); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// Fail reports err to the client. Before the first byte it is a 500 with the
// message; afterwards the response is aborted so the client sees a truncated
// stream instead of a clean end.
func (s *sink) Fail(err error) {
	if s.closed {
		return
	}
	if !s.started {
		s.closed = true
		http.Error(s.w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.closed = true
	panic(http.ErrAbortHandler)
}

// Close signals end of stream. Calls after the first are no-ops.
func (s *sink) Close() {
	if s.closed {
		return
	}
	s.start()
	s.closed = true
	_ = s.rc.Flush()
}
