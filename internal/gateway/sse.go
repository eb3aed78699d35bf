package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/sjson"
)

var errStreamClosed = errors.New("event stream already closed")

// eventStream writes assessment events as SSE frames. After a terminal event
// (done or error) or a failed write nothing more is written.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

func newEventStream(w http.ResponseWriter) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &eventStream{w: w, flusher: flusher}, true
}

// begin commits the response headers.
func (s *eventStream) begin() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

func (s *eventStream) content(fragment string) error {
	payload, err := sjson.Set("", "content", fragment)
	if err != nil {
		return fmt.Errorf("encode content event: %w", err)
	}
	return s.send(payload, false)
}

func (s *eventStream) done() error {
	payload, _ := sjson.Set("", "done", true)
	return s.send(payload, true)
}

func (s *eventStream) fail(message string) error {
	payload, err := sjson.Set("", "error", message)
	if err != nil {
		return fmt.Errorf("encode error event: %w", err)
	}
	return s.send(payload, true)
}

func (s *eventStream) send(payload string, terminal bool) error {
	if s.closed {
		return errStreamClosed
	}
	if terminal {
		s.closed = true
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		s.closed = true
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}
