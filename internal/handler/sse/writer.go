package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Writer frames server-sent events for one client. Notices and keep-alives
// arrive from different goroutines, so every write holds mu.
type Writer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	label   string
}

// NewWriter wraps w. label identifies the stream in write errors.
func NewWriter(w http.ResponseWriter, flusher http.Flusher, label string) *Writer {
	return &Writer{w: w, flusher: flusher, label: label}
}

// WriteHeaders commits the event-stream response
func (s *Writer) WriteHeaders() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

// WriteRetry tells the client how long to wait before reconnecting
func (s *Writer) WriteRetry(d time.Duration) error {
	return s.write("retry: %d\n\n", d.Milliseconds())
}

// WriteEvent writes one named event. data must not contain newlines.
func (s *Writer) WriteEvent(eventType string, data []byte) error {
	return s.write("event: %s\ndata: %s\n\n", eventType, data)
}

// WriteKeepAlive writes a comment frame, which clients ignore
func (s *Writer) WriteKeepAlive() error {
	return s.write(": keepalive\n\n")
}

func (s *Writer) write(format string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, format, args...); err != nil {
		return fmt.Errorf("sse %s: %w", s.label, err)
	}
	s.flusher.Flush()
	return nil
}
