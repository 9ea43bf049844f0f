package sse

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

// Writer sends framed events on an HTTP response, flushing after each one.
type Writer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewWriter wraps w. It fails when w cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &Writer{w: w, flusher: flusher}, nil
}

// Start commits the response headers. It is called implicitly by the first Send.
func (w *Writer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.start()
}

func (w *Writer) start() {
	if w.started {
		return
	}
	w.started = true
	h := w.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.w.WriteHeader(http.StatusOK)
	w.flusher.Flush()
}

// Send writes one event. A write error means the client is gone.
func (w *Writer) Send(event domain.StreamEvent) error {
	frame, err := Encode(event)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.start()
	if _, err := w.w.Write(frame); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	w.flusher.Flush()
	return nil
}
