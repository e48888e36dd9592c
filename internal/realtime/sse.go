package realtime

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
)

// SSEWriter writes events as server-sent "data:" frames on a live response.
type SSEWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewSSEWriter prepares w for streaming: it sets the event-stream headers
// and lifts the server write deadline for this response.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	h := w.Header()
	h.Set("Content-Type", sse.ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.WriteHeader(http.StatusOK)
	return &SSEWriter{w: w, rc: rc}
}

func (s *SSEWriter) Send(ev Event) error {
	if err := sse.Encode(s.w, sse.Event{Data: ev}); err != nil {
		return err
	}
	return s.rc.Flush()
}
