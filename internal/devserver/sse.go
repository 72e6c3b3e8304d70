// ABOUTME: SSE streaming handler relaying engine events to subscribers.
// ABOUTME: Frames broadcaster events as id/event/data and flushes per frame.

package devserver

import (
	"fmt"
	"net/http"

	"github.com/oklog/ulid/v2"

	"github.com/hcnode/cui/internal/stream"
)

// handleStream handles GET /api/stream/{id} requests. The response is an
// SSE stream that stays open until the turn ends or the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, streamingID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Check streaming support before sending (fail fast)
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before the liveness check: a turn finishing in between
	// would otherwise publish its ended event to nobody and leave this
	// client waiting on a stream that never closes
	events, subID := s.broadcaster.Subscribe(r.Context(), streamingID)
	defer s.broadcaster.Unsubscribe(streamingID, subID)

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Flush the headers right away so the client's subscribe call returns
	// before the first event is due
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if _, err := s.store.SessionByStreamingID(r.Context(), streamingID); err != nil {
		// Unknown or already finished: close the stream cleanly so the
		// client sees an ended turn instead of hanging
		s.logger.Debug("stream is not live, ending immediately", "streaming_id", streamingID)
		s.writeSSEEvent(w, stream.Event{
			ID:     ulid.Make().String(),
			Kind:   stream.KindStatus,
			Status: stream.StatusEnded,
		})
		flusher.Flush()
		return
	}

	s.logger.Debug("stream subscriber attached", "streaming_id", streamingID, "sub_id", subID)

	for {
		select {
		case <-r.Context().Done():
			return

		case ev, ok := <-events:
			if !ok {
				// Broadcaster shut down under us
				return
			}

			s.writeSSEEvent(w, ev)
			flusher.Flush()

			if isTerminal(ev) {
				return
			}
		}
	}
}

// isTerminal reports whether an event ends the stream.
func isTerminal(ev stream.Event) bool {
	if ev.Kind == stream.KindError {
		return true
	}
	return ev.Kind == stream.KindStatus && ev.Status == stream.StatusEnded
}

// writeSSEEvent writes a single SSE frame to the response writer.
func (s *Server) writeSSEEvent(w http.ResponseWriter, ev stream.Event) {
	data, err := ev.Data()
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	if ev.ID != "" {
		fmt.Fprintf(w, "id: %s\n", ev.ID)
	}
	fmt.Fprintf(w, "event: %s\n", ev.Kind)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
