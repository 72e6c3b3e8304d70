// ABOUTME: SSE client for conversation streams with bearer auth.
// ABOUTME: Parses id/event/data frames and dispatches through Handlers callbacks.

package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
)

// Handlers receive stream callbacks. OnEvent delivers decoded frames in
// arrival order. OnError and OnClosed are terminal: at most one of them
// fires, and nothing fires after a local Disconnect.
type Handlers struct {
	OnEvent  func(Event)
	OnError  func(error)
	OnClosed func()
}

// Subscriber opens SSE subscriptions against a conversation backend.
type Subscriber struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewSubscriber creates a subscriber for the backend at baseURL. The HTTP
// client carries no timeout; streams stay open for the whole turn.
func NewSubscriber(baseURL, token string, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{},
		logger:  logger.With("component", "stream"),
	}
}

// Subscribe opens the event stream for a streaming session. Events are
// delivered on a background goroutine until the stream ends or Disconnect
// is called.
func (s *Subscriber) Subscribe(ctx context.Context, streamingID string, handlers Handlers) (*Subscription, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	reqURL := s.baseURL + "/api/stream/" + url.PathEscape(streamingID)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream %s: %w", streamingID, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("open stream %s: backend returned %d", streamingID, resp.StatusCode)
	}

	sub := &Subscription{
		streamingID: streamingID,
		ctx:         streamCtx,
		cancel:      cancel,
		logger:      s.logger.With("streaming_id", streamingID),
	}
	sub.connected.Store(true)

	go sub.consume(resp.Body, handlers)

	return sub, nil
}

// Subscription is one active SSE stream.
type Subscription struct {
	streamingID string
	ctx         context.Context
	cancel      context.CancelFunc
	connected   atomic.Bool
	terminal    sync.Once
	logger      *slog.Logger
}

// Connected reports whether the stream is still delivering events.
func (s *Subscription) Connected() bool {
	return s.connected.Load()
}

// Disconnect stops delivery and closes the connection. Safe to call
// multiple times and after the stream has already ended. Terminal callbacks
// do not fire for a local disconnect.
func (s *Subscription) Disconnect() {
	// Claim the terminal slot so a concurrent reader shutdown stays silent.
	s.terminal.Do(func() {})
	s.connected.Store(false)
	s.cancel()
}

// consume reads SSE frames until the stream terminates, then fires the
// appropriate terminal callback exactly once.
func (s *Subscription) consume(body io.ReadCloser, handlers Handlers) {
	defer body.Close()
	defer s.connected.Store(false)
	defer s.cancel()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var eventID, eventType string
	var dataLines []string
	var streamErr error
	ended := false

scan:
	for scanner.Scan() {
		line := scanner.Text()

		// Empty line signals end of frame
		if line == "" {
			if eventType != "" && len(dataLines) > 0 {
				data := strings.Join(dataLines, "\n")
				switch eventType {
				case KindError:
					var payload errorPayload
					if err := json.Unmarshal([]byte(data), &payload); err != nil || payload.Error == "" {
						streamErr = errors.New("stream reported an error")
					} else {
						streamErr = errors.New(payload.Error)
					}
					break scan
				case KindStatus:
					ev, err := decodeEvent(eventID, eventType, []byte(data))
					if err != nil {
						s.logger.Warn("skipping malformed frame", "error", err)
					} else if ev.Status == StatusEnded {
						ended = true
						break scan
					} else if handlers.OnEvent != nil {
						handlers.OnEvent(ev)
					}
				default:
					ev, err := decodeEvent(eventID, eventType, []byte(data))
					if err != nil {
						s.logger.Warn("skipping malformed frame", "error", err)
					} else if handlers.OnEvent != nil {
						handlers.OnEvent(ev)
					}
				}
			}
			eventID = ""
			eventType = ""
			dataLines = nil
			continue
		}

		if strings.HasPrefix(line, "id:") {
			eventID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
			continue
		}
		if strings.HasPrefix(line, "event:") {
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimPrefix(line, "data:"))
			continue
		}
	}

	// Local disconnect: suppress callbacks, the consumer already moved on.
	if s.ctx.Err() != nil {
		return
	}

	if streamErr == nil && !ended {
		if err := scanner.Err(); err != nil {
			streamErr = fmt.Errorf("read stream: %w", err)
		}
	}

	s.terminal.Do(func() {
		if streamErr != nil {
			s.logger.Debug("stream failed", "error", streamErr)
			if handlers.OnError != nil {
				handlers.OnError(streamErr)
			}
			return
		}
		// Server-side end: explicit ended status or clean EOF.
		s.logger.Debug("stream closed")
		if handlers.OnClosed != nil {
			handlers.OnClosed()
		}
	})
}
