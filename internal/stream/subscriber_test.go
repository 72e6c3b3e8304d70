// ABOUTME: Tests for the SSE subscriber
// ABOUTME: Covers frame parsing, terminal callback dispatch, and local disconnect silence

package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects handler callbacks for inspection.
type recorder struct {
	mu     sync.Mutex
	events []Event
	errs   []error
	closed int
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnEvent: func(ev Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, ev)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
		OnClosed: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.closed++
		},
	}
}

func (r *recorder) snapshot() ([]Event, []error, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]Event, len(r.events))
	copy(events, r.events)
	errs := make([]error, len(r.errs))
	copy(errs, r.errs)
	return events, errs, r.closed
}

func sseServer(t *testing.T, frames string) *Subscriber {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, frames)
	}))
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSubscriber(srv.URL, "token", logger)
}

func frame(id, event, data string) string {
	return fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", id, event, data)
}

func TestSubscribe_DeliversEventsInOrder(t *testing.T) {
	frames := frame("e1", KindStatus, `{"state": "started"}`) +
		frame("e2", KindMessage, `{"uuid": "m1", "type": "assistant", "message": {"role": "assistant", "content": "hello"}}`) +
		frame("e3", KindToolResult, `{"tool_use_id": "t1", "content": "ok"}`) +
		frame("e4", KindStatus, `{"state": "ended"}`)

	rec := &recorder{}
	sub, err := sseServer(t, frames).Subscribe(context.Background(), "st-1", rec.handlers())
	require.NoError(t, err)
	defer sub.Disconnect()

	require.Eventually(t, func() bool {
		_, _, closed := rec.snapshot()
		return closed == 1
	}, time.Second, 5*time.Millisecond)

	events, errs, _ := rec.snapshot()
	require.Len(t, events, 3)
	assert.Empty(t, errs)

	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, StatusStarted, events[0].Status)

	require.NotNil(t, events[1].Message)
	assert.Equal(t, "hello", events[1].Message.Message.Content.Text)

	require.NotNil(t, events[2].ToolResult)
	assert.Equal(t, "t1", events[2].ToolResult.ToolUseID)
}

func TestSubscribe_ErrorEventFiresOnErrorOnly(t *testing.T) {
	frames := frame("e1", KindError, `{"error": "agent crashed"}`)

	rec := &recorder{}
	sub, err := sseServer(t, frames).Subscribe(context.Background(), "st-1", rec.handlers())
	require.NoError(t, err)
	defer sub.Disconnect()

	require.Eventually(t, func() bool {
		_, errs, _ := rec.snapshot()
		return len(errs) == 1
	}, time.Second, 5*time.Millisecond)

	_, errs, closed := rec.snapshot()
	assert.Equal(t, "agent crashed", errs[0].Error())
	assert.Zero(t, closed)
}

func TestSubscribe_ServerEOFFiresOnClosed(t *testing.T) {
	frames := frame("e1", KindMessage, `{"uuid": "m1", "type": "assistant", "message": {"role": "assistant", "content": "hi"}}`)

	rec := &recorder{}
	sub, err := sseServer(t, frames).Subscribe(context.Background(), "st-1", rec.handlers())
	require.NoError(t, err)
	defer sub.Disconnect()

	require.Eventually(t, func() bool {
		_, _, closed := rec.snapshot()
		return closed == 1
	}, time.Second, 5*time.Millisecond)

	events, errs, _ := rec.snapshot()
	assert.Len(t, events, 1)
	assert.Empty(t, errs)
	assert.False(t, sub.Connected())
}

func TestSubscribe_MalformedFrameSkipped(t *testing.T) {
	frames := frame("e1", KindMessage, `{not json`) +
		frame("e2", KindMessage, `{"uuid": "m2", "type": "assistant", "message": {"role": "assistant", "content": "still here"}}`) +
		frame("e3", KindStatus, `{"state": "ended"}`)

	rec := &recorder{}
	sub, err := sseServer(t, frames).Subscribe(context.Background(), "st-1", rec.handlers())
	require.NoError(t, err)
	defer sub.Disconnect()

	require.Eventually(t, func() bool {
		_, _, closed := rec.snapshot()
		return closed == 1
	}, time.Second, 5*time.Millisecond)

	events, _, _ := rec.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "e2", events[0].ID)
}

func TestSubscribe_UnknownKindSkipped(t *testing.T) {
	frames := frame("e1", "telemetry", `{"tokens": 12}`) +
		frame("e2", KindStatus, `{"state": "ended"}`)

	rec := &recorder{}
	sub, err := sseServer(t, frames).Subscribe(context.Background(), "st-1", rec.handlers())
	require.NoError(t, err)
	defer sub.Disconnect()

	require.Eventually(t, func() bool {
		_, _, closed := rec.snapshot()
		return closed == 1
	}, time.Second, 5*time.Millisecond)

	events, _, _ := rec.snapshot()
	assert.Empty(t, events)
}

func TestSubscribe_DisconnectSuppressesCallbacks(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, frame("e1", KindStatus, `{"state": "started"}`))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &recorder{}
	sub, err := NewSubscriber(srv.URL, "", logger).Subscribe(context.Background(), "st-1", rec.handlers())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, _, _ := rec.snapshot()
		return len(events) == 1
	}, time.Second, 5*time.Millisecond)
	require.True(t, sub.Connected())

	sub.Disconnect()
	sub.Disconnect() // idempotent

	assert.False(t, sub.Connected())
	time.Sleep(50 * time.Millisecond)
	_, errs, closed := rec.snapshot()
	assert.Empty(t, errs)
	assert.Zero(t, closed)
}

func TestSubscribe_Non200Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "unknown stream"}`, http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewSubscriber(srv.URL, "", logger).Subscribe(context.Background(), "st-9", Handlers{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestSubscribe_SendsAuthAndAcceptHeaders(t *testing.T) {
	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/event-stream")
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sub, err := NewSubscriber(srv.URL, "secret", logger).Subscribe(context.Background(), "st-1", Handlers{OnClosed: func() {}})
	require.NoError(t, err)
	defer sub.Disconnect()

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "text/event-stream", gotAccept)
}
