// Package devserver hosts the dev backend for the cui client.
//
// # Overview
//
// The devserver package is the server-side counterpart of the client
// packages. It wires the simulated conversation engine, the SQLite store,
// and the event broadcaster behind the HTTP API the client speaks, so the
// full conversation flow can be exercised without a real agent backend.
//
// # Server Struct
//
// The Server struct is the main entry point:
//
//	type Server struct {
//	    config      *config.Config
//	    store       store.Store
//	    engine      *conversation.Engine
//	    broadcaster *conversation.EventBroadcaster
//	    httpServer  *http.Server
//	    tsnetServer *tsnet.Server
//	    // ... and more
//	}
//
// # HTTP API
//
// The server exposes HTTP endpoints in handlers.go:
//
//   - GET /api/conversations - List recent conversations
//   - GET /api/conversations/{id} - Full transcript for a session
//   - POST /api/conversations/start - Start or resume a turn
//   - GET /api/stream/{id} - Subscribe to turn events (SSE)
//   - POST /api/stream/{id}/stop - Abort an in-flight turn
//   - GET /api/permissions - List permission requests
//   - POST /api/permissions/{id}/decision - Approve or deny a request
//   - GET /api/filesystem/list - Directory listing for the picker
//   - GET /api/commands - Slash commands for a working directory
//   - GET /healthz - Liveness check
//   - GET /metrics - Prometheus scrape endpoint
//
// Errors are returned as a JSON envelope:
//
//	{"error": "session not found"}
//
// # SSE Streaming
//
// Turn events are streamed as Server-Sent Events, one frame per event:
//
//	id: 01JGR2V8...
//	event: message
//	data: {"uuid":"...","type":"assistant","message":{...}}
//
// Event names: message, tool_result, permission_request, status, error.
// A status frame with state "ended" terminates the stream. Subscribing to
// a stream that is unknown or already finished yields an immediate ended
// frame rather than an error, which keeps the client's reload path simple
// when a turn completes between its summary fetch and its subscribe.
//
// # Authentication
//
// When auth.jwt_secret is configured, all /api routes require a bearer
// token. /healthz, /metrics, and the status page stay open.
//
// # Lifecycle
//
// Start the server:
//
//	srv, err := devserver.New(cfg, logger)
//	err = srv.Run(ctx)
//
// Run blocks until the context is canceled, then shuts down the HTTP
// server, aborts in-flight turns, and closes the store. With
// tailscale.enabled the listener comes from an embedded tsnet node
// instead of a local TCP socket.
package devserver
