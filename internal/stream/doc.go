// Package stream subscribes to the SSE event stream of an active
// conversation turn.
//
// # Overview
//
// Each conversation turn the backend runs is identified by a streaming id.
// Subscribing to that id yields a live feed of events until the turn ends:
//
//   - message: A complete chat message (assistant output, system notices)
//   - tool_result: Outcome of a tool invocation, keyed by tool use id
//   - permission_request: A tool approval the user must decide
//   - status: Turn lifecycle markers (started, ended)
//
// Events carry unique ids in the SSE id field so consumers can apply them
// idempotently after reconnects.
//
// # Termination
//
// A stream ends in one of three ways: the server sends an ended status or
// closes the connection (OnClosed), the server reports a fatal error
// (OnError), or the subscriber disconnects locally (no callback). At most
// one terminal callback fires per subscription.
package stream
