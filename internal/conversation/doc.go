// Package conversation runs the dev backend's simulated agent turns.
//
// # Overview
//
// The conversation package sits between the HTTP handlers and the store,
// turning a submitted prompt into a scripted streaming reply. It owns the
// lifecycle of a turn: persisting the user message, streaming assistant
// events, gating simulated tool calls behind permission decisions, and
// marking the session completed.
//
// # Engine
//
// The Engine coordinates turn execution:
//
//	engine := conversation.NewEngine(store, broadcaster, conversation.Options{})
//
// Key operations:
//
//   - StartTurn(ctx, opts): Persist the user message and begin streaming
//   - StopTurn(ctx, streamingID): Abort an in-flight turn
//   - Decide(ctx, requestID, action, reason): Resolve a permission request
//
// # Scripted Turns
//
// A turn streams a fixed shape of events:
//
//  1. status (started)
//  2. message: a short assistant acknowledgement
//  3. Optionally, when the prompt starts with "!sh ": a tool_use message,
//     a permission_request, and after the decision a tool_result
//  4. message: the final markdown reply
//  5. status (ended)
//
// Every streamed message is also persisted, so reloading the conversation
// reproduces exactly what the stream delivered.
//
// # Permission Gating
//
// Tool steps block until a decision arrives via Decide or until the
// decision timeout elapses, in which case the request is denied
// automatically. Turns started with permission mode "bypassPermissions"
// skip the gate entirely.
//
// # Event Broadcasting
//
// The EventBroadcaster fans persisted events out to SSE subscribers:
//
//	ch, subID := broadcaster.Subscribe(ctx, streamingID)
//
// Publishing is non-blocking; slow subscribers drop events rather than
// stalling the turn.
package conversation
