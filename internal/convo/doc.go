// Package convo holds the client-side view of one conversation: the
// ordered message log, tool results keyed by tool use id, and the current
// permission request.
//
// History arriving from the backend is transformed before it enters the
// log: side-conversation entries are dropped, nested role/content
// envelopes are unwrapped, and each message receives a stable positional
// id. The same transform applies to messages arriving over the live
// stream, which additionally pass through an event id cache so replays
// mutate the log at most once.
package convo
