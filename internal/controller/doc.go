// Package controller orchestrates one conversation view: loading history,
// attaching to live streams, and running the send, stop, and permission
// decision actions.
//
// # Overview
//
// The controller owns a convo.Store and is its single writer. Switching
// sessions runs a fixed load sequence: tear down any stream subscription,
// fetch and transform history into the store, derive the working directory,
// look the session up in the recent-conversations list, and, when the
// session has an active turn, subscribe to its stream and fetch pending
// permission requests.
//
// # Staleness
//
// Loads and actions race: a user can switch sessions while a load is in
// flight. Every state mutation that follows a network call is guarded by a
// generation token incremented on each session switch, so a stale
// invocation can neither overwrite newer state nor clear the newer load's
// loading flag. The guard is the explicit token, not context cancellation;
// contexts only abort network work early.
//
// # Errors
//
// No failure escapes the controller unhandled. Load, send, stop, decision,
// and stream errors surface as banner text; permission prefetch failures
// are logged and otherwise ignored so the conversation still renders.
package controller
