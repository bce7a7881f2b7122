// Package audit dispatches session lifecycle events to a sink off the caller's
// goroutine.
//
// The [Dispatcher] buffers events and either drops or blocks when the buffer
// is full. Which events exist is decided by the session manager; this package
// only moves them.
package audit
