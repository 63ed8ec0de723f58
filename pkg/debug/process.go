package debug

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// runID is chosen once per process and stamped onto every enriched
// debugging error so log aggregation can group events from one run.
var runID = uuid.NewString()

// RunID returns the process-wide run identifier.
func RunID() string { return runID }

var debuggerIDCounter int64
var messageIDCounter int64

// nextDebuggerID allocates the next debugger instance id, starting at 0.
func nextDebuggerID() int64 {
	return atomic.AddInt64(&debuggerIDCounter, 1) - 1
}

// nextMessageID allocates the next enriched-message id, starting at 0.
func nextMessageID() int64 {
	return atomic.AddInt64(&messageIDCounter, 1) - 1
}
