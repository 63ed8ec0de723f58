package transport

import (
	"fmt"
	"sync"

	"github.com/mongowire/core/pkg/buffer"
	"golang.org/x/sync/semaphore"
)

// Runtime is the shared resource group a Factory operates over: the pooled
// allocator every stream draws buffers from, and the semaphore bounding how
// many streams may be concurrently mid-Open at once. Several Factories (one
// per replica set member, say) may share a single Runtime; exactly one of
// them should own it and call Close when the process tears down.
type Runtime struct {
	Pool *buffer.Pool

	sem    *semaphore.Weighted
	mu     sync.Mutex
	closed bool
}

// NewRuntime constructs a Runtime with a fresh allocator and a concurrent-
// open limit of maxConcurrentOpens.
func NewRuntime(maxConcurrentOpens int64) *Runtime {
	if maxConcurrentOpens <= 0 {
		maxConcurrentOpens = 64
	}
	return &Runtime{Pool: buffer.NewPool(), sem: semaphore.NewWeighted(maxConcurrentOpens)}
}

// Close marks the Runtime closed, rejecting any further Open call that
// tries to acquire its semaphore. It is idempotent.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *Runtime) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

var errRuntimeClosed = fmt.Errorf("transport: runtime is closed")
