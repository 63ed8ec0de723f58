// Package stream implements the stream abstraction (C2) and its
// event-loop-backed TCP/TLS implementation (C3): a non-blocking stream that
// multiplexes synchronous and asynchronous read/write requests over a
// single per-connection dispatch goroutine, assembling arbitrary byte
// counts from a queue of reference-counted inbound buffers.
package stream

import (
	"context"
	"time"

	"github.com/mongowire/core/pkg/buffer"
)

// State is a stream's lifecycle state: Fresh -> Open -> Closed.
type State int

const (
	Fresh State = iota
	OpenState
	Closed
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "FRESH"
	case OpenState:
		return "OPEN"
	default:
		return "CLOSED"
	}
}

// Operation is the per-call context a stream honors for connect/read/write
// timeouts. A zero Duration field means "no scheduled timeout" per §6.
type Operation struct {
	Context        context.Context
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// ReadCallback is invoked exactly once with either a readable Composite
// (ownership transferred to the caller) or a non-nil error.
type ReadCallback func(*buffer.Composite, error)

// WriteCallback is invoked exactly once with a non-nil error on failure.
type WriteCallback func(error)

// OpenCallback is invoked exactly once with a non-nil error on failure.
type OpenCallback func(error)

// Stream is the C2 contract: every operation has a blocking and an
// asynchronous form. The caller retains ownership of buffers passed to
// Write/WriteAsync; ownership of the Composite returned from Read/ReadAsync
// passes to the caller, who must release it.
type Stream interface {
	Open(op Operation) error
	OpenAsync(op Operation, cb OpenCallback)

	Read(op Operation, n int) (*buffer.Composite, error)
	ReadAsync(op Operation, n int, cb ReadCallback)

	Write(op Operation, buffers ...*buffer.Buffer) error
	WriteAsync(op Operation, cb WriteCallback, buffers ...*buffer.Buffer)

	Close() error

	GetAddress() string
	IsClosed() bool
	GetBuffer(size int) *buffer.Buffer
}
