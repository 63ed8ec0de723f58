package stream

import (
	"time"

	"github.com/mongowire/core/pkg/buffer"
	"github.com/mongowire/core/pkg/debug"
	"github.com/mongowire/core/pkg/wireerr"
)

const readLoopChunkSize = 32 * 1024

// readLoop is the stream's single dispatch goroutine: it owns the
// underlying net.Conn's read side exclusively, translating each chunk that
// arrives into a pooled Buffer and handing it to onInbound. It runs until
// the connection is closed or errors.
func (s *NetStream) readLoop(conn interface{ Read([]byte) (int, error) }) {
	chunk := make([]byte, readLoopChunkSize)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			b := s.pool.Get(n)
			_ = b.PutBytes(chunk[:n])
			b.Flip()
			s.onInbound(b)
		}
		if err != nil {
			s.onReadLoopError(err)
			return
		}
	}
}

// onInbound appends a freshly read buffer to the FIFO and, if a read is
// already pending, attempts to satisfy it immediately.
func (s *NetStream) onInbound(b *buffer.Buffer) {
	s.s.guard.Lock()
	s.s.pendingInbound = append(s.s.pendingInbound, b)
	pr := s.s.pendingReader
	if pr == nil {
		s.s.guard.Unlock()
		return
	}
	comp, ok := s.tryAssembleLocked(pr.n)
	if !ok {
		s.s.guard.Unlock()
		return
	}
	s.s.pendingReader = nil
	if pr.timer != nil {
		pr.timer.Stop()
	}
	s.s.guard.Unlock()

	if counters := s.dbg.Counters(); counters != nil {
		counters.SucceededRead(comp.Len())
	}
	s.dbg.RecordStreamOp(debug.StreamOpRead, debug.EndSuccess, pr.cb, nil)
	pr.cb(comp, nil)
}

// onReadLoopError latches the connection's terminal error and, if a read is
// waiting, delivers it immediately. Once latched, every subsequent read —
// even one that could otherwise be satisfied from already-buffered
// inbound data — fails immediately, matching the read algorithm's
// check-the-latched-exception-first ordering.
func (s *NetStream) onReadLoopError(err error) {
	s.s.guard.Lock()
	if s.s.closed {
		s.s.guard.Unlock()
		return
	}
	wErr := classifyIOError(err)
	s.s.pendingException = wErr
	pr := s.s.pendingReader
	s.s.pendingReader = nil
	s.s.guard.Unlock()

	if pr != nil {
		if pr.timer != nil {
			pr.timer.Stop()
		}
		s.dbg.RecordStreamOp(debug.StreamOpRead, debug.EndFailure, pr.cb, wErr)
		pr.cb(nil, wErr)
	}
}

// tryAssembleLocked drains whole or partial buffers from the head of
// pendingInbound into a Composite totalling exactly n bytes, or reports
// false without mutating the queue if fewer than n bytes are available.
// Callers must hold s.s.guard.
func (s *NetStream) tryAssembleLocked(n int) (*buffer.Composite, bool) {
	total := 0
	for _, b := range s.s.pendingInbound {
		total += b.Remaining()
	}
	if total < n {
		return nil, false
	}

	comp := buffer.NewComposite()
	remaining := n
	for remaining > 0 {
		head := s.s.pendingInbound[0]
		if head.Remaining() <= remaining {
			remaining -= head.Remaining()
			s.s.pendingInbound = s.s.pendingInbound[1:]
			comp.AppendComponent(head)
			continue
		}
		sliced, err := head.Slice(remaining)
		if err != nil {
			// Unreachable: remaining < head.Remaining() was just checked.
			return nil, false
		}
		comp.AppendComponent(sliced)
		remaining = 0
	}
	return comp, true
}

// ReadAsync implements the locked read procedure in the order the core
// prescribes: a latched exception always fails the call outright, even if
// pendingInbound happens to hold enough bytes to satisfy it; discovering
// the stream closed latches a fresh exception and drains pendingInbound;
// only then is there-are-enough-bytes-buffered checked, and a read that
// can be satisfied completes inline. Concurrent pending readers are a
// caller contract this method does not itself enforce — a second
// ReadAsync call while one is pending simply replaces the first's
// pendingReader slot (orphaning its callback); only the debugger's event
// collector, when enabled, detects and reports the violation via the
// RecordStreamOp call below.
func (s *NetStream) ReadAsync(op Operation, n int, cb ReadCallback) {
	if cb == nil {
		cb = func(*buffer.Composite, error) {}
	}
	if err := s.dbg.RecordStreamOp(debug.StreamOpRead, debug.Begin, cb, nil); err != nil {
		cb(nil, err)
		return
	}

	if n < 0 {
		var err error = wireerr.NegativeRead(n)
		if counters := s.dbg.Counters(); counters != nil {
			if cerr := counters.FailedRead(n); cerr != nil {
				err = cerr
			}
		}
		if reported := s.dbg.RecordStreamOp(debug.StreamOpRead, debug.EndFailure, cb, err); reported != nil {
			err = reported
		}
		cb(nil, err)
		return
	}

	s.s.guard.Lock()

	if s.s.pendingException != nil {
		err := s.s.pendingException
		s.s.guard.Unlock()
		s.dbg.RecordStreamOp(debug.StreamOpRead, debug.EndFailure, cb, err)
		cb(nil, err)
		return
	}

	if s.s.closed || s.s.conn == nil {
		err := wireerr.Socket(nil, "read attempted on a closed stream")
		s.s.pendingException = err
		queued := s.s.pendingInbound
		s.s.pendingInbound = nil
		s.s.guard.Unlock()
		for _, b := range queued {
			b.Release()
		}
		s.dbg.RecordStreamOp(debug.StreamOpRead, debug.EndFailure, cb, err)
		cb(nil, err)
		return
	}

	if comp, ok := s.tryAssembleLocked(n); ok {
		s.s.guard.Unlock()
		if counters := s.dbg.Counters(); counters != nil {
			counters.SucceededRead(comp.Len())
		}
		s.dbg.RecordStreamOp(debug.StreamOpRead, debug.EndSuccess, cb, nil)
		cb(comp, nil)
		return
	}

	pr := &pendingRead{n: n, cb: cb}
	if op.ReadTimeout > 0 {
		pr.timer = time.AfterFunc(op.ReadTimeout, func() { s.onReadTimeout(pr) })
	}
	s.s.pendingReader = pr
	s.s.guard.Unlock()
}

// onReadTimeout fires when a pending read's timeout elapses before enough
// inbound data has arrived. Per the core's timeout contract, a fired read
// timeout fails the pending reader and closes the channel outright — it is
// not a retryable per-call failure.
func (s *NetStream) onReadTimeout(pr *pendingRead) {
	s.s.guard.Lock()
	if s.s.pendingReader != pr {
		s.s.guard.Unlock()
		return // already satisfied or superseded
	}
	s.s.pendingReader = nil
	s.s.guard.Unlock()

	err := wireerr.ReadTimeout("no response within the configured read timeout")
	s.dbg.RecordStreamOp(debug.StreamOpRead, debug.EndFailure, pr.cb, err)
	pr.cb(nil, err)
	s.Close()
}

// Read is the blocking form of ReadAsync.
func (s *NetStream) Read(op Operation, n int) (*buffer.Composite, error) {
	type result struct {
		comp *buffer.Composite
		err  error
	}
	ch := make(chan result, 1)
	s.ReadAsync(op, n, func(c *buffer.Composite, err error) { ch <- result{c, err} })

	if op.Context == nil {
		r := <-ch
		return r.comp, r.err
	}
	select {
	case r := <-ch:
		return r.comp, r.err
	case <-op.Context.Done():
		return nil, wireerr.Interrupted(op.Context.Err())
	}
}
