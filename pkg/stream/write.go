package stream

import (
	"time"

	"github.com/mongowire/core/pkg/buffer"
	"github.com/mongowire/core/pkg/debug"
	"github.com/mongowire/core/pkg/wireerr"
)

// WriteAsync flattens buffers into one contiguous send and writes it to the
// underlying connection under an optional one-shot write deadline. The
// caller retains ownership of buffers — WriteAsync only reads their
// unconsumed bytes, it never retains or releases them.
func (s *NetStream) WriteAsync(op Operation, cb WriteCallback, buffers ...*buffer.Buffer) {
	if cb == nil {
		cb = func(error) {}
	}
	if err := s.dbg.RecordStreamOp(debug.StreamOpWrite, debug.Begin, cb, nil); err != nil {
		cb(err)
		return
	}

	s.s.guard.Lock()
	conn := s.s.conn
	closed := s.s.closed
	s.s.guard.Unlock()

	if closed || conn == nil {
		err := wireerr.Socket(nil, "write attempted on a stream that is not open")
		s.dbg.RecordStreamOp(debug.StreamOpWrite, debug.EndFailure, cb, err)
		cb(err)
		return
	}

	total := 0
	for _, b := range buffers {
		total += b.Remaining()
	}
	payload := make([]byte, 0, total)
	for _, b := range buffers {
		payload = append(payload, b.Bytes()[b.Position():b.Limit()]...)
	}

	go func() {
		deadline := time.Time{}
		if op.WriteTimeout > 0 {
			deadline = time.Now().Add(op.WriteTimeout)
		}
		if err := conn.SetWriteDeadline(deadline); err != nil {
			s.onWriteFailure(cb, err)
			return
		}

		if _, err := writeFull(conn, payload); err != nil {
			s.onWriteFailure(cb, err)
			return
		}

		if counters := s.dbg.Counters(); counters != nil {
			counters.SucceededWrite()
		}
		s.dbg.RecordStreamOp(debug.StreamOpWrite, debug.EndSuccess, cb, nil)
		cb(nil)
	}()
}

func (s *NetStream) onWriteFailure(cb WriteCallback, cause error) {
	if counters := s.dbg.Counters(); counters != nil {
		counters.FailedWrite()
	}
	err := classifyIOError(cause)
	s.dbg.RecordStreamOp(debug.StreamOpWrite, debug.EndFailure, cb, err)
	cb(err)
}

// writeFull loops conn.Write until every byte of p has been accepted or an
// error occurs, since net.Conn.Write is not guaranteed to consume the
// entire slice in one call.
func writeFull(conn interface {
	Write([]byte) (int, error)
}, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := conn.Write(p[written:])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Write is the blocking form of WriteAsync.
func (s *NetStream) Write(op Operation, buffers ...*buffer.Buffer) error {
	ch := make(chan error, 1)
	s.WriteAsync(op, func(err error) { ch <- err }, buffers...)
	return awaitOrInterrupt(op, ch)
}
