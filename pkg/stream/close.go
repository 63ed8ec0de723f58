package stream

import (
	"github.com/mongowire/core/pkg/debug"
	"github.com/mongowire/core/pkg/wireerr"
)

// Close is idempotent: the first call tears down the connection, fails any
// pending reader, and releases every buffer still queued in pendingInbound;
// subsequent calls are no-ops. CLOSE is the one stream operation always
// legal to record regardless of what came before it.
func (s *NetStream) Close() error {
	s.s.guard.Lock()
	if s.s.closed {
		s.s.guard.Unlock()
		return nil
	}
	s.s.closed = true
	s.s.lifecycle = Closed

	pr := s.s.pendingReader
	s.s.pendingReader = nil

	queued := s.s.pendingInbound
	s.s.pendingInbound = nil

	conn := s.s.conn
	s.s.guard.Unlock()

	for _, b := range queued {
		b.Release()
	}

	if pr != nil {
		if pr.timer != nil {
			pr.timer.Stop()
		}
		err := wireerr.Interrupted(nil)
		s.dbg.RecordStreamOp(debug.StreamOpRead, debug.EndFailure, pr.cb, err)
		pr.cb(nil, err)
	}

	var closeErr error
	if conn != nil {
		closeErr = conn.Close()
	}

	s.dbg.RecordStreamOp(debug.StreamOpClose, debug.Begin, nil, nil)
	if closeErr != nil {
		werr := wireerr.Socket(closeErr, "error closing underlying connection")
		s.dbg.RecordStreamOp(debug.StreamOpClose, debug.EndFailure, nil, werr)
		return werr
	}
	s.dbg.RecordStreamOp(debug.StreamOpClose, debug.EndSuccess, nil, nil)
	return nil
}
