package stream

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/mongowire/core/pkg/debug"
	"github.com/mongowire/core/pkg/wireerr"
)

// OpenAsync resolves the stream's address into a candidate list and tries
// each candidate in order, exactly as a client falling back across a
// service's known endpoints would: the first candidate to accept a TCP
// connection (and, if configured, complete a TLS handshake) wins.
func (s *NetStream) OpenAsync(op Operation, cb OpenCallback) {
	if cb == nil {
		cb = func(error) {}
	}
	if err := s.dbg.RecordStreamOp(debug.StreamOpOpen, debug.Begin, cb, nil); err != nil {
		cb(err)
		return
	}

	go func() {
		conn, err := s.dial(op)
		if err != nil {
			s.dbg.RecordStreamOp(debug.StreamOpOpen, debug.EndFailure, cb, err)
			cb(err)
			return
		}

		s.s.guard.Lock()
		if s.s.closed {
			s.s.guard.Unlock()
			conn.Close()
			err := wireerr.Interrupted(nil)
			s.dbg.RecordStreamOp(debug.StreamOpOpen, debug.EndFailure, cb, err)
			cb(err)
			return
		}
		s.s.conn = conn
		s.s.lifecycle = OpenState
		s.s.guard.Unlock()

		go s.readLoop(conn)

		s.dbg.RecordStreamOp(debug.StreamOpOpen, debug.EndSuccess, cb, nil)
		cb(nil)
	}()
}

// Open is the blocking form of OpenAsync.
func (s *NetStream) Open(op Operation) error {
	ch := make(chan error, 1)
	s.OpenAsync(op, func(err error) { ch <- err })
	return awaitOrInterrupt(op, ch)
}

func candidateTimeout(op Operation, fallback, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return fallback
}

func (s *NetStream) dial(op Operation) (net.Conn, error) {
	host, port, err := net.SplitHostPort(s.addr)
	if err != nil {
		return nil, wireerr.SocketOpen(err, "invalid stream address %q", s.addr)
	}

	ctx := op.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := op.ConnectTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ips, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return nil, wireerr.SocketOpen(err, "failed resolving %q", host)
	}

	var dialer net.Dialer
	var lastErr error
	for _, ip := range ips {
		candidate := net.JoinHostPort(ip, port)
		conn, err := dialer.DialContext(ctx, "tcp", candidate)
		if err != nil {
			lastErr = err
			continue
		}
		if s.socketTune != nil {
			if err := s.socketTune(conn); err != nil {
				conn.Close()
				lastErr = err
				continue
			}
		}
		if s.tlsConfig != nil {
			tlsConn := tls.Client(conn, s.tlsConfig)
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				tlsConn.Close()
				lastErr = err
				continue
			}
			return tlsConn, nil
		}
		return conn, nil
	}
	return nil, wireerr.SocketOpen(lastErr, "exhausted %d candidate address(es) for %q", len(ips), s.addr)
}
