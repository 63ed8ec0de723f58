package stream

import (
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/mongowire/core/pkg/buffer"
	"github.com/mongowire/core/pkg/debug"
	"github.com/mongowire/core/pkg/wireerr"
)

// pendingRead is the single in-flight read request a NetStream may hold at
// once. A second concurrent Read/ReadAsync call while one is already
// pending replaces it (see ReadAsync); only an enabled debugger reports it.
type pendingRead struct {
	n     int
	cb    ReadCallback
	timer *time.Timer
}

// sharedState is everything the read, write, connect and close algorithms
// touch under lock: the lifecycle, the live connection, the FIFO of
// buffered-but-unconsumed inbound bytes, the one allowed pending reader,
// and the latched terminal error once the connection has failed.
type sharedState struct {
	guard sync.Mutex

	lifecycle State
	conn      net.Conn

	pendingInbound   []*buffer.Buffer
	pendingReader    *pendingRead
	pendingException error
	closed           bool
}

// NetStream is the event-loop-backed implementation of Stream (C3): a
// single dispatch goroutine drains the underlying net.Conn and feeds
// pooled Buffers into sharedState's queue, all mediated by sharedState's
// single mutex.
type NetStream struct {
	addr       string
	pool       *buffer.Pool
	dbg        *debug.Debugger
	tlsConfig  *tls.Config
	socketTune SocketTuner

	defaultConnectTimeout time.Duration
	defaultReadTimeout    time.Duration
	defaultWriteTimeout   time.Duration

	s sharedState
}

// SocketTuner applies socket-level settings (TCP_NODELAY, SO_KEEPALIVE,
// buffer sizes) to a freshly dialed connection before it is wrapped in TLS
// (if configured) and before any data flows — the standard library only
// exposes these on the concrete *net.TCPConn, not on the net.Conn interface
// NetStream otherwise deals in.
type SocketTuner func(net.Conn) error

// SetSocketTuner installs fn to run on every dialed candidate connection.
// Must be called before Open/OpenAsync; typically used by pkg/transport's
// Factory to apply its Options' socket settings.
func (s *NetStream) SetSocketTuner(fn SocketTuner) { s.socketTune = fn }

// New constructs a NetStream for addr ("host:port"). pool is the shared
// allocator used for both inbound buffers and GetBuffer; dbg may be a
// disabled (Off) debugger obtained from debug.New. A nil tlsConfig means
// plain TCP.
func New(addr string, pool *buffer.Pool, dbg *debug.Debugger, tlsConfig *tls.Config) *NetStream {
	if dbg == nil {
		dbg = debug.New(debug.Off, 0, nil)
	}
	return &NetStream{
		addr:                  addr,
		pool:                  pool,
		dbg:                   dbg,
		tlsConfig:             tlsConfig,
		defaultConnectTimeout: 10 * time.Second,
	}
}

var _ Stream = (*NetStream)(nil)

func (s *NetStream) GetAddress() string { return s.addr }

func (s *NetStream) IsClosed() bool {
	s.s.guard.Lock()
	defer s.s.guard.Unlock()
	return s.s.closed
}

func (s *NetStream) GetBuffer(size int) *buffer.Buffer { return s.pool.Get(size) }

// classifyIOError turns a raw net error into the taxonomy's ReadTimeout or
// Socket kind depending on whether it is a timeout.
func classifyIOError(err error) *wireerr.Error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return wireerr.ReadTimeout("i/o timeout: %v", err)
	}
	return wireerr.Socket(err, "i/o error on stream")
}
