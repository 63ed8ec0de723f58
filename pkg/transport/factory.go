package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/mongowire/core/pkg/buffer"
	"github.com/mongowire/core/pkg/debug"
	"github.com/mongowire/core/pkg/stream"
	"github.com/sirupsen/logrus"
)

// StreamFactory builds Streams to a given address. Open blocks until the
// stream is ready (or fails); it is the async OpenAsync plumbing collapsed
// into one call, matching how Factory's own callers use it.
type StreamFactory interface {
	Open(ctx context.Context, addr string) (stream.Stream, error)
	Close() error
}

// Factory is the concrete StreamFactory (C7): it builds NetStreams wired to
// one Options set, one shared Runtime, and optionally one Debugger. Debug
// may be Off, in which case every stream it produces pays no debugging
// overhead, per stream.New's own contract.
type Factory struct {
	opts    Options
	runtime *Runtime
	ownsRT  bool
	dbg     *debug.Debugger
	log     *logrus.Logger
	metrics *Metrics
}

// New constructs a Factory that owns a freshly created Runtime; Close will
// shut that Runtime down.
func New(opts Options, log *logrus.Logger, metrics *Metrics) (*Factory, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newFactory(opts, NewRuntime(opts.maxConcurrentOpens()), true, log, metrics), nil
}

// NewWithRuntime constructs a Factory over a caller-supplied Runtime. Close
// never shuts that Runtime down — ownership stays with whoever created it,
// per §4.7's ownership rule.
func NewWithRuntime(opts Options, rt *Runtime, log *logrus.Logger, metrics *Metrics) (*Factory, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if rt == nil {
		return nil, fmt.Errorf("transport: NewWithRuntime requires a non-nil Runtime")
	}
	return newFactory(opts, rt, false, log, metrics), nil
}

func newFactory(opts Options, rt *Runtime, ownsRT bool, log *logrus.Logger, metrics *Metrics) *Factory {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Factory{
		opts:    opts,
		runtime: rt,
		ownsRT:  ownsRT,
		dbg:     debug.New(opts.debuggerMode(), opts.eventHistorySize(), log),
		log:     log,
		metrics: metrics,
	}
}

// WithDebugger returns a shallow copy of f using dbg in place of its own
// debugger. Passing an Off debugger is indistinguishable from not calling
// WithDebugger at all, since every stream.New call-site's debugger use is
// already a no-op in that mode — so this "interposes the debugger" for
// every stream the returned Factory subsequently produces without any
// proxying indirection.
func (f *Factory) WithDebugger(dbg *debug.Debugger) *Factory {
	if dbg == nil {
		dbg = debug.New(debug.Off, 0, f.log)
	}
	clone := *f
	clone.dbg = dbg
	return &clone
}

var _ StreamFactory = (*Factory)(nil)

// Pool returns the shared allocator every stream this Factory produces
// draws buffers from, so a caller building a protocol.Engine on top of one
// of those streams can reuse the same Pool instead of allocating another.
func (f *Factory) Pool() *buffer.Pool { return f.runtime.Pool }

// Open dials addr, applying the factory's socket and TLS settings, bounded
// by the shared Runtime's concurrent-open semaphore.
func (f *Factory) Open(ctx context.Context, addr string) (stream.Stream, error) {
	if f.runtime.isClosed() {
		return nil, errRuntimeClosed
	}
	if err := f.runtime.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("transport: acquiring open slot: %w", err)
	}
	defer f.runtime.sem.Release(1)
	f.metrics.StreamsInFlight.Inc()
	defer f.metrics.StreamsInFlight.Dec()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		f.metrics.StreamsOpenErrorsTotal.Inc()
		return nil, fmt.Errorf("transport: invalid address %q: %w", addr, err)
	}

	tlsCfg := buildTLSConfig(f.opts, host)
	if tlsCfg != nil {
		f.log.WithField("tls_profile", tlsProfileFingerprint(tlsCfg)).Debug("opening TLS stream")
	}

	s := stream.New(addr, f.runtime.Pool, f.dbg, tlsCfg)
	s.SetSocketTuner(socketTuner(f.opts))

	op := stream.Operation{
		Context:        ctx,
		ConnectTimeout:  f.opts.connectTimeout(),
		ReadTimeout:     f.opts.readTimeout(),
		WriteTimeout:    f.opts.writeTimeout(),
	}
	if err := s.Open(op); err != nil {
		f.metrics.StreamsOpenErrorsTotal.Inc()
		return nil, err
	}
	f.metrics.StreamsOpenedTotal.Inc()
	return s, nil
}

// Close shuts down the Runtime this Factory owns, or does nothing if the
// Runtime was supplied by a caller via NewWithRuntime.
func (f *Factory) Close() error {
	if !f.ownsRT {
		return nil
	}
	return f.runtime.Close()
}
