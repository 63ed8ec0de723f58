package protocol

import (
	"fmt"

	"github.com/mongowire/core/pkg/buffer"
	"github.com/mongowire/core/pkg/debug"
	"github.com/mongowire/core/pkg/stream"
	"github.com/mongowire/core/pkg/wire"
	"github.com/mongowire/core/pkg/wireerr"
	"github.com/sirupsen/logrus"
)

// Engine pairs a Stream with the wire codec to run the
// encode-send-receive-decode-classify cycle for one connection. Execute is
// the single implementation both the blocking and callback-based entry
// points share — ExecuteAsync is a goroutine wrapped around Execute, not a
// parallel code path, so there is nothing to keep in sync between them.
type Engine struct {
	Stream  stream.Stream
	Codec   wire.BSONCodec
	Pool    *buffer.Pool
	Limits  wire.Limits
	Debug   *debug.Debugger
	Metrics *Metrics
	Log     *logrus.Logger
}

// New constructs an Engine. log may be nil, in which case the standard
// logrus logger is used, matching the debugger's own fallback.
func New(s stream.Stream, codec wire.BSONCodec, pool *buffer.Pool, limits wire.Limits, dbg *debug.Debugger, metrics *Metrics, log *logrus.Logger) *Engine {
	if dbg == nil {
		dbg = debug.New(debug.Off, 0, nil)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Engine{Stream: s, Codec: codec, Pool: pool, Limits: limits, Debug: dbg, Metrics: metrics, Log: log}
}

func opLabel(code wire.OpCode) string {
	return fmt.Sprintf("%d", code)
}

// Execute runs one request/reply command cycle: encode, write, read the
// reply header to learn its total length, read the remainder, decode, and
// classify the result document. Classification failures are returned as
// typed errors from pkg/wireerr; the reply itself is still returned
// alongside the classification error so callers can inspect raw fields.
func (e *Engine) Execute(op stream.Operation, msg wire.SimpleMessage) (wire.Reply, error) {
	e.Debug.RecordConnectionOp(debug.ConnOpCommand, debug.Begin, nil, nil)
	e.Metrics.CommandsTotal.WithLabelValues(opLabel(msg.OpCode)).Inc()

	buf, requestID, err := msg.Encode(e.Pool)
	if err != nil {
		return e.failCommand(err)
	}

	if err := e.Stream.Write(op, buf); err != nil {
		buf.Release()
		return e.failCommand(err)
	}
	buf.Release()

	reply, err := e.readReply(op, requestID)
	if err != nil {
		return e.failCommand(err)
	}

	if len(reply.Documents) > 0 {
		if classifyErr := classify(reply.Documents[0]); classifyErr != nil {
			e.Debug.RecordConnectionOp(debug.ConnOpCommand, debug.EndFailure, nil, classifyErr)
			e.Metrics.CommandErrorsTotal.WithLabelValues(string(errCode(classifyErr))).Inc()
			e.Log.WithFields(logrus.Fields{"requestId": requestID}).Debug("command replied with an error document")
			return reply, classifyErr
		}
	}

	e.Debug.RecordConnectionOp(debug.ConnOpCommand, debug.EndSuccess, nil, nil)
	return reply, nil
}

func (e *Engine) failCommand(err error) (wire.Reply, error) {
	e.Debug.RecordConnectionOp(debug.ConnOpCommand, debug.EndFailure, nil, err)
	e.Metrics.CommandErrorsTotal.WithLabelValues(string(errCode(err))).Inc()
	return wire.Reply{}, err
}

func errCode(err error) wireerr.Code {
	var werr *wireerr.Error
	if ok := asWireErr(err, &werr); ok {
		return werr.Code
	}
	return "UNKNOWN"
}

func asWireErr(err error, target **wireerr.Error) bool {
	for err != nil {
		if werr, ok := err.(*wireerr.Error); ok {
			*target = werr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ExecuteAsync is Execute run on its own goroutine; cb is invoked exactly
// once with the result. No logic beyond that delivery is duplicated.
func (e *Engine) ExecuteAsync(op stream.Operation, msg wire.SimpleMessage, cb func(wire.Reply, error)) {
	if cb == nil {
		cb = func(wire.Reply, error) {}
	}
	go func() {
		reply, err := e.Execute(op, msg)
		cb(reply, err)
	}()
}

// readReply performs the two-phase reply read: HeaderLen bytes to learn
// the total message length, then the remainder, assembled into one
// contiguous buffer for wire.DecodeReply.
func (e *Engine) readReply(op stream.Operation, requestID int32) (wire.Reply, error) {
	e.Debug.RecordConnectionOp(debug.ConnOpDecodeMessageHeader, debug.Begin, nil, nil)

	headComp, err := e.Stream.Read(op, wire.HeaderLen)
	if err != nil {
		e.Debug.RecordConnectionOp(debug.ConnOpDecodeMessageHeader, debug.EndFailure, nil, err)
		return wire.Reply{}, err
	}
	headBuf := compositeToBuffer(e.Pool, headComp)

	length, err := headBuf.GetInt32At(0)
	if err != nil {
		headBuf.Release()
		e.Debug.RecordConnectionOp(debug.ConnOpDecodeMessageHeader, debug.EndFailure, nil, err)
		return wire.Reply{}, err
	}
	remaining := int(length) - wire.HeaderLen
	if remaining < 0 {
		headBuf.Release()
		err := wireerr.InvalidMessageHeader("declared length %d is smaller than the header itself", length)
		e.Debug.RecordConnectionOp(debug.ConnOpDecodeMessageHeader, debug.EndFailure, nil, err)
		return wire.Reply{}, err
	}
	e.Debug.RecordConnectionOp(debug.ConnOpDecodeMessageHeader, debug.EndSuccess, nil, nil)

	e.Debug.RecordConnectionOp(debug.ConnOpDecodeReplyHeader, debug.Begin, nil, nil)
	restComp, err := e.Stream.Read(op, remaining)
	if err != nil {
		headBuf.Release()
		e.Debug.RecordConnectionOp(debug.ConnOpDecodeReplyHeader, debug.EndFailure, nil, err)
		return wire.Reply{}, err
	}
	restBuf := compositeToBuffer(e.Pool, restComp)

	full := e.Pool.Get(int(length))
	_ = full.PutBytes(headBuf.Bytes())
	_ = full.PutBytes(restBuf.Bytes())
	full.Flip()
	headBuf.Release()
	restBuf.Release()

	reply, err := wire.DecodeReply(full, e.Limits.MaxMessageSize, requestID, e.Codec)
	full.Release()
	if err != nil {
		e.Debug.RecordConnectionOp(debug.ConnOpDecodeReply, debug.EndFailure, nil, err)
		return wire.Reply{}, err
	}
	if counters := e.Debug.Counters(); counters != nil {
		counters.DecodedMessage(reply.Header.Length)
	}
	e.Debug.RecordConnectionOp(debug.ConnOpDecodeReplyHeader, debug.EndSuccess, nil, nil)
	e.Debug.RecordConnectionOp(debug.ConnOpDecodeReply, debug.EndSuccess, nil, nil)
	return reply, nil
}

// compositeToBuffer flattens a read-mode Composite into a single pooled
// Buffer, releasing the Composite's components in the process.
func compositeToBuffer(pool *buffer.Pool, comp *buffer.Composite) *buffer.Buffer {
	flat := comp.Bytes()
	comp.Release()
	b := pool.Get(len(flat))
	_ = b.PutBytes(flat)
	b.Flip()
	return b
}

// sendOnly writes msg without waiting for or expecting a reply, used by
// the legacy write ops and the kill-cursors fire-and-forget protocol.
func (e *Engine) sendOnly(op stream.Operation, msg wire.SimpleMessage) error {
	buf, _, err := msg.Encode(e.Pool)
	if err != nil {
		return err
	}
	defer buf.Release()
	return e.Stream.Write(op, buf)
}
