// Package debug implements the connection debugger: a thread-safe,
// zero-overhead-when-disabled invariant recorder for stream- and
// connection-level operations, reporting violations as logs or as raised
// errors depending on the configured Mode.
package debug

import (
	"fmt"
	"runtime"
	"time"

	"github.com/mongowire/core/pkg/wireerr"
	"github.com/sirupsen/logrus"
)

// Debugger ties a Mode, an IOCounters instance, a StreamCollector and a
// ConnectionCollector together for one connection. When Mode is Off every
// method is a cheap no-op and no Event is ever constructed, satisfying the
// "zero-cost when disabled" requirement.
type Debugger struct {
	mode       Mode
	id         int64
	log        *logrus.Logger
	counters   *IOCounters
	streamOps  *StreamCollector
	connOps    *ConnectionCollector
}

// New constructs a Debugger. eventHistorySize must be >= 2; it is clamped
// up to 2 otherwise (mirrors the ring buffer's own floor).
func New(mode Mode, eventHistorySize int, log *logrus.Logger) *Debugger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := &Debugger{mode: mode, id: nextDebuggerID(), log: log}
	if mode == Off {
		return d
	}
	if eventHistorySize < 2 {
		eventHistorySize = 2
	}
	d.counters = NewIOCounters()
	d.streamOps = NewStreamCollector(eventHistorySize)
	d.connOps = NewConnectionCollector(eventHistorySize)
	return d
}

// Enabled reports whether this debugger does anything at all.
func (d *Debugger) Enabled() bool { return d.mode != Off }

// Counters returns the shared IOCounters, or nil when the debugger is Off.
func (d *Debugger) Counters() *IOCounters { return d.counters }

// RecordStreamOp records a stream-level event and enforces ordering. It
// returns nil when the debugger is Off, a *wireerr.Error (kind Debugging)
// when an order violation was detected and the mode dictates raising it, or
// nil when the violation was merely logged.
//
// callback, if non-nil, marks the call as asynchronous for autodetection.
func (d *Debugger) RecordStreamOp(code StreamOp, typ EventType, callback interface{}, cause error, attachments ...interface{}) error {
	if d.mode == Off {
		return nil
	}
	ok, violation := d.streamOps.Record(code, typ, callback, attachments...)
	if ok {
		return nil
	}
	msg := fmt.Sprintf("illegal stream event order: previous=%s new=%s", describeViolation(violation), fmt.Sprintf("%s(%s)", typ, code))
	return d.report(msg, cause, d.streamOps.Snapshot(), nil)
}

// RecordConnectionOp records a connection-level event. Connection events
// never violate ordering by themselves, but decode failures are always
// reported through this path with a non-nil cause so they still surface as
// a Debugging-wrapped error when the mode calls for it.
func (d *Debugger) RecordConnectionOp(code ConnectionOp, typ EventType, callback interface{}, cause error, attachments ...interface{}) error {
	if d.mode == Off {
		return nil
	}
	d.connOps.Record(code, typ, callback, attachments...)
	if typ != EndFailure {
		return nil
	}
	msg := fmt.Sprintf("connection operation failed: %s", code)
	return d.report(msg, cause, nil, d.connOps.Snapshot())
}

func describeViolation(e *Event) string {
	if e == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s(%s)", e.Type, StreamOp(e.Code))
}

// report builds the enriched message, logs it, and — for LogAndThrow —
// returns the error to raise. The asynchronous calling convention (report
// to a callback, then tell the caller whether to stop) is modeled by
// Report below; report() itself only ever returns the error or nil.
func (d *Debugger) report(msg string, cause error, streamHistory, connHistory []Event) error {
	enriched := d.enrich(msg, cause, streamHistory, connHistory)
	switch d.mode {
	case Log:
		d.logViolation(enriched)
		return nil
	case LogAndThrow:
		d.logViolation(enriched)
		return enriched
	default:
		return nil
	}
}

// Report is the synchronous/asynchronous reporting entrypoint for the
// taxonomy's Debugging kind as specified by the core:
//   - Off: returns (false, nil) — never touches the callback.
//   - Log: logs, returns (false, nil).
//   - LogAndThrow with callback == nil (synchronous caller): logs, returns
//     (false, err) — the caller is expected to raise err itself.
//   - LogAndThrow with callback != nil (asynchronous caller): logs, invokes
//     callback(err) itself, and returns (true, nil) to tell the caller to
//     stop executing driver logic without invoking its own callback again.
func (d *Debugger) Report(err *wireerr.Error, callback func(error)) (abort bool, raiseErr error) {
	if d.mode == Off {
		return false, nil
	}
	d.logViolation(err)
	if d.mode == Log {
		return false, nil
	}
	if callback == nil {
		return false, err
	}
	callback(err)
	return true, nil
}

func (d *Debugger) logViolation(err *wireerr.Error) {
	d.log.WithFields(logrus.Fields{
		"runId":       RunID(),
		"debuggerId":  d.id,
		"timestamp":   time.Now().UTC(),
		"goroutine":   goroutineLabel(),
		"suppressed":  len(err.Suppressed),
	}).Error(err.Error())
}

func (d *Debugger) enrich(msg string, cause error, streamHistory, connHistory []Event) *wireerr.Error {
	e := wireerr.Debugging(msg, cause)
	e.WithMetadata("runId", RunID()).
		WithMetadata("debuggerId", d.id).
		WithMetadata("messageId", nextMessageID()).
		WithMetadata("timestamp", time.Now().UTC()).
		WithMetadata("goroutine", goroutineLabel())
	if streamHistory != nil {
		e.WithMetadata("streamEvents", streamHistory)
	}
	if connHistory != nil {
		e.WithMetadata("connectionEvents", connHistory)
	}
	if d.counters != nil {
		e.WithMetadata("ioCounters", d.counters.Snapshot())
	}
	return e
}

// goroutineLabel stands in for the source's "current thread name": Go does
// not expose one, so the running goroutine's stack header is used instead.
func goroutineLabel() string {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	line := string(buf[:n])
	for i, c := range line {
		if c == '\n' {
			return line[:i]
		}
	}
	return line
}

func negativeReadError(numberOfBytes int) *wireerr.Error {
	return wireerr.NegativeRead(numberOfBytes)
}
