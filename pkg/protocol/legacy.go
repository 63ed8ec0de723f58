package protocol

import (
	"github.com/mongowire/core/pkg/stream"
	"github.com/mongowire/core/pkg/wire"
)

// AckWriteRequest bundles a legacy write op (insert/update/delete, which
// carries no reply of its own) with the get-last-error follow-up query
// that makes it acknowledged. A nil GetLastError means the caller's write
// concern is unacknowledged: no follow-up is sent at all.
type AckWriteRequest struct {
	Write        wire.SimpleMessage
	GetLastError *wire.SimpleMessage
}

// UnacknowledgedResult is the synthetic result returned for a write whose
// concern requested no acknowledgment.
var UnacknowledgedResult = wire.Reply{}

// AcknowledgedWrite sends a legacy write message, then — unless the write
// concern is unacknowledged — follows it with a get-last-error command
// over the same connection; that command's reply is the authoritative
// write result. A GLE reply reports ok:1 even when the write it is
// acknowledging failed, with the failure instead carried in its err/code
// fields, so the reply is classified a second time against those fields
// before being handed back as a success.
func (e *Engine) AcknowledgedWrite(op stream.Operation, req AckWriteRequest) (wire.Reply, error) {
	if err := e.sendOnly(op, req.Write); err != nil {
		return wire.Reply{}, err
	}
	if req.GetLastError == nil {
		return UnacknowledgedResult, nil
	}
	reply, err := e.Execute(op, *req.GetLastError)
	if err != nil {
		return reply, err
	}
	if len(reply.Documents) > 0 {
		if gleErr := classifyGLEError(reply.Documents[0]); gleErr != nil {
			e.Metrics.CommandErrorsTotal.WithLabelValues(string(errCode(gleErr))).Inc()
			e.Log.Debug("get-last-error reply carried a write failure")
			return reply, gleErr
		}
	}
	return reply, nil
}

// KillCursors sends a kill-cursors message fire-and-forget: the protocol
// defines no reply for it.
func (e *Engine) KillCursors(op stream.Operation, payload []byte) error {
	return e.sendOnly(op, wire.SimpleMessage{OpCode: wire.OpKillCursors, Payload: payload})
}

// DrainCursor implements the get-more-discard protocol: repeatedly send a
// get-more for the cursor and read its reply until the server reports
// cursor_id == 0, used to exhaust a server cursor the client no longer
// wants after closing it early.
func (e *Engine) DrainCursor(op stream.Operation, getMore func(cursorID int64) wire.SimpleMessage, cursorID int64) error {
	for cursorID != 0 {
		reply, err := e.Execute(op, getMore(cursorID))
		if err != nil {
			return err
		}
		cursorID = reply.CursorID()
	}
	return nil
}
