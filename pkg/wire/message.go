package wire

import (
	"github.com/mongowire/core/pkg/buffer"
)

// Limits bounds how large a physical message may grow, as advertised by
// the server during handshake.
type Limits struct {
	MaxDocumentSize int32
	MaxMessageSize  int32
	MaxBatchCount   int32
}

// SimpleMessage is a non-splittable request: a query, get-more, insert,
// update, delete, or kill-cursors message carrying one encoded payload.
type SimpleMessage struct {
	OpCode  OpCode
	Payload []byte
}

// Encode writes the header, whose length is computed up front as HeaderLen
// plus the payload size, followed by the payload into a freshly pooled
// buffer.
func (m SimpleMessage) Encode(pool *buffer.Pool) (*buffer.Buffer, int32, error) {
	requestID := NextRequestID()
	size := HeaderLen + len(m.Payload)
	b := pool.Get(size)

	h := Header{Length: int32(size), RequestID: requestID, ResponseTo: 0, OpCode: m.OpCode}
	if err := h.Encode(b); err != nil {
		b.Release()
		return nil, 0, err
	}
	if err := b.PutBytes(m.Payload); err != nil {
		b.Release()
		return nil, 0, err
	}
	b.Flip()
	return b, requestID, nil
}

// WriteCommandMessage is a write-command message (bulk insert/update/delete
// expressed as a command document plus a batch of BSON items) that may
// split across several physical messages when the batch would overflow the
// server's advertised limits.
type WriteCommandMessage struct {
	Command CommandEnvelope
	Items   [][]byte // pre-encoded BSON documents
	Limits  Limits
}

// CommandEnvelope is the fixed part of a write command (e.g. {insert: "coll",
// ordered: true, ...}) that every physical message repeats verbatim; Items
// is what gets split across messages.
type CommandEnvelope struct {
	Prefix []byte // encoded command document up to (not including) the batch array
	Suffix []byte // encoded closing bytes after the batch array
}

// EncodeResult is the outcome of encoding one physical write-command
// message: the wire bytes, the request id assigned to it, how many logical
// items it carries, and — if the item list did not fit in one message — the
// continuation carrying the untranscoded remainder.
type EncodeResult struct {
	Buffer       *buffer.Buffer
	RequestID    int32
	ItemCount    int
	Continuation *WriteCommandMessage
}

// Encode implements the overflow rule from §4.5: items are appended to the
// command document until the document would exceed MaxDocumentSize, the
// message would exceed MaxMessageSize, or the batch count reaches
// MaxBatchCount — whichever comes first. Any remaining items become the
// continuation's Items, encoded as a wire message by a subsequent Encode
// call on the returned continuation.
func (m WriteCommandMessage) Encode(pool *buffer.Pool) (EncodeResult, error) {
	requestID := NextRequestID()

	fixedOverhead := HeaderLen + len(m.Command.Prefix) + len(m.Command.Suffix)
	docBudget := m.Limits.MaxDocumentSize - int32(len(m.Command.Prefix)+len(m.Command.Suffix))

	n := 0
	payloadSize := 0
	for n < len(m.Items) {
		if m.Limits.MaxBatchCount > 0 && int32(n) >= m.Limits.MaxBatchCount {
			break
		}
		item := m.Items[n]
		nextPayload := payloadSize + len(item)
		if int32(nextPayload) > docBudget {
			break
		}
		if int32(fixedOverhead+nextPayload) > m.Limits.MaxMessageSize {
			break
		}
		payloadSize = nextPayload
		n++
	}
	if n == 0 && len(m.Items) > 0 {
		// A single item alone exceeds the budget; still send it so the
		// server can reject it with a precise error rather than looping
		// forever trying to split an unsplittable batch.
		n = 1
		payloadSize = len(m.Items[0])
	}

	size := fixedOverhead + payloadSize
	b := pool.Get(size)
	h := Header{Length: int32(size), RequestID: requestID, ResponseTo: 0, OpCode: OpCommand}
	if err := h.Encode(b); err != nil {
		b.Release()
		return EncodeResult{}, err
	}
	if err := b.PutBytes(m.Command.Prefix); err != nil {
		b.Release()
		return EncodeResult{}, err
	}
	for _, item := range m.Items[:n] {
		if err := b.PutBytes(item); err != nil {
			b.Release()
			return EncodeResult{}, err
		}
	}
	if err := b.PutBytes(m.Command.Suffix); err != nil {
		b.Release()
		return EncodeResult{}, err
	}
	b.Flip()

	result := EncodeResult{Buffer: b, RequestID: requestID, ItemCount: n}
	if n < len(m.Items) {
		result.Continuation = &WriteCommandMessage{
			Command: m.Command,
			Items:   m.Items[n:],
			Limits:  m.Limits,
		}
	}
	return result, nil
}
