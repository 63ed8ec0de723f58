// Package wire implements the length-prefixed MongoDB-style wire protocol:
// message/reply headers, the request/reply message types, little-endian
// encode/decode, and bulk-write batch splitting (C5).
package wire

import (
	"sync/atomic"

	"github.com/mongowire/core/pkg/buffer"
	"github.com/mongowire/core/pkg/wireerr"
)

// HeaderLen is the fixed size of a message header in bytes.
const HeaderLen = 16

// ReplyHeaderExtraLen is the additional bytes a reply header carries beyond
// the common message header.
const ReplyHeaderExtraLen = 20

// OpCode identifies the wire operation carried by a message.
type OpCode int32

const (
	OpReply       OpCode = 1
	OpQuery       OpCode = 2004
	OpGetMore     OpCode = 2005
	OpInsert      OpCode = 2002
	OpUpdate      OpCode = 2001
	OpDelete      OpCode = 2006
	OpKillCursors OpCode = 2007
	OpCommand     OpCode = 2010 // "command" over query, per §4.5
)

// Header is the 16-byte message header shared by every wire message.
type Header struct {
	Length      int32
	RequestID   int32
	ResponseTo  int32
	OpCode      OpCode
}

// requestIDCounter is the process-wide, monotonically increasing request id
// source described in §3/§6: unique over the counter's lifetime.
var requestIDCounter int32

// NextRequestID allocates the next request id.
func NextRequestID() int32 {
	return atomic.AddInt32(&requestIDCounter, 1)
}

// Encode writes the header to b at the buffer's current write cursor.
func (h Header) Encode(b *buffer.Buffer) error {
	if err := b.PutInt32(h.Length); err != nil {
		return err
	}
	if err := b.PutInt32(h.RequestID); err != nil {
		return err
	}
	if err := b.PutInt32(h.ResponseTo); err != nil {
		return err
	}
	return b.PutInt32(int32(h.OpCode))
}

// DecodeHeader reads a 16-byte header from b at its current read cursor and
// validates that Length lies in [HeaderLen, maxMessageSize].
func DecodeHeader(b *buffer.Buffer, maxMessageSize int32) (Header, error) {
	length, err := b.GetInt32()
	if err != nil {
		return Header{}, err
	}
	requestID, err := b.GetInt32()
	if err != nil {
		return Header{}, err
	}
	responseTo, err := b.GetInt32()
	if err != nil {
		return Header{}, err
	}
	opCode, err := b.GetInt32()
	if err != nil {
		return Header{}, err
	}
	h := Header{Length: length, RequestID: requestID, ResponseTo: responseTo, OpCode: OpCode(opCode)}
	if length < HeaderLen || length > maxMessageSize {
		return h, wireerr.InvalidMessageHeader("length %d out of range [%d, %d]", length, HeaderLen, maxMessageSize)
	}
	return h, nil
}

// ReplyHeader extends Header with the reply-specific fields.
type ReplyHeader struct {
	Header
	ResponseFlags  int32
	CursorID       int64
	StartingFrom   int32
	NumberReturned int32
}

// DecodeReplyHeader reads the 16-byte header and validates it is a reply,
// then reads the 20 trailing reply fields.
func DecodeReplyHeader(b *buffer.Buffer, maxMessageSize int32) (ReplyHeader, error) {
	h, err := DecodeHeader(b, maxMessageSize)
	if err != nil {
		return ReplyHeader{}, wireerr.InvalidReplyHeader("%v", err)
	}
	if h.OpCode != OpReply {
		return ReplyHeader{}, wireerr.InvalidReplyHeader("unexpected op_code %d, want OP_REPLY (%d)", h.OpCode, OpReply)
	}
	flags, err := b.GetInt32()
	if err != nil {
		return ReplyHeader{}, wireerr.InvalidReplyHeader("%v", err)
	}
	cursorID, err := b.GetInt64()
	if err != nil {
		return ReplyHeader{}, wireerr.InvalidReplyHeader("%v", err)
	}
	startingFrom, err := b.GetInt32()
	if err != nil {
		return ReplyHeader{}, wireerr.InvalidReplyHeader("%v", err)
	}
	numberReturned, err := b.GetInt32()
	if err != nil {
		return ReplyHeader{}, wireerr.InvalidReplyHeader("%v", err)
	}
	return ReplyHeader{
		Header:         h,
		ResponseFlags:  flags,
		CursorID:       cursorID,
		StartingFrom:   startingFrom,
		NumberReturned: numberReturned,
	}, nil
}
