package wire

import (
	"github.com/mongowire/core/pkg/buffer"
	"github.com/mongowire/core/pkg/wireerr"
)

// Reply is a fully decoded OP_REPLY message: its header plus the requested
// number of BSON documents.
type Reply struct {
	Header    ReplyHeader
	Documents []map[string]interface{}
}

// DecodeReply reads a reply header from b, confirms it answers
// expectedRequestID, and decodes NumberReturned documents with codec. Any
// structural problem surfaces as the appropriate InvalidReplyHeader /
// InvalidReply error, matching §4.5's decode contract.
func DecodeReply(b *buffer.Buffer, maxMessageSize int32, expectedRequestID int32, codec BSONCodec) (Reply, error) {
	h, err := DecodeReplyHeader(b, maxMessageSize)
	if err != nil {
		return Reply{}, err
	}
	if h.ResponseTo != expectedRequestID {
		return Reply{}, wireerr.InvalidReply("response_to %d does not match awaited request id %d", h.ResponseTo, expectedRequestID)
	}

	docs := make([]map[string]interface{}, 0, h.NumberReturned)
	for i := int32(0); i < h.NumberReturned; i++ {
		size, err := b.GetInt32At(b.Position())
		if err != nil {
			return Reply{}, wireerr.InvalidReply("failed reading document %d/%d size: %v", i+1, h.NumberReturned, err)
		}
		raw, err := b.GetBytes(int(size))
		if err != nil {
			return Reply{}, wireerr.InvalidReply("failed reading document %d/%d body: %v", i+1, h.NumberReturned, err)
		}
		doc, err := codec.DecodeDocument(raw)
		if err != nil {
			return Reply{}, wireerr.InvalidReply("failed decoding document %d/%d: %v", i+1, h.NumberReturned, err)
		}
		docs = append(docs, doc)
	}
	return Reply{Header: h, Documents: docs}, nil
}

// CursorID returns the server cursor id carried by the reply, used by the
// get-more-discard protocol to decide whether to keep draining.
func (r Reply) CursorID() int64 { return r.Header.CursorID }
