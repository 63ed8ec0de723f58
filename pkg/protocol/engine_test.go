package protocol

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/mongowire/core/pkg/buffer"
	"github.com/mongowire/core/pkg/debug"
	"github.com/mongowire/core/pkg/stream"
	"github.com/mongowire/core/pkg/wire"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts one connection and, for every incoming message,
// writes back a scripted OP_REPLY carrying respDoc (already raw-BSON
// encoded by the caller) and echoing the request id as response_to.
func fakeServer(t *testing.T, respDoc []byte) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		hdr := make([]byte, wire.HeaderLen)
		for {
			if _, err := readFull(c, hdr); err != nil {
				return
			}
			length := int32(hdr[0]) | int32(hdr[1])<<8 | int32(hdr[2])<<16 | int32(hdr[3])<<24
			requestID := int32(hdr[4]) | int32(hdr[5])<<8 | int32(hdr[6])<<16 | int32(hdr[7])<<24
			rest := make([]byte, int(length)-wire.HeaderLen)
			if _, err := readFull(c, rest); err != nil {
				return
			}

			reply := encodeReply(requestID, respDoc)
			if _, err := c.Write(reply); err != nil {
				return
			}
		}
	}()
	return ln.Addr().String(), func() { ln.Close() }
}

func readFull(c net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := c.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func le32(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func le64(v int64) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24), byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56)}
}

// encodeReply hand-assembles a minimal OP_REPLY carrying exactly one
// "document" (wire.DecodeReply reads each document's size from its leading
// int32, so respDoc must start with its own int32 length prefix to
// round-trip correctly).
func encodeReply(responseTo int32, respDoc []byte) []byte {
	body := append(le32(0), le64(0)...)          // response_flags, cursor_id
	body = append(body, le32(0)...)              // starting_from
	body = append(body, le32(1)...)               // number_returned
	body = append(body, respDoc...)
	length := int32(wire.HeaderLen + len(body))
	head := append(le32(length), le32(1)...)     // length, request_id
	head = append(head, le32(responseTo)...)      // response_to
	head = append(head, le32(int32(wire.OpReply))...)
	return append(head, body...)
}

func rawDoc(fields map[string]interface{}) []byte {
	// The test codec (scriptedCodec below) only looks at the byte after the
	// length prefix, so encode nothing more than a length prefix plus a tag
	// byte distinguishing ok/not-ok replies.
	payload := []byte{0}
	if v, ok := fields["ok"]; ok {
		if b, ok := v.(bool); ok && b {
			payload[0] = 1
		}
	}
	full := make([]byte, 4+len(payload))
	copy(full[:4], le32(int32(len(full))))
	copy(full[4:], payload)
	return full
}

// scriptedCodec decodes the one-byte tag rawDoc produces back into an
// {"ok": ...} document so classify() can see it, standing in for a real
// BSON decoder in these tests.
type scriptedCodec struct{}

func (scriptedCodec) EncodeDocument(doc interface{}) ([]byte, error) {
	if b, ok := doc.([]byte); ok {
		return b, nil
	}
	return nil, nil
}

func (scriptedCodec) DecodeDocument(data []byte) (map[string]interface{}, error) {
	tag := byte(0)
	if len(data) > 4 {
		tag = data[4]
	}
	return map[string]interface{}{"ok": tag == 1}, nil
}

func (scriptedCodec) DocumentSize(data []byte) int32 { return int32(len(data)) }

func TestEngineExecuteSuccess(t *testing.T) {
	addr, stop := fakeServer(t, rawDoc(map[string]interface{}{"ok": true}))
	defer stop()

	pool := buffer.NewPool()
	s := stream.New(addr, pool, debug.New(debug.Off, 0, nil), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Open(stream.Operation{Context: ctx}))
	defer s.Close()

	eng := New(s, scriptedCodec{}, pool, wire.Limits{MaxMessageSize: 48 * 1024 * 1024}, nil, nil, nil)
	reply, err := eng.Execute(stream.Operation{Context: ctx}, wire.SimpleMessage{OpCode: wire.OpQuery, Payload: []byte("query-payload")})
	require.NoError(t, err)
	require.Len(t, reply.Documents, 1)
}

func TestEngineExecuteCommandFailure(t *testing.T) {
	addr, stop := fakeServer(t, rawDoc(map[string]interface{}{"ok": false}))
	defer stop()

	pool := buffer.NewPool()
	s := stream.New(addr, pool, debug.New(debug.Off, 0, nil), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Open(stream.Operation{Context: ctx}))
	defer s.Close()

	eng := New(s, scriptedCodec{}, pool, wire.Limits{MaxMessageSize: 48 * 1024 * 1024}, nil, nil, nil)
	_, err := eng.Execute(stream.Operation{Context: ctx}, wire.SimpleMessage{OpCode: wire.OpCommand, Payload: []byte("cmd-payload")})
	require.Error(t, err)
}
