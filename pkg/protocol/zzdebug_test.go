package protocol

import (
	"fmt"
	"testing"
	"context"
	"time"
	"net"
	"github.com/mongowire/core/pkg/buffer"
	"github.com/mongowire/core/pkg/debug"
	"github.com/mongowire/core/pkg/stream"
	"github.com/mongowire/core/pkg/wire"
)

func dbgAckWriteServer(t *testing.T, gleReplyDoc []byte) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil { t.Fatal(err) }

	go func() {
		c, err := ln.Accept()
		if err != nil { fmt.Println("accept err", err); return }
		defer c.Close()
		hdr := make([]byte, wire.HeaderLen)

		if _, err := readFull(c, hdr); err != nil { fmt.Println("read1 err", err); return }
		length := decodeLE32(hdr[:4])
		fmt.Println("msg1 length", length, "hdrlen", wire.HeaderLen)
		rest := make([]byte, int(length)-wire.HeaderLen)
		if _, err := readFull(c, rest); err != nil { fmt.Println("read1rest err", err); return }
		fmt.Println("msg1 body", string(rest))

		if _, err := readFull(c, hdr); err != nil { fmt.Println("read2 err", err); return }
		length = decodeLE32(hdr[:4])
		requestID := decodeLE32(hdr[4:8])
		fmt.Println("msg2 length", length)
		rest = make([]byte, int(length)-wire.HeaderLen)
		if _, err := readFull(c, rest); err != nil { fmt.Println("read2rest err", err); return }
		fmt.Println("msg2 body", string(rest))
		n, err := c.Write(encodeReply(requestID, gleReplyDoc))
		fmt.Println("wrote reply", n, err)
	}()
	return ln.Addr().String(), func() { ln.Close() }
}

func TestDebugAckWrite2(t *testing.T) {
	gleReply := jsonDoc(map[string]interface{}{"ok": 1})
	addr, stop := dbgAckWriteServer(t, gleReply)
	defer stop()

	pool := buffer.NewPool()
	s := stream.New(addr, pool, debug.New(debug.Off, 0, nil), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Open(stream.Operation{Context: ctx}); err != nil { t.Fatal(err) }
	defer s.Close()

	eng := New(s, jsonDocCodec{}, pool, wire.Limits{MaxMessageSize: 48*1024*1024}, nil, nil, nil)
	gle := wire.SimpleMessage{OpCode: wire.OpQuery, Payload: []byte("getlasterror")}
	reply, err := eng.AcknowledgedWrite(stream.Operation{Context: ctx}, AckWriteRequest{
		Write:        wire.SimpleMessage{OpCode: wire.OpInsert, Payload: []byte("insert-payload")},
		GetLastError: &gle,
	})
	fmt.Println("err", err, "reply", reply)
	time.Sleep(100*time.Millisecond)
}
