package wire

import (
	"testing"

	"github.com/mongowire/core/pkg/buffer"
	"github.com/mongowire/core/pkg/wireerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	pool := buffer.NewPool()
	b := pool.Get(HeaderLen)
	h := Header{Length: 32, RequestID: 7, ResponseTo: 0, OpCode: OpQuery}
	require.NoError(t, h.Encode(b))
	b.Flip()

	got, err := DecodeHeader(b, 48*1024*1024)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestInvalidReplyHeaderOpCode(t *testing.T) {
	pool := buffer.NewPool()
	b := pool.Get(HeaderLen)
	h := Header{Length: 16, RequestID: 1, ResponseTo: 1, OpCode: OpCode(50361199)}
	require.NoError(t, h.Encode(b))
	b.Flip()

	_, err := DecodeReplyHeader(b, 48*1024*1024)
	require.Error(t, err)
	var werr *wireerr.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, wireerr.CodeInvalidReplyHeader, werr.Code)
}

func TestDecodeReplyResponseToMismatch(t *testing.T) {
	pool := buffer.NewPool()
	b := pool.Get(64)
	h := ReplyHeader{
		Header:         Header{Length: 36, RequestID: 1, ResponseTo: 99, OpCode: OpReply},
		ResponseFlags:  0,
		CursorID:       0,
		StartingFrom:   0,
		NumberReturned: 0,
	}
	require.NoError(t, h.Header.Encode(b))
	require.NoError(t, b.PutInt32(h.ResponseFlags))
	require.NoError(t, b.PutInt64(h.CursorID))
	require.NoError(t, b.PutInt32(h.StartingFrom))
	require.NoError(t, b.PutInt32(h.NumberReturned))
	b.Flip()

	_, err := DecodeReply(b, 48*1024*1024, 1, NewRawBSONCodec())
	require.Error(t, err)
	var werr *wireerr.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, wireerr.CodeInvalidReply, werr.Code)
}

func TestBatchSplittingIsLossless(t *testing.T) {
	pool := buffer.NewPool()
	items := make([][]byte, 0, 50)
	for i := 0; i < 50; i++ {
		items = append(items, make([]byte, 1000)) // 50 x 1000 = 50000 bytes
	}
	msg := WriteCommandMessage{
		Command: CommandEnvelope{Prefix: []byte("PFX"), Suffix: []byte("SFX")},
		Items:   items,
		Limits:  Limits{MaxDocumentSize: 16 * 1024 * 1024, MaxMessageSize: 16*1024*1024 + 16, MaxBatchCount: 10},
	}

	var physicalCounts []int
	cur := &msg
	for {
		res, err := cur.Encode(pool)
		require.NoError(t, err)
		physicalCounts = append(physicalCounts, res.ItemCount)
		res.Buffer.Release()
		if res.Continuation == nil {
			break
		}
		cur = res.Continuation
	}

	sum := 0
	for _, c := range physicalCounts {
		sum += c
	}
	assert.Equal(t, len(items), sum)
	assert.GreaterOrEqual(t, len(physicalCounts), 5) // MaxBatchCount=10 forces >=5 messages for 50 items
}

func TestSimpleMessageEncodeWritesTotalLength(t *testing.T) {
	pool := buffer.NewPool()
	payload := []byte("hello-payload")
	msg := SimpleMessage{OpCode: OpQuery, Payload: payload}
	b, _, err := msg.Encode(pool)
	require.NoError(t, err)
	defer b.Release()

	length, err := b.GetInt32At(0)
	require.NoError(t, err)
	assert.EqualValues(t, HeaderLen+len(payload), length)
}
