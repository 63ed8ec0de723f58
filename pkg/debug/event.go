package debug

// OpMode classifies whether an event's operation was driven by a blocking
// call (no completion callback) or a callback-based one. A collector
// autodetects this from the presence of a completion callback at the call
// site; it is never supplied explicitly by the caller.
type OpMode int

const (
	Unknown OpMode = iota
	Sync
	Async
)

func (m OpMode) String() string {
	switch m {
	case Sync:
		return "SYNC"
	case Async:
		return "ASYNC"
	default:
		return "UNKNOWN"
	}
}

// StreamOp enumerates the stream-level operations the StreamCollector tracks.
type StreamOp int

const (
	StreamOpOpen StreamOp = iota
	StreamOpRead
	StreamOpWrite
	StreamOpClose
)

func (c StreamOp) String() string {
	switch c {
	case StreamOpOpen:
		return "OPEN"
	case StreamOpRead:
		return "READ"
	case StreamOpWrite:
		return "WRITE"
	case StreamOpClose:
		return "CLOSE"
	default:
		return "STREAM_UNKNOWN"
	}
}

// ConnectionOp enumerates the connection-level operations the
// ConnectionCollector tracks.
type ConnectionOp int

const (
	ConnOpCommand ConnectionOp = iota
	ConnOpDecodeMessageHeader
	ConnOpDecodeReplyHeader
	ConnOpDecodeReply
)

func (c ConnectionOp) String() string {
	switch c {
	case ConnOpCommand:
		return "COMMAND"
	case ConnOpDecodeMessageHeader:
		return "DECODE_MESSAGE_HEADER"
	case ConnOpDecodeReplyHeader:
		return "DECODE_REPLY_HEADER"
	case ConnOpDecodeReply:
		return "DECODE_REPLY"
	default:
		return "CONN_UNKNOWN"
	}
}

// EventType is the begin/end phase of a recorded operation.
type EventType int

const (
	TypeUninitialized EventType = iota
	Begin
	EndSuccess
	EndFailure
)

func (t EventType) String() string {
	switch t {
	case Begin:
		return "BEGIN"
	case EndSuccess:
		return "END_SUCCESS"
	case EndFailure:
		return "END_FAILURE"
	default:
		return "UNINITIALIZED"
	}
}

// Event is a single recorded operation. Collectors reuse Event values in
// place inside their ring buffer rather than allocating one per call.
type Event struct {
	Mode        OpMode
	Code        int // StreamOp or ConnectionOp, interpreted per collector
	Type        EventType
	Attachments []interface{}
}

func (e *Event) reset(mode OpMode, code int, typ EventType, attachments []interface{}) {
	e.Mode = mode
	e.Code = code
	e.Type = typ
	e.Attachments = attachments
}
