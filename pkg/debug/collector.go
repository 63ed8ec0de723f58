package debug

// StreamCollector records stream-level events (OPEN/READ/WRITE/CLOSE) and
// enforces the event-order predicate from the core: concurrent pending I/O
// and operations issued after a latched failure are forbidden, except that
// CLOSE may interleave with anything in either direction.
type StreamCollector struct {
	r *ring
}

// NewStreamCollector builds a collector with the given ring size (>= 2).
func NewStreamCollector(size int) *StreamCollector {
	return &StreamCollector{r: newRing(size)}
}

// Record stores the event and reports whether it legally follows the
// previously recorded event. callback != nil marks the operation as async
// for autodetection purposes; code is a StreamOp value.
func (c *StreamCollector) Record(code StreamOp, typ EventType, callback interface{}, attachments ...interface{}) (ok bool, violation *Event) {
	mode := Sync
	if callback != nil {
		mode = Async
	}
	prevSlot, newSlot := c.r.advance(mode, int(code), typ, attachments)
	prev := c.r.previous(prevSlot)
	if canFollow(prev, &c.r.events[newSlot]) {
		return true, nil
	}
	return false, prev
}

// Snapshot exposes the recorded history for enriched error messages.
func (c *StreamCollector) Snapshot() []Event { return c.r.snapshot() }

// canFollow implements the event-order table from the core:
//
//	uninitialized  -> N.Type == Begin
//	Begin          -> N.Type in {EndSuccess, EndFailure} and N.Code == P.Code
//	EndSuccess     -> N.Type == Begin
//	EndFailure     -> only CLOSE (always valid)
//	P.Code == CLOSE or N.Code == CLOSE -> always valid
func canFollow(prev, next *Event) bool {
	if prev == nil {
		return next.Type == Begin
	}
	if StreamOp(prev.Code) == StreamOpClose || StreamOp(next.Code) == StreamOpClose {
		return true
	}
	switch prev.Type {
	case Begin:
		return (next.Type == EndSuccess || next.Type == EndFailure) && next.Code == prev.Code
	case EndSuccess:
		return next.Type == Begin
	case EndFailure:
		return false // already excluded CLOSE above
	default:
		return next.Type == Begin
	}
}

// ConnectionCollector records connection-level events (COMMAND,
// DECODE_MESSAGE_HEADER, DECODE_REPLY_HEADER, DECODE_REPLY). Unlike
// StreamCollector it does not enforce ordering: these operations
// legitimately interleave with stream operations and with each other.
type ConnectionCollector struct {
	r *ring
}

// NewConnectionCollector builds a collector with the given ring size (>= 2).
func NewConnectionCollector(size int) *ConnectionCollector {
	return &ConnectionCollector{r: newRing(size)}
}

// Record stores the event unconditionally; code is a ConnectionOp value.
func (c *ConnectionCollector) Record(code ConnectionOp, typ EventType, callback interface{}, attachments ...interface{}) {
	mode := Sync
	if callback != nil {
		mode = Async
	}
	c.r.advance(mode, int(code), typ, attachments)
}

// Snapshot exposes the recorded history for enriched error messages.
func (c *ConnectionCollector) Snapshot() []Event { return c.r.snapshot() }
