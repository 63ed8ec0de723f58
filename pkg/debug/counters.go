package debug

import "sync"

// StreamReadPosition is an immutable snapshot of the two counters that must
// be read together consistently: how many bytes have actually arrived over
// the wire, and how many of those bytes the codec has accounted for inside
// decoded message lengths.
type StreamReadPosition struct {
	SuccessfulReadBytes      int64
	SumOfDecodedMessageLengths int64
}

// IOCounters is the mutex-guarded set of monotonic per-connection counters
// described by the core: mutex-guarded rather than atomic because the read
// position snapshot must be consistent across two fields at once.
type IOCounters struct {
	mu sync.Mutex

	successfulReads      int64
	successfulReadBytes  int64
	messageHeaderCount   int64
	decodedMessageLength int64
	failedReads          int64
	failedReadBytes      int64
	failedNegativeReads  int64
	successfulWrites     int64
	failedWrites         int64
}

// NewIOCounters constructs a zeroed counter set.
func NewIOCounters() *IOCounters { return &IOCounters{} }

// SucceededRead records one successful read of n bytes. Must be called
// exactly once per successful read operation (see DESIGN.md Open Question
// #2 — the source's double-count is not reproduced here).
func (c *IOCounters) SucceededRead(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successfulReads++
	c.successfulReadBytes += int64(n)
}

// FailedRead records a failed read attempt. A negative byte count is a
// logic error on the caller's part and is reported via the returned error
// rather than silently counted as an ordinary failure.
func (c *IOCounters) FailedRead(numberOfBytes int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if numberOfBytes < 0 {
		c.failedNegativeReads++
		return negativeReadError(numberOfBytes)
	}
	c.failedReads++
	c.failedReadBytes += int64(numberOfBytes)
	return nil
}

// DecodedMessage records a fully read message header and its decoded
// length, used by DECODE_MESSAGE_HEADER bookkeeping.
func (c *IOCounters) DecodedMessage(length int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messageHeaderCount++
	c.decodedMessageLength += int64(length)
}

// SucceededWrite records a successful write.
func (c *IOCounters) SucceededWrite() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successfulWrites++
}

// FailedWrite records a failed write.
func (c *IOCounters) FailedWrite() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedWrites++
}

// Snapshot captures the read-position pair atomically under the counter lock.
func (c *IOCounters) Snapshot() StreamReadPosition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return StreamReadPosition{
		SuccessfulReadBytes:        c.successfulReadBytes,
		SumOfDecodedMessageLengths: c.decodedMessageLength,
	}
}

// Values returns every counter at once, for diagnostics and tests.
func (c *IOCounters) Values() (successfulReads, successfulReadBytes, messageHeaders, decodedMessageLength, failedReads, failedReadBytes, failedNegativeReads, successfulWrites, failedWrites int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.successfulReads, c.successfulReadBytes, c.messageHeaderCount, c.decodedMessageLength,
		c.failedReads, c.failedReadBytes, c.failedNegativeReads, c.successfulWrites, c.failedWrites
}
