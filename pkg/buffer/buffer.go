// Package buffer implements a reference-counted, little-endian byte buffer
// with explicit retain/release ownership, pooled allocation, and a
// non-copying composite view over non-contiguous components.
package buffer

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// Buffer is a reference-counted, cursor-addressed byte container. It is not
// thread-safe; handing a Buffer to another goroutine requires the caller to
// establish its own happens-before edge (e.g. via a channel send).
type Buffer struct {
	data       []byte
	refCount   int32
	pos        int // read/write cursor
	limit      int // write mode: capacity; read mode: readable bound
	writing    bool
	pool       *Pool
	tier       int
	underlying *Buffer // set on duplicates: release forwards to this owner
	readOnly   bool
}

// ErrPrecondition reports a violated buffer precondition (write past
// capacity, read past limit, limit set in write mode).
type ErrPrecondition struct {
	Op  string
	Msg string
}

func (e *ErrPrecondition) Error() string {
	return fmt.Sprintf("buffer precondition violated in %s: %s", e.Op, e.Msg)
}

func newBuffer(size int) *Buffer {
	return &Buffer{
		data:     make([]byte, size),
		refCount: 1,
		writing:  true,
		limit:    size,
	}
}

// Capacity returns the total byte capacity of the backing storage.
func (b *Buffer) Capacity() int { return len(b.data) }

// Position returns the current cursor.
func (b *Buffer) Position() int { return b.pos }

// Limit returns the current mode-dependent bound: capacity while writing,
// the write-filled length while reading.
func (b *Buffer) Limit() int { return b.limit }

// Remaining returns the bytes left to write (write mode) or read (read mode).
func (b *Buffer) Remaining() int { return b.limit - b.pos }

// SetLimit adjusts the readable bound. Only valid in read mode.
func (b *Buffer) SetLimit(n int) error {
	if b.writing {
		return &ErrPrecondition{Op: "SetLimit", Msg: "cannot set limit while in write mode"}
	}
	if n < 0 || n > len(b.data) {
		return &ErrPrecondition{Op: "SetLimit", Msg: "limit out of range"}
	}
	b.limit = n
	if b.pos > n {
		b.pos = n
	}
	return nil
}

// Flip swaps between write and read mode: the write cursor becomes the read
// limit, and the cursor resets to zero.
func (b *Buffer) Flip() *Buffer {
	b.limit = b.pos
	b.pos = 0
	b.writing = false
	return b
}

// Clear resets the buffer to an empty write-mode state without releasing it.
func (b *Buffer) Clear() *Buffer {
	b.pos = 0
	b.limit = len(b.data)
	b.writing = true
	return b
}

// ReferenceCount returns the current retain count.
func (b *Buffer) ReferenceCount() int32 { return atomic.LoadInt32(&b.refCount) }

// Retain increments the reference count and returns the buffer for chaining.
func (b *Buffer) Retain() *Buffer {
	atomic.AddInt32(&b.refCount, 1)
	return b
}

// Release decrements the reference count. Once it reaches zero the buffer
// is returned to its owning pool (if any) and must not be accessed again.
func (b *Buffer) Release() {
	if b.underlying != nil {
		n := atomic.AddInt32(&b.refCount, -1)
		if n < 0 {
			panic("buffer: released past zero reference count")
		}
		if n == 0 {
			b.underlying.Release()
		}
		return
	}
	n := atomic.AddInt32(&b.refCount, -1)
	if n < 0 {
		panic("buffer: released past zero reference count")
	}
	if n == 0 && b.pool != nil {
		b.pool.put(b)
	}
}

func (b *Buffer) checkWrite(n int) error {
	if b.readOnly {
		return &ErrPrecondition{Op: "write", Msg: "buffer is read-only"}
	}
	if !b.writing {
		return &ErrPrecondition{Op: "write", Msg: "buffer is in read mode"}
	}
	if b.pos+n > b.limit {
		return &ErrPrecondition{Op: "write", Msg: "write past capacity"}
	}
	return nil
}

func (b *Buffer) checkRead(n int) error {
	if b.writing {
		return &ErrPrecondition{Op: "read", Msg: "buffer is in write mode"}
	}
	if b.pos+n > b.limit {
		return &ErrPrecondition{Op: "read", Msg: "read past limit"}
	}
	return nil
}

// PutBytes writes b at the cursor, advancing it.
func (b *Buffer) PutBytes(p []byte) error {
	if err := b.checkWrite(len(p)); err != nil {
		return err
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return nil
}

// GetBytes reads n bytes from the cursor into a fresh slice, advancing it.
func (b *Buffer) GetBytes(n int) ([]byte, error) {
	if err := b.checkRead(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b.data[b.pos:b.pos+n])
	b.pos += n
	return out, nil
}

// PutInt32 writes a little-endian int32 at the cursor.
func (b *Buffer) PutInt32(v int32) error {
	if err := b.checkWrite(4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[b.pos:], uint32(v))
	b.pos += 4
	return nil
}

// GetInt32 reads a little-endian int32 from the cursor.
func (b *Buffer) GetInt32() (int32, error) {
	if err := b.checkRead(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(b.data[b.pos:]))
	b.pos += 4
	return v, nil
}

// PutInt64 writes a little-endian int64 at the cursor.
func (b *Buffer) PutInt64(v int64) error {
	if err := b.checkWrite(8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.data[b.pos:], uint64(v))
	b.pos += 8
	return nil
}

// GetInt64 reads a little-endian int64 from the cursor.
func (b *Buffer) GetInt64() (int64, error) {
	if err := b.checkRead(8); err != nil {
		return 0, err
	}
	v := int64(binary.LittleEndian.Uint64(b.data[b.pos:]))
	b.pos += 8
	return v, nil
}

// PutInt32At writes at a fixed index without touching the cursor, e.g. to
// back-patch a length field.
func (b *Buffer) PutInt32At(index int, v int32) error {
	if index < 0 || index+4 > len(b.data) {
		return &ErrPrecondition{Op: "PutInt32At", Msg: "index out of range"}
	}
	binary.LittleEndian.PutUint32(b.data[index:], uint32(v))
	return nil
}

// GetInt32At reads at a fixed index without touching the cursor.
func (b *Buffer) GetInt32At(index int) (int32, error) {
	if index < 0 || index+4 > len(b.data) {
		return 0, &ErrPrecondition{Op: "GetInt32At", Msg: "index out of range"}
	}
	return int32(binary.LittleEndian.Uint32(b.data[index:])), nil
}

// Bytes exposes the readable/written window directly; callers must not
// retain the slice past the buffer's lifetime without copying.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.limit]
}

// Duplicate returns an independent-cursor view over the same storage. The
// owner (or its own ultimate owner) is retained so the shared storage
// outlives every duplicate; Release on a duplicate forwards to the owner.
func (b *Buffer) Duplicate() *Buffer {
	owner := b
	if b.underlying != nil {
		owner = b.underlying
	}
	owner.Retain()
	return &Buffer{
		data:       b.data,
		refCount:   1,
		pos:        b.pos,
		limit:      b.limit,
		writing:    b.writing,
		underlying: owner,
	}
}

// Slice returns a retained duplicate over exactly [b.pos, b.pos+n) of the
// current read-mode window, advancing b's own cursor past it. Used to carve
// the tail of an inbound buffer off for a read that needs fewer bytes than
// the buffer holds.
func (b *Buffer) Slice(n int) (*Buffer, error) {
	if err := b.checkRead(n); err != nil {
		return nil, err
	}
	owner := b
	if b.underlying != nil {
		owner = b.underlying
	}
	owner.Retain()
	s := &Buffer{
		data:       b.data,
		refCount:   1,
		pos:        b.pos,
		limit:      b.pos + n,
		writing:    false,
		underlying: owner,
	}
	b.pos += n
	return s, nil
}

// AsReadOnly returns a duplicate whose PutBytes/PutInt32/PutInt64 calls
// always fail with a precondition violation.
func (b *Buffer) AsReadOnly() *Buffer {
	d := b.Duplicate()
	d.readOnly = true
	return d
}
