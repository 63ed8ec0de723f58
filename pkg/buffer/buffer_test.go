package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetainReleasePreservesCount(t *testing.T) {
	p := NewPool()
	b := p.Get(16)
	require.EqualValues(t, 1, b.ReferenceCount())

	b.Retain()
	require.EqualValues(t, 2, b.ReferenceCount())

	b.Release()
	require.EqualValues(t, 1, b.ReferenceCount())

	b.Release()
	require.EqualValues(t, 0, b.ReferenceCount())
}

func TestReleasePastZeroPanics(t *testing.T) {
	p := NewPool()
	b := p.Get(16)
	b.Release()
	assert.Panics(t, func() { b.Release() })
}

func TestFlipAndReadWrite(t *testing.T) {
	p := NewPool()
	b := p.Get(16)
	require.NoError(t, b.PutInt32(42))
	require.NoError(t, b.PutBytes([]byte("hi")))

	b.Flip()
	assert.Equal(t, 6, b.Limit())
	assert.Equal(t, 0, b.Position())

	v, err := b.GetInt32()
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)

	s, err := b.GetBytes(2)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(s))
}

func TestWritePastCapacityFails(t *testing.T) {
	p := NewPool()
	b := p.Get(4)
	err := b.PutBytes([]byte("12345"))
	var pe *ErrPrecondition
	assert.ErrorAs(t, err, &pe)
}

func TestReadPastLimitFails(t *testing.T) {
	p := NewPool()
	b := p.Get(4)
	require.NoError(t, b.PutBytes([]byte("ab")))
	b.Flip()
	_, err := b.GetBytes(3)
	var pe *ErrPrecondition
	assert.ErrorAs(t, err, &pe)
}

func TestSetLimitWhileWritingFails(t *testing.T) {
	p := NewPool()
	b := p.Get(4)
	err := b.SetLimit(2)
	var pe *ErrPrecondition
	assert.ErrorAs(t, err, &pe)
}

func TestDuplicateSharesStorageIndependentCursor(t *testing.T) {
	p := NewPool()
	b := p.Get(8)
	require.NoError(t, b.PutBytes([]byte("abcdefgh")))
	b.Flip()

	d := b.Duplicate()
	_, err := d.GetBytes(4)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Position(), "original cursor must be untouched by duplicate reads")
	assert.Equal(t, 4, d.Position())

	d.Release()
}

func TestCompositeRemainingIsSumOfComponents(t *testing.T) {
	p := NewPool()
	a := p.Get(4)
	require.NoError(t, a.PutBytes([]byte("ab")))
	a.Flip()

	b := p.Get(4)
	require.NoError(t, b.PutBytes([]byte("cd")))
	b.Flip()

	c := NewComposite(a, b)
	assert.Equal(t, 4, c.Remaining())
	assert.Equal(t, "abcd", string(c.Bytes()))

	c.Release()
	assert.EqualValues(t, 0, a.ReferenceCount())
	assert.EqualValues(t, 0, b.ReferenceCount())
}

func TestPoolGetAfterReleaseResetsRefCount(t *testing.T) {
	p := NewPool()
	b := p.Get(100)
	b.Release()

	b2 := p.Get(100)
	_, _, misses := p.Stats()
	assert.GreaterOrEqual(t, misses, int64(0))
	assert.EqualValues(t, 1, b2.ReferenceCount())
}
