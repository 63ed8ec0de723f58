package debug

import (
	"testing"

	"github.com/mongowire/core/pkg/wireerr"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingIndexHandlesNegativeOffsets(t *testing.T) {
	for _, size := range []int{2, 3, 5, 8} {
		for i := -20; i < 20; i++ {
			idx := ringIndex(i, size)
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, size)
		}
	}
}

func TestNegativeReadReportsDebuggingWithExactMessage(t *testing.T) {
	c := NewIOCounters()
	err := c.FailedRead(-17)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Detected an attempt to read negative number of bytes, numberOfBytes=-17")
	_, _, _, _, _, _, negs, _, _ := c.Values()
	assert.EqualValues(t, 1, negs)
}

func TestConcurrentPendingReadersViolatesOrder(t *testing.T) {
	log, _ := test.NewNullLogger()
	d := New(LogAndThrow, 4, log)

	require.NoError(t, d.RecordStreamOp(StreamOpRead, Begin, func(error) {}, nil))

	var aborted bool
	errFromCB := func(err error) { aborted = err != nil }
	err := d.RecordStreamOp(StreamOpRead, Begin, errFromCB, nil)
	require.Error(t, err)

	var debugErr *wireerr.Error
	require.ErrorAs(t, err, &debugErr)
	abort, raiseErr := d.Report(debugErr, errFromCB)
	assert.True(t, abort)
	assert.NoError(t, raiseErr)
	assert.True(t, aborted)
}

func TestCloseAlwaysPermittedAfterEndFailure(t *testing.T) {
	log, _ := test.NewNullLogger()
	d := New(Log, 4, log)

	require.NoError(t, d.RecordStreamOp(StreamOpRead, Begin, nil, nil))
	require.NoError(t, d.RecordStreamOp(StreamOpRead, EndFailure, nil, assertError{}))
	// CLOSE is always permitted, even right after an EndFailure.
	require.NoError(t, d.RecordStreamOp(StreamOpClose, Begin, nil, nil))
}

type assertError struct{}

func (assertError) Error() string { return "boom" }

func TestOffModeNeverReports(t *testing.T) {
	d := New(Off, 4, logrus.StandardLogger())
	assert.Nil(t, d.Counters())
	require.NoError(t, d.RecordStreamOp(StreamOpRead, Begin, nil, nil))
	require.NoError(t, d.RecordStreamOp(StreamOpRead, Begin, nil, nil)) // would violate if enabled
}
