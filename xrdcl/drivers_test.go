package xrdcl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHSReaderAssemblesFrameAcrossPartialReads(t *testing.T) {
	sock := &fakeSocket{readSteps: []fakeArrival{
		{data: frame([]byte("payload"))},
	}}
	r := NewHSReader(sock, 4, lenPrefixFramer{}.ParseHeader)

	res := r.Step() // header read and parsed, body still pending
	require.Equal(t, StepProgress, res.Outcome)
	res = r.Step()
	require.Equal(t, StepUnit, res.Outcome)
	msg := r.Take()
	require.Equal(t, "payload", string(msg.Raw[4:]))
}

func TestHSReaderWouldBlockWithNoData(t *testing.T) {
	sock := &fakeSocket{}
	r := NewHSReader(sock, 4, lenPrefixFramer{}.ParseHeader)
	res := r.Step()
	require.Equal(t, StepWouldBlock, res.Outcome)
}

func TestHSReaderFailsOnSocketError(t *testing.T) {
	boom := require.New(t)
	sock := &fakeSocket{readSteps: []fakeArrival{
		{err: errShortHeader},
	}}
	r := NewHSReader(sock, 4, lenPrefixFramer{}.ParseHeader)
	res := r.Step()
	boom.Equal(StepFailed, res.Outcome)
	boom.Equal(StatusSocketError, res.Status.Code)
}

func TestHSWriterDrainsAcrossWouldBlock(t *testing.T) {
	sock := &fakeSocket{writeSteps: []fakeIOStep{
		{n: 2},
		{n: 0, err: ErrWouldBlock},
	}}
	w := NewHSWriter(sock, []byte("abcdef"))

	res := w.Step()
	require.Equal(t, StepProgress, res.Outcome)
	res = w.Step()
	require.Equal(t, StepWouldBlock, res.Outcome)
	res = w.Step() // default accept-all drains the rest
	require.Equal(t, StepUnit, res.Outcome)
}

func TestHSWriterEmptyFrameCompletesImmediately(t *testing.T) {
	sock := &fakeSocket{}
	w := NewHSWriter(sock, nil)
	res := w.Step()
	require.Equal(t, StepUnit, res.Outcome)
}

func TestMsgReaderReportsHeaderCorrupted(t *testing.T) {
	sock := &fakeSocket{readSteps: []fakeArrival{
		{data: []byte{0xFF, 0xFF, 0xFF, 0xFF}},
	}}
	r := NewMsgReader(sock, lenPrefixFramer{})
	res := r.Step()
	require.Equal(t, StepFailed, res.Outcome)
	require.Equal(t, StatusHeaderCorrupted, res.Status.Code)
}

func TestMsgReaderReportsSocketClosed(t *testing.T) {
	sock := &fakeSocket{readSteps: []fakeArrival{
		{err: ErrSocketClosed},
	}}
	r := NewMsgReader(sock, lenPrefixFramer{})
	res := r.Step()
	require.Equal(t, StepFailed, res.Outcome)
	require.Equal(t, StatusSocketError, res.Status.Code)
	require.ErrorIs(t, res.Status.Cause, ErrSocketClosed)
}

func TestMsgWriterIdleVsJustDrainedDistinction(t *testing.T) {
	calls := 0
	var provided []*Message
	next := func() (*Message, bool) {
		calls++
		if len(provided) == 0 {
			return nil, false
		}
		m := provided[0]
		provided = provided[1:]
		return m, true
	}
	sock := &fakeSocket{}
	w := NewMsgWriter(sock, next)

	provided = []*Message{{Raw: frame([]byte("one"))}}
	res := w.Step()
	require.Equal(t, StepUnit, res.Outcome)
	require.False(t, w.Idle(), "just drained a message, should not report idle")

	res = w.Step() // nothing left, should report idle this time
	require.Equal(t, StepUnit, res.Outcome)
	require.True(t, w.Idle())
}

func TestOutboundQueuePushPopFIFO(t *testing.T) {
	q := NewOutboundQueue(2) // rounds to 2
	m1 := &Message{Raw: []byte("a")}
	m2 := &Message{Raw: []byte("b")}
	m3 := &Message{Raw: []byte("c")}

	require.True(t, q.Push(m1))
	require.True(t, q.Push(m2))
	require.False(t, q.Push(m3), "queue should be full at capacity")

	got, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, m1, got)

	require.True(t, q.Push(m3))

	got, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, m2, got)

	got, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, m3, got)

	_, ok = q.Pop()
	require.False(t, ok)
}

func TestOutboundQueueRoundsCapacityUpToPowerOfTwo(t *testing.T) {
	q := NewOutboundQueue(3)
	require.Equal(t, 0, q.Len())
	for i := 0; i < 4; i++ {
		require.True(t, q.Push(&Message{}))
	}
	require.False(t, q.Push(&Message{}), "capacity 3 rounds up to 4, so a 5th push must fail")
}
