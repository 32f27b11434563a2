//go:build linux

package netpoller

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// eventsToKinds and setBit are the only parts of this package that don't
// depend on a live epoll instance; the rest (NewEPoller, AddSocket, the
// run/tick goroutines) needs real file descriptors to exercise.

func TestEventsToKindsPlainReadWrite(t *testing.T) {
	read, write := eventsToKinds(unix.EPOLLIN)
	require.True(t, read)
	require.False(t, write)

	read, write = eventsToKinds(unix.EPOLLOUT)
	require.False(t, read)
	require.True(t, write)

	read, write = eventsToKinds(unix.EPOLLIN | unix.EPOLLOUT)
	require.True(t, read)
	require.True(t, write)
}

func TestEventsToKindsHangupAndErrorMeanBothDirections(t *testing.T) {
	read, write := eventsToKinds(unix.EPOLLHUP)
	require.True(t, read)
	require.True(t, write)

	read, write = eventsToKinds(unix.EPOLLERR)
	require.True(t, read)
	require.True(t, write)

	// Even paired with EPOLLIN only, a hangup still means "both directions".
	read, write = eventsToKinds(unix.EPOLLIN | unix.EPOLLHUP)
	require.True(t, read)
	require.True(t, write)
}

func TestEventsToKindsNothingReady(t *testing.T) {
	read, write := eventsToKinds(0)
	require.False(t, read)
	require.False(t, write)
}

func TestSetBitTogglesMask(t *testing.T) {
	var mask uint32
	setBit(&mask, unix.EPOLLIN, true)
	require.Equal(t, uint32(unix.EPOLLIN), mask)

	setBit(&mask, unix.EPOLLOUT, true)
	require.Equal(t, uint32(unix.EPOLLIN|unix.EPOLLOUT), mask)

	setBit(&mask, unix.EPOLLIN, false)
	require.Equal(t, uint32(unix.EPOLLOUT), mask)
}
