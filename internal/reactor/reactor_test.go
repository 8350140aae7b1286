package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// pair returns a connected non-blocking socket pair.
func pair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestPollReportsReadable(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	defer r.Close()

	a, b := pair(t)
	require.NoError(t, r.Add(a, EventRead))

	events, err := r.Poll(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, events, "nothing written yet")

	_, err = unix.Write(b, []byte("ping"))
	require.NoError(t, err)

	events, err = r.Poll(time.Second)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, a, events[0].FD)
	assert.NotZero(t, events[0].Mask&EventRead)
}

func TestModAndDel(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	defer r.Close()

	a, b := pair(t)
	require.NoError(t, r.Add(a, EventRead))
	unix.Write(b, []byte("x"))

	// Drop read interest: the pending byte must not wake us.
	require.NoError(t, r.Mod(a, EventWrite))
	events, err := r.Poll(10 * time.Millisecond)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotZero(t, events[0].Mask&EventWrite, "socket is writable")
	assert.Zero(t, events[0].Mask&EventRead)

	require.NoError(t, r.Del(a))
	events, err = r.Poll(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestTimerFires(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	defer r.Close()

	fired := 0
	r.SetTimer(func() { fired++ }, 20*time.Millisecond)

	deadline := time.Now().Add(500 * time.Millisecond)
	for fired < 2 && time.Now().Before(deadline) {
		_, err := r.Poll(100 * time.Millisecond)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, fired, 2, "timer should fire repeatedly")
}

func TestConnReadWrite(t *testing.T) {
	a, b := pair(t)
	conn := NewConn(a)

	unix.Write(b, []byte("*1\r\n$4\r\nPING\r\n"))
	require.True(t, conn.HandleRead())
	assert.Equal(t, "*1\r\n$4\r\nPING\r\n", string(conn.In().Peek()))

	// Nothing more to read: EAGAIN keeps the connection alive.
	require.True(t, conn.HandleRead())

	conn.Out().Append([]byte("+PONG\r\n"))
	require.True(t, conn.HandleWrite())
	assert.Equal(t, 0, conn.Out().ReadableBytes())

	buf := make([]byte, 64)
	n, err := unix.Read(b, buf)
	require.NoError(t, err)
	assert.Equal(t, "+PONG\r\n", string(buf[:n]))
}

func TestConnReadEOF(t *testing.T) {
	a, b := pair(t)
	conn := NewConn(a)

	unix.Close(b)
	assert.False(t, conn.HandleRead(), "peer close reads as EOF")
}

func TestConnInterestFlags(t *testing.T) {
	conn := NewConn(-1)
	assert.Equal(t, EventRead, conn.DesiredMask()&EventRead)

	conn.SetWantWrite(true)
	assert.NotZero(t, conn.DesiredMask()&EventWrite)

	conn.SetWantRead(false)
	conn.SetWantWrite(false)
	assert.Zero(t, conn.DesiredMask())
}
