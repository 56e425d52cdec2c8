package hal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMailboxLatch(t *testing.T) {
	var m mailbox
	m.signal(42)
	require.True(t, m.ready)

	m.lock()
	defer m.unlock()
	require.False(t, m.latch())
	require.Equal(t, uint32(42), m.frameUs)
	m.n = 3
	require.True(t, m.latch())
	require.Zero(t, m.n)
}

func TestMailboxDeliver(t *testing.T) {
	var m mailbox
	copy(m.buf[:], []byte{1, 2, 3})
	m.n = 3

	dst := make([]byte, 2)
	n, ok := m.deliver(dst)
	require.False(t, ok)
	require.Zero(t, n)
	require.Equal(t, 3, m.n)

	dst = make([]byte, 3)
	n, ok = m.deliver(dst)
	require.True(t, ok)
	require.Equal(t, 3, n)
	require.Equal(t, []byte{1, 2, 3}, dst)
	require.Zero(t, m.n)
}

func TestMailboxReset(t *testing.T) {
	var m mailbox
	m.signal(7)
	m.lock()
	m.n = 9
	m.reset()
	m.unlock()
	require.False(t, m.ready)
	require.Zero(t, m.n)
	require.Zero(t, m.signalUs)
}
