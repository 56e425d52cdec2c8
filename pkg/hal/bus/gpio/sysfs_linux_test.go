//go:build linux
// +build linux

package gpio

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newTestLine(t *testing.T, level string) (*Line, string) {
	root, err := ioutil.TempDir("", "gpio")
	require.NoError(t, err)
	dir := filepath.Join(root, "gpio17")
	require.NoError(t, os.Mkdir(dir, 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "value"), []byte(level+"\n"), 0644))
	l := New(17)
	l.Root = root
	return l, root
}

func TestLineConfiguresEdge(t *testing.T) {
	l, root := newTestLine(t, "1")
	defer os.RemoveAll(root)

	calls := make(chan struct{}, 1)
	require.NoError(t, l.Start(func() { calls <- struct{}{} }))
	edge, err := ioutil.ReadFile(filepath.Join(root, "gpio17", "edge"))
	require.NoError(t, err)
	require.Equal(t, "falling", string(edge))
	dir, err := ioutil.ReadFile(filepath.Join(root, "gpio17", "direction"))
	require.NoError(t, err)
	require.Equal(t, "in", string(dir))

	select {
	case <-calls:
		t.Fatal("handler invoked on deasserted line")
	case <-time.After(150 * time.Millisecond):
	}
	require.NoError(t, l.Stop())
	require.NoError(t, l.Stop())
}

func TestLineAssertedAtStart(t *testing.T) {
	l, root := newTestLine(t, "0")
	defer os.RemoveAll(root)

	calls := make(chan struct{}, 1)
	require.NoError(t, l.Start(func() { calls <- struct{}{} }))
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("handler not invoked for asserted line")
	}
	require.NoError(t, l.Stop())
}

func TestLineReopensFailedValue(t *testing.T) {
	l, root := newTestLine(t, "1")
	defer os.RemoveAll(root)
	l.RetryDelay = 10 * time.Millisecond

	calls := make(chan struct{}, 1)
	require.NoError(t, l.Start(func() { calls <- struct{}{} }))
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "gpio17", "value"), []byte("0\n"), 0644))

	// invalidate the watched descriptor.
	l.lock.Lock()
	fd := l.fd
	l.lock.Unlock()
	require.NoError(t, unix.Close(fd))

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("handler not invoked after reopening")
	}
	err := l.Stop()
	require.Error(t, err)
	require.Equal(t, unix.EBADF, err)
	require.NoError(t, l.Stop())
}
