//go:build linux
// +build linux

// Package gpio implements bus.InterruptLine on Linux sysfs GPIOs.
package gpio

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

const (
	// pollTimeoutMs bounds how long Stop waits for the watcher.
	pollTimeoutMs = 100
	// DefaultRetryDelay is the wait before reopening a failed value file.
	DefaultRetryDelay = 100 * time.Millisecond
)

// Line watches the falling edge of an active-low sysfs GPIO.
// A failing value file is reopened after RetryDelay; the last failure is
// reported by Stop.
type Line struct {
	Pin        int
	Root       string
	RetryDelay time.Duration

	// runLock serializes Start and Stop.
	runLock sync.Mutex
	lock    sync.Mutex
	fd      int
	err     error
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Line for the GPIO pin number.
func New(pin int) *Line {
	return &Line{Pin: pin, Root: "/sys/class/gpio", RetryDelay: DefaultRetryDelay, fd: -1}
}

func (l *Line) pinDir() string {
	return filepath.Join(l.Root, "gpio"+strconv.Itoa(l.Pin))
}

func (l *Line) export() error {
	if _, err := os.Stat(l.pinDir()); err == nil {
		return nil
	}
	return ioutil.WriteFile(filepath.Join(l.Root, "export"), []byte(strconv.Itoa(l.Pin)), 0644)
}

// openValue opens the value file and reads the current level.
func (l *Line) openValue() (int, bool, error) {
	fd, err := unix.Open(filepath.Join(l.pinDir(), "value"), unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, false, fmt.Errorf("gpio%d value: %w", l.Pin, err)
	}
	asserted, err := readLevel(fd)
	if err != nil {
		unix.Close(fd)
		return -1, false, fmt.Errorf("gpio%d value: %w", l.Pin, err)
	}
	l.lock.Lock()
	l.fd = fd
	l.lock.Unlock()
	return fd, asserted, nil
}

// Start implements bus.InterruptLine.
func (l *Line) Start(handler func()) error {
	l.runLock.Lock()
	defer l.runLock.Unlock()
	l.lock.Lock()
	running := l.stopCh != nil
	l.lock.Unlock()
	if running {
		return nil
	}
	if err := l.export(); err != nil {
		return fmt.Errorf("export gpio%d: %w", l.Pin, err)
	}
	dir := l.pinDir()
	if err := ioutil.WriteFile(filepath.Join(dir, "direction"), []byte("in"), 0644); err != nil {
		return fmt.Errorf("gpio%d direction: %w", l.Pin, err)
	}
	if err := ioutil.WriteFile(filepath.Join(dir, "edge"), []byte("falling"), 0644); err != nil {
		return fmt.Errorf("gpio%d edge: %w", l.Pin, err)
	}
	fd, asserted, err := l.openValue()
	if err != nil {
		return err
	}
	l.lock.Lock()
	l.err = nil
	l.stopCh, l.doneCh = make(chan struct{}), make(chan struct{})
	go l.watch(handler, fd, asserted, l.stopCh, l.doneCh)
	l.lock.Unlock()
	return nil
}

// Stop implements bus.InterruptLine. It returns the last failure of the
// watcher, if any.
func (l *Line) Stop() error {
	l.runLock.Lock()
	defer l.runLock.Unlock()
	l.lock.Lock()
	stopCh, doneCh := l.stopCh, l.doneCh
	l.stopCh, l.doneCh = nil, nil
	l.lock.Unlock()
	if stopCh == nil {
		return nil
	}
	close(stopCh)
	<-doneCh
	l.lock.Lock()
	defer l.lock.Unlock()
	err := l.err
	l.err, l.fd = nil, -1
	return err
}

func (l *Line) retryDelay() time.Duration {
	if l.RetryDelay <= 0 {
		return DefaultRetryDelay
	}
	return l.RetryDelay
}

func (l *Line) fail(err error) {
	glog.Errorf("gpio%d: %v", l.Pin, err)
	l.lock.Lock()
	l.err = err
	l.lock.Unlock()
}

// readLevel reads the value file, which also acknowledges a pending edge.
func readLevel(fd int) (bool, error) {
	var buf [2]byte
	n, err := unix.Pread(fd, buf[:], 0)
	if err != nil {
		return false, err
	}
	return n > 0 && buf[0] == '0', nil
}

// poll waits for an edge and reports the level after it.
func poll(fd int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLPRI | unix.POLLERR}}
	n, err := unix.Poll(fds, pollTimeoutMs)
	switch {
	case err == unix.EINTR:
		return false, nil
	case err != nil:
		return false, err
	case n == 0:
		return false, nil
	case fds[0].Revents&unix.POLLNVAL != 0:
		return false, unix.EBADF
	case fds[0].Revents&unix.POLLPRI == 0:
		return false, nil
	}
	return readLevel(fd)
}

func (l *Line) watch(handler func(), fd int, asserted bool, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer func() {
		if fd >= 0 {
			unix.Close(fd)
		}
	}()
	for {
		if asserted {
			handler()
		}
		select {
		case <-stopCh:
			return
		default:
		}
		var err error
		if asserted, err = poll(fd); err == nil {
			continue
		}
		l.fail(err)
		if err != unix.EBADF {
			unix.Close(fd)
		}
		// a level already low after reopening counts as an edge.
		for fd = -1; fd < 0; {
			select {
			case <-stopCh:
				return
			case <-time.After(l.retryDelay()):
			}
			if fd, asserted, err = l.openValue(); err != nil {
				l.fail(err)
			}
		}
	}
}
