//go:build linux
// +build linux

// Package i2cdev implements bus.Master on Linux /dev/i2c-N devices.
package i2cdev

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/robotalks/sh2bridge/pkg/hal/bus"
)

const (
	ioctlI2CRDWR = 0x0707
	flagRead     = 0x0001
)

// i2c_msg in linux/i2c.h.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   unsafe.Pointer
}

// i2c_rdwr_ioctl_data in linux/i2c-dev.h.
type i2cRdwrData struct {
	msgs  unsafe.Pointer
	nmsgs uint32
}

// Master is a bus.Master backed by the i2c-dev kernel driver.
// Transfers complete synchronously inside StartRead/StartWrite.
type Master struct {
	Path string

	lock   sync.Mutex
	fd     int
	status bus.Status
	count  int
}

// New creates a Master for /dev/i2c-<busNum>.
func New(busNum int) *Master {
	return &Master{Path: fmt.Sprintf("/dev/i2c-%d", busNum), fd: -1}
}

// Start implements bus.Master.
func (m *Master) Start() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.fd >= 0 {
		return nil
	}
	fd, err := unix.Open(m.Path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", m.Path, err)
	}
	m.fd, m.status, m.count = fd, 0, 0
	return nil
}

// Stop implements bus.Master.
func (m *Master) Stop() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.fd < 0 {
		return nil
	}
	err := unix.Close(m.fd)
	m.fd = -1
	return err
}

// StartRead implements bus.Master.
func (m *Master) StartRead(addr uint16, buf []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	err := m.rdwr(addr, flagRead, buf)
	m.count = 0
	if err != nil {
		m.status = bus.StatusError
		return err
	}
	m.status, m.count = bus.StatusReadComplete, len(buf)
	return nil
}

// StartWrite implements bus.Master.
func (m *Master) StartWrite(addr uint16, buf []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if err := m.rdwr(addr, 0, buf); err != nil {
		m.status = bus.StatusError
		return err
	}
	m.status = bus.StatusWriteComplete
	return nil
}

// Status implements bus.Master.
func (m *Master) Status() bus.Status {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.status
}

// ReadCount implements bus.Master.
func (m *Master) ReadCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.count
}

func (m *Master) rdwr(addr uint16, flags uint16, buf []byte) error {
	if m.fd < 0 {
		return bus.ErrBusy
	}
	if len(buf) == 0 {
		return nil
	}
	msg := i2cMsg{
		addr:  addr,
		flags: flags,
		len:   uint16(len(buf)),
		buf:   unsafe.Pointer(&buf[0]),
	}
	data := i2cRdwrData{
		msgs:  unsafe.Pointer(&msg),
		nmsgs: 1,
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(m.fd), ioctlI2CRDWR, uintptr(unsafe.Pointer(&data)))
	if errno != 0 {
		if errno == unix.EREMOTEIO || errno == unix.ENXIO {
			return bus.ErrNack
		}
		return errno
	}
	return nil
}
