// Package bus defines the two-wire bus primitives consumed by the HAL.
package bus

import (
	"errors"
	"time"
)

// Status is the completion status of the last transfer.
type Status uint8

// Status flags.
const (
	StatusReadComplete  Status = 0x01
	StatusWriteComplete Status = 0x02
	StatusError         Status = 0x80
)

var (
	// ErrNack indicates the peer did not acknowledge its address.
	ErrNack = errors.New("bus: address not acknowledged")
	// ErrBusy indicates a transfer is still in flight.
	ErrBusy = errors.New("bus: busy")
)

// Master is the bus master peripheral. A transfer is issued with StartRead
// or StartWrite and its completion is observed through Status.
type Master interface {
	// Start powers up the peripheral.
	Start() error
	// Stop powers down the peripheral.
	Stop() error
	// StartRead issues a read of len(buf) bytes from addr.
	StartRead(addr uint16, buf []byte) error
	// StartWrite issues a write of buf to addr.
	StartWrite(addr uint16, buf []byte) error
	// Status reports completion flags of the last issued transfer.
	Status() Status
	// ReadCount returns the bytes received by the last completed read.
	ReadCount() int
}

// InterruptLine is the edge interrupt signaling the peer has data.
type InterruptLine interface {
	// Start enables the line and registers the handler. If the line is
	// already asserted when started, the handler is invoked once.
	Start(handler func()) error
	// Stop disables the line. The handler is not invoked after Stop returns.
	Stop() error
}

// Delayer blocks for a coarse number of milliseconds.
type Delayer interface {
	DelayMs(ms uint32)
}

// DelayFunc is func form of Delayer.
type DelayFunc func(ms uint32)

// DelayMs implements Delayer.
func (f DelayFunc) DelayMs(ms uint32) {
	f(ms)
}

// SleepDelayer implements Delayer using time.Sleep.
var SleepDelayer Delayer = DelayFunc(func(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
})
