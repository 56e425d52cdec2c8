package hal

import (
	"time"

	"github.com/robotalks/sh2bridge/pkg/hal/bus"
)

// Fixed transport limits.
const (
	// DefaultAddr is the 7-bit bus address of the sensor hub.
	DefaultAddr uint16 = 0x4A
	// MaxTransferIn is the capacity of the receive holding buffer.
	MaxTransferIn = 1024
	// MaxTransferOut is the largest accepted Write.
	MaxTransferOut = 128
	// LengthSize is the size of the length prefix of a frame.
	LengthSize = 2
	// LengthContinuation is the continuation flag in the length prefix.
	LengthContinuation uint16 = 0x8000
)

// Config defines the transport parameters.
type Config struct {
	// Addr is the peer address.
	Addr uint16
	// ResetDelay is waited after bring-up before watching for the peer.
	ResetDelay time.Duration
	// StartupTimeout bounds the wait for the first peer-ready signal.
	StartupTimeout time.Duration
	// TransferAttempts is the completion poll budget of one bus transfer.
	TransferAttempts int
	// StampAtSignal makes Read return the timestamp latched by the
	// interrupt of the delivered frame instead of the delivery time.
	StampAtSignal bool
}

// DefaultConfig is the configuration of the SH-2 hub on its default address.
var DefaultConfig = Config{
	Addr:             DefaultAddr,
	ResetDelay:       10 * time.Millisecond,
	StartupTimeout:   2000 * time.Millisecond,
	TransferAttempts: bus.DefaultAttempts,
}

func durationMs(d time.Duration) uint32 {
	return uint32(d / time.Millisecond)
}
