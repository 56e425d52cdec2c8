package hal

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/sh2bridge/pkg/hal/bus"
	"github.com/robotalks/sh2bridge/pkg/hal/clock"
)

// HAL is the transport contract consumed by the SH-2 protocol stack.
type HAL interface {
	// Open brings up the bus and waits for the peer to signal ready.
	Open() error
	// Close shuts down the bus. It is safe to call at any time.
	Close()
	// Read copies one received frame into buf. It returns 0 when no frame
	// is available or the frame doesn't fit in buf.
	Read(buf []byte) (int, uint32)
	// Write sends buf to the peer. It returns 0 when the bus is not idle.
	Write(buf []byte) (int, error)
	// TimeUs returns the microsecond timestamp.
	TimeUs() uint32
}

// Stats are diagnostic counters of the adapter.
type Stats struct {
	// Frames and Bytes count deliveries to the caller.
	Frames uint64
	Bytes  uint64
	// Discards counts held frames overwritten before delivery.
	Discards uint64
	// Truncations counts frames clamped to MaxTransferIn.
	Truncations uint64
	// TooLarge counts reads rejected because the caller buffer was short.
	TooLarge uint64
	// ReadFailures counts fetches abandoned on a bus timeout.
	ReadFailures uint64
	// WriteFailures counts accepted writes the bus failed to complete.
	WriteFailures uint64
}

// Adapter implements HAL on a bus.Master with an edge interrupt line.
// Read, Write and Fetch must be called from a single goroutine.
type Adapter struct {
	config Config
	master bus.Master
	line   bus.InterruptLine
	clock  *clock.Clock
	delay  bus.Delayer
	xfer   *bus.Transfer

	openLock sync.Mutex
	open     bool
	state    int32

	mbox  mailbox
	txBuf [MaxTransferOut]byte
	stats Stats
}

var _ HAL = (*Adapter)(nil)

// New creates an Adapter.
func New(config Config, master bus.Master, line bus.InterruptLine, clk *clock.Clock) *Adapter {
	a := &Adapter{
		config: config,
		master: master,
		line:   line,
		clock:  clk,
		delay:  bus.SleepDelayer,
	}
	a.xfer = &bus.Transfer{Master: master, Delay: a.delay, Attempts: config.TransferAttempts}
	return a
}

// WithDelayer replaces the coarse delay used by startup and bus polling.
func (a *Adapter) WithDelayer(d bus.Delayer) *Adapter {
	a.delay, a.xfer.Delay = d, d
	return a
}

// State returns the current bus state.
func (a *Adapter) State() State {
	return State(atomic.LoadInt32(&a.state))
}

func (a *Adapter) setState(s State) {
	atomic.StoreInt32(&a.state, int32(s))
}

// IsOpen indicates Open succeeded and Close has not been called.
func (a *Adapter) IsOpen() bool {
	a.openLock.Lock()
	defer a.openLock.Unlock()
	return a.open
}

// Stats returns a snapshot of the counters.
func (a *Adapter) Stats() Stats {
	a.mbox.lock()
	defer a.mbox.unlock()
	return a.stats
}

// TimeUs implements HAL.
func (a *Adapter) TimeUs() uint32 {
	return a.clock.NowUs()
}

// Open implements HAL.
func (a *Adapter) Open() error {
	a.openLock.Lock()
	defer a.openLock.Unlock()
	if a.open {
		return ErrAlreadyOpen
	}
	a.open = true
	a.setState(StateUninitialized)
	a.mbox.lock()
	a.mbox.reset()
	a.mbox.unlock()

	if err := a.clock.Start(); err != nil {
		a.shutdown()
		return fmt.Errorf("start clock: %w", err)
	}
	if err := a.master.Start(); err != nil {
		a.shutdown()
		return fmt.Errorf("start bus: %w", err)
	}
	// The line starts last: a peer already asserting it is seen as ready.
	a.setState(StateIdle)
	if err := a.line.Start(a.handleInterrupt); err != nil {
		a.shutdown()
		return fmt.Errorf("start interrupt: %w", err)
	}

	a.delay.DelayMs(durationMs(a.config.ResetDelay))
	timeout := durationMs(a.config.StartupTimeout)
	for count := uint32(0); !a.peerReady(); count++ {
		if count >= timeout {
			a.shutdown()
			return ErrStartupTimeout
		}
		a.delay.DelayMs(1)
	}
	return nil
}

// Close implements HAL.
func (a *Adapter) Close() {
	a.openLock.Lock()
	defer a.openLock.Unlock()
	a.shutdown()
}

func (a *Adapter) shutdown() {
	a.setState(StateUninitialized)
	if err := a.line.Stop(); err != nil {
		glog.V(3).Infof("sh2hal: stop interrupt: %v", err)
	}
	if err := a.master.Stop(); err != nil {
		glog.V(3).Infof("sh2hal: stop bus: %v", err)
	}
	a.mbox.lock()
	a.mbox.reset()
	a.mbox.unlock()
	a.open = false
}

func (a *Adapter) peerReady() bool {
	a.mbox.lock()
	defer a.mbox.unlock()
	return a.mbox.ready
}

// handleInterrupt runs in interrupt context: no bus access, no buffers.
func (a *Adapter) handleInterrupt() {
	if a.State() == StateUninitialized {
		return
	}
	a.mbox.signal(a.clock.NowUs())
}

// Read implements HAL.
func (a *Adapter) Read(buf []byte) (int, uint32) {
	a.mbox.lock()
	n, frameUs := a.read(buf)
	a.mbox.unlock()
	if a.config.StampAtSignal && n > 0 {
		return n, frameUs
	}
	return n, a.clock.NowUs()
}

func (a *Adapter) read(buf []byte) (int, uint32) {
	m := &a.mbox
	if m.n == 0 {
		if !m.ready || a.State() == StateUninitialized {
			return 0, 0
		}
		a.fetch()
		m.ready = false
		if m.n == 0 {
			return 0, 0
		}
	}
	n, ok := m.deliver(buf)
	if !ok {
		a.stats.TooLarge++
		return 0, 0
	}
	a.stats.Frames++
	a.stats.Bytes += uint64(n)
	return n, m.frameUs
}

// Fetch pulls a signaled frame into the holding buffer without delivering
// it, replacing any frame still held. It returns the size of the fetched
// frame, 0 if nothing was signaled or the bus transfer failed.
func (a *Adapter) Fetch() int {
	a.mbox.lock()
	defer a.mbox.unlock()
	if !a.mbox.ready || a.State() == StateUninitialized {
		return 0
	}
	n := a.fetch()
	a.mbox.ready = false
	return n
}

// fetch reads one framed message into the holding buffer. Requires mask.
func (a *Adapter) fetch() int {
	m := &a.mbox
	if m.latch() {
		a.stats.Discards++
		glog.V(3).Infof("sh2hal: discarded undelivered frame (total %d)", a.stats.Discards)
	}

	a.setState(StateReadingLength)
	if n := a.xfer.Read(a.config.Addr, m.buf[:LengthSize]); n < LengthSize {
		a.stats.ReadFailures++
		glog.V(3).Info("sh2hal: length read failed")
		a.setState(StateIdle)
		return 0
	}
	length := int(binary.LittleEndian.Uint16(m.buf[:LengthSize]) &^ LengthContinuation)

	a.setState(StateLengthKnown)
	if length > MaxTransferIn {
		a.stats.Truncations++
		glog.V(3).Infof("sh2hal: frame of %d bytes truncated to %d", length, MaxTransferIn)
		length = MaxTransferIn
	}

	a.setState(StateReadingPayload)
	if length > 0 {
		if n := a.xfer.Read(a.config.Addr, m.buf[:length]); n < length {
			a.stats.ReadFailures++
			glog.V(3).Infof("sh2hal: payload read failed (%d of %d)", n, length)
			a.setState(StateIdle)
			return 0
		}
	}

	a.setState(StateIdle)
	m.n = length
	return length
}

// Write implements HAL.
func (a *Adapter) Write(buf []byte) (int, error) {
	if len(buf) == 0 || len(buf) > MaxTransferOut {
		return 0, ErrBadParam
	}
	a.mbox.lock()
	defer a.mbox.unlock()
	if a.State() != StateIdle {
		return 0, nil
	}

	a.setState(StateWriting)
	n := copy(a.txBuf[:], buf)
	written := a.xfer.Write(a.config.Addr, a.txBuf[:n])
	a.setState(StateIdle)
	if written < n {
		a.stats.WriteFailures++
		glog.V(3).Infof("sh2hal: write of %d bytes failed", n)
		return 0, nil
	}
	return n, nil
}
