package hal

import "sync"

// mailbox is the single-slot exchange between the interrupt handler and the
// polling context. Holding mask is the equivalent of masking the interrupt:
// a signal raised meanwhile completes right after unmask.
type mailbox struct {
	mask sync.Mutex

	// set by signal, cleared by the polling context after a fetch.
	ready    bool
	signalUs uint32

	// holding buffer, n > 0 means a complete frame waits for delivery.
	buf     [MaxTransferIn]byte
	n       int
	frameUs uint32
}

// signal is the interrupt side. It never touches the holding buffer.
func (m *mailbox) signal(ts uint32) {
	m.mask.Lock()
	m.ready, m.signalUs = true, ts
	m.mask.Unlock()
}

func (m *mailbox) lock() {
	m.mask.Lock()
}

func (m *mailbox) unlock() {
	m.mask.Unlock()
}

// The following require mask held.

func (m *mailbox) reset() {
	m.ready, m.signalUs = false, 0
	m.n, m.frameUs = 0, 0
}

// latch prepares the holding buffer for a new frame signaled at the last
// interrupt and reports whether an undelivered frame was dropped.
func (m *mailbox) latch() (dropped bool) {
	dropped = m.n > 0
	m.n, m.frameUs = 0, m.signalUs
	return
}

// deliver copies the held frame to dst if it fits entirely.
func (m *mailbox) deliver(dst []byte) (int, bool) {
	if m.n > len(dst) {
		return 0, false
	}
	n := copy(dst, m.buf[:m.n])
	m.n = 0
	return n, true
}
