// Package sim provides a simulated sensor hub on the two-wire bus.
package sim

import (
	"encoding/binary"
	"sync"

	"github.com/robotalks/sh2bridge/pkg/hal/bus"
)

const continuationFlag uint16 = 0x8000

type frame struct {
	header  []byte
	payload []byte
}

// Peer is an in-memory sensor hub implementing bus.Master and
// bus.InterruptLine. Every queued frame is served by two read
// transactions: the 2-byte length prefix, then the payload.
type Peer struct {
	Addr uint16

	// callLock serializes handler calls with the line's Start and Stop.
	callLock   sync.Mutex
	lock       sync.Mutex
	started    bool
	handler    func()
	frames     []frame
	inPayload  bool
	failReads  int
	failBodies int
	failWrites int
	status     bus.Status
	count      int
	reads      int
	writes     [][]byte
}

var (
	_ bus.Master        = (*Peer)(nil)
	_ bus.InterruptLine = (*peerLine)(nil)
)

// NewPeer creates a Peer answering on addr.
func NewPeer(addr uint16) *Peer {
	return &Peer{Addr: addr}
}

// Line returns the interrupt line side of the peer.
func (p *Peer) Line() bus.InterruptLine {
	return (*peerLine)(p)
}

// SendFrame queues payload with a length prefix computed from its size and
// raises the interrupt.
func (p *Peer) SendFrame(payload []byte, more bool) {
	length := uint16(len(payload)) &^ continuationFlag
	if more {
		length |= continuationFlag
	}
	header := make([]byte, 2)
	binary.LittleEndian.PutUint16(header, length)
	p.SendRaw(header, payload)
}

// SendRaw queues a frame with an explicit length prefix and raises the
// interrupt.
func (p *Peer) SendRaw(header, payload []byte) {
	p.lock.Lock()
	p.frames = append(p.frames, frame{
		header:  append([]byte(nil), header...),
		payload: append([]byte(nil), payload...),
	})
	p.lock.Unlock()
	p.Signal()
}

// Signal raises the interrupt if the line is enabled.
func (p *Peer) Signal() {
	p.callLock.Lock()
	defer p.callLock.Unlock()
	p.lock.Lock()
	handler := p.handler
	p.lock.Unlock()
	if handler != nil {
		handler()
	}
}

// FailReads makes the next n read transactions never complete. A failed
// payload read drops the frame.
func (p *Peer) FailReads(n int) {
	p.lock.Lock()
	p.failReads = n
	p.lock.Unlock()
}

// FailPayloads makes the next n payload reads never complete, dropping
// their frames.
func (p *Peer) FailPayloads(n int) {
	p.lock.Lock()
	p.failBodies = n
	p.lock.Unlock()
}

// FailWrites makes the next n write transactions never complete.
func (p *Peer) FailWrites(n int) {
	p.lock.Lock()
	p.failWrites = n
	p.lock.Unlock()
}

// Pending returns the number of queued frames.
func (p *Peer) Pending() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.frames)
}

// Reads returns the number of read transactions issued.
func (p *Peer) Reads() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.reads
}

// Writes returns copies of the completed writes.
func (p *Peer) Writes() [][]byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	writes := make([][]byte, len(p.writes))
	copy(writes, p.writes)
	return writes
}

// Start implements bus.Master.
func (p *Peer) Start() error {
	p.lock.Lock()
	p.started = true
	p.lock.Unlock()
	return nil
}

// Stop implements bus.Master.
func (p *Peer) Stop() error {
	p.lock.Lock()
	p.started, p.status = false, 0
	p.lock.Unlock()
	return nil
}

// StartRead implements bus.Master.
func (p *Peer) StartRead(addr uint16, buf []byte) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.started {
		return bus.ErrBusy
	}
	p.reads++
	p.count = 0
	if addr != p.Addr {
		p.status = bus.StatusError
		return bus.ErrNack
	}
	if p.failReads > 0 || (p.inPayload && p.failBodies > 0) {
		if p.failReads > 0 {
			p.failReads--
		} else {
			p.failBodies--
		}
		p.status = 0
		if p.inPayload {
			p.popFrame()
		}
		return nil
	}
	for i := range buf {
		buf[i] = 0
	}
	if len(p.frames) > 0 {
		f := p.frames[0]
		if p.inPayload {
			copy(buf, f.payload)
			p.popFrame()
		} else {
			copy(buf, f.header)
			length := binary.LittleEndian.Uint16(f.header) &^ continuationFlag
			if length == 0 {
				p.popFrame()
			} else {
				p.inPayload = true
			}
		}
	}
	p.status, p.count = bus.StatusReadComplete, len(buf)
	return nil
}

func (p *Peer) popFrame() {
	p.frames = p.frames[1:]
	p.inPayload = false
}

// StartWrite implements bus.Master.
func (p *Peer) StartWrite(addr uint16, buf []byte) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.started {
		return bus.ErrBusy
	}
	if addr != p.Addr {
		p.status = bus.StatusError
		return bus.ErrNack
	}
	if p.failWrites > 0 {
		p.failWrites--
		p.status = 0
		return nil
	}
	p.writes = append(p.writes, append([]byte(nil), buf...))
	p.status = bus.StatusWriteComplete
	return nil
}

// Status implements bus.Master.
func (p *Peer) Status() bus.Status {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.status
}

// ReadCount implements bus.Master.
func (p *Peer) ReadCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.count
}

// peerLine is the bus.InterruptLine view of a Peer.
type peerLine Peer

// Start implements bus.InterruptLine.
func (l *peerLine) Start(handler func()) error {
	p := (*Peer)(l)
	p.callLock.Lock()
	defer p.callLock.Unlock()
	p.lock.Lock()
	p.handler = handler
	asserted := len(p.frames) > 0
	p.lock.Unlock()
	if asserted {
		handler()
	}
	return nil
}

// Stop implements bus.InterruptLine. It waits for a handler call in
// progress.
func (l *peerLine) Stop() error {
	p := (*Peer)(l)
	p.callLock.Lock()
	defer p.callLock.Unlock()
	p.lock.Lock()
	p.handler = nil
	p.lock.Unlock()
	return nil
}
