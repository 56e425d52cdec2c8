package clock

import (
	"errors"
	"sync"
	"time"
)

// DefaultPeriod is the wrap period of TickerCounter in microseconds.
const DefaultPeriod uint32 = 10000

// ErrRunning indicates the counter is already started.
var ErrRunning = errors.New("counter already running")

// TickerCounter is a hosted Counter driven by time.Ticker.
type TickerCounter struct {
	PeriodUs uint32

	lock   sync.Mutex
	start  time.Time
	wraps  int64
	wrapAt time.Time
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewTickerCounter creates a TickerCounter with DefaultPeriod.
func NewTickerCounter() *TickerCounter {
	return &TickerCounter{PeriodUs: DefaultPeriod}
}

// Period implements Counter.
func (t *TickerCounter) Period() uint32 {
	if t.PeriodUs == 0 {
		return DefaultPeriod
	}
	return t.PeriodUs
}

// Start implements Counter.
func (t *TickerCounter) Start(overflow func()) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.stopCh != nil {
		return ErrRunning
	}
	t.stopCh, t.doneCh = make(chan struct{}), make(chan struct{})
	t.start, t.wraps = time.Now(), 0
	t.wrapAt = t.start
	go t.run(overflow, t.stopCh, t.doneCh)
	return nil
}

// Stop implements Counter.
func (t *TickerCounter) Stop() error {
	t.lock.Lock()
	stopCh, doneCh := t.stopCh, t.doneCh
	t.stopCh, t.doneCh = nil, nil
	t.lock.Unlock()
	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}
	return nil
}

// Value implements Counter.
func (t *TickerCounter) Value() uint32 {
	t.lock.Lock()
	wrapAt := t.wrapAt
	t.lock.Unlock()
	if wrapAt.IsZero() {
		return 0
	}
	return uint32(time.Since(wrapAt) / time.Microsecond)
}

func (t *TickerCounter) run(overflow func(), stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	period := time.Duration(t.Period()) * time.Microsecond
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
		// The ticker drops ticks while overflow is slow, so wraps are
		// counted from the start time rather than from received ticks.
		for {
			t.lock.Lock()
			due := int64(time.Since(t.start) / period)
			if t.wraps >= due {
				t.lock.Unlock()
				break
			}
			t.lock.Unlock()
			overflow()
			t.lock.Lock()
			t.wraps++
			t.wrapAt = t.start.Add(time.Duration(t.wraps) * period)
			t.lock.Unlock()
		}
	}
}

// ManualCounter is a Counter advanced explicitly, for tests and simulation.
type ManualCounter struct {
	PeriodUs uint32

	lock     sync.Mutex
	value    uint32
	overflow func()
}

// NewManualCounter creates a ManualCounter with the given period.
func NewManualCounter(period uint32) *ManualCounter {
	return &ManualCounter{PeriodUs: period}
}

// Period implements Counter.
func (m *ManualCounter) Period() uint32 {
	if m.PeriodUs == 0 {
		return DefaultPeriod
	}
	return m.PeriodUs
}

// Start implements Counter.
func (m *ManualCounter) Start(overflow func()) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.overflow != nil {
		return ErrRunning
	}
	m.overflow = overflow
	return nil
}

// Stop implements Counter.
func (m *ManualCounter) Stop() error {
	m.lock.Lock()
	m.overflow = nil
	m.lock.Unlock()
	return nil
}

// Value implements Counter.
func (m *ManualCounter) Value() uint32 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.value
}

// Advance moves the counter forward, firing one overflow per wrap.
// Nothing happens while the counter is stopped.
func (m *ManualCounter) Advance(us uint32) {
	for us > 0 {
		m.lock.Lock()
		overflow := m.overflow
		if overflow == nil {
			m.lock.Unlock()
			return
		}
		step := m.Period() - m.value
		if us < step {
			m.value += us
			m.lock.Unlock()
			return
		}
		us -= step
		m.value = 0
		m.lock.Unlock()
		overflow()
	}
}
