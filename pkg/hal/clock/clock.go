// Package clock provides the monotonic microsecond time source.
package clock

import "sync"

// Counter is a free running hardware counter which wraps every Period
// microseconds and raises an overflow interrupt when it does.
type Counter interface {
	// Start starts counting and registers the overflow handler.
	Start(overflow func()) error
	// Stop stops counting.
	Stop() error
	// Value returns the microseconds elapsed since the last wrap.
	Value() uint32
	// Period returns the wrap period in microseconds.
	Period() uint32
}

// Clock combines a Counter with an accumulator advanced on every overflow.
type Clock struct {
	counter Counter

	lock    sync.Mutex
	acc     uint64
	last    uint64
	running bool
}

// New creates a Clock on top of a Counter.
func New(counter Counter) *Clock {
	return &Clock{counter: counter}
}

// Start starts the underlying counter. Starting a running clock is a no-op.
func (c *Clock) Start() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.running {
		return nil
	}
	if err := c.counter.Start(c.overflow); err != nil {
		return err
	}
	c.running = true
	return nil
}

// Stop stops the underlying counter. The accumulated time is kept so
// timestamps stay monotonic across restarts.
func (c *Clock) Stop() error {
	c.lock.Lock()
	if !c.running {
		c.lock.Unlock()
		return nil
	}
	c.running = false
	c.lock.Unlock()
	return c.counter.Stop()
}

func (c *Clock) overflow() {
	c.lock.Lock()
	c.acc += uint64(c.counter.Period())
	c.lock.Unlock()
}

// Now returns the 64-bit microsecond timestamp.
func (c *Clock) Now() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	sub, period := c.counter.Value(), c.counter.Period()
	if period > 0 && sub >= period {
		// overflow interrupt not serviced yet.
		sub = period - 1
	}
	now := c.acc + uint64(sub)
	if now < c.last {
		now = c.last
	}
	c.last = now
	return now
}

// NowUs returns the 32-bit microsecond timestamp used by the HAL contract.
func (c *Clock) NowUs() uint32 {
	return uint32(c.Now())
}
