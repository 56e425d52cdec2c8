package hostlink

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sh2bridge/pkg/hostlink/msgs"
	"github.com/robotalks/sh2bridge/pkg/sh2/hal"
)

// Forwarder defaults.
const (
	DefaultPollInterval  = time.Millisecond
	DefaultOpenRetry     = time.Second
	DefaultWriteAttempts = 3
)

// StatsProvider exposes adapter counters.
type StatsProvider interface {
	Stats() hal.Stats
}

// Forwarder bridges a HAL and a host link: frames read from the HAL are
// sent to the host, frames received from the host are written to the HAL.
// The HAL is only accessed from the goroutine calling Run.
type Forwarder struct {
	HAL           hal.HAL
	Link          PacketReadWriter
	PollInterval  time.Duration
	OpenRetry     time.Duration
	WriteAttempts int
}

// NewForwarder creates a Forwarder with defaults.
func NewForwarder(h hal.HAL, link PacketReadWriter) *Forwarder {
	return &Forwarder{
		HAL:           h,
		Link:          link,
		PollInterval:  DefaultPollInterval,
		OpenRetry:     DefaultOpenRetry,
		WriteAttempts: DefaultWriteAttempts,
	}
}

// Name implements framework.Named.
func (f *Forwarder) Name() string {
	return "forwarder"
}

// Run implements framework.Runnable.
func (f *Forwarder) Run(ctx context.Context) error {
	defer f.closeLink()
	if err := f.open(ctx); err != nil {
		return err
	}
	defer f.HAL.Close()
	glog.Info("sensor hub ready")

	reqCh, errCh := make(chan *msgs.Frame, 1), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.readLoop(subCtx, reqCh, errCh)

	ticker := time.NewTicker(f.pollInterval())
	defer ticker.Stop()
	buf := make([]byte, hal.MaxTransferIn)
	for {
		if err := f.forward(buf); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case req := <-reqCh:
			if err := f.write(req); err != nil {
				return err
			}
		case <-ticker.C:
		}
	}
}

func (f *Forwarder) pollInterval() time.Duration {
	if f.PollInterval > 0 {
		return f.PollInterval
	}
	return DefaultPollInterval
}

func (f *Forwarder) open(ctx context.Context) error {
	for {
		err := f.HAL.Open()
		if err != hal.ErrStartupTimeout {
			return err
		}
		glog.Warningf("sensor hub not responding, retry in %s", f.OpenRetry)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.OpenRetry):
		}
	}
}

// forward sends all frames available from the HAL.
func (f *Forwarder) forward(buf []byte) error {
	for {
		n, ts := f.HAL.Read(buf)
		if n == 0 {
			return nil
		}
		frame := &msgs.Frame{TimestampUs: ts, Payload: buf[:n]}
		if sp, ok := f.HAL.(StatsProvider); ok {
			frame.Discards = sp.Stats().Discards
		}
		pkt, err := frame.Encode()
		if err != nil {
			return err
		}
		glog.V(2).Infof("FRM %d bytes at %d", n, ts)
		if err := f.Link.WritePacket(pkt); err != nil {
			return err
		}
	}
}

func (f *Forwarder) write(req *msgs.Frame) error {
	ack := &msgs.Ack{Seq: req.Seq}
	attempts := f.WriteAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		n, err := f.HAL.Write(req.Payload)
		if err != nil {
			ack.Error = err.Error()
			break
		}
		if n > 0 {
			ack.Written = uint32(n)
			break
		}
		time.Sleep(f.pollInterval())
	}
	glog.V(2).Infof("WRT seq=%d %d/%d bytes", req.Seq, ack.Written, len(req.Payload))
	pkt, err := (&msgs.Frame{TimestampUs: f.HAL.TimeUs(), Ack: ack}).Encode()
	if err != nil {
		return err
	}
	return f.Link.WritePacket(pkt)
}

func (f *Forwarder) readLoop(ctx context.Context, reqCh chan<- *msgs.Frame, errCh chan<- error) {
	for {
		pkt, err := f.Link.ReadPacket()
		if err != nil {
			errCh <- err
			return
		}
		req, err := msgs.DecodeFrame(pkt)
		if err != nil {
			glog.Warningf("invalid packet from host: %v", err)
			continue
		}
		select {
		case reqCh <- req:
		case <-ctx.Done():
			return
		}
	}
}

func (f *Forwarder) closeLink() {
	if closer, ok := f.Link.(io.Closer); ok {
		closer.Close()
	}
}
