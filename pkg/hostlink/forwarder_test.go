package hostlink

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/sh2bridge/pkg/hal/clock"
	"github.com/robotalks/sh2bridge/pkg/hostlink/msgs"
	"github.com/robotalks/sh2bridge/pkg/sh2/hal"
	"github.com/robotalks/sh2bridge/pkg/sim"
)

type chanLink struct {
	in  chan []byte
	out chan []byte
}

func newChanLink() *chanLink {
	return &chanLink{in: make(chan []byte, 4), out: make(chan []byte, 16)}
}

func (l *chanLink) ReadPacket() ([]byte, error) {
	pkt, ok := <-l.in
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

func (l *chanLink) WritePacket(pkt []byte) error {
	l.out <- append([]byte(nil), pkt...)
	return nil
}

func (l *chanLink) recv(t *testing.T) *msgs.Frame {
	select {
	case pkt := <-l.out:
		frame, err := msgs.DecodeFrame(pkt)
		require.NoError(t, err)
		return frame
	case <-time.After(time.Second):
		t.Fatal("no packet from forwarder")
	}
	return nil
}

func newForwarder(config hal.Config) (*Forwarder, *sim.Peer, *chanLink, *hal.Adapter) {
	peer := sim.NewPeer(config.Addr)
	adapter := hal.New(config, peer, peer.Line(), clock.New(clock.NewManualCounter(1000)))
	link := newChanLink()
	f := NewForwarder(adapter, link)
	f.OpenRetry = 10 * time.Millisecond
	return f, peer, link, adapter
}

func runForwarder(f *Forwarder) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.Run(ctx) }()
	return cancel, errCh
}

func TestForwarderFrames(t *testing.T) {
	f, peer, link, adapter := newForwarder(hal.DefaultConfig)
	peer.SendFrame([]byte{0, 1, 1}, false)
	cancel, errCh := runForwarder(f)

	frame := link.recv(t)
	require.Equal(t, []byte{0, 1, 1}, frame.Payload)
	require.Nil(t, frame.Ack)

	peer.SendFrame([]byte{1, 2, 3}, true)
	frame = link.recv(t)
	require.Equal(t, []byte{1, 2, 3}, frame.Payload)
	require.Zero(t, frame.Discards)

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
	require.False(t, adapter.IsOpen())
}

func TestForwarderWrites(t *testing.T) {
	f, peer, link, _ := newForwarder(hal.DefaultConfig)
	peer.SendFrame([]byte{0}, false)
	cancel, errCh := runForwarder(f)
	defer cancel()
	link.recv(t)

	pkt, err := (&msgs.Frame{Seq: 7, Payload: []byte{9, 9}}).Encode()
	require.NoError(t, err)
	link.in <- pkt
	frame := link.recv(t)
	require.NotNil(t, frame.Ack)
	require.Equal(t, uint32(7), frame.Ack.Seq)
	require.Equal(t, uint32(2), frame.Ack.Written)
	require.Empty(t, frame.Ack.Error)
	require.Equal(t, [][]byte{{9, 9}}, peer.Writes())

	pkt, err = (&msgs.Frame{Seq: 8}).Encode()
	require.NoError(t, err)
	link.in <- pkt
	frame = link.recv(t)
	require.Equal(t, uint32(8), frame.Ack.Seq)
	require.Zero(t, frame.Ack.Written)
	require.Equal(t, hal.ErrBadParam.Error(), frame.Ack.Error)

	// garbage is skipped, the link keeps working
	link.in <- []byte{0xff, 0xff, 0xff}
	close(link.in)
	require.Equal(t, io.EOF, <-errCh)
}

func TestForwarderOpenRetry(t *testing.T) {
	config := hal.DefaultConfig
	config.StartupTimeout = 20 * time.Millisecond
	f, peer, link, _ := newForwarder(config)
	cancel, errCh := runForwarder(f)
	defer cancel()

	time.Sleep(50 * time.Millisecond)
	peer.SendFrame([]byte{5}, false)
	frame := link.recv(t)
	require.Equal(t, []byte{5}, frame.Payload)
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestForwarderOpenCanceled(t *testing.T) {
	config := hal.DefaultConfig
	config.StartupTimeout = 10 * time.Millisecond
	f, _, _, adapter := newForwarder(config)
	cancel, errCh := runForwarder(f)
	time.Sleep(30 * time.Millisecond)
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
	require.False(t, adapter.IsOpen())
}
