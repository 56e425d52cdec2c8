package mqtt

import (
	"context"
	"io"
	"sync"
)

// Topics relative to the device prefix.
const (
	TopicFrames = "frames"
	TopicWrite  = "write"
	TopicStatus = "status"
)

// Link implements hostlink.PacketReadWriter over MQTT. Frames are published
// on <prefix><id>/frames, write requests are received on <prefix><id>/write
// and the retained <prefix><id>/status tells whether the bridge is online.
type Link struct {
	Queue    *Queue
	DeviceID string

	packetCh  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewLink creates a Link from a broker URL.
func NewLink(brokerURL, deviceID string) (*Link, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+deviceID+"/"+TopicStatus, []byte("offline"), 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("sh2bridge:" + deviceID)
	}
	l := newLink(NewQueue(opts, topicPrefix), deviceID)
	l.Queue.OnConnect = func(q *Queue) {
		q.PubWith(l.topic(TopicStatus), []byte("online"), 1, true)
	}
	return l, nil
}

func newLink(q *Queue, deviceID string) *Link {
	return &Link{
		Queue:    q,
		DeviceID: deviceID,
		packetCh: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
}

func (l *Link) topic(name string) string {
	return l.DeviceID + "/" + name
}

// Name implements framework.Named.
func (l *Link) Name() string {
	return "mqtt-link"
}

// ReadPacket implements PacketReader.
func (l *Link) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-l.packetCh:
		return pkt, nil
	case <-l.done:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (l *Link) WritePacket(pkt []byte) error {
	token := l.Queue.Pub(l.topic(TopicFrames), pkt)
	token.Wait()
	return token.Error()
}

// Run implements framework.Runnable.
func (l *Link) Run(ctx context.Context) error {
	sub := l.Queue.Sub(l.topic(TopicWrite), Handler(l.handleMsg))
	token := l.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		sub.Close()
		l.Close()
		return err
	}
	select {
	case <-ctx.Done():
	case <-l.done:
	}
	if l.Queue.Client.IsConnected() {
		l.Queue.PubWith(l.topic(TopicStatus), []byte("offline"), 1, true).Wait()
	}
	sub.Close()
	l.Close()
	return ctx.Err()
}

// Close implements io.Closer.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		l.Queue.Close()
	})
	return nil
}

func (l *Link) handleMsg(_ string, payload []byte) {
	select {
	case l.packetCh <- payload:
	case <-l.done:
	}
}
