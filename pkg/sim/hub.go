package sim

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sh2bridge/pkg/framework"
)

// SHTP channels used by the hub.
const (
	ChannelCommand = 0
	ChannelReports = 3
)

// Report identifiers.
const (
	ReportTimebase        = 0xFB
	ReportGameRotationVec = 0x08
)

const (
	shtpHeaderSize       = 4
	timebaseSize         = 5
	rotationSize         = 12
	defaultHubInterval   = 10 * time.Millisecond
	defaultHubMaxPending = 8
	defaultHubRate       = 1.0
)

// advertisement is a minimal SHTP advertisement body: tag/length/value
// triples naming the reports channel.
var advertisement = []byte{
	0x00, 0x01, 0x01,          // guarantee
	0x08, 0x03, 'r', 'p', 't', // channel name
	0x01, 0x01, ChannelReports,
}

// Hub drives a Peer like a sensor hub reporting a game rotation vector
// spinning around the vertical axis.
type Hub struct {
	Peer       *Peer
	Interval   time.Duration
	MaxPending int
	// Rate is the rotation per report in degrees.
	Rate       float64

	seq     [8]byte
	count   uint32
	heading Angle
}

var _ framework.Runnable = (*Hub)(nil)

// NewHub creates a Hub on peer.
func NewHub(peer *Peer) *Hub {
	return &Hub{
		Peer:       peer,
		Interval:   defaultHubInterval,
		MaxPending: defaultHubMaxPending,
		Rate:       defaultHubRate,
	}
}

// Name implements framework.Named.
func (h *Hub) Name() string {
	return "sim-hub"
}

// Packet builds an SHTP packet on channel and advances its sequence number.
func (h *Hub) Packet(channel byte, body []byte) []byte {
	pkt := make([]byte, shtpHeaderSize+len(body))
	binary.LittleEndian.PutUint16(pkt, uint16(len(pkt)))
	pkt[2] = channel
	pkt[3] = h.seq[channel&7]
	h.seq[channel&7]++
	copy(pkt[shtpHeaderSize:], body)
	return pkt
}

// Send queues an SHTP packet. The length prefix read by the host is the
// packet's own header; the payload read returns the whole packet again.
func (h *Hub) Send(channel byte, body []byte) {
	pkt := h.Packet(channel, body)
	h.Peer.SendRaw(pkt[:2], pkt)
}

// Report builds the next game rotation vector report body.
func (h *Hub) Report() []byte {
	body := make([]byte, timebaseSize+rotationSize)
	body[0] = ReportTimebase
	binary.LittleEndian.PutUint32(body[1:], uint32(h.Interval/time.Microsecond))
	r := body[timebaseSize:]
	r[0] = ReportGameRotationVec
	r[1] = byte(h.count)
	r[2] = 3 // accuracy: high
	for i, v := range Yaw(h.heading).Q14() {
		binary.LittleEndian.PutUint16(r[4+i*2:], uint16(v))
	}
	h.count++
	h.heading = h.heading.AddDegrees(h.Rate)
	return body
}

// DecodeRotation extracts the game rotation vector from an SHTP packet on
// the reports channel, skipping a leading timebase report.
func DecodeRotation(pkt []byte) (Quaternion, bool) {
	if len(pkt) < shtpHeaderSize || pkt[2] != ChannelReports {
		return Quaternion{}, false
	}
	length := int(binary.LittleEndian.Uint16(pkt) &^ continuationFlag)
	if length < shtpHeaderSize || length > len(pkt) {
		return Quaternion{}, false
	}
	body := pkt[shtpHeaderSize:length]
	for len(body) > 0 {
		switch body[0] {
		case ReportTimebase:
			if len(body) < timebaseSize {
				return Quaternion{}, false
			}
			body = body[timebaseSize:]
		case ReportGameRotationVec:
			if len(body) < rotationSize {
				return Quaternion{}, false
			}
			var v [4]int16
			for i := range v {
				v[i] = int16(binary.LittleEndian.Uint16(body[4+i*2:]))
			}
			return FromQ14(v), true
		default:
			return Quaternion{}, false
		}
	}
	return Quaternion{}, false
}

// Run implements framework.Runnable.
func (h *Hub) Run(ctx context.Context) error {
	h.Send(ChannelCommand, advertisement)
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if h.Peer.Pending() >= h.MaxPending {
			glog.V(4).Infof("sim: %d frames pending, report skipped", h.Peer.Pending())
			h.Peer.Signal()
			continue
		}
		if h.Peer.Pending() > 0 {
			// the previous signal may have been consumed by an earlier frame
			h.Peer.Signal()
		}
		h.Send(ChannelReports, h.Report())
	}
}
