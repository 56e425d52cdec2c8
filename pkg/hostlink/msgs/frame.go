// Package msgs defines the messages exchanged on a host link.
package msgs

import (
	"github.com/golang/protobuf/proto"
)

// Frame is a single frame of the sensor hub.
//
// Towards the host: TimestampUs is the bridge timestamp of the frame,
// Payload the frame received from the hub and Discards the running count of
// frames dropped before delivery.
// From the host: Payload is written to the hub, Seq is echoed in Ack.
type Frame struct {
	TimestampUs          uint32   `protobuf:"varint,1,opt,name=timestamp_us,json=timestampUs,proto3" json:"timestamp_us,omitempty"`
	Payload              []byte   `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"`
	Discards             uint64   `protobuf:"varint,3,opt,name=discards,proto3" json:"discards,omitempty"`
	Seq                  uint32   `protobuf:"varint,4,opt,name=seq,proto3" json:"seq,omitempty"`
	Ack                  *Ack     `protobuf:"bytes,5,opt,name=ack,proto3" json:"ack,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

// Reset implements proto.Message.
func (m *Frame) Reset() { *m = Frame{} }

// String implements proto.Message.
func (m *Frame) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Frame) ProtoMessage() {}

// Ack reports the result of a write requested by the host.
type Ack struct {
	Seq                  uint32   `protobuf:"varint,1,opt,name=seq,proto3" json:"seq,omitempty"`
	Written              uint32   `protobuf:"varint,2,opt,name=written,proto3" json:"written,omitempty"`
	Error                string   `protobuf:"bytes,3,opt,name=error,proto3" json:"error,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

// Reset implements proto.Message.
func (m *Ack) Reset() { *m = Ack{} }

// String implements proto.Message.
func (m *Ack) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Ack) ProtoMessage() {}

func init() {
	proto.RegisterType((*Frame)(nil), "sh2bridge.hostlink.v1.Frame")
	proto.RegisterType((*Ack)(nil), "sh2bridge.hostlink.v1.Ack")
}

// Encode encodes the frame for a host link packet.
func (m *Frame) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeFrame decodes a host link packet.
func DecodeFrame(pkt []byte) (*Frame, error) {
	var m Frame
	if err := proto.Unmarshal(pkt, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
