package hostlink

// PacketReader receives one host packet per call. It returns io.EOF once
// the link is closed.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter sends one packet to the host. A packet is never split.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter is a bidirectional host link.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

var (
	_ PacketReadWriter = (*Stream)(nil)
)
