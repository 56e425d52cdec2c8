package hostlink

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// DefaultMaxPacketSize bounds packets read from a Stream.
const DefaultMaxPacketSize = 4096

// FrameSizeError indicates a packet size outside the accepted range.
type FrameSizeError struct {
	Size uint32
	Max  uint32
}

// Error implements error.
func (e *FrameSizeError) Error() string {
	return fmt.Sprintf("packet size %d exceeds %d", e.Size, e.Max)
}

// Stream implements PacketReadWriter on a byte stream like a serial tty.
// Each packet is prefixed by 4-byte (little-endian) indicate the length.
type Stream struct {
	io.ReadWriter
	MaxPacketSize uint32

	writeLock sync.Mutex
}

// NewStream creates a Stream with io.ReadWriter.
func NewStream(s io.ReadWriter) *Stream {
	return &Stream{ReadWriter: s, MaxPacketSize: DefaultMaxPacketSize}
}

// ReadPacket implements PacketReader.
func (s *Stream) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(s.ReadWriter, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > s.MaxPacketSize {
		return nil, &FrameSizeError{Size: size, Max: s.MaxPacketSize}
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(s.ReadWriter, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter.
func (s *Stream) WritePacket(pkt []byte) error {
	size := uint32(len(pkt))
	if size > s.MaxPacketSize {
		return &FrameSizeError{Size: size, Max: s.MaxPacketSize}
	}
	buf := make([]byte, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, size)
	copy(buf[4:], pkt)
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	_, err := s.ReadWriter.Write(buf)
	return err
}

// Close implements io.Closer.
func (s *Stream) Close() error {
	if closer, ok := s.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
