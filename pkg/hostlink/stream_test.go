package hostlink

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	s := NewStream(&buf)
	require.NoError(t, s.WritePacket([]byte{1, 2, 3}))
	require.NoError(t, s.WritePacket(nil))
	require.Equal(t, []byte{3, 0, 0, 0, 1, 2, 3, 0, 0, 0, 0}, buf.Bytes())

	pkt, err := s.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, pkt)
	pkt, err = s.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
	_, err = s.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestStreamPacketSize(t *testing.T) {
	var buf bytes.Buffer
	s := NewStream(&buf)
	s.MaxPacketSize = 4
	err := s.WritePacket(make([]byte, 5))
	require.IsType(t, &FrameSizeError{}, err)
	require.Zero(t, buf.Len())

	buf.Write([]byte{0, 1, 0, 0})
	_, err = s.ReadPacket()
	require.Equal(t, &FrameSizeError{Size: 256, Max: 4}, err)
	require.Equal(t, "packet size 256 exceeds 4", err.Error())
}

func TestStreamTruncated(t *testing.T) {
	s := NewStream(bytes.NewBuffer([]byte{4, 0, 0, 0, 1, 2}))
	_, err := s.ReadPacket()
	require.Equal(t, io.ErrUnexpectedEOF, err)
}
