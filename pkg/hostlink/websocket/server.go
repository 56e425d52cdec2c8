// Package websocket implements a host link served over websocket.
package websocket

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// ReadWriter wraps a websocket.Conn as a packet stream, one binary message
// per packet.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Server implements hostlink.PacketReadWriter for any number of websocket
// clients: packets are broadcast to all clients, packets from any client
// are read in arrival order.
type Server struct {
	Addr string
	Path string

	listener  net.Listener
	lock      sync.Mutex
	clients   map[*ReadWriter]struct{}
	packetCh  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewServer creates a Server listening on addr and serving path.
func NewServer(addr, path string) *Server {
	if path == "" {
		path = "/"
	}
	return &Server{
		Addr:     addr,
		Path:     path,
		clients:  make(map[*ReadWriter]struct{}),
		packetCh: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "websocket-link"
}

// Listen opens the listener. It is called by Run if not called before.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// ListenAddr returns the address being listened on.
func (s *Server) ListenAddr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Handler returns the websocket handler serving host connections.
func (s *Server) Handler() http.Handler {
	return websocket.Handler(s.serveConn)
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(s.Path, s.Handler())
	srv := &http.Server{Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(s.listener)
	}()
	glog.Infof("websocket link on %s%s", s.listener.Addr(), s.Path)
	select {
	case <-ctx.Done():
	case <-s.done:
	case err := <-errCh:
		s.Close()
		return err
	}
	srv.Close()
	s.Close()
	<-errCh
	return ctx.Err()
}

func (s *Server) serveConn(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	rw := New(conn)
	s.lock.Lock()
	s.clients[rw] = struct{}{}
	s.lock.Unlock()
	glog.V(2).Infof("host connected: %s", conn.Request().RemoteAddr)
	defer func() {
		s.lock.Lock()
		delete(s.clients, rw)
		s.lock.Unlock()
		conn.Close()
		glog.V(2).Infof("host disconnected: %s", conn.Request().RemoteAddr)
	}()
	for {
		pkt, err := rw.ReadPacket()
		if err != nil {
			return
		}
		select {
		case s.packetCh <- pkt:
		case <-s.done:
			return
		}
	}
}

// ReadPacket implements PacketReader.
func (s *Server) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-s.packetCh:
		return pkt, nil
	case <-s.done:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter. Frames are dropped when no host is
// connected.
func (s *Server) WritePacket(pkt []byte) error {
	s.lock.Lock()
	clients := make([]*ReadWriter, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.lock.Unlock()
	for _, c := range clients {
		if err := c.WritePacket(pkt); err != nil {
			glog.V(2).Infof("host write error: %v", err)
			(*websocket.Conn)(c).Close()
		}
	}
	return nil
}

// Close implements io.Closer.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}
