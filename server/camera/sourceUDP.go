package camera

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/pkg/mjpeg"
)

// UDPSource listens on a UDP port for an MJPEG stream.
// This is the setup where another machine (or another process) runs the camera
// and pipes frames to us, eg:
//
//	rpicam-vid --codec mjpeg -o udp://127.0.0.1:5000
//
// JPEG frames are larger than a datagram, so frames arrive sliced into
// arbitrary chunks, and the splitter reassembles them.
type UDPSource struct {
	Log  logs.Log
	Port int

	conn   *net.UDPConn
	closed atomic.Bool
	done   chan struct{}
}

func NewUDPSource(logger logs.Log, port int) *UDPSource {
	return &UDPSource{
		Log:  logger,
		Port: port,
		done: make(chan struct{}),
	}
}

func (s *UDPSource) Ident() string {
	return fmt.Sprintf("udp port %v", s.Port)
}

func (s *UDPSource) Start(onFrame func(jpeg []byte)) error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: s.Port})
	if err != nil {
		return fmt.Errorf("Failed to listen on UDP port %v: %w", s.Port, err)
	}
	s.conn = conn
	go s.receiveLoop(onFrame)
	return nil
}

func (s *UDPSource) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.conn.Close()
	<-s.done
}

func (s *UDPSource) receiveLoop(onFrame func(jpeg []byte)) {
	defer close(s.done)
	splitter := mjpeg.NewSplitter()
	// 64k is the max UDP datagram size
	buf := make([]byte, 65536)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if !s.closed.Load() {
				s.Log.Errorf("UDP receive failed: %v", err)
			}
			return
		}
		for _, frame := range splitter.Feed(buf[:n]) {
			onFrame(frame)
		}
	}
}
