package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/DTN-MTP/DTChat/pkg/dtchat/endpoint"
)

// ipSocket backs both the datagram-IP and stream-IP endpoint
// variants; the difference between Type.DGRAM and Type.STREAM in the
// original source becomes the UDP/TCP split of Go's net package.
type ipSocket struct {
	ep     endpoint.Endpoint
	cfg    Config
	mu     sync.Mutex
	closed bool

	udpConn  *net.UDPConn // set once listening, datagram case
	tcpLis   net.Listener // set once listening, stream case
}

func newUDPSocket(ep endpoint.Endpoint, cfg Config) (Socket, error) {
	return &ipSocket{ep: ep, cfg: cfg}, nil
}

func newTCPSocket(ep endpoint.Endpoint, cfg Config) (Socket, error) {
	return &ipSocket{ep: ep, cfg: cfg}, nil
}

func (s *ipSocket) Endpoint() endpoint.Endpoint { return s.ep }

// Send: for datagram, a single send_to; for stream, connect + write
// fully + flush + half-close.
func (s *ipSocket) Send(data []byte) error {
	switch s.ep.Kind {
	case endpoint.KindDatagramIP:
		addr, err := net.ResolveUDPAddr("udp", s.ep.Address)
		if err != nil {
			return fmt.Errorf("%w: resolve udp address: %v", ErrSocketLifecycle, err)
		}
		conn, err := net.DialUDP("udp", nil, addr)
		if err != nil {
			return fmt.Errorf("%w: dial udp: %v", ErrSocketLifecycle, err)
		}
		defer conn.Close()
		conn.SetWriteDeadline(deadline(s.cfg.WriteTimeout))
		_, err = conn.Write(data)
		if err != nil {
			return fmt.Errorf("%w: udp write: %v", ErrSocketLifecycle, err)
		}
		return nil
	case endpoint.KindStreamIP:
		conn, err := net.DialTimeout("tcp", s.ep.Address, s.cfg.WriteTimeout)
		if err != nil {
			return fmt.Errorf("%w: dial tcp: %v", ErrSocketLifecycle, err)
		}
		defer conn.Close()
		conn.SetWriteDeadline(deadline(s.cfg.WriteTimeout))
		if _, err := conn.Write(data); err != nil {
			return fmt.Errorf("%w: tcp write: %v", ErrSocketLifecycle, err)
		}
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		}
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedKind, s.ep.Kind)
	}
}

// StartListener is idempotent: binding twice is a no-op.
func (s *ipSocket) StartListener(recv Receiver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.udpConn != nil || s.tcpLis != nil {
		return nil
	}

	switch s.ep.Kind {
	case endpoint.KindDatagramIP:
		addr, err := net.ResolveUDPAddr("udp", s.ep.Address)
		if err != nil {
			return fmt.Errorf("%w: resolve udp address: %v", ErrSocketLifecycle, err)
		}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			return fmt.Errorf("%w: bind udp: %v", ErrSocketLifecycle, err)
		}
		s.udpConn = conn
		go s.datagramLoop(conn, recv)
		return nil
	case endpoint.KindStreamIP:
		lis, err := net.Listen("tcp", s.ep.Address)
		if err != nil {
			return fmt.Errorf("%w: bind tcp: %v", ErrSocketLifecycle, err)
		}
		s.tcpLis = lis
		go s.streamAcceptLoop(lis, recv)
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedKind, s.ep.Kind)
	}
}

func (s *ipSocket) datagramLoop(conn *net.UDPConn, recv Receiver) {
	buf := make([]byte, s.cfg.BufferSize)
	for {
		conn.SetReadDeadline(deadline(s.cfg.ReadTimeout))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			log.Infof("udp listener on %s exiting: %v", s.ep, err)
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		go recv.HandleReceivedBytes(data, s.ep)
	}
}

func (s *ipSocket) streamAcceptLoop(lis net.Listener, recv Receiver) {
	for {
		conn, err := lis.Accept()
		if err != nil {
			log.Infof("tcp listener on %s exiting: %v", s.ep, err)
			return
		}
		go s.handleStreamConn(conn, recv)
	}
}

func (s *ipSocket) handleStreamConn(conn net.Conn, recv Receiver) {
	defer conn.Close()
	conn.SetReadDeadline(deadline(s.cfg.ReadTimeout))
	buf := make([]byte, s.cfg.BufferSize)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		log.Infof("tcp read from %s failed: %v", conn.RemoteAddr(), err)
		return
	}
	data := make([]byte, n)
	copy(data, buf[:n])
	recv.HandleReceivedBytes(data, s.ep)
}

func (s *ipSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var err error
	if s.udpConn != nil {
		err = s.udpConn.Close()
	}
	if s.tcpLis != nil {
		if e := s.tcpLis.Close(); e != nil {
			err = e
		}
	}
	return err
}

func deadline(d time.Duration) time.Time { return time.Now().Add(d) }

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
