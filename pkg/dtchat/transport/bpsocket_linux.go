//go:build linux

package transport

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/DTN-MTP/DTChat/pkg/dtchat/endpoint"
)

// afBP is the bundle-protocol address family exposed by the ION/DTN
// kernel module (28). golang.org/x/sys/unix has no binding for it (it
// is not a kernel ABI upstream recognises), so the raw family number
// and sockaddr layout are reproduced by hand via golang.org/x/sys/unix's
// raw syscalls.
const afBP = 28

// sockaddrBp mirrors the kernel's sockaddr_bp layout:
// { bp_family: sa_family_t, bp_agent_id: u8 }.
type sockaddrBp struct {
	family  uint16
	agentID uint8
	_       [13]byte // pad to a conservative sockaddr size
}

func (s *sockaddrBp) bytes() []byte {
	buf := make([]byte, unsafe.Sizeof(*s))
	binary.LittleEndian.PutUint16(buf[0:2], s.family)
	buf[2] = s.agentID
	return buf
}

// bundleSocket implements Socket for the Bundle endpoint variant via a
// raw AF_BP datagram socket.
type bundleSocket struct {
	ep      endpoint.Endpoint
	cfg     Config
	mu      sync.Mutex
	fd      int
	hasFD   bool
	agentID uint8
}

func newBundleSocket(ep endpoint.Endpoint, cfg Config) (Socket, error) {
	_, service, ok := ep.BundleIDs()
	if !ok {
		return nil, fmt.Errorf("%w: invalid bundle endpoint %s", ErrSocketLifecycle, ep)
	}
	fd, err := unix.Socket(afBP, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: create bp socket: %v", ErrSocketLifecycle, err)
	}
	return &bundleSocket{ep: ep, cfg: cfg, fd: fd, hasFD: true, agentID: uint8(service)}, nil
}

func (s *bundleSocket) Endpoint() endpoint.Endpoint { return s.ep }

func (s *bundleSocket) bind() error {
	addr := sockaddrBp{family: afBP, agentID: s.agentID}
	_, _, errno := unix.Syscall(unix.SYS_BIND, uintptr(s.fd), uintptr(unsafe.Pointer(&addr)), unsafe.Sizeof(addr))
	if errno != 0 {
		return fmt.Errorf("%w: bind bp socket: %v", ErrSocketLifecycle, errno)
	}
	return nil
}

// Send sends a single datagram to this socket's own endpoint address:
// for datagram and bundle transports, each Send is one send_to call,
// with no persistent connection state.
func (s *bundleSocket) Send(data []byte) error {
	_, service, ok := s.ep.BundleIDs()
	if !ok {
		return fmt.Errorf("%w: invalid bundle destination %s", ErrSocketLifecycle, s.ep)
	}
	addr := sockaddrBp{family: afBP, agentID: uint8(service)}
	_, _, errno := unix.Syscall6(unix.SYS_SENDTO, uintptr(s.fd),
		uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)), 0,
		uintptr(unsafe.Pointer(&addr)), unsafe.Sizeof(addr))
	if errno != 0 {
		return fmt.Errorf("%w: bp sendto: %v", ErrSocketLifecycle, errno)
	}
	return nil
}

func (s *bundleSocket) StartListener(recv Receiver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bind(); err != nil {
		return err
	}
	go s.listenLoop(recv)
	return nil
}

func (s *bundleSocket) listenLoop(recv Receiver) {
	buf := make([]byte, s.cfg.BufferSize)
	for {
		n, _, errno := unix.Syscall6(unix.SYS_RECVFROM, uintptr(s.fd),
			uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)), 0, 0, 0)
		if int(n) < 0 {
			log.Infof("bp listener on %s exiting: errno %v", s.ep, errno)
			return
		}
		data := make([]byte, int(n))
		copy(data, buf[:int(n)])
		go recv.HandleReceivedBytes(data, s.ep)
	}
}

func (s *bundleSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFD {
		return nil
	}
	s.hasFD = false
	return unix.Close(s.fd)
}
