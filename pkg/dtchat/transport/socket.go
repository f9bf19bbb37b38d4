// Package transport implements opening, binding, sending and
// listening on an Endpoint, delivering received bytes to a Receiver
// without either package depending on the other's internals.
package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/DTN-MTP/DTChat/internal/logging"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/endpoint"
)

var (
	ErrUnsupportedKind = errors.New("transport: unsupported endpoint kind")
	ErrSocketLifecycle = errors.New("transport: socket lifecycle error")
)

// Config carries the socket tunables. Zero value is invalid; use
// DefaultConfig().
type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BufferSize   int
}

// DefaultConfig returns the node's default tunables: 30s read, 10s
// write, 8KiB buffers.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
		BufferSize:   8192,
	}
}

// Receiver is implemented by the dispatcher: every listener delivers
// its received bytes here, tagged with the endpoint they arrived on.
type Receiver interface {
	HandleReceivedBytes(data []byte, origin endpoint.Endpoint)
}

// Socket is the narrow capability set every transport variant
// implements: create, send bytes, bind a listener. Modeled as a
// closed set of concrete types rather than an open interface
// hierarchy, per the per-variant specialisation design note.
type Socket interface {
	Send(data []byte) error
	StartListener(recv Receiver) error
	Close() error
	Endpoint() endpoint.Endpoint
}

// New creates the kernel socket matching the endpoint's variant.
func New(ep endpoint.Endpoint) (Socket, error) {
	return NewWithConfig(ep, DefaultConfig())
}

// NewWithConfig is New with explicit tunables.
func NewWithConfig(ep endpoint.Endpoint, cfg Config) (Socket, error) {
	switch ep.Kind {
	case endpoint.KindDatagramIP:
		return newUDPSocket(ep, cfg)
	case endpoint.KindStreamIP:
		return newTCPSocket(ep, cfg)
	case endpoint.KindBundle:
		return newBundleSocket(ep, cfg)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKind, ep.Kind)
	}
}

var log logging.Logger = logging.New("transport")
