//go:build !linux

package transport

import (
	"fmt"

	"github.com/DTN-MTP/DTChat/pkg/dtchat/endpoint"
)

// newBundleSocket is only implemented on Linux: the bundle-protocol
// address family is a Linux/ION kernel module concept.
func newBundleSocket(ep endpoint.Endpoint, _ Config) (Socket, error) {
	return nil, fmt.Errorf("%w: bundle-protocol sockets require linux (endpoint %s)", ErrUnsupportedKind, ep)
}
