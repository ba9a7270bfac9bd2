package transport

import (
	"context"
	"net"
	"time"
)

// PacketConn is the socket surface the service layer builds on.
// Implemented by UDPConn.
type PacketConn interface {
	// Send writes one packet to the fixed peer (targeted sockets).
	Send(data []byte) error

	// SendTo writes one packet to addr (open sockets).
	SendTo(data []byte, addr net.Addr) error

	// ReadPacket blocks for one datagram, bounded by timeout if > 0.
	ReadPacket(timeout time.Duration) ([]byte, net.Addr, error)

	// LocalAddr returns the bound local address.
	LocalAddr() net.Addr

	// ConnID returns the socket identifier used in log events.
	ConnID() string

	// Close closes the socket.
	Close() error
}

// PacketServer is the listening surface. Implemented by Server.
type PacketServer interface {
	// Start binds the socket and begins receiving.
	Start(ctx context.Context) error

	// Stop stops receiving and closes the socket.
	Stop() error

	// Addr returns the bound address.
	Addr() net.Addr
}

// Compile-time interface satisfaction checks.
var (
	_ PacketConn   = (*UDPConn)(nil)
	_ PacketServer = (*Server)(nil)
)
