package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/osc-protocol/osc-go/pkg/log"
)

// Transport constants.
const (
	// DefaultPort is the conventional OSC listening port.
	DefaultPort = 8000

	// MaxPacketSize is the maximum OSC packet size (the IPv4 UDP
	// payload limit: 65535 minus 8 bytes UDP and 20 bytes IP header).
	MaxPacketSize = 65507

	// MaxLogDatagramSize is the maximum datagram size to include in log
	// events (4 KB). Larger datagrams are truncated in the event.
	MaxLogDatagramSize = 4096
)

// Transport errors.
var (
	// ErrPacketTooLarge indicates the packet exceeds MaxPacketSize.
	ErrPacketTooLarge = errors.New("packet too large")

	// ErrPacketEmpty indicates an empty packet.
	ErrPacketEmpty = errors.New("packet is empty")

	// ErrSocketClosed indicates an operation on a closed socket.
	ErrSocketClosed = errors.New("socket closed")

	// ErrNoPeer indicates Send on an open socket, which has no fixed peer.
	ErrNoPeer = errors.New("socket has no fixed peer")

	// ErrFixedPeer indicates SendTo on a targeted socket.
	ErrFixedPeer = errors.New("socket has a fixed peer")
)

// SocketMode distinguishes open and targeted sockets.
type SocketMode uint8

const (
	// ModeOpen is a bound socket exchanging datagrams with any peer.
	ModeOpen SocketMode = 0
	// ModeTargeted is a connected socket bound to one fixed peer.
	ModeTargeted SocketMode = 1
)

// String returns the socket mode name.
func (m SocketMode) String() string {
	switch m {
	case ModeOpen:
		return "OPEN"
	case ModeTargeted:
		return "TARGETED"
	default:
		return "UNKNOWN"
	}
}

// UDPConn is one UDP socket carrying OSC packets. Each datagram holds
// exactly one top-level packet. Safe for concurrent use.
type UDPConn struct {
	conn   *net.UDPConn
	mode   SocketMode
	connID string

	closeOnce sync.Once
	closed    atomic.Bool

	// Logging support (optional)
	logger log.Logger
}

// Listen opens a socket in open mode, bound to addr (e.g. ":8000" or
// "127.0.0.1:0"). The socket receives from any peer and sends with SendTo.
func Listen(addr string) (*UDPConn, error) {
	if addr == "" {
		addr = fmt.Sprintf(":%d", DefaultPort)
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &UDPConn{
		conn:   conn,
		mode:   ModeOpen,
		connID: uuid.New().String(),
	}, nil
}

// Dial opens a socket in targeted mode, connected to the peer at addr.
// Send writes to that peer; datagrams from other sources are discarded
// by the kernel.
func Dial(addr string) (*UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &UDPConn{
		conn:   conn,
		mode:   ModeTargeted,
		connID: uuid.New().String(),
	}, nil
}

// SetLogger configures protocol logging for this socket.
// Pass nil to disable logging.
func (c *UDPConn) SetLogger(logger log.Logger) {
	c.logger = logger
}

// ConnID returns the unique socket identifier used in log events.
func (c *UDPConn) ConnID() string {
	return c.connID
}

// Mode returns the socket mode.
func (c *UDPConn) Mode() SocketMode {
	return c.mode
}

// LocalAddr returns the local address the socket is bound to.
func (c *UDPConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the fixed peer address, or nil for open sockets.
func (c *UDPConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send writes one packet to the fixed peer. Targeted sockets only.
func (c *UDPConn) Send(data []byte) error {
	if c.mode != ModeTargeted {
		return ErrNoPeer
	}
	if err := c.checkPayload(data); err != nil {
		return err
	}
	if _, err := c.conn.Write(data); err != nil {
		return c.sendErr(err)
	}
	c.logDatagram(data, log.DirectionOut, c.conn.RemoteAddr())
	return nil
}

// SendTo writes one packet to addr. Open sockets only.
func (c *UDPConn) SendTo(data []byte, addr net.Addr) error {
	if c.mode != ModeOpen {
		return ErrFixedPeer
	}
	if err := c.checkPayload(data); err != nil {
		return err
	}
	if _, err := c.conn.WriteTo(data, addr); err != nil {
		return c.sendErr(err)
	}
	c.logDatagram(data, log.DirectionOut, addr)
	return nil
}

// ReadPacket blocks until one datagram arrives and returns its payload
// and source address. A timeout greater than zero bounds the wait; on
// expiry the error satisfies os.ErrDeadlineExceeded. Reading from a
// closed socket returns ErrSocketClosed.
func (c *UDPConn) ReadPacket(timeout time.Duration) ([]byte, net.Addr, error) {
	if c.closed.Load() {
		return nil, nil, ErrSocketClosed
	}

	if timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, nil, err
		}
	} else {
		if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
			return nil, nil, err
		}
	}

	buf := make([]byte, MaxPacketSize)
	n, addr, err := c.conn.ReadFrom(buf)
	if err != nil {
		if c.closed.Load() {
			return nil, nil, ErrSocketClosed
		}
		return nil, nil, err
	}

	data := buf[:n:n]
	c.logDatagram(data, log.DirectionIn, addr)
	return data, addr, nil
}

// Close closes the socket. It is safe to call Close multiple times.
func (c *UDPConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.conn.Close()
	})
	return err
}

func (c *UDPConn) checkPayload(data []byte) error {
	if len(data) == 0 {
		return ErrPacketEmpty
	}
	if len(data) > MaxPacketSize {
		return fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, len(data), MaxPacketSize)
	}
	return nil
}

func (c *UDPConn) sendErr(err error) error {
	if c.closed.Load() {
		return ErrSocketClosed
	}
	return fmt.Errorf("send: %w", err)
}

// logDatagram emits a transport-layer log event for one datagram.
func (c *UDPConn) logDatagram(data []byte, direction log.Direction, peer net.Addr) {
	if c.logger == nil {
		return
	}

	payload := data
	truncated := false
	if len(data) > MaxLogDatagramSize {
		payload = data[:MaxLogDatagramSize]
		truncated = true
	}

	remote := ""
	if peer != nil {
		remote = peer.String()
	}

	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryPacket,
		RemoteAddr:   remote,
		Datagram: &log.DatagramEvent{
			Size:      len(data),
			Data:      payload,
			Truncated: truncated,
		},
	})
}
