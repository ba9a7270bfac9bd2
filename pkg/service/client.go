package service

import (
	"net"
	"time"

	"github.com/osc-protocol/osc-go/pkg/log"
	"github.com/osc-protocol/osc-go/pkg/transport"
	"github.com/osc-protocol/osc-go/pkg/wire"
)

// Client is a sending OSC endpoint. With a Target it holds a
// connected socket and Send delivers to that peer; without one the
// socket is open and SendTo picks the peer per packet.
type Client struct {
	config ClientConfig
	conn   *transport.UDPConn
}

// NewClient opens the client socket.
func NewClient(config ClientConfig) (*Client, error) {
	var (
		conn *transport.UDPConn
		err  error
	)
	if config.Target != "" {
		conn, err = transport.Dial(config.Target)
	} else {
		conn, err = transport.Listen(":0")
	}
	if err != nil {
		return nil, err
	}
	if config.ProtocolLogger != nil {
		conn.SetLogger(config.ProtocolLogger)
	}

	c := &Client{config: config, conn: conn}
	c.debugLog("client ready",
		"mode", conn.Mode().String(),
		"laddr", conn.LocalAddr().String())
	return c, nil
}

// ConnID returns the socket identifier used in log events.
func (c *Client) ConnID() string {
	return c.conn.ConnID()
}

// LocalAddr returns the local socket address.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the target address, or nil in open mode.
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send marshals a packet and delivers it to the target peer.
func (c *Client) Send(p wire.Packet) error {
	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	if err := c.conn.Send(data); err != nil {
		return err
	}
	c.logPacket(p, c.conn.RemoteAddr())
	return nil
}

// SendTo marshals a packet and delivers it to addr. Only valid in
// open mode.
func (c *Client) SendTo(p wire.Packet, addr net.Addr) error {
	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	if err := c.conn.SendTo(data, addr); err != nil {
		return err
	}
	c.logPacket(p, addr)
	return nil
}

// SendMessage builds, validates, and sends a single message.
func (c *Client) SendMessage(addr string, args ...any) error {
	m := wire.NewMessage(addr, args...)
	if err := m.Validate(); err != nil {
		return err
	}
	return c.Send(m)
}

// Close closes the socket. Safe to call more than once.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) logPacket(p wire.Packet, to net.Addr) {
	if c.config.ProtocolLogger == nil {
		return
	}
	remote := ""
	if to != nil {
		remote = to.String()
	}
	c.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.conn.ConnID(),
		Direction:    log.DirectionOut,
		Layer:        log.LayerWire,
		Category:     log.CategoryPacket,
		RemoteAddr:   remote,
		Packet:       log.NewPacketEvent(p),
	})
}

// debugLog logs a debug message if a logger is configured.
func (c *Client) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}
