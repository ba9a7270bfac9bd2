package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/osc-protocol/osc-go/pkg/log"
)

// ServerConfig configures an OSC transport server.
type ServerConfig struct {
	// Address to listen on (e.g., ":8000" or "127.0.0.1:8000").
	Address string

	// Logger for protocol logging (optional).
	Logger log.Logger

	// OnPacket is called for each received datagram with the raw payload
	// and the sender's address. The payload is not retained by the server.
	OnPacket func(data []byte, from net.Addr)

	// OnError is called when a receive error occurs.
	OnError func(err error)
}

// Server binds one open UDP socket and feeds every received datagram to
// the OnPacket callback.
type Server struct {
	config ServerConfig
	conn   *UDPConn

	// State
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a new transport server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.OnPacket == nil {
		return nil, fmt.Errorf("OnPacket callback is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	return &Server{config: config}, nil
}

// Start binds the socket and begins receiving datagrams.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	conn, err := Listen(s.config.Address)
	if err != nil {
		s.cancel()
		return err
	}
	if s.config.Logger != nil {
		conn.SetLogger(s.config.Logger)
	}
	s.conn = conn

	s.running.Store(true)
	s.logState("", "LISTENING", "")

	s.wg.Add(1)
	go s.receiveLoop()

	return nil
}

// Stop stops the server and closes the socket.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}

	s.running.Store(false)
	s.cancel()
	s.conn.Close()

	// Wait for the receive loop
	s.wg.Wait()

	s.logState("LISTENING", "STOPPED", "")
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.conn != nil {
		return s.conn.LocalAddr()
	}
	return nil
}

// ConnID returns the socket identifier used in log events, or "" before Start.
func (s *Server) ConnID() string {
	if s.conn != nil {
		return s.conn.ConnID()
	}
	return ""
}

// receiveLoop reads datagrams until the socket closes.
func (s *Server) receiveLoop() {
	defer s.wg.Done()

	// Back off on transient network errors so a persistent fault does
	// not spin the loop.
	var tempDelay time.Duration

	for s.running.Load() {
		data, addr, err := s.conn.ReadPacket(0)
		if err != nil {
			if !s.running.Load() || s.ctx.Err() != nil {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}
				time.Sleep(tempDelay)
				continue
			}
			if s.config.OnError != nil {
				s.config.OnError(fmt.Errorf("receive error: %w", err))
			}
			continue
		}
		tempDelay = 0

		s.config.OnPacket(data, addr)
	}
}

// logState emits a server state-change event.
func (s *Server) logState(oldState, newState, reason string) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.ConnID(),
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityServer,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
