package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/osc-protocol/osc-go/pkg/discovery"
	"github.com/osc-protocol/osc-go/pkg/dispatch"
	"github.com/osc-protocol/osc-go/pkg/log"
	"github.com/osc-protocol/osc-go/pkg/transport"
	"github.com/osc-protocol/osc-go/pkg/wire"
)

// Server is a receiving OSC endpoint: one UDP socket feeding one
// address space.
type Server struct {
	config ServerConfig
	space  *dispatch.AddressSpace

	mu         sync.RWMutex
	state      ServiceState
	transport  *transport.Server
	advertiser discovery.Advertiser
	advertised string

	ctx    context.Context
	cancel context.CancelFunc

	// Pending bundle timers, so Stop can cancel them.
	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}

	packetsReceived    atomic.Uint64
	messagesDispatched atomic.Uint64
	decodeErrors       atomic.Uint64
	bundlesScheduled   atomic.Uint64
}

// NewServer creates a new server. The configuration is validated but
// no socket is opened until Start.
func NewServer(config ServerConfig) (*Server, error) {
	if config.ListenAddress == "" {
		config.ListenAddress = DefaultServerConfig().ListenAddress
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	space := config.Space
	if space == nil {
		space = dispatch.NewAddressSpace()
	}

	return &Server{
		config: config,
		space:  space,
		state:  StateIdle,
		timers: make(map[*time.Timer]struct{}),
	}, nil
}

// Space returns the address space packets are dispatched into.
func (s *Server) Space() *dispatch.AddressSpace {
	return s.space
}

// State returns the current service state.
func (s *Server) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.transport == nil {
		return nil
	}
	return s.transport.Addr()
}

// ConnID returns the socket identifier used in log events, or ""
// before Start.
func (s *Server) ConnID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.transport == nil {
		return ""
	}
	return s.transport.ConnID()
}

// Stats returns a snapshot of the server counters.
func (s *Server) Stats() ServerStats {
	return ServerStats{
		PacketsReceived:    s.packetsReceived.Load(),
		MessagesDispatched: s.messagesDispatched.Load(),
		DecodeErrors:       s.decodeErrors.Load(),
		BundlesScheduled:   s.bundlesScheduled.Load(),
	}
}

// SetAdvertiser sets the discovery advertiser (for testing/DI).
// Must be called before Start; otherwise Start creates an
// MDNSAdvertiser when the config asks for advertising.
func (s *Server) SetAdvertiser(advertiser discovery.Advertiser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advertiser = advertiser
}

// Start binds the socket, begins dispatching received packets, and
// advertises the endpoint when configured.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)

	ts, err := transport.NewServer(transport.ServerConfig{
		Address:  s.config.ListenAddress,
		Logger:   s.config.ProtocolLogger,
		OnPacket: s.handlePacket,
		OnError:  s.handleTransportError,
	})
	if err != nil {
		s.cancel()
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		return err
	}

	if err := ts.Start(s.ctx); err != nil {
		s.cancel()
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.transport = ts
	s.mu.Unlock()

	if s.config.Advertise != nil {
		if err := s.startAdvertising(ts); err != nil {
			_ = ts.Stop()
			s.cancel()
			s.mu.Lock()
			s.transport = nil
			s.state = StateIdle
			s.mu.Unlock()
			return err
		}
	}

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()

	s.debugLog("server started", "addr", ts.Addr().String())
	return nil
}

// Stop stops advertising, cancels pending bundle timers, and closes
// the socket.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopping
	advertiser := s.advertiser
	advertised := s.advertised
	ts := s.transport
	s.mu.Unlock()

	if advertiser != nil && advertised != "" {
		_ = advertiser.Stop(advertised)
		s.logDiscoveryState("ADVERTISING", "STOPPED", "")
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.stopTimers()

	if ts != nil {
		_ = ts.Stop()
	}

	s.mu.Lock()
	s.advertised = ""
	s.state = StateStopped
	s.mu.Unlock()

	s.debugLog("server stopped")
	return nil
}

// startAdvertising announces the configured endpoint, filling in the
// port from the bound socket when the config leaves it zero.
func (s *Server) startAdvertising(ts *transport.Server) error {
	s.mu.Lock()
	if s.advertiser == nil {
		advertiser, err := discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig())
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.advertiser = advertiser
	}
	advertiser := s.advertiser
	s.mu.Unlock()

	ep := *s.config.Advertise
	if ep.Port == 0 {
		ep.Port = boundPort(ts.Addr())
	}
	if err := advertiser.Advertise(s.ctx, &ep); err != nil {
		return err
	}

	s.mu.Lock()
	s.advertised = ep.Name
	s.mu.Unlock()

	s.logDiscoveryState("", "ADVERTISING", ep.Name)
	s.debugLog("advertising endpoint", "instance", ep.Name, "port", ep.Port)
	return nil
}

// handlePacket decodes one datagram and dispatches it. Runs on the
// transport receive goroutine.
func (s *Server) handlePacket(data []byte, from net.Addr) {
	s.packetsReceived.Add(1)

	p, err := wire.ParsePacket(data)
	if err != nil {
		s.decodeErrors.Add(1)
		s.logDecodeError(err, from)
		s.reportError(fmt.Errorf("decode packet from %s: %w", from, err))
		return
	}

	s.logPacket(p, from)
	s.dispatchPacket(p)
}

func (s *Server) dispatchPacket(p wire.Packet) {
	switch v := p.(type) {
	case *wire.Message:
		s.messagesDispatched.Add(1)
		s.space.Dispatch(v)
	case *wire.Bundle:
		s.dispatchBundle(v)
	}
}

// dispatchBundle honors the bundle timetag: immediate and past tags
// dispatch inline, future tags wait on a timer.
func (s *Server) dispatchBundle(b *wire.Bundle) {
	if s.config.Immediate {
		s.runBundle(b)
		return
	}
	delay := b.Timetag.Until()
	if delay == 0 {
		s.runBundle(b)
		return
	}
	s.scheduleBundle(b, delay)
}

// runBundle dispatches a bundle's children in wire order. Nested
// bundles go back through dispatchBundle so their own timetags are
// honored.
func (s *Server) runBundle(b *wire.Bundle) {
	for _, m := range b.Messages {
		s.messagesDispatched.Add(1)
		s.space.Dispatch(m)
	}
	for _, nb := range b.Bundles {
		s.dispatchBundle(nb)
	}
}

func (s *Server) scheduleBundle(b *wire.Bundle, delay time.Duration) {
	s.bundlesScheduled.Add(1)

	ctx := s.ctx

	// The timer callback runs on its own goroutine; holding timersMu
	// across AfterFunc makes the t capture safe for near-zero delays.
	s.timersMu.Lock()
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.timersMu.Lock()
		delete(s.timers, t)
		s.timersMu.Unlock()

		if ctx.Err() != nil {
			return
		}
		s.runBundle(b)
	})
	s.timers[t] = struct{}{}
	s.timersMu.Unlock()

	s.debugLog("bundle scheduled",
		"delay", delay,
		"messages", len(b.Messages),
		"bundles", len(b.Bundles))
}

func (s *Server) stopTimers() {
	s.timersMu.Lock()
	for t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[*time.Timer]struct{})
	s.timersMu.Unlock()
}

func (s *Server) handleTransportError(err error) {
	s.debugLog("transport error", "err", err)
	if s.config.ProtocolLogger != nil {
		s.config.ProtocolLogger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: s.ConnID(),
			Layer:        log.LayerTransport,
			Category:     log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerTransport,
				Message: err.Error(),
				Context: "receive",
			},
		})
	}
	s.reportError(err)
}

func (s *Server) reportError(err error) {
	if s.config.OnError != nil {
		s.config.OnError(err)
	}
}

func (s *Server) logPacket(p wire.Packet, from net.Addr) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.ConnID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryPacket,
		RemoteAddr:   from.String(),
		Packet:       log.NewPacketEvent(p),
	})
}

func (s *Server) logDecodeError(err error, from net.Addr) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.ConnID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		RemoteAddr:   from.String(),
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: "decode packet",
		},
	})
}

func (s *Server) logDiscoveryState(oldState, newState, reason string) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.ConnID(),
		Layer:        log.LayerService,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDiscovery,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// debugLog logs a debug message if a logger is configured.
func (s *Server) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

func boundPort(addr net.Addr) uint16 {
	if ua, ok := addr.(*net.UDPAddr); ok {
		return uint16(ua.Port)
	}
	return 0
}
