package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/osc-protocol/osc-go/pkg/discovery"
	"github.com/osc-protocol/osc-go/pkg/dispatch"
	"github.com/osc-protocol/osc-go/pkg/log"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateStarting - service is starting up.
	StateStarting

	// StateRunning - service is running normally.
	StateRunning

	// StateStopping - service is shutting down.
	StateStopping

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// ListenAddress is the address to listen on (e.g., ":8000").
	ListenAddress string

	// Space is the address space packets are dispatched into.
	// If nil, the server creates an empty one; methods can be added
	// through Server.Space before or after Start.
	Space *dispatch.AddressSpace

	// Advertise describes the mDNS announcement for this endpoint.
	// If nil, the server is not advertised. A zero Port is filled in
	// from the bound socket.
	Advertise *discovery.Endpoint

	// Immediate disables bundle scheduling: every bundle is dispatched
	// on arrival regardless of its timetag. Useful for monitors and
	// tests.
	Immediate bool

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives protocol log events (packets, state
	// changes, errors). If nil, protocol logging is disabled.
	ProtocolLogger log.Logger

	// OnError is called with decode and receive errors. The datagram
	// that caused a decode error is dropped either way.
	OnError func(err error)
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddress: ":8000",
	}
}

// Validate checks if the server config is valid.
func (c *ServerConfig) Validate() error {
	if c.ListenAddress == "" {
		return ErrInvalidConfig
	}
	if c.Advertise != nil {
		if err := c.Advertise.Validate(); err != nil {
			return fmt.Errorf("%w: advertise: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Target is the peer address (e.g., "192.168.1.40:8000"). When
	// set, the socket is connected and Send delivers to this peer
	// only. When empty, the socket stays open and SendTo selects the
	// peer per packet.
	Target string

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives protocol log events for sent packets.
	// If nil, protocol logging is disabled.
	ProtocolLogger log.Logger
}

// ServerStats is a snapshot of server counters.
type ServerStats struct {
	// PacketsReceived counts datagrams handed up by the transport.
	PacketsReceived uint64

	// MessagesDispatched counts messages delivered to the address
	// space, including messages unpacked from bundles.
	MessagesDispatched uint64

	// DecodeErrors counts datagrams dropped because they did not
	// parse as OSC packets.
	DecodeErrors uint64

	// BundlesScheduled counts bundles deferred on a timer because
	// their timetag was in the future.
	BundlesScheduled uint64
}
