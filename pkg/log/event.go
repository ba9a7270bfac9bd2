package log

import (
	"strings"
	"time"

	"github.com/osc-protocol/osc-go/pkg/wire"
)

// Event is one entry in a protocol log. Integer CBOR keys keep the
// on-disk form compact.
type Event struct {
	Timestamp    time.Time `cbor:"1,keyasint"` // nanosecond precision
	ConnectionID string    `cbor:"2,keyasint"` // socket UUID
	Direction    Direction `cbor:"3,keyasint"`
	Layer        Layer     `cbor:"4,keyasint"`
	Category     Category  `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port). Empty for events not
	// tied to a specific peer, such as listener state changes.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// At most one payload is set, matching the layer and category.
	Datagram    *DatagramEvent    `cbor:"7,keyasint,omitempty"`  // raw UDP payload
	Packet      *PacketEvent      `cbor:"8,keyasint,omitempty"`  // decoded OSC packet
	StateChange *StateChangeEvent `cbor:"9,keyasint,omitempty"`  // lifecycle transition
	Error       *ErrorEventData   `cbor:"10,keyasint,omitempty"` // failure at any layer
}

// Direction tells whether traffic arrived from a peer or was sent
// toward one.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer names the protocol layer that captured an event.
type Layer uint8

const (
	// LayerTransport is the datagram layer (raw UDP payloads).
	LayerTransport Layer = 0
	// LayerWire is the packet encoding layer (decoded OSC).
	LayerWire Layer = 1
	// LayerService is the dispatch/scheduling layer.
	LayerService Layer = 2
)

func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category is the coarse grouping used for filtering: OSC traffic,
// lifecycle transitions, or failures.
type Category uint8

const (
	CategoryPacket Category = 0
	CategoryState  Category = 1
	CategoryError  Category = 2
)

func (c Category) String() string {
	switch c {
	case CategoryPacket:
		return "PACKET"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// DatagramEvent captures a raw UDP payload at the transport layer.
// Size always reflects the full payload even when Data was cut to the
// capture limit.
type DatagramEvent struct {
	Size      int    `cbor:"1,keyasint"`
	Data      []byte `cbor:"2,keyasint,omitempty"`
	Truncated bool   `cbor:"3,keyasint,omitempty"`
}

// PacketEvent summarizes a decoded OSC packet at the wire layer.
type PacketEvent struct {
	// Kind distinguishes messages from bundles.
	Kind PacketKind `cbor:"1,keyasint"`

	// For messages: the address pattern.
	Address string `cbor:"2,keyasint,omitempty"`

	// For messages: the type tag string (without the leading comma).
	TypeTags string `cbor:"3,keyasint,omitempty"`

	// For messages: the argument count.
	Arguments int `cbor:"4,keyasint,omitempty"`

	// For bundles: the raw timetag.
	Timetag uint64 `cbor:"5,keyasint,omitempty"`

	// For bundles: the total message count, including nested bundles.
	Messages int `cbor:"6,keyasint,omitempty"`

	// For bundles: the maximum nesting depth (1 for a flat bundle).
	Depth int `cbor:"7,keyasint,omitempty"`
}

// PacketKind distinguishes messages from bundles.
type PacketKind uint8

const (
	KindMessage PacketKind = 0
	KindBundle  PacketKind = 1
)

func (k PacketKind) String() string {
	switch k {
	case KindMessage:
		return "MESSAGE"
	case KindBundle:
		return "BUNDLE"
	default:
		return "UNKNOWN"
	}
}

// NewPacketEvent builds a PacketEvent summary from a decoded packet.
func NewPacketEvent(p wire.Packet) *PacketEvent {
	switch pkt := p.(type) {
	case *wire.Message:
		// The tag error is ignored: a summary of an unencodable message
		// simply has no tag string.
		tags, _ := pkt.TypeTags()
		return &PacketEvent{
			Kind:      KindMessage,
			Address:   pkt.Address.String(),
			TypeTags:  strings.TrimPrefix(tags, ","),
			Arguments: len(pkt.Arguments),
		}
	case *wire.Bundle:
		ev := &PacketEvent{
			Kind:    KindBundle,
			Timetag: uint64(pkt.Timetag),
		}
		ev.Messages, ev.Depth = countBundle(pkt)
		return ev
	default:
		return &PacketEvent{}
	}
}

func countBundle(b *wire.Bundle) (messages, depth int) {
	messages = len(b.Messages)
	depth = 1
	for _, nb := range b.Bundles {
		m, d := countBundle(nb)
		messages += m
		if d+1 > depth {
			depth = d + 1
		}
	}
	return messages, depth
}

// StateChangeEvent records a lifecycle transition of a socket, server,
// or discovery component.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"` // empty on the initial transition
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity names the component a StateChangeEvent refers to.
type StateEntity uint8

const (
	StateEntitySocket    StateEntity = 0
	StateEntityServer    StateEntity = 1
	StateEntityDiscovery StateEntity = 2
)

func (s StateEntity) String() string {
	switch s {
	case StateEntitySocket:
		return "SOCKET"
	case StateEntityServer:
		return "SERVER"
	case StateEntityDiscovery:
		return "DISCOVERY"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData describes a failure observed at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
	Context string `cbor:"3,keyasint,omitempty"` // operation in progress, e.g. "decode"
}
