package wire

import (
	"encoding"
	"fmt"
)

// Packet is one unit of OSC transmission: a *Message or a *Bundle.
type Packet interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// ParsePacket decodes one datagram into a Message or a Bundle,
// dispatching on the first byte. A failure never returns a partially
// decoded packet.
func ParsePacket(data []byte) (Packet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty packet", ErrTruncated)
	}
	switch data[0] {
	case '/':
		var m Message
		if err := m.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return &m, nil
	case '#':
		var b Bundle
		if err := b.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("%w: first byte %q", ErrNotOSC, data[0])
	}
}
