package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// bundleMarker is the 8 literal bytes beginning every bundle.
const bundleMarker = "#bundle\x00"

// Bundle is a timestamped container of messages and nested bundles,
// transmitted as one packet. Child sequences keep their wire order.
type Bundle struct {
	Timetag  Timetag
	Messages []*Message
	Bundles  []*Bundle
}

// NewBundle returns an empty bundle with the given timetag.
func NewBundle(tt Timetag) *Bundle {
	return &Bundle{Timetag: tt}
}

// Append adds a message or nested bundle to the end of the matching
// child sequence.
func (b *Bundle) Append(p Packet) error {
	switch v := p.(type) {
	case *Message:
		b.Messages = append(b.Messages, v)
	case *Bundle:
		b.Bundles = append(b.Bundles, v)
	default:
		return fmt.Errorf("%w: bundle element %T", ErrNotOSC, p)
	}
	return nil
}

// MarshalBinary encodes the bundle: marker, timetag, then every
// element (messages first, then nested bundles) behind a 4-byte
// big-endian length word counting that element's exact encoded size.
func (b *Bundle) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(bundleMarker)
	appendUint64(&buf, uint64(b.Timetag))
	for _, m := range b.Messages {
		data, err := m.MarshalBinary()
		if err != nil {
			return nil, err
		}
		appendUint32(&buf, uint32(len(data)))
		buf.Write(data)
	}
	for _, nb := range b.Bundles {
		data, err := nb.MarshalBinary()
		if err != nil {
			return nil, err
		}
		appendUint32(&buf, uint32(len(data)))
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a bundle and its nested tree. On error the
// receiver is left unchanged.
//
// Two element-level rules shape the result:
//   - a nested bundle whose timetag precedes this bundle's is dropped
//     along with its whole subtree (see the ordering note in the
//     package doc);
//   - an element that is properly length-framed but fails its own
//     decode is dropped, and elements before and after it are kept.
//
// Framing damage fails the whole bundle: a length word that is
// negative, not a multiple of four, or reaching past the buffer.
func (b *Bundle) UnmarshalBinary(data []byte) error {
	nb, err := parseBundle(data)
	if err != nil {
		return err
	}
	*b = *nb
	return nil
}

func parseBundle(data []byte) (*Bundle, error) {
	if len(data) < len(bundleMarker) || string(data[:len(bundleMarker)]) != bundleMarker {
		return nil, fmt.Errorf("%w: missing %q marker", ErrNotOSC, "#bundle")
	}
	if len(data) < 16 {
		return nil, fmt.Errorf("%w: bundle header", ErrTruncated)
	}
	b := &Bundle{Timetag: Timetag(binary.BigEndian.Uint64(data[8:16]))}
	rest := data[16:]
	for len(rest) > 0 {
		if len(rest) < 4 {
			return nil, fmt.Errorf("%w: element length word", ErrTruncated)
		}
		elemLen := int(int32(binary.BigEndian.Uint32(rest)))
		rest = rest[4:]
		if elemLen < 0 || elemLen%4 != 0 {
			return nil, fmt.Errorf("%w: element length %d", ErrNotOSC, elemLen)
		}
		if elemLen > len(rest) {
			return nil, fmt.Errorf("%w: element of %d bytes, %d remain", ErrTruncated, elemLen, len(rest))
		}
		b.appendDecoded(rest[:elemLen])
		rest = rest[elemLen:]
	}
	return b, nil
}

// appendDecoded decodes one framed element and attaches it to the
// bundle. An element-level failure drops that element only.
func (b *Bundle) appendDecoded(elem []byte) {
	if len(elem) == 0 {
		return
	}
	switch elem[0] {
	case '/':
		msg, n, err := parseMessage(elem)
		if err != nil || n != len(elem) {
			return
		}
		b.Messages = append(b.Messages, msg)
	case '#':
		nb, err := parseBundle(elem)
		if err != nil {
			return
		}
		if nb.Timetag < b.Timetag {
			// Child scheduled before its parent: prune it and
			// everything inside it.
			return
		}
		b.Bundles = append(b.Bundles, nb)
	}
}
