package wire

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/osc-protocol/osc-go/pkg/address"
)

// Message is a single OSC message: an address pattern plus an ordered
// argument list.
//
// Wire encoding:
//
//	address  padded string, begins with '/'
//	typetags padded string: ',' then one tag character per argument
//	args     each argument's bytes, in order, 4-byte aligned
type Message struct {
	Address   address.Address
	Arguments []any
}

// NewMessage returns a message for addr carrying the given arguments.
func NewMessage(addr string, args ...any) *Message {
	return &Message{Address: address.New(addr), Arguments: args}
}

// Append adds arguments to the end of the argument list.
func (m *Message) Append(args ...any) {
	m.Arguments = append(m.Arguments, args...)
}

// Validate checks that the message can be encoded: the address must
// begin with '/' and every argument must have a wire representation.
func (m *Message) Validate() error {
	if m.Address.Len() == 0 || m.Address.String()[0] != '/' {
		return fmt.Errorf("%w: %q does not begin with '/'", ErrMalformedAddress, m.Address)
	}
	for _, a := range m.Arguments {
		if _, err := TypeTag(a); err != nil {
			return err
		}
	}
	return nil
}

// TypeTags returns the message's type-tag string, including the
// leading comma.
func (m *Message) TypeTags() (string, error) {
	return TypeTags(m.Arguments)
}

// MarshalBinary encodes the message. The result length is always a
// multiple of four.
func (m *Message) MarshalBinary() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	tags, err := m.TypeTags()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	appendPaddedString(&buf, m.Address.String())
	appendPaddedString(&buf, tags)
	for _, a := range m.Arguments {
		if err := appendArgument(&buf, a); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes one complete message. The buffer must hold
// exactly the message; trailing bytes fail with ErrLengthMismatch.
// On error the receiver is left unchanged.
func (m *Message) UnmarshalBinary(data []byte) error {
	msg, n, err := parseMessage(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("%w: %d trailing bytes after message", ErrLengthMismatch, len(data)-n)
	}
	*m = *msg
	return nil
}

// parseMessage decodes one message from the front of data and returns
// it with the number of bytes consumed.
func parseMessage(data []byte) (*Message, int, error) {
	if len(data) == 0 || data[0] != '/' {
		return nil, 0, fmt.Errorf("%w: message must begin with '/'", ErrMalformedAddress)
	}
	addr, n, err := parsePaddedString(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: address not terminated", ErrMalformedAddress)
	}
	msg := &Message{Address: address.New(addr)}
	if n == len(data) {
		// No type-tag string at all: a zero-argument message.
		return msg, n, nil
	}
	tags, tn, err := parsePaddedString(data[n:])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: type-tag string not terminated", ErrMalformedAddress)
	}
	if len(tags) == 0 || tags[0] != ',' {
		return nil, 0, fmt.Errorf("%w: type-tag string must begin with ','", ErrMalformedAddress)
	}
	n += tn
	if len(tags) > 1 {
		msg.Arguments = make([]any, 0, len(tags)-1)
	}
	for i := 1; i < len(tags); i++ {
		arg, an, err := readArgument(data[n:], tags[i])
		if err != nil {
			return nil, 0, err
		}
		msg.Arguments = append(msg.Arguments, arg)
		n += an
	}
	return msg, n, nil
}

// String renders the message as "<address> <tags> <args...>" for logs
// and diagnostics.
func (m *Message) String() string {
	tags, err := m.TypeTags()
	if err != nil {
		return m.Address.String()
	}
	var sb strings.Builder
	sb.WriteString(m.Address.String())
	sb.WriteByte(' ')
	sb.WriteString(tags)
	for _, a := range m.Arguments {
		sb.WriteByte(' ')
		switch v := a.(type) {
		case []byte:
			fmt.Fprintf(&sb, "blob[%d]", len(v))
		default:
			fmt.Fprintf(&sb, "%v", v)
		}
	}
	return sb.String()
}
