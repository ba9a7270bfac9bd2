package wire

import "errors"

// Codec errors. Decode functions wrap these with positional context;
// classify with errors.Is.
var (
	// ErrNotOSC reports a buffer that is not OSC data at all: no
	// leading '/' or bundle marker, or framing that cannot be valid.
	ErrNotOSC = errors.New("not OSC data")

	// ErrTruncated reports a buffer that ends before a complete
	// element.
	ErrTruncated = errors.New("truncated buffer")

	// ErrUnsupportedTypeTag reports a type-tag character outside the
	// fixed set, or an argument value with no wire representation.
	ErrUnsupportedTypeTag = errors.New("unsupported type tag")

	// ErrMalformedAddress reports a missing or misplaced address or
	// type-tag terminator, or an address that does not begin with '/'.
	ErrMalformedAddress = errors.New("malformed address")

	// ErrLengthMismatch reports an element whose declared length
	// disagrees with its decoded content.
	ErrLengthMismatch = errors.New("element length mismatch")
)
