package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/osc-protocol/osc-go/pkg/address"
)

// Fixed type-tag characters.
const (
	TagInt32   byte = 'i'
	TagFloat32 byte = 'f'
	TagInt64   byte = 'h'
	TagFloat64 byte = 'd'
	TagString  byte = 's'
	TagBlob    byte = 'b'
	TagTimetag byte = 't'
)

// Char is a single ASCII character argument. The fixed tag set has no
// character tag, so a Char encodes as its one-character string and a
// decoded message carries it back as a string.
type Char byte

// TypeTag returns the tag character arg encodes under. Bool maps to
// the int32 tag (true=1, false=0) and Char to the string tag; decoded
// arguments therefore never contain bool or Char values.
func TypeTag(arg any) (byte, error) {
	switch arg.(type) {
	case int32, bool:
		return TagInt32, nil
	case float32:
		return TagFloat32, nil
	case int64:
		return TagInt64, nil
	case float64:
		return TagFloat64, nil
	case string, address.Address, Char:
		return TagString, nil
	case []byte:
		return TagBlob, nil
	case Timetag:
		return TagTimetag, nil
	default:
		return 0, fmt.Errorf("%w: no tag for %T", ErrUnsupportedTypeTag, arg)
	}
}

// TypeTags returns the type-tag string for args, including the
// leading comma.
func TypeTags(args []any) (string, error) {
	tags := make([]byte, 1, len(args)+1)
	tags[0] = ','
	for _, a := range args {
		t, err := TypeTag(a)
		if err != nil {
			return "", err
		}
		tags = append(tags, t)
	}
	return string(tags), nil
}

// padBytes returns the padding needed to bring n up to a multiple of
// four.
func padBytes(n int) int { return (4 - n%4) % 4 }

// All multi-byte fields are big-endian. Scratch buffers are
// function-local: encode and decode are safe to run concurrently on
// independent buffers.

func appendUint32(buf *bytes.Buffer, v uint32) {
	var scratch [4]byte
	binary.BigEndian.PutUint32(scratch[:], v)
	buf.Write(scratch[:])
}

func appendUint64(buf *bytes.Buffer, v uint64) {
	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], v)
	buf.Write(scratch[:])
}

// appendPaddedString writes s followed by one to four NUL bytes,
// ending on a 4-byte boundary.
func appendPaddedString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	for i := (len(s)/4+1)*4 - len(s); i > 0; i-- {
		buf.WriteByte(0)
	}
}

// parsePaddedString reads a NUL-terminated padded string and returns
// it with the number of bytes consumed, padding included.
func parsePaddedString(data []byte) (string, int, error) {
	end := bytes.IndexByte(data, 0)
	if end < 0 {
		return "", 0, fmt.Errorf("%w: unterminated string", ErrTruncated)
	}
	n := (end/4 + 1) * 4
	if n > len(data) {
		return "", 0, fmt.Errorf("%w: string padding", ErrTruncated)
	}
	return string(data[:end]), n, nil
}

// appendBlob writes the 4-byte payload length (padding excluded) and
// the payload padded to a 4-byte boundary.
func appendBlob(buf *bytes.Buffer, b []byte) {
	appendUint32(buf, uint32(len(b)))
	buf.Write(b)
	for i := padBytes(len(b)); i > 0; i-- {
		buf.WriteByte(0)
	}
}

func parseBlob(data []byte) ([]byte, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("%w: blob length word", ErrTruncated)
	}
	blobLen := int(int32(binary.BigEndian.Uint32(data)))
	if blobLen < 0 {
		return nil, 0, fmt.Errorf("%w: negative blob length", ErrNotOSC)
	}
	n := 4 + blobLen + padBytes(blobLen)
	if n > len(data) {
		return nil, 0, fmt.Errorf("%w: blob of %d bytes, %d remain", ErrTruncated, blobLen, len(data)-4)
	}
	b := make([]byte, blobLen)
	copy(b, data[4:4+blobLen])
	return b, n, nil
}

func appendArgument(buf *bytes.Buffer, arg any) error {
	switch v := arg.(type) {
	case int32:
		appendUint32(buf, uint32(v))
	case bool:
		if v {
			appendUint32(buf, 1)
		} else {
			appendUint32(buf, 0)
		}
	case float32:
		appendUint32(buf, math.Float32bits(v))
	case int64:
		appendUint64(buf, uint64(v))
	case float64:
		appendUint64(buf, math.Float64bits(v))
	case string:
		appendPaddedString(buf, v)
	case address.Address:
		appendPaddedString(buf, v.String())
	case Char:
		appendPaddedString(buf, string(rune(v)))
	case []byte:
		appendBlob(buf, v)
	case Timetag:
		appendUint64(buf, uint64(v))
	default:
		return fmt.Errorf("%w: cannot encode %T", ErrUnsupportedTypeTag, arg)
	}
	return nil
}

// readArgument decodes one argument for tag and returns it with the
// number of bytes consumed.
func readArgument(data []byte, tag byte) (any, int, error) {
	switch tag {
	case TagInt32:
		if len(data) < 4 {
			return nil, 0, fmt.Errorf("%w: int32 argument", ErrTruncated)
		}
		return int32(binary.BigEndian.Uint32(data)), 4, nil
	case TagFloat32:
		if len(data) < 4 {
			return nil, 0, fmt.Errorf("%w: float32 argument", ErrTruncated)
		}
		return math.Float32frombits(binary.BigEndian.Uint32(data)), 4, nil
	case TagInt64:
		if len(data) < 8 {
			return nil, 0, fmt.Errorf("%w: int64 argument", ErrTruncated)
		}
		return int64(binary.BigEndian.Uint64(data)), 8, nil
	case TagFloat64:
		if len(data) < 8 {
			return nil, 0, fmt.Errorf("%w: float64 argument", ErrTruncated)
		}
		return math.Float64frombits(binary.BigEndian.Uint64(data)), 8, nil
	case TagString:
		s, n, err := parsePaddedString(data)
		if err != nil {
			return nil, 0, err
		}
		return s, n, nil
	case TagBlob:
		return parseBlob(data)
	case TagTimetag:
		if len(data) < 8 {
			return nil, 0, fmt.Errorf("%w: timetag argument", ErrTruncated)
		}
		return Timetag(binary.BigEndian.Uint64(data)), 8, nil
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedTypeTag, tag)
	}
}
