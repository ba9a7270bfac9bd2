package address

import (
	"hash/fnv"
	"strings"
)

const (
	// patternChars have special meaning to the matcher.
	patternChars = "*?[]{}"
	// reservedChars are forbidden in method and container names but
	// carry no pattern meaning: the path separator, the bundle marker
	// prefix, the type-tag introducer, and the space.
	reservedChars = " #,/"
)

const (
	flagPattern uint8 = 1 << iota
	flagReserved
)

// Address is an immutable ASCII byte string holding an OSC address, an
// address pattern, or a single path segment. The zero value is the
// empty address.
//
// Address values are comparable; two addresses are equal when their
// bytes are equal.
type Address struct {
	str   string
	flags uint8
}

// New returns the Address holding the bytes of s.
func New(s string) Address {
	return Address{str: s, flags: scanFlags(s)}
}

// FromBytes returns the Address holding a copy of b.
func FromBytes(b []byte) Address {
	return New(string(b))
}

func scanFlags(s string) uint8 {
	var f uint8
	if strings.ContainsAny(s, patternChars) {
		f |= flagPattern
	}
	if strings.ContainsAny(s, reservedChars) {
		f |= flagReserved
	}
	return f
}

// String returns the address bytes as a string.
func (a Address) String() string { return a.str }

// Len returns the raw byte count, excluding any wire padding.
func (a Address) Len() int { return len(a.str) }

// WireLen returns the encoded length on the wire: the raw bytes plus
// one to four NUL bytes of padding to the next multiple of four.
func (a Address) WireLen() int {
	return (len(a.str)/4 + 1) * 4
}

// HasPattern reports whether the address contains matcher syntax
// (* ? [ ] { }).
func (a Address) HasPattern() bool { return a.flags&flagPattern != 0 }

// HasReserved reports whether the address contains protocol-reserved
// characters (space # , /).
func (a Address) HasReserved() bool { return a.flags&flagReserved != 0 }

// Equal reports byte-wise equality with other.
func (a Address) Equal(other Address) bool { return a.str == other.str }

// Hash returns a stable FNV-1a hash of the address bytes. The value is
// the same across processes and runs, unlike Go's randomized map hash.
func (a Address) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(a.str))
	return h.Sum64()
}

// Split returns the runs of bytes between occurrences of sep, in
// order. Zero-length segments are dropped wherever they occur, so
// leading, trailing, and doubled separators produce no entries.
func (a Address) Split(sep byte) []Address {
	parts := strings.Split(a.str, string(sep))
	out := make([]Address, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, New(p))
		}
	}
	return out
}
