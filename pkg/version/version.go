// Package version parses and compares the protocol version carried in
// discovery TXT records under the "v" key.
//
// Versions follow a "major.minor" scheme. Two endpoints interoperate when
// their major versions match; minor bumps stay wire compatible.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the protocol version implemented by this library.
const Current = "1.0"

// Version is a parsed "major.minor" protocol version.
type Version struct {
	Major uint16
	Minor uint16
}

// Parse converts a "major.minor" string into a Version.
func Parse(s string) (Version, error) {
	majorStr, minorStr, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, fmt.Errorf("version %q: want major.minor", s)
	}
	major, err := parsePart(majorStr)
	if err != nil {
		return Version{}, fmt.Errorf("version %q: bad major component", s)
	}
	minor, err := parsePart(minorStr)
	if err != nil {
		return Version{}, fmt.Errorf("version %q: bad minor component", s)
	}
	return Version{Major: major, Minor: minor}, nil
}

func parsePart(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}

// String formats the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible reports whether both versions share a major version.
// Minor differences never break the wire format.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}
