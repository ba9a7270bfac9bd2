package cuelist

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/osc-protocol/osc-go/pkg/wire"
)

// Arg is one decoded message argument. Value holds a type the wire
// layer encodes directly (int32, int64, float32, float64, string,
// bool, []byte, wire.Char, wire.Timetag).
type Arg struct {
	Value any
}

// UnmarshalYAML decodes a scalar into an argument value. Strings go
// through the tagged-literal syntax; other scalars map by YAML type.
func (a *Arg) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return &LoadError{Line: node.Line, Message: "argument must be a scalar"}
	}

	switch node.Tag {
	case "!!int":
		var v int64
		if err := node.Decode(&v); err != nil {
			return err
		}
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			a.Value = int32(v)
		} else {
			a.Value = v
		}
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		a.Value = float32(f)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		a.Value = b
	case "!!str":
		v, err := parseTagged(node.Value)
		if err != nil {
			return &LoadError{Line: node.Line, Message: err.Error(), Cause: err}
		}
		a.Value = v
	default:
		return &LoadError{
			Line:    node.Line,
			Message: fmt.Sprintf("unsupported argument %q", node.Value),
		}
	}
	return nil
}

// ParseArg converts a command-line literal into a message argument. It is
// the flag-friendly form of the cue sheet syntax: tag and value joined by
// a colon (i:440, f:0.5, h:9000000000, d:1.5, s:hello, b:deadbeef,
// t:immediate, c:A), the bare booleans T and F, or an untyped scalar
// that infers int32, int64, float32, or string.
func ParseArg(literal string) (any, error) {
	tag, value, found := strings.Cut(literal, ":")
	if found && len(tag) == 1 {
		v, ok, err := taggedValue(tag, value)
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
	}

	switch literal {
	case "T":
		return true, nil
	case "F":
		return false, nil
	}
	if n, err := strconv.ParseInt(literal, 10, 32); err == nil {
		return int32(n), nil
	}
	if n, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(literal, 32); err == nil {
		return float32(f), nil
	}
	return literal, nil
}

// parseTagged decodes the "<tag> <value>" literal syntax. A string
// with no recognized tag prefix is a plain string argument.
func parseTagged(s string) (any, error) {
	tag, rest, found := strings.Cut(s, " ")
	if !found {
		switch s {
		case "T":
			return true, nil
		case "F":
			return false, nil
		}
		return s, nil
	}

	v, ok, err := taggedValue(tag, rest)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s, nil
	}
	return v, nil
}

// taggedValue decodes one tagged value. ok is false when the tag is not
// part of the syntax, in which case the caller keeps the whole literal
// as a plain string.
func taggedValue(tag, value string) (any, bool, error) {
	switch tag {
	case "i":
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nil, true, fmt.Errorf("int32 literal %q: %w", value, err)
		}
		return int32(v), true, nil
	case "f":
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return nil, true, fmt.Errorf("float32 literal %q: %w", value, err)
		}
		return float32(v), true, nil
	case "h":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, true, fmt.Errorf("int64 literal %q: %w", value, err)
		}
		return v, true, nil
	case "d":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, true, fmt.Errorf("float64 literal %q: %w", value, err)
		}
		return v, true, nil
	case "s":
		return value, true, nil
	case "b":
		raw, err := hex.DecodeString(value)
		if err != nil {
			return nil, true, fmt.Errorf("blob literal %q: %w", value, err)
		}
		return raw, true, nil
	case "t":
		if value == "immediate" {
			return wire.TimetagImmediate, true, nil
		}
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, true, fmt.Errorf("timetag literal %q: %w", value, err)
		}
		return wire.NewTimetag(ts), true, nil
	case "c":
		if len(value) != 1 || value[0] > unicode.MaxASCII {
			return nil, true, fmt.Errorf("char literal %q: want one ASCII character", value)
		}
		return wire.Char(value[0]), true, nil
	default:
		return nil, false, nil
	}
}
