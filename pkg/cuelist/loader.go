package cuelist

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/osc-protocol/osc-go/pkg/wire"
)

// Parse parses and validates a cue sheet from YAML bytes.
func Parse(data []byte) (*Sheet, error) {
	var sheet Sheet
	if err := yaml.Unmarshal(data, &sheet); err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, le
		}
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	if err := sheet.Validate(); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// Load loads a cue sheet from a file.
func Load(path string) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	sheet, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return sheet, nil
}

// Validate checks the sheet: at least one cue, each cue well formed,
// offsets never decreasing.
func (s *Sheet) Validate() error {
	if len(s.Cues) == 0 {
		return &LoadError{Message: "cue sheet has no cues"}
	}

	var prev Offset
	for i := range s.Cues {
		cue := &s.Cues[i]
		if err := cue.validate(); err != nil {
			return &LoadError{Message: fmt.Sprintf("cue %d: %v", i, err)}
		}
		if cue.At < prev {
			return &LoadError{
				Message: fmt.Sprintf("cue %d: offset %s before cue %d", i, cue.At, i-1),
			}
		}
		prev = cue.At
	}
	return nil
}

func (c *Cue) validate() error {
	switch {
	case c.Address != "" && len(c.Bundle) > 0:
		return errors.New("has both address and bundle")
	case c.Address == "" && len(c.Bundle) == 0:
		return errors.New("has neither address nor bundle")
	}

	if c.Address != "" {
		return wire.NewMessage(c.Address, argValues(c.Args)...).Validate()
	}
	for j := range c.Bundle {
		e := &c.Bundle[j]
		if err := wire.NewMessage(e.Address, argValues(e.Args)...).Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", j, err)
		}
	}
	return nil
}

// Packet builds the wire packet for one cue: a message, or a bundle
// with the immediate timetag.
func (c *Cue) Packet() (wire.Packet, error) {
	if c.Address != "" {
		m := wire.NewMessage(c.Address, argValues(c.Args)...)
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return m, nil
	}

	b := wire.NewBundle(wire.TimetagImmediate)
	for i := range c.Bundle {
		e := &c.Bundle[i]
		m := wire.NewMessage(e.Address, argValues(e.Args)...)
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if err := b.Append(m); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func argValues(args []Arg) []any {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	return vals
}
