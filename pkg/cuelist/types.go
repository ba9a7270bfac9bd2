package cuelist

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Sheet is one cue sheet loaded from YAML.
type Sheet struct {
	// Name identifies the sheet (e.g., "opening").
	Name string `yaml:"name"`

	// Cues are played in order; offsets must not decrease.
	Cues []Cue `yaml:"cues"`
}

// Cue is one timed step. Exactly one of Address or Bundle is set.
type Cue struct {
	// At is the offset from the start of playback.
	At Offset `yaml:"at"`

	// Address and Args describe a single message.
	Address string `yaml:"address,omitempty"`
	Args    []Arg  `yaml:"args,omitempty"`

	// Bundle lists messages delivered together in one bundle.
	Bundle []Entry `yaml:"bundle,omitempty"`
}

// Entry is one message inside a bundle cue.
type Entry struct {
	Address string `yaml:"address"`
	Args    []Arg  `yaml:"args,omitempty"`
}

// Offset is a cue offset, written in Go duration syntax ("1.5s",
// "1500ms").
type Offset time.Duration

// UnmarshalYAML decodes a duration scalar and rejects negative
// offsets.
func (o *Offset) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return &LoadError{Line: node.Line, Message: "offset must be a scalar"}
	}
	d, err := time.ParseDuration(node.Value)
	if err != nil {
		return &LoadError{
			Line:    node.Line,
			Message: fmt.Sprintf("invalid offset %q", node.Value),
			Cause:   err,
		}
	}
	if d < 0 {
		return &LoadError{
			Line:    node.Line,
			Message: fmt.Sprintf("negative offset %q", node.Value),
		}
	}
	*o = Offset(d)
	return nil
}

// String returns the offset in Go duration syntax.
func (o Offset) String() string { return time.Duration(o).String() }

// LoadError describes a cue sheet that failed to load or validate.
type LoadError struct {
	// File is the path that failed to load, if known.
	File string

	// Line is the source line, 0 if unknown.
	Line int

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	case e.File != "":
		return e.File + ": " + e.Message
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	default:
		return e.Message
	}
}

func (e *LoadError) Unwrap() error { return e.Cause }
