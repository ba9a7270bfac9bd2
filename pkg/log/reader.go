package log

import (
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/osc-protocol/osc-go/pkg/address"
)

// Filter selects events when reading a log file. The zero value keeps
// every event; each set field narrows the selection.
type Filter struct {
	// ConnectionID keeps events with this exact connection ID.
	ConnectionID string

	// Direction keeps events flowing the given way.
	Direction *Direction

	// Layer keeps events from one protocol layer.
	Layer *Layer

	// Category keeps events of one category.
	Category *Category

	// TimeStart keeps events at or after this time.
	TimeStart *time.Time

	// TimeEnd keeps events strictly before this time.
	TimeEnd *time.Time

	// Address keeps packet events whose message address matches this
	// OSC pattern (e.g. "/synth/*"). Non-packet events are dropped.
	Address string
}

// keep reports whether the event passes every set criterion.
func (f *Filter) keep(event Event) bool {
	switch {
	case f.ConnectionID != "" && event.ConnectionID != f.ConnectionID:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	}
	if !f.inWindow(event.Timestamp) {
		return false
	}
	return f.Address == "" || f.keepAddress(event.Packet)
}

func (f *Filter) inWindow(ts time.Time) bool {
	if f.TimeStart != nil && ts.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !ts.Before(*f.TimeEnd) {
		return false
	}
	return true
}

func (f *Filter) keepAddress(p *PacketEvent) bool {
	if p == nil || p.Address == "" {
		return false
	}
	ok, err := address.MatchString(p.Address, f.Address)
	return err == nil && ok
}

// Reader streams events from a CBOR log file one at a time, so large
// captures never need to fit in memory.
type Reader struct {
	src    *os.File
	dec    *cbor.Decoder
	filter Filter
}

// NewReader opens path and returns a Reader over every event in it.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and returns a Reader that yields only the
// events passing the filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{src: f, dec: NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF after the last one.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.dec.Decode(&event); err != nil {
			return Event{}, err
		}
		if r.filter.keep(event) {
			return event, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.src.Close()
}
