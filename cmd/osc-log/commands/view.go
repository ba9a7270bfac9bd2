// Package commands implements the osc-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/osc-protocol/osc-go/pkg/address"
	"github.com/osc-protocol/osc-go/pkg/log"
	"github.com/osc-protocol/osc-go/pkg/wire"
)

// timestampLayout renders event times in UTC with microsecond precision.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// ViewFilter selects which events the view command prints.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category

	// Address is an OSC address pattern matched against message events.
	// When set, non-packet events and bundles are excluded.
	Address string
}

func (f ViewFilter) keep(event log.Event) bool {
	switch {
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	}
	if f.Address == "" {
		return true
	}
	if event.Packet == nil || event.Packet.Address == "" {
		return false
	}
	ok, err := address.MatchString(event.Packet.Address, f.Address)
	return err == nil && ok
}

// RunView pretty-prints the events in a log file, one block per event.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if filter.keep(event) {
			formatEvent(output, event)
		}
	}
	return nil
}

// formatEvent writes one event as a header line plus indented details.
func formatEvent(w io.Writer, event log.Event) {
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n",
		event.Timestamp.UTC().Format(timestampLayout),
		shortConn(event.ConnectionID),
		event.Direction.String(),
		event.Layer.String(),
		eventLabel(event),
	)
	if event.RemoteAddr != "" {
		fmt.Fprintf(w, "  Peer: %s\n", event.RemoteAddr)
	}

	switch {
	case event.Datagram != nil:
		writeDatagram(w, event.Datagram)
	case event.Packet != nil:
		writePacket(w, event.Packet)
	case event.StateChange != nil:
		writeState(w, event.StateChange)
	case event.Error != nil:
		writeError(w, event.Error)
	}

	// Blank line between events
	fmt.Fprintln(w)
}

// eventLabel names the payload an event carries.
func eventLabel(event log.Event) string {
	switch {
	case event.Datagram != nil:
		return "Datagram"
	case event.Packet != nil:
		return event.Packet.Kind.String()
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	}
	return "Unknown"
}

// shortConn abbreviates a connection ID to its first 8 characters.
func shortConn(id string) string {
	return id[:min(8, len(id))]
}

func writeDatagram(w io.Writer, dg *log.DatagramEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", dg.Size)
	if len(dg.Data) == 0 {
		return
	}
	suffix := ""
	if dg.Truncated {
		suffix = " (truncated)"
	}
	fmt.Fprintf(w, "  Data: %s%s\n", hex.EncodeToString(dg.Data), suffix)
}

func writePacket(w io.Writer, p *log.PacketEvent) {
	if p.Kind == log.KindBundle {
		fmt.Fprintf(w, "  Timetag: %s\n", wire.Timetag(p.Timetag).String())
		fmt.Fprintf(w, "  Messages: %d (depth %d)\n", p.Messages, p.Depth)
		return
	}
	fmt.Fprintf(w, "  Address: %s\n", p.Address)
	if p.Arguments > 0 {
		fmt.Fprintf(w, "  Types: ,%s (%d arguments)\n", p.TypeTags, p.Arguments)
	}
}

func writeState(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func writeError(w io.Writer, ee *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", ee.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", ee.Message)
	if ee.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", ee.Context)
	}
}

// ParseLayerFlag parses a case-insensitive layer flag value.
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "service":
		return log.LayerService, nil
	}
	return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or service)", s)
}

// ParseDirectionFlag parses a case-insensitive direction flag value.
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	}
	return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
}

// ParseCategoryFlag parses a case-insensitive category flag value.
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "packet":
		return log.CategoryPacket, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	}
	return 0, fmt.Errorf("invalid category: %s (must be packet, state, or error)", s)
}

// ParseViewFilter builds a ViewFilter from raw flag values. Empty
// strings leave the corresponding dimension unfiltered.
func ParseViewFilter(layer, direction, category, address string) (ViewFilter, error) {
	filter := ViewFilter{Address: address}
	if layer != "" {
		l, err := ParseLayerFlag(layer)
		if err != nil {
			return ViewFilter{}, err
		}
		filter.Layer = &l
	}
	if direction != "" {
		d, err := ParseDirectionFlag(direction)
		if err != nil {
			return ViewFilter{}, err
		}
		filter.Direction = &d
	}
	if category != "" {
		c, err := ParseCategoryFlag(category)
		if err != nil {
			return ViewFilter{}, err
		}
		filter.Category = &c
	}
	return filter, nil
}
