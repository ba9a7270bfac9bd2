package commands

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/osc-protocol/osc-go/pkg/log"
)

// topAddresses caps the per-address breakdown in the stats output.
const topAddresses = 10

// tally accumulates aggregate statistics over one log file.
type tally struct {
	total       int
	byLayer     map[log.Layer]int
	byCategory  map[log.Category]int
	byDirection map[log.Direction]int
	byAddress   map[string]int
	conns       map[string]*connTally
	bundles     int
	errors      int
	first       time.Time
	last        time.Time
}

// connTally tracks a single connection's share of the log.
type connTally struct {
	firstSeen time.Time
	lastSeen  time.Time
	events    int
	packets   int
	remote    string
}

func newTally() *tally {
	return &tally{
		byLayer:     make(map[log.Layer]int),
		byCategory:  make(map[log.Category]int),
		byDirection: make(map[log.Direction]int),
		byAddress:   make(map[string]int),
		conns:       make(map[string]*connTally),
	}
}

// observe folds one event into the running totals.
func (t *tally) observe(event log.Event) {
	t.total++
	t.byLayer[event.Layer]++
	t.byCategory[event.Category]++
	t.byDirection[event.Direction]++

	if t.first.IsZero() || event.Timestamp.Before(t.first) {
		t.first = event.Timestamp
	}
	if event.Timestamp.After(t.last) {
		t.last = event.Timestamp
	}

	conn, ok := t.conns[event.ConnectionID]
	if !ok {
		conn = &connTally{firstSeen: event.Timestamp, lastSeen: event.Timestamp}
		t.conns[event.ConnectionID] = conn
	}
	conn.events++
	if event.Timestamp.After(conn.lastSeen) {
		conn.lastSeen = event.Timestamp
	}
	if conn.remote == "" {
		conn.remote = event.RemoteAddr
	}

	if event.Packet != nil {
		conn.packets++
		switch event.Packet.Kind {
		case log.KindMessage:
			t.byAddress[event.Packet.Address]++
		case log.KindBundle:
			t.bundles++
		}
	}
	if event.Error != nil {
		t.errors++
	}
}

// RunStats aggregates the log file and writes a summary report.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	t := newTally()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		t.observe(event)
	}

	t.write(w)
	return nil
}

// countRow is one line of a breakdown section.
type countRow struct {
	label string
	n     int
}

func (t *tally) write(w io.Writer) {
	fmt.Fprintln(w, "=== OSC Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if t.total > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			t.first.Format(time.RFC3339), t.last.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", t.last.Sub(t.first).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", t.total)
	fmt.Fprintln(w)

	writeSection(w, "Events by Layer", []countRow{
		{log.LayerTransport.String(), t.byLayer[log.LayerTransport]},
		{log.LayerWire.String(), t.byLayer[log.LayerWire]},
		{log.LayerService.String(), t.byLayer[log.LayerService]},
	})
	writeSection(w, "Events by Category", []countRow{
		{log.CategoryPacket.String(), t.byCategory[log.CategoryPacket]},
		{log.CategoryState.String(), t.byCategory[log.CategoryState]},
		{log.CategoryError.String(), t.byCategory[log.CategoryError]},
	})
	writeSection(w, "Events by Direction", []countRow{
		{log.DirectionIn.String(), t.byDirection[log.DirectionIn]},
		{log.DirectionOut.String(), t.byDirection[log.DirectionOut]},
	})

	if len(t.byAddress) > 0 {
		t.writeAddresses(w)
		fmt.Fprintln(w)
	}
	if t.bundles > 0 {
		fmt.Fprintf(w, "Bundles: %d\n", t.bundles)
		fmt.Fprintln(w)
	}

	t.writeConnections(w)

	if t.errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", t.errors)
	}
}

// writeSection prints one breakdown, skipping rows with no events.
func writeSection(w io.Writer, title string, rows []countRow) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, r := range rows {
		if r.n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", r.label+":", r.n)
		}
	}
	fmt.Fprintln(w)
}

// writeAddresses prints message counts for the busiest addresses,
// ties broken alphabetically.
func (t *tally) writeAddresses(w io.Writer) {
	type addrRow struct {
		addr string
		n    int
	}
	rows := make([]addrRow, 0, len(t.byAddress))
	for addr, n := range t.byAddress {
		rows = append(rows, addrRow{addr, n})
	}
	slices.SortFunc(rows, func(a, b addrRow) int {
		return cmp.Or(cmp.Compare(b.n, a.n), strings.Compare(a.addr, b.addr))
	})

	fmt.Fprintln(w, "Messages by Address:")
	for _, r := range rows[:min(topAddresses, len(rows))] {
		fmt.Fprintf(w, "  %-24s %d\n", r.addr, r.n)
	}
	if len(rows) > topAddresses {
		fmt.Fprintf(w, "  (%d more)\n", len(rows)-topAddresses)
	}
}

// writeConnections lists connections in order of first appearance.
func (t *tally) writeConnections(w io.Writer) {
	fmt.Fprintf(w, "Connections: %d\n", len(t.conns))
	if len(t.conns) == 0 {
		return
	}

	type conn struct {
		id string
		*connTally
	}
	conns := make([]conn, 0, len(t.conns))
	for id, ct := range t.conns {
		conns = append(conns, conn{id, ct})
	}
	slices.SortFunc(conns, func(a, b conn) int {
		return a.firstSeen.Compare(b.firstSeen)
	})

	fmt.Fprintln(w)
	for _, c := range conns {
		duration := c.lastSeen.Sub(c.firstSeen).Round(time.Millisecond)
		fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortConn(c.id), c.events, duration)
		if c.remote != "" {
			fmt.Fprintf(w, "           Peer: %s\n", c.remote)
		}
		if c.packets > 0 {
			fmt.Fprintf(w, "           Packets: %d\n", c.packets)
		}
	}
}
