// Command osc-log inspects .olog protocol capture files.
//
// Captures are produced by osc-monitor, osc-send, and osc-console when
// started with -protocol-log, and record every datagram, packet, state
// change, and error with timestamps and connection IDs.
//
// Usage:
//
//	osc-log <command> [flags] <file.olog>
//
// The view command pretty-prints events, export converts them to JSONL,
// CSV, or a SQLite database, filter writes a narrowed copy of a capture,
// and stats summarizes traffic per layer, address, and connection.
//
// Examples:
//
//	osc-log view --layer wire session.olog
//	osc-log view --address "/synth/*/freq" session.olog
//	osc-log export --format sqlite -o session.db session.olog
//	osc-log filter --conn-id abc12345 -o filtered.olog session.olog
//	osc-log stats session.olog
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/osc-protocol/osc-go/cmd/osc-log/commands"
)

const usage = `osc-log - OSC protocol log analyzer

Usage:
  osc-log <command> [flags] <file.olog>

Commands:
  view     Pretty-print events from a capture
  export   Convert a capture to JSONL, CSV, or SQLite
  filter   Write a narrowed copy of a capture
  stats    Summarize traffic in a capture

Use "osc-log <command> -help" for details on a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "view":
		err = runView(args)
	case "export":
		err = runExport(args)
	case "filter":
		err = runFilter(args)
	case "stats":
		err = runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", cmd, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runView(args []string) error {
	fs := newFlagSet("view", "Pretty-print events from a capture")
	layer := fs.String("layer", "", "Show only this layer (transport, wire, service)")
	direction := fs.String("direction", "", "Show only this direction (in, out)")
	category := fs.String("category", "", "Show only this category (packet, state, error)")
	addr := fs.String("address", "", "Show only packets matching this address pattern")
	path := logPath(fs, args)

	filter, err := commands.ParseViewFilter(*layer, *direction, *category, *addr)
	if err != nil {
		return err
	}
	return commands.RunView(path, filter, os.Stdout)
}

func runExport(args []string) error {
	fs := newFlagSet("export", "Convert a capture to JSONL, CSV, or SQLite")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv, sqlite)")
	output := fs.String("o", "", "Output file (default: stdout; required for sqlite)")
	path := logPath(fs, args)

	return commands.RunExport(path, *format, *output)
}

func runFilter(args []string) error {
	fs := newFlagSet("filter", "Write a narrowed copy of a capture")
	output := fs.String("o", "", "Output file (required)")
	connID := fs.String("conn-id", "", "Keep only events for this connection ID")
	addr := fs.String("address", "", "Keep only packets matching this address pattern")
	timeStart := fs.String("time-start", "", "Drop events before this RFC3339 time")
	timeEnd := fs.String("time-end", "", "Drop events at or after this RFC3339 time")
	layer := fs.String("layer", "", "Keep only this layer (transport, wire, service)")
	direction := fs.String("direction", "", "Keep only this direction (in, out)")
	category := fs.String("category", "", "Keep only this category (packet, state, error)")
	path := logPath(fs, args)

	if *output == "" {
		return errors.New("output file (-o) required")
	}

	return commands.RunFilter(path, commands.FilterOptions{
		Output:    *output,
		ConnID:    *connID,
		Address:   *addr,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
		Layer:     *layer,
		Direction: *direction,
		Category:  *category,
	})
}

func runStats(args []string) error {
	fs := newFlagSet("stats", "Summarize traffic in a capture")
	path := logPath(fs, args)

	return commands.RunStats(path, os.Stdout)
}

// newFlagSet builds a subcommand flag set with a standard usage message.
func newFlagSet(name, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "osc-log %s - %s\n\nUsage:\n  osc-log %s [flags] <file.olog>\n\nFlags:\n",
			name, summary, name)
		fs.PrintDefaults()
	}
	return fs
}

// logPath parses the subcommand flags and returns the mandatory log
// file argument, exiting on bad input the way flag.ExitOnError does.
func logPath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}
