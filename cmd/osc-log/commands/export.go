package commands

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/osc-protocol/osc-go/pkg/log"
)

// RunExport converts the log file to the named format. Output goes to
// stdout when no output path is given; SQLite export always needs one.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var export func(*log.Reader, io.Writer) error
	switch format {
	case "jsonl":
		export = exportJSONL
	case "csv":
		export = exportCSV
	case "sqlite":
		if output == "" {
			return fmt.Errorf("sqlite export requires an output file (-o)")
		}
		return exportSQLite(reader, output)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv, sqlite)", format)
	}

	w := io.Writer(os.Stdout)
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return export(reader, w)
}

// exportJSONL writes one JSON object per event, with the event's
// native field names.
func exportJSONL(reader *log.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

var csvHeader = []string{
	"timestamp", "connection_id", "direction", "layer", "category",
	"remote_addr", "type", "address", "type_tags",
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
}

// csvRow flattens an event into one line of csvHeader columns.
func csvRow(event log.Event) []string {
	kind, addr, tags := "unknown", "", ""
	switch {
	case event.Datagram != nil:
		kind = "datagram"
	case event.Packet != nil:
		kind = strings.ToLower(event.Packet.Kind.String())
		addr = event.Packet.Address
		tags = event.Packet.TypeTags
	case event.StateChange != nil:
		kind = "state"
	case event.Error != nil:
		kind = "error"
	}
	return []string{
		event.Timestamp.UTC().Format(timestampLayout),
		event.ConnectionID,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		event.RemoteAddr,
		kind,
		addr,
		tags,
	}
}

// exportSQLite writes all events into a single denormalized table. Columns
// that do not apply to an event's payload are NULL.
func exportSQLite(reader *log.Reader, path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		return fmt.Errorf("failed to configure database: %w", err)
	}

	if err := migrateEvents(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO events (timestamp, connection_id, direction, layer, category, remote_addr,
		                    kind, address, type_tags, arguments, timetag, messages, depth,
		                    datagram_size, state_entity, old_state, new_state, state_reason,
		                    error_message, error_context)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if _, err := stmt.Exec(eventRow(event)...); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	return tx.Commit()
}

// migrateEvents creates the database schema.
func migrateEvents(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		connection_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		layer TEXT NOT NULL,
		category TEXT NOT NULL,
		remote_addr TEXT,
		kind TEXT,
		address TEXT,
		type_tags TEXT,
		arguments INTEGER,
		timetag TEXT,
		messages INTEGER,
		depth INTEGER,
		datagram_size INTEGER,
		state_entity TEXT,
		old_state TEXT,
		new_state TEXT,
		state_reason TEXT,
		error_message TEXT,
		error_context TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_connection_id ON events(connection_id);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_address ON events(address);
	`

	_, err := db.Exec(schema)
	return err
}

// eventRow flattens an event into the insert argument list.
func eventRow(event log.Event) []any {
	var (
		kind, addr, tags, args     any
		timetag, messages, depth   any
		datagramSize               any
		entity, oldState, newState any
		stateReason                any
		errMessage, errContext     any
	)

	switch {
	case event.Packet != nil:
		p := event.Packet
		kind = strings.ToLower(p.Kind.String())
		if p.Kind == log.KindMessage {
			addr = p.Address
			tags = p.TypeTags
			args = p.Arguments
		} else {
			// NTP timetags overflow int64, so the column holds decimal text.
			timetag = strconv.FormatUint(p.Timetag, 10)
			messages = p.Messages
			depth = p.Depth
		}
	case event.Datagram != nil:
		datagramSize = event.Datagram.Size
	case event.StateChange != nil:
		sc := event.StateChange
		entity = sc.Entity.String()
		oldState = nullString(sc.OldState)
		newState = sc.NewState
		stateReason = nullString(sc.Reason)
	case event.Error != nil:
		errMessage = event.Error.Message
		errContext = nullString(event.Error.Context)
	}

	return []any{
		event.Timestamp.UTC().Format(timestampLayout),
		event.ConnectionID,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		nullString(event.RemoteAddr),
		kind, addr, tags, args,
		timetag, messages, depth,
		datagramSize,
		entity, oldState, newState, stateReason,
		errMessage, errContext,
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
