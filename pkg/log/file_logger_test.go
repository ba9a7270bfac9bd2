package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// newTestLog opens a FileLogger on a fresh temp path.
func newTestLog(t *testing.T) (*FileLogger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.olog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger, path
}

// transportEvent builds a minimal inbound transport event.
func transportEvent(connID string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionIn,
		Layer:        LayerTransport,
		Category:     CategoryPacket,
	}
}

// decodeAll reads back every event in the file at path.
func decodeAll(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var events []Event
	dec := NewDecoder(f)
	for {
		var event Event
		if err := dec.Decode(&event); err != nil {
			break
		}
		events = append(events, event)
	}
	return events
}

func TestFileLoggerCreatesFile(t *testing.T) {
	_, path := newTestLog(t)

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file was not created: %v", err)
	}
}

func TestFileLoggerWritesCBOR(t *testing.T) {
	logger, path := newTestLog(t)

	event := transportEvent("conn-123")
	event.Datagram = &DatagramEvent{Size: 100, Data: []byte{1, 2, 3}}

	logger.Log(event)
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if decoded.ConnectionID != "conn-123" {
		t.Errorf("ConnectionID: got %q, want %q", decoded.ConnectionID, "conn-123")
	}
	if decoded.Datagram == nil {
		t.Error("Datagram is nil")
	} else if decoded.Datagram.Size != 100 {
		t.Errorf("Datagram.Size: got %d, want 100", decoded.Datagram.Size)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.olog")

	// Two separate logger lifetimes over the same file
	first, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	first.Log(transportEvent("conn-1"))
	first.Close()

	second, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger reopen failed: %v", err)
	}
	second.Log(transportEvent("conn-2"))
	second.Close()

	events := decodeAll(t, path)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ConnectionID != "conn-1" || events[1].ConnectionID != "conn-2" {
		t.Errorf("events out of order: %q then %q", events[0].ConnectionID, events[1].ConnectionID)
	}
}

func TestFileLoggerConcurrentWriters(t *testing.T) {
	logger, path := newTestLog(t)

	const writers = 10
	const eventsPerWriter = 100

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < eventsPerWriter; j++ {
				logger.Log(transportEvent(fmt.Sprintf("conn-%d", id)))
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	// Interleaved writes must still yield a cleanly decodable stream
	events := decodeAll(t, path)
	if len(events) != writers*eventsPerWriter {
		t.Errorf("got %d events, want %d", len(events), writers*eventsPerWriter)
	}
}

func TestFileLoggerClose(t *testing.T) {
	logger, path := newTestLog(t)
	logger.Log(transportEvent("conn-123"))

	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	// Events after Close are dropped, not appended
	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Log(transportEvent("conn-456"))
	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if after.Size() != before.Size() {
		t.Errorf("file grew after Close: %d -> %d bytes", before.Size(), after.Size())
	}
}
