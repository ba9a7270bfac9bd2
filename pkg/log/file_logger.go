package log

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends protocol events to a file as a stream of CBOR-encoded
// Events, one per Log call. By convention such files use the .olog
// extension. All methods are safe for concurrent use.
type FileLogger struct {
	mu  sync.Mutex
	f   *os.File
	enc *cbor.Encoder
}

// NewFileLogger opens path for appending, creating it with mode 0644 if it
// does not exist. Events written by earlier runs are preserved.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{f: f, enc: NewEncoder(f)}, nil
}

// Log appends one event to the file. Events that fail to encode are
// dropped, as are events arriving after Close: logging must not disrupt
// packet flow.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.enc == nil {
		return
	}
	_ = l.enc.Encode(event)
}

// Close closes the log file. Further Log calls become no-ops, and calling
// Close again returns nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f, l.enc = nil, nil
	return err
}

var _ Logger = (*FileLogger)(nil)
