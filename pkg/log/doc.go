// Package log captures OSC protocol traffic as structured events.
//
// Protocol capture is separate from operational logging (slog). Every
// datagram, decoded packet, state change, and error becomes an Event, so
// a session can be replayed and inspected offline. Events carry a layer
// (transport, wire, service) and a category (packet, state, error).
//
// # Choosing a sink
//
// Anything implementing Logger can receive events:
//
//	// Development: protocol events interleaved with slog output
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Capture: append to a binary .olog file
//	fileLogger, err := log.NewFileLogger("session.olog")
//
//	// Both at once
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # On-disk format
//
// A .olog file is a plain concatenation of CBOR-encoded events with
// integer keys. Reader streams them back, optionally filtered; the
// osc-log tool builds viewing and export on top of it.
package log
