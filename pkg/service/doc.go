// Package service assembles the transport, wire, and dispatch layers
// into runnable OSC endpoints.
//
// Server binds a UDP socket, decodes every received datagram, and feeds
// the result to an address space. Bundle timetags are honored: a bundle
// stamped in the future is held on a timer and dispatched when its time
// arrives, while immediate and past timetags dispatch on the receive
// path. Client wraps a UDP socket for the sending side and marshals
// packets on the way out.
//
// Both ends emit protocol log events (see pkg/log) when a protocol
// logger is configured, and accept an optional *slog.Logger for debug
// output.
package service
