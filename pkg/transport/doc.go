// Package transport provides the OSC transport layer over UDP.
//
// The transport layer handles:
//   - UDP socket lifecycle in open and targeted modes
//   - Datagram send/receive with size validation
//   - A receive-loop server with packet and error callbacks
//   - Protocol logging of raw datagrams
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      OSC Packets               │
//	├────────────────────────────────┤
//	│      UDP Datagrams             │
//	├────────────────────────────────┤
//	│      IPv4 / IPv6               │
//	└────────────────────────────────┘
//
// # Socket Modes
//
// An open socket (Listen) is bound locally and exchanges datagrams with
// any peer via SendTo. A targeted socket (Dial) is connected to one
// fixed peer and uses Send. The two modes never mix: Send on an open
// socket returns ErrNoPeer, SendTo on a targeted socket returns
// ErrFixedPeer.
//
// # Framing
//
// UDP preserves datagram boundaries, so no length prefix is needed:
// one datagram carries exactly one top-level OSC packet. Datagrams
// larger than MaxPacketSize (65507 bytes, the IPv4 UDP payload limit)
// are rejected before sending.
package transport
