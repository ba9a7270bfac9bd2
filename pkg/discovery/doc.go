// Package discovery implements mDNS/DNS-SD discovery for OSC endpoints.
//
// # Endpoint Discovery (_osc._udp)
//
// A server advertises one service instance per bound socket. The
// instance name is chosen by the application (e.g. "BigSynth", "FOH
// Mixer"). TXT records:
//
//	txtvers=1      TXT format version (always 1)
//	v=1.0          OSC protocol version
//	root=/synth    optional namespace root served by this endpoint
//
// All TXT keys are optional on the wire: endpoints advertised by other
// OSC implementations often carry no TXT data at all, and still resolve
// with empty Version and Root.
//
// # Browsing
//
// Browser.Browse delivers discovered peers on an added channel and
// expirations on a removed channel. Addresses seen on multiple network
// interfaces aggregate under one instance name; a peer is reported
// removed only when its last address disappears.
package discovery
