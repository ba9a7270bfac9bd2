// Package wire implements the OSC 1.0 binary wire format: messages,
// bundles, timetags, and their encoding to and from datagram buffers.
//
// All multi-byte fields are big-endian and every encoded element
// occupies a multiple of four bytes. Strings carry at least one NUL
// terminator and are padded to the next 4-byte boundary; blobs carry a
// length word that excludes padding, bundle elements a length word
// that includes it.
//
// # Packets
//
// A datagram holds exactly one packet: a Message (first byte '/') or a
// Bundle (first byte '#'). ParsePacket dispatches on that byte.
// Message and Bundle implement encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler for the outbound and inbound directions.
//
// # Type Tags
//
// The fixed tag set is i (int32), f (float32), h (int64), d (float64),
// s (string), b (blob), t (timetag). Two argument kinds have no tag of
// their own: bool encodes as int32 1/0 and Char as its one-character
// string. Decoding yields only the seven tagged forms.
//
// # Timetag Ordering
//
// Bundle decoding drops a nested bundle whose timetag precedes its
// parent's. OSC 1.0 asks receivers to treat such bundles as late, not
// to discard them; the drop is kept for compatibility with existing
// peers and is flagged here because it is stricter than the protocol
// requires.
//
// # Concurrency
//
// Encode and decode keep all scratch state function-local. They are
// safe to call concurrently on independent buffers; a decode failure
// never publishes a partially built packet.
package wire
