// Package address provides the immutable byte strings used for OSC
// addresses and address patterns, and the glob matcher that compares
// them.
//
// # Addresses
//
// An Address is an immutable ASCII byte sequence. It is a small value
// type, comparable with == and usable as a map key. Construction scans
// the bytes once and caches two flags: whether the address contains
// pattern syntax (* ? [ ] { }) and whether it contains characters the
// protocol reserves for framing (space # , /). Both are fixed for the
// lifetime of the value, so matching and name validation never rescan.
//
// # Pattern Syntax
//
// Patterns use the OSC 1.0 glob dialect:
//   - `*` matches any run of characters, including none
//   - `?` matches exactly one character
//   - `[abc]` matches one character from the class; a leading `!`
//     negates the class and `a-z` denotes an inclusive range
//   - `{foo,bar}` matches the first listed alternative found at the
//     current position
//
// A class or group with no closing byte fails with
// ErrUnterminatedPattern. Exactly one side of a comparison may carry
// pattern syntax: when the candidate name itself contains pattern
// characters, Match falls back to byte equality.
package address
