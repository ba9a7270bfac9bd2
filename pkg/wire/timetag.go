package wire

import (
	"time"
)

// secondsFrom1900To1970 is the offset between the NTP epoch and the
// Unix epoch.
const secondsFrom1900To1970 = 2208988800

// TimetagImmediate is the reserved timetag meaning "process
// immediately": 63 zero bits followed by a one.
const TimetagImmediate Timetag = 1

// Timetag is a 64-bit NTP fixed-point timestamp: 32 bits of whole
// seconds since 1900-01-01, 32 bits of fractional seconds
// (units of 2^-32 s).
type Timetag uint64

// NewTimetag returns the timetag naming the wall-clock time t.
func NewTimetag(t time.Time) Timetag {
	secs := uint64(t.Unix()) + secondsFrom1900To1970
	frac := uint64(t.Nanosecond()) << 32 / uint64(time.Second)
	return Timetag(secs<<32 | frac)
}

// Seconds returns the whole-seconds field.
func (t Timetag) Seconds() uint32 { return uint32(t >> 32) }

// Fraction returns the fractional-seconds field.
func (t Timetag) Fraction() uint32 { return uint32(t) }

// IsImmediate reports whether t is the reserved "immediately" value.
func (t Timetag) IsImmediate() bool { return t == TimetagImmediate }

// Time returns the wall-clock time the timetag names. The immediate
// timetag maps to the zero Time.
func (t Timetag) Time() time.Time {
	if t.IsImmediate() {
		return time.Time{}
	}
	secs := int64(t.Seconds()) - secondsFrom1900To1970
	nanos := uint64(t.Fraction()) * uint64(time.Second) >> 32
	return time.Unix(secs, int64(nanos))
}

// Until returns the duration from now until the timetag's time: zero
// for the immediate timetag and for times already in the past.
func (t Timetag) Until() time.Duration {
	if t.IsImmediate() {
		return 0
	}
	d := time.Until(t.Time())
	if d < 0 {
		return 0
	}
	return d
}

// String returns "immediate" or the tagged time in RFC 3339 form.
func (t Timetag) String() string {
	if t.IsImmediate() {
		return "immediate"
	}
	return t.Time().UTC().Format(time.RFC3339Nano)
}
