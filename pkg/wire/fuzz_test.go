package wire

import (
	"bytes"
	"testing"
)

// FuzzParsePacket checks that arbitrary input never panics the
// decoder, and that anything it accepts re-encodes to a stable form:
// one decode normalizes padding, prunes out-of-order children, and
// drops bad elements, after which encode/decode is a byte-level fixed
// point. Comparing bytes rather than values keeps NaN arguments
// honest.
func FuzzParsePacket(f *testing.F) {
	seed := []Packet{
		NewMessage("/ping"),
		NewMessage("/synth/1/freq", int32(440)),
		NewMessage("/all", int32(1), float32(2), int64(3), float64(4), "five", []byte{6}, Timetag(7)),
		func() Packet {
			b := NewBundle(Timetag(100))
			b.Append(NewMessage("/a", "x"))
			nested := NewBundle(Timetag(200))
			nested.Append(NewMessage("/b"))
			b.Append(nested)
			return b
		}(),
	}
	for _, p := range seed {
		data, err := p.MarshalBinary()
		if err != nil {
			f.Fatal(err)
		}
		f.Add(data)
	}
	f.Add([]byte("#bundle\x00\x00\x00\x00\x00\x00\x00\x00\x01"))
	f.Add([]byte{'/', 'a', 0, 0, ',', 'z', 0, 0})

	f.Fuzz(func(t *testing.T, data []byte) {
		p, err := ParsePacket(data)
		if err != nil {
			return
		}
		out, err := p.MarshalBinary()
		if err != nil {
			t.Fatalf("re-encode of accepted packet failed: %v", err)
		}
		if len(out)%4 != 0 {
			t.Fatalf("re-encoded length %d not a multiple of 4", len(out))
		}
		p2, err := ParsePacket(out)
		if err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
		out2, err := p2.MarshalBinary()
		if err != nil {
			t.Fatalf("second re-encode failed: %v", err)
		}
		if !bytes.Equal(out, out2) {
			t.Fatalf("encoding not a fixed point:\n first %x\nsecond %x", out, out2)
		}
	})
}
