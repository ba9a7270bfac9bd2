package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

// appendElement frames elem with its 4-byte length word, as bundle
// encoding does.
func appendElement(buf *bytes.Buffer, elem []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(elem)))
	buf.Write(length[:])
	buf.Write(elem)
}

func bundleHeader(tt Timetag) *bytes.Buffer {
	var buf bytes.Buffer
	buf.WriteString(bundleMarker)
	var tag [8]byte
	binary.BigEndian.PutUint64(tag[:], uint64(tt))
	buf.Write(tag[:])
	return &buf
}

func TestBundleRoundTrip(t *testing.T) {
	inner := NewBundle(Timetag(200))
	inner.Append(NewMessage("/inner", "deep"))

	b := NewBundle(Timetag(100))
	b.Append(NewMessage("/synth/1/freq", int32(440)))
	b.Append(NewMessage("/synth/2/freq", float32(880)))
	b.Append(inner)

	data, err := b.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(data)%4 != 0 {
		t.Errorf("encoded length %d not a multiple of 4", len(data))
	}

	var got Bundle
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !reflect.DeepEqual(&got, b) {
		t.Errorf("round trip = %#v, want %#v", &got, b)
	}
}

func TestBundleEmptyRoundTrip(t *testing.T) {
	b := NewBundle(TimetagImmediate)
	data, err := b.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(data) != 16 {
		t.Errorf("empty bundle length = %d, want 16", len(data))
	}
	var got Bundle
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got.Timetag != TimetagImmediate || len(got.Messages) != 0 || len(got.Bundles) != 0 {
		t.Errorf("got %#v, want empty immediate bundle", &got)
	}
}

// A nested bundle scheduled before its parent is pruned with its whole
// subtree; one scheduled at or after the parent is kept intact.
func TestBundleNestedPrune(t *testing.T) {
	early := NewBundle(Timetag(99))
	early.Append(NewMessage("/should/not/appear"))

	equal := NewBundle(Timetag(100))
	equal.Append(NewMessage("/kept/equal"))

	late := NewBundle(Timetag(101))
	late.Append(NewMessage("/kept/late"))

	parent := NewBundle(Timetag(100))
	parent.Append(early)
	parent.Append(equal)
	parent.Append(late)

	data, err := parent.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var got Bundle
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if len(got.Bundles) != 2 {
		t.Fatalf("child bundles = %d, want 2 (early child pruned)", len(got.Bundles))
	}
	if got.Bundles[0].Timetag != Timetag(100) || got.Bundles[1].Timetag != Timetag(101) {
		t.Errorf("kept timetags = %v, %v, want 100, 101", got.Bundles[0].Timetag, got.Bundles[1].Timetag)
	}
	if len(got.Bundles[1].Messages) != 1 || got.Bundles[1].Messages[0].Address.String() != "/kept/late" {
		t.Errorf("late child lost its own children: %#v", got.Bundles[1])
	}
}

// A properly framed element that fails its own decode is dropped;
// elements before and after it survive.
func TestBundleMalformedElementDropped(t *testing.T) {
	first, err := NewMessage("/first", int32(1)).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	last, err := NewMessage("/last", int32(2)).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		bad  []byte
	}{
		{
			name: "element with unknown leading byte",
			bad:  []byte{'x', 'x', 'x', 'x'},
		},
		{
			name: "message element with trailing slack",
			bad:  append(append([]byte{}, first...), 0, 0, 0, 0),
		},
		{
			name: "message element with bad tag string",
			bad:  []byte{'/', 'a', 0, 0, 'i', 0, 0, 0},
		},
		{
			name: "zero length element",
			bad:  nil,
		},
		{
			name: "nested bundle with damaged framing",
			bad: func() []byte {
				buf := bundleHeader(Timetag(100))
				buf.Write([]byte{0, 0, 0, 3}) // length not a multiple of 4
				return buf.Bytes()
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := bundleHeader(Timetag(100))
			appendElement(buf, first)
			appendElement(buf, tt.bad)
			appendElement(buf, last)

			var got Bundle
			if err := got.UnmarshalBinary(buf.Bytes()); err != nil {
				t.Fatalf("UnmarshalBinary: %v", err)
			}
			if len(got.Messages) != 2 {
				t.Fatalf("messages = %d, want 2 (bad element dropped, siblings kept)", len(got.Messages))
			}
			if got.Messages[0].Address.String() != "/first" || got.Messages[1].Address.String() != "/last" {
				t.Errorf("kept addresses = %q, %q", got.Messages[0].Address, got.Messages[1].Address)
			}
		})
	}
}

// Damage to the bundle's own framing fails the whole decode.
func TestBundleFramingErrors(t *testing.T) {
	msg, err := NewMessage("/m").MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "not a bundle marker",
			data: []byte("#bundlX\x00aaaaaaaa"),
			want: ErrNotOSC,
		},
		{
			name: "header cut short",
			data: []byte("#bundle\x00\x00\x00"),
			want: ErrTruncated,
		},
		{
			name: "length word cut short",
			data: append(bundleHeader(Timetag(100)).Bytes(), 0, 0),
			want: ErrTruncated,
		},
		{
			name: "element length odd",
			data: append(bundleHeader(Timetag(100)).Bytes(), 0, 0, 0, 6),
			want: ErrNotOSC,
		},
		{
			name: "element length past buffer",
			data: func() []byte {
				buf := bundleHeader(Timetag(100))
				buf.Write([]byte{0, 0, 1, 0})
				buf.Write(msg)
				return buf.Bytes()
			}(),
			want: ErrTruncated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Bundle
			err := b.UnmarshalBinary(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("UnmarshalBinary error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParsePacket(t *testing.T) {
	msgData, err := NewMessage("/m", int32(3)).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	bundleData, err := NewBundle(TimetagImmediate).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	p, err := ParsePacket(msgData)
	if err != nil {
		t.Fatalf("ParsePacket(message): %v", err)
	}
	if _, ok := p.(*Message); !ok {
		t.Errorf("ParsePacket(message) = %T, want *Message", p)
	}

	p, err = ParsePacket(bundleData)
	if err != nil {
		t.Fatalf("ParsePacket(bundle): %v", err)
	}
	if _, ok := p.(*Bundle); !ok {
		t.Errorf("ParsePacket(bundle) = %T, want *Bundle", p)
	}

	if _, err := ParsePacket(nil); !errors.Is(err, ErrTruncated) {
		t.Errorf("ParsePacket(empty) error = %v, want ErrTruncated", err)
	}
	if _, err := ParsePacket([]byte("garbage!")); !errors.Is(err, ErrNotOSC) {
		t.Errorf("ParsePacket(garbage) error = %v, want ErrNotOSC", err)
	}
}
