package main

import (
	"bytes"
	"io"
	"net"
	"os"
	"strings"
	"testing"

	"github.com/osc-protocol/osc-go/pkg/wire"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestFormatMessage(t *testing.T) {
	msg := wire.NewMessage("/synth/1/freq", int32(440), float32(0.5))

	got := formatMessage(msg)
	want := "/synth/1/freq ,if 440 0.5"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFormatMessageNoArguments(t *testing.T) {
	msg := wire.NewMessage("/ping")

	got := formatMessage(msg)
	if got != "/ping" {
		t.Errorf("expected \"/ping\", got %q", got)
	}
}

func TestFormatArg(t *testing.T) {
	tests := []struct {
		name string
		arg  any
		want string
	}{
		{"Int32", int32(440), "440"},
		{"Int64", int64(9000000000), "9000000000"},
		{"Float32", float32(1.5), "1.5"},
		{"Float64", float64(-0.25), "-0.25"},
		{"String", "hello world", `"hello world"`},
		{"Blob", []byte{0xde, 0xad, 0xbe, 0xef}, "0xdeadbeef"},
		{"TimetagImmediate", wire.TimetagImmediate, "immediate"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := formatArg(tc.arg)
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestShouldPrintMatchesPattern(t *testing.T) {
	old := *pattern
	defer func() { *pattern = old }()

	*pattern = "/synth/*/freq"

	if !shouldPrint(wire.NewMessage("/synth/1/freq", int32(440))) {
		t.Error("expected /synth/1/freq to match /synth/*/freq")
	}
	if shouldPrint(wire.NewMessage("/mixer/gain", float32(0.8))) {
		t.Error("expected /mixer/gain not to match /synth/*/freq")
	}

	*pattern = ""
	if !shouldPrint(wire.NewMessage("/mixer/gain", float32(0.8))) {
		t.Error("expected everything to print without a pattern")
	}
}

func TestPrintPacketBundle(t *testing.T) {
	bundle := wire.NewBundle(wire.TimetagImmediate)
	bundle.Append(wire.NewMessage("/synth/1/freq", int32(440)))
	bundle.Append(wire.NewMessage("/synth/1/amp", float32(0.5)))

	from := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
	output := captureOutput(t, func() {
		printPacket(bundle, "10:15:32.000", from, 0)
	})

	if !strings.Contains(output, "#bundle @immediate (2 elements)") {
		t.Errorf("expected bundle header, got: %s", output)
	}
	if !strings.Contains(output, "  /synth/1/freq ,i 440") {
		t.Errorf("expected indented message line, got: %s", output)
	}
	if !strings.Contains(output, "127.0.0.1:9000") {
		t.Errorf("expected source address, got: %s", output)
	}
}

func TestPrintPacketFilteredBundle(t *testing.T) {
	old := *pattern
	defer func() { *pattern = old }()
	*pattern = "/synth/*/freq"

	bundle := wire.NewBundle(wire.TimetagImmediate)
	bundle.Append(wire.NewMessage("/synth/1/freq", int32(440)))
	bundle.Append(wire.NewMessage("/mixer/gain", float32(0.8)))

	from := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
	output := captureOutput(t, func() {
		printPacket(bundle, "10:15:32.000", from, 0)
	})

	if strings.Contains(output, "#bundle") {
		t.Errorf("expected no bundle header when filtering, got: %s", output)
	}
	if !strings.Contains(output, "/synth/1/freq") {
		t.Errorf("expected matching message, got: %s", output)
	}
	if strings.Contains(output, "/mixer/gain") {
		t.Errorf("expected non-matching message filtered out, got: %s", output)
	}
}

func TestHandlePacketUndecodable(t *testing.T) {
	from := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
	output := captureOutput(t, func() {
		handlePacket([]byte{0x01, 0x02, 0x03}, from)
	})

	if !strings.Contains(output, "undecodable") {
		t.Errorf("expected undecodable marker, got: %s", output)
	}
}
