// Command osc-console is an interactive OSC terminal.
//
// It connects to OSC servers, sends messages and bundles typed at a
// prompt, plays cue sheets, and can run a local server whose routed
// messages are printed as they arrive. Servers on the local network
// are found by zeroconf instance name.
//
// Usage:
//
//	osc-console [flags]
//
// Flags:
//
//	-to string           Connect to this host:port at startup
//	-protocol-log string File path for protocol event logging (CBOR format)
//	-verbose             Enable debug logging
//
// Example session:
//
//	osc> connect 192.168.1.40:9000
//	Connected to 192.168.1.40:9000
//	osc> send /synth/1/freq i:440
//	Sent /synth/1/freq ,i 440
//	osc> bundle 500ms
//	Bundle open (delivery 500ms after commit)
//	osc> send /mixer/1/gain f:0.5
//	Added to bundle (1 queued)
//	osc> commit
//	Sent bundle (1 messages, due in 500ms)
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/osc-protocol/osc-go/cmd/osc-console/interactive"
	osclog "github.com/osc-protocol/osc-go/pkg/log"
)

var (
	to          = flag.String("to", "", "Connect to this host:port at startup")
	protocolLog = flag.String("protocol-log", "", "File path for protocol event logging (CBOR format)")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	cfg := interactive.Config{
		Target:  *to,
		Verbose: *verbose,
	}

	if *protocolLog != "" {
		protocolLogger, err := osclog.NewFileLogger(*protocolLog)
		if err != nil {
			log.Fatalf("Failed to create protocol logger: %v", err)
		}
		defer protocolLogger.Close()
		// Only set when non-nil to avoid a typed-nil interface.
		cfg.ProtocolLogger = protocolLogger
	}

	console, err := interactive.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create console: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl-C at the prompt is handled by readline; SIGTERM still exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	console.Run(ctx, cancel)
}
