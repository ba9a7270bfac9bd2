// Command osc-monitor prints OSC traffic arriving on a UDP port.
//
// Every datagram is decoded and printed in arrival order, one message
// per line. Bundles are expanded with their timetag and nesting shown.
// An OSC address pattern restricts the printed messages.
//
// Usage:
//
//	osc-monitor [flags]
//
// Flags:
//
//	-listen string       Listen address (default ":8000")
//	-address string      Only print messages matching this OSC address pattern
//	-advertise string    Advertise the monitor via zeroconf under this instance name
//	-protocol-log string File path for protocol event logging (CBOR format)
//	-hex                 Also print each raw datagram as hex
//
// Examples:
//
//	# Print everything arriving on the default port
//	osc-monitor
//
//	# Watch one synth subtree on a custom port
//	osc-monitor -listen :9000 -address "/synth/*/freq"
//
//	# Record a session while watching it
//	osc-monitor -protocol-log session.olog
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/osc-protocol/osc-go/pkg/address"
	"github.com/osc-protocol/osc-go/pkg/discovery"
	osclog "github.com/osc-protocol/osc-go/pkg/log"
	"github.com/osc-protocol/osc-go/pkg/transport"
	"github.com/osc-protocol/osc-go/pkg/wire"
)

var (
	listen      = flag.String("listen", ":8000", "Listen address")
	pattern     = flag.String("address", "", "Only print messages matching this OSC address pattern")
	advertise   = flag.String("advertise", "", "Advertise the monitor via zeroconf under this instance name")
	protocolLog = flag.String("protocol-log", "", "File path for protocol event logging (CBOR format)")
	hexDump     = flag.Bool("hex", false, "Also print each raw datagram as hex")
)

var received atomic.Uint64

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config := transport.ServerConfig{
		Address:  *listen,
		OnPacket: handlePacket,
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "receive error: %v\n", err)
		},
	}

	if *protocolLog != "" {
		protocolLogger, err := osclog.NewFileLogger(*protocolLog)
		if err != nil {
			return fmt.Errorf("failed to create protocol logger: %w", err)
		}
		defer protocolLogger.Close()
		// Only set when non-nil to avoid a typed-nil interface.
		config.Logger = protocolLogger
	}

	server, err := transport.NewServer(config)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("Listening on %s\n", server.Addr())
	if *pattern != "" {
		fmt.Printf("Printing messages matching %s\n", *pattern)
	}
	if *protocolLog != "" {
		fmt.Printf("Protocol logging to %s\n", *protocolLog)
	}

	if *advertise != "" {
		advertiser, err := discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig())
		if err != nil {
			server.Stop()
			return fmt.Errorf("failed to create advertiser: %w", err)
		}
		defer advertiser.StopAll()

		ep := &discovery.Endpoint{
			Name: *advertise,
			Port: boundPort(server.Addr()),
		}
		if err := advertiser.Advertise(ctx, ep); err != nil {
			server.Stop()
			return fmt.Errorf("failed to advertise: %w", err)
		}
		fmt.Printf("Advertising as %q\n", *advertise)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	if err := server.Stop(); err != nil {
		return err
	}
	fmt.Printf("Received %d packets\n", received.Load())
	return nil
}

func handlePacket(data []byte, from net.Addr) {
	received.Add(1)
	stamp := time.Now().Format("15:04:05.000")

	packet, err := wire.ParsePacket(data)
	if err != nil {
		fmt.Printf("%s %s !! %d undecodable bytes: %v\n", stamp, from, len(data), err)
		return
	}

	if *hexDump {
		fmt.Printf("%s %s raw %s\n", stamp, from, hex.EncodeToString(data))
	}

	printPacket(packet, stamp, from, 0)
}

func printPacket(p wire.Packet, stamp string, from net.Addr, depth int) {
	indent := strings.Repeat("  ", depth)

	switch pkt := p.(type) {
	case *wire.Message:
		if !shouldPrint(pkt) {
			return
		}
		fmt.Printf("%s %s %s%s\n", stamp, from, indent, formatMessage(pkt))

	case *wire.Bundle:
		childDepth := depth + 1
		if *pattern == "" {
			fmt.Printf("%s %s %s#bundle @%s (%d elements)\n",
				stamp, from, indent, pkt.Timetag, len(pkt.Messages)+len(pkt.Bundles))
		} else {
			// Bundle headers are noise when filtering; print matches flat.
			childDepth = depth
		}
		for _, m := range pkt.Messages {
			printPacket(m, stamp, from, childDepth)
		}
		for _, b := range pkt.Bundles {
			printPacket(b, stamp, from, childDepth)
		}
	}
}

func shouldPrint(msg *wire.Message) bool {
	if *pattern == "" {
		return true
	}
	ok, err := address.Match(msg.Address, address.New(*pattern))
	return err == nil && ok
}

// formatMessage renders a message as one line: address, type tags, then
// each argument.
func formatMessage(msg *wire.Message) string {
	var sb strings.Builder
	sb.WriteString(msg.Address.String())

	if len(msg.Arguments) == 0 {
		return sb.String()
	}

	if tags, err := msg.TypeTags(); err == nil {
		sb.WriteByte(' ')
		sb.WriteString(tags)
	}
	for _, arg := range msg.Arguments {
		sb.WriteByte(' ')
		sb.WriteString(formatArg(arg))
	}
	return sb.String()
}

func formatArg(arg any) string {
	switch v := arg.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case []byte:
		return "0x" + hex.EncodeToString(v)
	case wire.Timetag:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func boundPort(addr net.Addr) uint16 {
	if udp, ok := addr.(*net.UDPAddr); ok {
		return uint16(udp.Port)
	}
	return 0
}
