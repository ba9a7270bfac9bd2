// Command osc-send sends OSC messages and cue sheets over UDP.
//
// A single message is given as an OSC address followed by argument
// literals. Literals are tag:value pairs (i:440, f:0.5, h:..., d:...,
// s:hello, b:deadbeef, t:immediate, c:A), the bare booleans T and F,
// or untyped values that infer int32, int64, float32, or string.
//
// Usage:
//
//	osc-send [flags] <address> [args...]
//	osc-send [flags] -cues <sheet.yaml>
//
// Flags:
//
//	-to string           Target address (host:port)
//	-instance string     Resolve the target by zeroconf instance name
//	-cues string         Play a YAML cue sheet instead of a single message
//	-at duration         Deliver via a bundle timetagged this far in the future
//	-timeout duration    Zeroconf resolution timeout (default 5s)
//	-protocol-log string File path for protocol event logging (CBOR format)
//	-verbose             Enable verbose output
//
// Examples:
//
//	# Set a synth voice frequency
//	osc-send -to 192.168.1.40:9000 /synth/1/freq i:440
//
//	# Cut the master gain, scheduled half a second out on the receiver
//	osc-send -to 192.168.1.40:9000 -at 500ms /mixer/master/gain f:0
//
//	# Send to a discovered instance
//	osc-send -instance "Main Synth" /synth/1/trigger T
//
//	# Play a cue sheet
//	osc-send -to 192.168.1.40:9000 -cues show.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osc-protocol/osc-go/pkg/cuelist"
	"github.com/osc-protocol/osc-go/pkg/discovery"
	osclog "github.com/osc-protocol/osc-go/pkg/log"
	"github.com/osc-protocol/osc-go/pkg/service"
	"github.com/osc-protocol/osc-go/pkg/wire"
)

var (
	to          = flag.String("to", "", "Target address (host:port)")
	instance    = flag.String("instance", "", "Resolve the target by zeroconf instance name")
	cues        = flag.String("cues", "", "Play a YAML cue sheet instead of a single message")
	at          = flag.Duration("at", 0, "Deliver via a bundle timetagged this far in the future")
	timeout     = flag.Duration("timeout", 5*time.Second, "Zeroconf resolution timeout")
	protocolLog = flag.String("protocol-log", "", "File path for protocol event logging (CBOR format)")
	verbose     = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	// Validate configuration
	if *to == "" && *instance == "" {
		fmt.Fprintln(os.Stderr, "Error: target address (-to) or instance name (-instance) required")
		flag.Usage()
		os.Exit(1)
	}
	if *to != "" && *instance != "" {
		fmt.Fprintln(os.Stderr, "Error: -to and -instance are mutually exclusive")
		os.Exit(1)
	}
	if *cues == "" && flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: OSC address required (or use -cues)")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config := service.ClientConfig{Target: *to}

	if *verbose {
		config.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	if *protocolLog != "" {
		protocolLogger, err := osclog.NewFileLogger(*protocolLog)
		if err != nil {
			return fmt.Errorf("failed to create protocol logger: %w", err)
		}
		defer protocolLogger.Close()
		// Only set when non-nil to avoid a typed-nil interface.
		config.ProtocolLogger = protocolLogger
	}

	client, err := connect(config)
	if err != nil {
		return err
	}
	defer client.Close()

	if *cues != "" {
		return playCues(client, *cues)
	}
	return sendMessage(client, flag.Arg(0), flag.Args()[1:])
}

// connect dials the target, resolving the zeroconf instance name first
// when one was given.
func connect(config service.ClientConfig) (*service.Client, error) {
	if *instance == "" {
		return service.NewClient(config)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	browser, err := discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}
	defer browser.Stop()

	client, err := service.DialInstance(ctx, browser, *instance, config)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve instance %q: %w", *instance, err)
	}
	return client, nil
}

func sendMessage(client *service.Client, addr string, literals []string) error {
	args := make([]any, 0, len(literals))
	for _, literal := range literals {
		v, err := cuelist.ParseArg(literal)
		if err != nil {
			return fmt.Errorf("argument %q: %w", literal, err)
		}
		args = append(args, v)
	}

	msg := wire.NewMessage(addr, args...)
	if err := msg.Validate(); err != nil {
		return err
	}

	var packet wire.Packet = msg
	if *at > 0 {
		bundle := wire.NewBundle(wire.NewTimetag(time.Now().Add(*at)))
		if err := bundle.Append(msg); err != nil {
			return err
		}
		packet = bundle
	}

	if err := client.Send(packet); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	if *at > 0 {
		fmt.Printf("Sent %s to %s (due in %s)\n", addr, client.RemoteAddr(), *at)
	} else {
		fmt.Printf("Sent %s to %s\n", addr, client.RemoteAddr())
	}
	return nil
}

func playCues(client *service.Client, path string) error {
	sheet, err := cuelist.Load(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	name := sheet.Name
	if name == "" {
		name = path
	}
	fmt.Printf("Playing %s (%d cues) to %s\n", name, len(sheet.Cues), client.RemoteAddr())

	start := time.Now()
	if err := sheet.Play(ctx, client, nil); err != nil {
		return err
	}
	fmt.Printf("Done in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
