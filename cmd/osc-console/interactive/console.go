// Package interactive provides the interactive command loop for
// osc-console.
package interactive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/osc-protocol/osc-go/pkg/cuelist"
	"github.com/osc-protocol/osc-go/pkg/discovery"
	"github.com/osc-protocol/osc-go/pkg/dispatch"
	osclog "github.com/osc-protocol/osc-go/pkg/log"
	"github.com/osc-protocol/osc-go/pkg/service"
	"github.com/osc-protocol/osc-go/pkg/wire"
)

// findTimeout bounds zeroconf instance resolution for the find command.
const findTimeout = 5 * time.Second

// Config carries the console's startup settings.
type Config struct {
	// Target is an optional host:port to connect to at startup.
	Target string

	// Verbose enables debug logging through the console output.
	Verbose bool

	// ProtocolLogger records protocol events for every connection the
	// console opens. Nil disables protocol logging.
	ProtocolLogger osclog.Logger
}

// Console handles interactive mode for osc-console.
type Console struct {
	config Config
	rl     *readline.Instance
	logger *slog.Logger

	// Outgoing connection
	client *service.Client
	target string

	// Local server
	server *service.Server
	space  *dispatch.AddressSpace

	// Bundle under construction
	bundleOpen  bool
	bundleDelay time.Duration
	bundleMsgs  []*wire.Message

	// Cue sheet playback
	playCancel context.CancelFunc
}

// New creates a new interactive console handler.
func New(config Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "osc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := &Console{
		config: config,
		rl:     rl,
	}
	if config.Verbose {
		c.logger = slog.New(slog.NewTextHandler(rl.Stdout(), &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return c, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.shutdown()

	c.printHelp()

	if c.config.Target != "" {
		c.cmdConnect([]string{c.config.Target})
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "connect", "c":
			c.cmdConnect(args)

		case "find", "f":
			c.cmdFind(args)

		case "browse":
			c.cmdBrowse(args)

		case "disconnect":
			c.cmdDisconnect()

		case "send", "s":
			c.cmdSend(args)

		case "bundle", "b":
			c.cmdBundle(args)

		case "commit":
			c.cmdCommit()

		case "abort":
			c.cmdAbort()

		case "play", "p":
			c.cmdPlay(args)

		case "listen", "l":
			c.cmdListen(args)

		case "route":
			c.cmdRoute(args)

		case "routes":
			c.cmdRoutes()

		case "unroute":
			c.cmdUnroute(args)

		case "stop":
			c.cmdStop()

		case "status":
			c.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

// shutdown releases everything the console opened during the session.
func (c *Console) shutdown() {
	if c.playCancel != nil {
		c.playCancel()
	}
	if c.client != nil {
		c.client.Close()
	}
	if c.server != nil {
		c.server.Stop()
	}
	c.rl.Close()
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
OSC Console Commands:
  Connection:
    connect <host:port>  - Connect to an OSC server
    find <instance>      - Find a server by zeroconf instance name and connect
    browse [seconds]     - List OSC servers on the local network
    disconnect           - Close the connection

  Sending:
    send </addr> [args]  - Send a message, or add it to the open bundle
    bundle [delay]       - Open a bundle (optional delivery delay, e.g. 500ms)
    commit               - Send the open bundle
    abort                - Discard the open bundle
    play <file.yaml>     - Play a cue sheet over the connection

  Receiving:
    listen [addr]        - Start a local server (default :8000)
    route </addr>        - Print messages dispatched to an address
    routes               - Show the local address space
    unroute </addr>      - Remove a route
    stop                 - Stop the local server

  General:
    status               - Show connection and server state
    help                 - Show this help
    quit                 - Exit console

  Argument Format:
    i:440 f:0.5 h:<int64> d:<float64> s:text b:<hex> c:A t:immediate T F
    Untyped values infer a type: 440 -> int32, 0.5 -> float32, on -> string`)
}

// cmdConnect handles the connect command.
func (c *Console) cmdConnect(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: connect <host:port>")
		fmt.Fprintln(c.rl.Stdout(), "  Example: connect 192.168.1.40:9000")
		return
	}

	if c.client != nil {
		c.cmdDisconnect()
	}

	client, err := service.NewClient(service.ClientConfig{
		Target:         args[0],
		Logger:         c.logger,
		ProtocolLogger: c.config.ProtocolLogger,
	})
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Connect failed: %v\n", err)
		return
	}

	c.client = client
	c.target = args[0]
	fmt.Fprintf(c.rl.Stdout(), "Connected to %s\n", client.RemoteAddr())
}

// cmdFind resolves a zeroconf instance name and connects to it.
func (c *Console) cmdFind(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: find <instance-name>")
		fmt.Fprintln(c.rl.Stdout(), "  Use 'browse' to list instance names")
		return
	}
	name := strings.Join(args, " ")

	browser, err := discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Find failed: %v\n", err)
		return
	}
	defer browser.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), findTimeout)
	defer cancel()

	fmt.Fprintf(c.rl.Stdout(), "Looking for %q...\n", name)

	if c.client != nil {
		c.cmdDisconnect()
	}

	client, err := service.DialInstance(ctx, browser, name, service.ClientConfig{
		Logger:         c.logger,
		ProtocolLogger: c.config.ProtocolLogger,
	})
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Find failed: %v\n", err)
		return
	}

	c.client = client
	c.target = name
	fmt.Fprintf(c.rl.Stdout(), "Connected to %s (%s)\n", client.RemoteAddr(), name)
}

// cmdBrowse lists OSC servers discovered on the local network.
func (c *Console) cmdBrowse(args []string) {
	seconds := 3
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: browse [seconds]")
			return
		}
		seconds = n
	}

	browser, err := discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Browse failed: %v\n", err)
		return
	}
	defer browser.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(seconds)*time.Second)
	defer cancel()

	added, _, err := browser.Browse(ctx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Browse failed: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "Browsing for %ds...\n", seconds)

	count := 0
	for {
		select {
		case peer, ok := <-added:
			if !ok {
				added = nil
				continue
			}
			count++
			fmt.Fprintf(c.rl.Stdout(), "  %-24s %s:%d", peer.InstanceName, peer.Host, peer.Port)
			if peer.Root != "" {
				fmt.Fprintf(c.rl.Stdout(), "  root=%s", peer.Root)
			}
			fmt.Fprintln(c.rl.Stdout())
		case <-ctx.Done():
			if count == 0 {
				fmt.Fprintln(c.rl.Stdout(), "No servers found")
			} else {
				fmt.Fprintf(c.rl.Stdout(), "Found %d server(s)\n", count)
			}
			return
		}
	}
}

// cmdDisconnect closes the outgoing connection.
func (c *Console) cmdDisconnect() {
	if c.client == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not connected")
		return
	}

	if c.playCancel != nil {
		c.playCancel()
		c.playCancel = nil
	}

	c.client.Close()
	c.client = nil
	fmt.Fprintf(c.rl.Stdout(), "Disconnected from %s\n", c.target)
	c.target = ""
}

// cmdSend sends a message, or queues it on the open bundle.
func (c *Console) cmdSend(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: send </address> [args...]")
		fmt.Fprintln(c.rl.Stdout(), "  Example: send /synth/1/freq i:440")
		return
	}

	msg := wire.NewMessage(args[0])
	for _, literal := range args[1:] {
		arg, err := cuelist.ParseArg(literal)
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid argument %q: %v\n", literal, err)
			return
		}
		msg.Append(arg)
	}
	if err := msg.Validate(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid message: %v\n", err)
		return
	}

	if c.bundleOpen {
		c.bundleMsgs = append(c.bundleMsgs, msg)
		fmt.Fprintf(c.rl.Stdout(), "Added to bundle (%d queued)\n", len(c.bundleMsgs))
		return
	}

	if c.client == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not connected (use 'connect' or 'find')")
		return
	}
	if err := c.client.Send(msg); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Send failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Sent %s\n", msg)
}

// cmdBundle opens a bundle that collects subsequent send commands.
func (c *Console) cmdBundle(args []string) {
	if c.bundleOpen {
		fmt.Fprintln(c.rl.Stdout(), "Bundle already open (use 'commit' or 'abort')")
		return
	}

	delay := time.Duration(0)
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil || d < 0 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: bundle [delay]")
			fmt.Fprintln(c.rl.Stdout(), "  Example: bundle 500ms")
			return
		}
		delay = d
	}

	c.bundleOpen = true
	c.bundleDelay = delay
	c.bundleMsgs = nil

	if delay > 0 {
		fmt.Fprintf(c.rl.Stdout(), "Bundle open (delivery %s after commit)\n", delay)
	} else {
		fmt.Fprintln(c.rl.Stdout(), "Bundle open (immediate delivery)")
	}
}

// cmdCommit sends the open bundle. The timetag is computed at commit
// time so the delay given to the bundle command counts from here.
func (c *Console) cmdCommit() {
	if !c.bundleOpen {
		fmt.Fprintln(c.rl.Stdout(), "No bundle open (use 'bundle')")
		return
	}
	if len(c.bundleMsgs) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "Bundle is empty (use 'send' to add messages, 'abort' to discard)")
		return
	}
	if c.client == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not connected (use 'connect' or 'find')")
		return
	}

	timetag := wire.TimetagImmediate
	if c.bundleDelay > 0 {
		timetag = wire.NewTimetag(time.Now().Add(c.bundleDelay))
	}
	bundle := wire.NewBundle(timetag)
	for _, msg := range c.bundleMsgs {
		if err := bundle.Append(msg); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Bundle failed: %v\n", err)
			return
		}
	}

	if err := c.client.Send(bundle); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Send failed: %v\n", err)
		return
	}

	if c.bundleDelay > 0 {
		fmt.Fprintf(c.rl.Stdout(), "Sent bundle (%d messages, due in %s)\n", len(c.bundleMsgs), c.bundleDelay)
	} else {
		fmt.Fprintf(c.rl.Stdout(), "Sent bundle (%d messages)\n", len(c.bundleMsgs))
	}

	c.bundleOpen = false
	c.bundleMsgs = nil
}

// cmdAbort discards the open bundle.
func (c *Console) cmdAbort() {
	if !c.bundleOpen {
		fmt.Fprintln(c.rl.Stdout(), "No bundle open")
		return
	}

	dropped := len(c.bundleMsgs)
	c.bundleOpen = false
	c.bundleMsgs = nil
	fmt.Fprintf(c.rl.Stdout(), "Bundle discarded (%d messages)\n", dropped)
}

// cmdPlay plays a cue sheet in the background. Starting a new sheet
// stops the previous one.
func (c *Console) cmdPlay(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: play <file.yaml>")
		return
	}
	if c.client == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not connected (use 'connect' or 'find')")
		return
	}

	sheet, err := cuelist.Load(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Load failed: %v\n", err)
		return
	}

	if c.playCancel != nil {
		c.playCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.playCancel = cancel

	name := sheet.Name
	if name == "" {
		name = args[0]
	}
	fmt.Fprintf(c.rl.Stdout(), "Playing %s (%d cues)\n", name, len(sheet.Cues))

	client := c.client
	go func() {
		start := time.Now()
		if err := sheet.Play(ctx, client, nil); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "\n[%s] Playback of %s stopped: %v\n",
				time.Now().Format("15:04:05"), name, err)
		} else {
			fmt.Fprintf(c.rl.Stdout(), "\n[%s] Finished %s in %s\n",
				time.Now().Format("15:04:05"), name, time.Since(start).Round(time.Millisecond))
		}
		c.rl.Refresh()
	}()
}

// cmdListen starts the local server.
func (c *Console) cmdListen(args []string) {
	if c.server != nil {
		fmt.Fprintf(c.rl.Stdout(), "Already listening on %s\n", c.server.Addr())
		return
	}

	space := dispatch.NewAddressSpace()
	space.OnDispatchError(func(err error) {
		fmt.Fprintf(c.rl.Stdout(), "\n[%s] Dispatch error: %v\n", time.Now().Format("15:04:05"), err)
		c.rl.Refresh()
	})

	config := service.DefaultServerConfig()
	if len(args) > 0 {
		config.ListenAddress = args[0]
	}
	config.Space = space
	config.Logger = c.logger
	config.ProtocolLogger = c.config.ProtocolLogger
	config.OnError = func(err error) {
		fmt.Fprintf(c.rl.Stdout(), "\n[%s] Server error: %v\n", time.Now().Format("15:04:05"), err)
		c.rl.Refresh()
	}

	server, err := service.NewServer(config)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Listen failed: %v\n", err)
		return
	}
	if err := server.Start(context.Background()); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Listen failed: %v\n", err)
		return
	}

	c.server = server
	c.space = space
	fmt.Fprintf(c.rl.Stdout(), "Listening on %s\n", server.Addr())
}

// cmdRoute registers a method that prints every message dispatched to it.
func (c *Console) cmdRoute(args []string) {
	if c.server == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not listening (use 'listen')")
		return
	}
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: route </address>")
		fmt.Fprintln(c.rl.Stdout(), "  Example: route /synth/1/freq")
		return
	}

	path := args[0]
	err := c.space.AddMethod(path, dispatch.HandlerFunc(func(msg *wire.Message) {
		fmt.Fprintf(c.rl.Stdout(), "\n[%s] %s\n", time.Now().Format("15:04:05"), msg)
		c.rl.Refresh()
	}))
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Route failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Routing %s\n", path)
}

// cmdRoutes dumps the local address space.
func (c *Console) cmdRoutes() {
	if c.server == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not listening (use 'listen')")
		return
	}
	if err := c.space.DumpTo(c.rl.Stdout()); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
	}
}

// cmdUnroute removes a routed address.
func (c *Console) cmdUnroute(args []string) {
	if c.server == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not listening (use 'listen')")
		return
	}
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: unroute </address>")
		return
	}

	if err := c.space.Remove(args[0]); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Unroute failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Removed %s\n", args[0])
}

// cmdStop stops the local server.
func (c *Console) cmdStop() {
	if c.server == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not listening")
		return
	}

	if err := c.server.Stop(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Stop failed: %v\n", err)
		return
	}
	c.server = nil
	c.space = nil
	fmt.Fprintln(c.rl.Stdout(), "Server stopped")
}

// cmdStatus shows the console status.
func (c *Console) cmdStatus() {
	fmt.Fprintln(c.rl.Stdout(), "\nConsole Status")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")

	if c.client != nil {
		fmt.Fprintf(c.rl.Stdout(), "  Target:       %s (conn %s)\n",
			c.client.RemoteAddr(), shortConnID(c.client.ConnID()))
	} else {
		fmt.Fprintln(c.rl.Stdout(), "  Target:       not connected")
	}

	if c.server != nil {
		fmt.Fprintf(c.rl.Stdout(), "  Server:       %s on %s\n", c.server.State(), c.server.Addr())
		stats := c.server.Stats()
		fmt.Fprintf(c.rl.Stdout(), "  Received:     %d packets, %d dispatched, %d decode errors\n",
			stats.PacketsReceived, stats.MessagesDispatched, stats.DecodeErrors)
		if stats.BundlesScheduled > 0 {
			fmt.Fprintf(c.rl.Stdout(), "  Scheduled:    %d bundles\n", stats.BundlesScheduled)
		}
	} else {
		fmt.Fprintln(c.rl.Stdout(), "  Server:       stopped")
	}

	if c.bundleOpen {
		if c.bundleDelay > 0 {
			fmt.Fprintf(c.rl.Stdout(), "  Open Bundle:  %d queued (delay %s)\n", len(c.bundleMsgs), c.bundleDelay)
		} else {
			fmt.Fprintf(c.rl.Stdout(), "  Open Bundle:  %d queued\n", len(c.bundleMsgs))
		}
	}

	fmt.Fprintln(c.rl.Stdout())
}

func shortConnID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
