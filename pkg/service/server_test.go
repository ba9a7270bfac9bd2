package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/osc-protocol/osc-go/pkg/dispatch"
	"github.com/osc-protocol/osc-go/pkg/transport"
	"github.com/osc-protocol/osc-go/pkg/wire"
)

// newRunningServer starts a server on a loopback port and registers
// cleanup.
func newRunningServer(t *testing.T, mutate func(*ServerConfig)) *Server {
	t.Helper()

	config := DefaultServerConfig()
	config.ListenAddress = "127.0.0.1:0"
	if mutate != nil {
		mutate(&config)
	}

	s, err := NewServer(config)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		if s.State() == StateRunning {
			_ = s.Stop()
		}
	})
	return s
}

func newTargetedClient(t *testing.T, target string) *Client {
	t.Helper()

	c, err := NewClient(ClientConfig{Target: target})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestServerLifecycle(t *testing.T) {
	s, err := NewServer(ServerConfig{ListenAddress: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	if got := s.State(); got != StateIdle {
		t.Errorf("State() = %v, want %v", got, StateIdle)
	}
	if s.Addr() != nil {
		t.Error("Addr() != nil before Start")
	}
	if s.ConnID() != "" {
		t.Error("ConnID() != \"\" before Start")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := s.State(); got != StateRunning {
		t.Errorf("State() = %v, want %v", got, StateRunning)
	}
	if s.Addr() == nil {
		t.Error("Addr() = nil after Start")
	}
	if s.ConnID() == "" {
		t.Error("ConnID() = \"\" after Start")
	}

	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start error = %v, want ErrAlreadyStarted", err)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := s.State(); got != StateStopped {
		t.Errorf("State() = %v, want %v", got, StateStopped)
	}
	if err := s.Stop(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("second Stop error = %v, want ErrNotStarted", err)
	}

	// A stopped server can be started again.
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	defer s.Stop()
	if got := s.State(); got != StateRunning {
		t.Errorf("State() after restart = %v, want %v", got, StateRunning)
	}
}

func TestServerDispatchesMessages(t *testing.T) {
	s := newRunningServer(t, nil)

	received := make(chan *wire.Message, 1)
	err := s.Space().AddMethod("/synth/1/freq", dispatch.HandlerFunc(func(m *wire.Message) {
		received <- m
	}))
	if err != nil {
		t.Fatalf("AddMethod failed: %v", err)
	}

	c := newTargetedClient(t, s.Addr().String())
	if err := c.SendMessage("/synth/1/freq", int32(440)); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	select {
	case m := <-received:
		if got := m.Address.String(); got != "/synth/1/freq" {
			t.Errorf("Address = %q, want %q", got, "/synth/1/freq")
		}
		if len(m.Arguments) != 1 || m.Arguments[0] != int32(440) {
			t.Errorf("Arguments = %v, want [440]", m.Arguments)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	stats := s.Stats()
	if stats.PacketsReceived != 1 {
		t.Errorf("PacketsReceived = %d, want 1", stats.PacketsReceived)
	}
	if stats.MessagesDispatched != 1 {
		t.Errorf("MessagesDispatched = %d, want 1", stats.MessagesDispatched)
	}
	if stats.DecodeErrors != 0 {
		t.Errorf("DecodeErrors = %d, want 0", stats.DecodeErrors)
	}
}

func TestServerDispatchesPatternToAllMatches(t *testing.T) {
	s := newRunningServer(t, nil)

	got := make(chan string, 3)
	paths := []string{"/synth/1/freq", "/synth/2/freq"}
	for _, p := range paths {
		p := p
		err := s.Space().AddMethod(p, dispatch.HandlerFunc(func(*wire.Message) {
			got <- p
		}))
		if err != nil {
			t.Fatalf("AddMethod(%q) failed: %v", p, err)
		}
	}
	err := s.Space().AddMethod("/mixer/gain", dispatch.HandlerFunc(func(*wire.Message) {
		got <- "/mixer/gain"
	}))
	if err != nil {
		t.Fatalf("AddMethod failed: %v", err)
	}

	c := newTargetedClient(t, s.Addr().String())
	if err := c.SendMessage("/synth/*/freq", float32(440)); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < len(paths); i++ {
		select {
		case p := <-got:
			seen[p] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, matched so far: %v", seen)
		}
	}
	for _, p := range paths {
		if !seen[p] {
			t.Errorf("method %q was not invoked", p)
		}
	}

	// The non-matching method must stay silent.
	select {
	case p := <-got:
		t.Errorf("unexpected dispatch to %q", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServerDispatchesImmediateBundle(t *testing.T) {
	s := newRunningServer(t, nil)

	got := make(chan string, 2)
	for _, p := range []string{"/synth/1/freq", "/mixer/master/level"} {
		p := p
		err := s.Space().AddMethod(p, dispatch.HandlerFunc(func(*wire.Message) {
			got <- p
		}))
		if err != nil {
			t.Fatalf("AddMethod(%q) failed: %v", p, err)
		}
	}

	b := wire.NewBundle(wire.TimetagImmediate)
	if err := b.Append(wire.NewMessage("/synth/1/freq", int32(440))); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := b.Append(wire.NewMessage("/mixer/master/level", float32(0.8))); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	c := newTargetedClient(t, s.Addr().String())
	if err := c.Send(b); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for bundle dispatch")
		}
	}

	if got := s.Stats().BundlesScheduled; got != 0 {
		t.Errorf("BundlesScheduled = %d, want 0", got)
	}
}

func TestServerSchedulesFutureBundle(t *testing.T) {
	s := newRunningServer(t, nil)

	received := make(chan time.Time, 1)
	err := s.Space().AddMethod("/synth/1/freq", dispatch.HandlerFunc(func(*wire.Message) {
		received <- time.Now()
	}))
	if err != nil {
		t.Fatalf("AddMethod failed: %v", err)
	}

	delay := 150 * time.Millisecond
	b := wire.NewBundle(wire.NewTimetag(time.Now().Add(delay)))
	if err := b.Append(wire.NewMessage("/synth/1/freq", int32(440))); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	c := newTargetedClient(t, s.Addr().String())
	sent := time.Now()
	if err := c.Send(b); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case at := <-received:
		if elapsed := at.Sub(sent); elapsed < 100*time.Millisecond {
			t.Errorf("bundle dispatched after %v, want at least 100ms", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scheduled bundle")
	}

	if got := s.Stats().BundlesScheduled; got != 1 {
		t.Errorf("BundlesScheduled = %d, want 1", got)
	}
}

func TestServerImmediateModeIgnoresTimetags(t *testing.T) {
	s := newRunningServer(t, func(c *ServerConfig) {
		c.Immediate = true
	})

	received := make(chan struct{}, 1)
	err := s.Space().AddMethod("/synth/1/freq", dispatch.HandlerFunc(func(*wire.Message) {
		received <- struct{}{}
	}))
	if err != nil {
		t.Fatalf("AddMethod failed: %v", err)
	}

	b := wire.NewBundle(wire.NewTimetag(time.Now().Add(time.Hour)))
	if err := b.Append(wire.NewMessage("/synth/1/freq", int32(440))); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	c := newTargetedClient(t, s.Addr().String())
	if err := c.Send(b); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("future bundle was not dispatched immediately")
	}

	if got := s.Stats().BundlesScheduled; got != 0 {
		t.Errorf("BundlesScheduled = %d, want 0", got)
	}
}

func TestServerStopCancelsPendingBundles(t *testing.T) {
	s := newRunningServer(t, nil)

	fired := make(chan struct{}, 1)
	err := s.Space().AddMethod("/synth/1/freq", dispatch.HandlerFunc(func(*wire.Message) {
		fired <- struct{}{}
	}))
	if err != nil {
		t.Fatalf("AddMethod failed: %v", err)
	}

	b := wire.NewBundle(wire.NewTimetag(time.Now().Add(300 * time.Millisecond)))
	if err := b.Append(wire.NewMessage("/synth/1/freq", int32(440))); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	c := newTargetedClient(t, s.Addr().String())
	if err := c.Send(b); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, func() bool { return s.Stats().BundlesScheduled == 1 })

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case <-fired:
		t.Error("bundle dispatched after Stop")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestServerDropsUndecodableDatagrams(t *testing.T) {
	errCh := make(chan error, 1)
	s := newRunningServer(t, func(c *ServerConfig) {
		c.OnError = func(err error) {
			select {
			case errCh <- err:
			default:
			}
		}
	})

	received := make(chan struct{}, 1)
	err := s.Space().AddMethod("/synth/1/freq", dispatch.HandlerFunc(func(*wire.Message) {
		received <- struct{}{}
	}))
	if err != nil {
		t.Fatalf("AddMethod failed: %v", err)
	}

	conn, err := transport.Dial(s.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.Send([]byte("xxxx")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("OnError called with nil error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnError was not called for an undecodable datagram")
	}

	stats := s.Stats()
	if stats.DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", stats.DecodeErrors)
	}
	if stats.MessagesDispatched != 0 {
		t.Errorf("MessagesDispatched = %d, want 0", stats.MessagesDispatched)
	}

	select {
	case <-received:
		t.Error("handler invoked for an undecodable datagram")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientOpenModeSendTo(t *testing.T) {
	s := newRunningServer(t, nil)

	received := make(chan struct{}, 1)
	err := s.Space().AddMethod("/mixer/gain", dispatch.HandlerFunc(func(*wire.Message) {
		received <- struct{}{}
	}))
	if err != nil {
		t.Fatalf("AddMethod failed: %v", err)
	}

	c, err := NewClient(ClientConfig{})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer c.Close()

	if c.RemoteAddr() != nil {
		t.Errorf("RemoteAddr() = %v in open mode, want nil", c.RemoteAddr())
	}

	// Send has no peer in open mode.
	if err := c.Send(wire.NewMessage("/mixer/gain")); !errors.Is(err, transport.ErrNoPeer) {
		t.Errorf("Send() error = %v, want ErrNoPeer", err)
	}

	if err := c.SendTo(wire.NewMessage("/mixer/gain", float32(0.5)), s.Addr()); err != nil {
		t.Fatalf("SendTo failed: %v", err)
	}

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for open-mode packet")
	}
}

func TestClientSendMessageValidation(t *testing.T) {
	c := newTargetedClient(t, "127.0.0.1:9")

	if err := c.SendMessage("nofreq"); !errors.Is(err, wire.ErrMalformedAddress) {
		t.Errorf("SendMessage with relative address error = %v, want ErrMalformedAddress", err)
	}
	if err := c.SendMessage("/synth/1/freq", uint16(3)); !errors.Is(err, wire.ErrUnsupportedTypeTag) {
		t.Errorf("SendMessage with unsupported argument error = %v, want ErrUnsupportedTypeTag", err)
	}
}
