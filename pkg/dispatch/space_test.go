package dispatch

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/osc-protocol/osc-go/pkg/wire"
)

// recorder appends the addresses it sees, tagged with its own id.
type recorder struct {
	id    string
	calls *[]string
}

func (r recorder) HandleMessage(msg *wire.Message) {
	*r.calls = append(*r.calls, r.id+":"+msg.Address.String())
}

func newSpace(t *testing.T, calls *[]string, paths ...string) *AddressSpace {
	t.Helper()
	s := NewAddressSpace()
	for _, p := range paths {
		if err := s.AddMethod(p, recorder{id: p, calls: calls}); err != nil {
			t.Fatalf("AddMethod(%q): %v", p, err)
		}
	}
	return s
}

func TestDispatchLiteral(t *testing.T) {
	var calls []string
	s := newSpace(t, &calls, "/synth/1/freq", "/synth/2/freq")

	s.Dispatch(wire.NewMessage("/synth/1/freq", int32(440)))

	want := []string{"/synth/1/freq:/synth/1/freq"}
	if strings.Join(calls, " ") != strings.Join(want, " ") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestDispatchFanOut(t *testing.T) {
	var calls []string
	s := newSpace(t, &calls, "/synth/1/freq", "/synth/2/freq")

	s.Dispatch(wire.NewMessage("/synth/*/freq"))

	// Both methods, each exactly once, in registration order.
	want := "/synth/1/freq:/synth/*/freq /synth/2/freq:/synth/*/freq"
	if got := strings.Join(calls, " "); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

func TestDispatchPatterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"wildcard middle", "/synth/*/freq", []string{"/synth/1/freq", "/synth/2/freq", "/synth/pad/freq"}},
		{"class", "/synth/[12]/freq", []string{"/synth/1/freq", "/synth/2/freq"}},
		{"negated class", "/synth/[!1]/freq", []string{"/synth/2/freq"}},
		{"question", "/synth/?/freq", []string{"/synth/1/freq", "/synth/2/freq"}},
		{"alternatives", "/{synth,mixer}/1/freq", []string{"/mixer/1/freq", "/synth/1/freq"}},
		{"double wildcard", "/*/*/freq", []string{"/mixer/1/freq", "/synth/1/freq", "/synth/2/freq", "/synth/pad/freq"}},
		{"final wildcard", "/synth/1/*", []string{"/synth/1/freq", "/synth/1/amp"}},
		{"no match", "/sampler/*/freq", nil},
		{"wildcard against method level", "/synth/*", nil},
	}

	// Registration order fixes invocation order within a container.
	paths := []string{
		"/mixer/1/freq",
		"/synth/1/freq",
		"/synth/1/amp",
		"/synth/2/freq",
		"/synth/pad/freq",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			s := newSpace(t, &calls, paths...)
			s.Dispatch(wire.NewMessage(tt.pattern))

			var want []string
			for _, w := range tt.want {
				want = append(want, w+":"+tt.pattern)
			}
			if strings.Join(calls, " ") != strings.Join(want, " ") {
				t.Errorf("calls = %v, want %v", calls, want)
			}
		})
	}
}

// "/*/*/freq" must visit matches depth-first in insertion order:
// mixer was registered before synth, so mixer/1/freq runs first, then
// synth's children in their own insertion order.
func TestDispatchDepthFirstOrder(t *testing.T) {
	var calls []string
	s := newSpace(t, &calls,
		"/mixer/1/freq",
		"/synth/1/freq",
		"/synth/2/freq",
	)

	s.Dispatch(wire.NewMessage("/*/*/freq"))

	want := "/mixer/1/freq:/*/*/freq /synth/1/freq:/*/*/freq /synth/2/freq:/*/*/freq"
	if got := strings.Join(calls, " "); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

func TestDispatchBundleOrder(t *testing.T) {
	var calls []string
	s := newSpace(t, &calls, "/a", "/b", "/c")

	nested := wire.NewBundle(wire.Timetag(200))
	nested.Append(wire.NewMessage("/c"))
	b := wire.NewBundle(wire.Timetag(100))
	b.Append(wire.NewMessage("/a"))
	b.Append(wire.NewMessage("/b"))
	b.Append(nested)

	s.Dispatch(b)

	want := "/a:/a /b:/b /c:/c"
	if got := strings.Join(calls, " "); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

func TestAddMethodSubscribes(t *testing.T) {
	var calls []string
	s := NewAddressSpace()
	if err := s.AddMethod("/m", recorder{id: "first", calls: &calls}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMethod("/m", recorder{id: "second", calls: &calls}); err != nil {
		t.Fatal(err)
	}

	s.Dispatch(wire.NewMessage("/m"))

	want := "first:/m second:/m"
	if got := strings.Join(calls, " "); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

func TestAddContainerIdempotent(t *testing.T) {
	s := NewAddressSpace()
	if err := s.AddContainer("/a/b"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddContainer("/a/b"); err != nil {
		t.Fatal(err)
	}

	var sb strings.Builder
	if err := s.DumpTo(&sb); err != nil {
		t.Fatal(err)
	}
	want := "a/\n  b/\n"
	if sb.String() != want {
		t.Errorf("tree dump = %q, want %q (exactly one b under one a)", sb.String(), want)
	}
}

func TestMutationErrors(t *testing.T) {
	h := HandlerFunc(func(*wire.Message) {})
	s := NewAddressSpace()
	if err := s.AddContainer("/zone/a"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMethod("/zone/a/level", h); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"method over container", func() error { return s.AddMethod("/zone/a", h) }, ErrDuplicateName},
		{"container over method", func() error { return s.AddContainer("/zone/a/level") }, ErrDuplicateName},
		{"descend through method", func() error { return s.AddMethod("/zone/a/level/x", h) }, ErrDuplicateName},
		{"pattern segment", func() error { return s.AddMethod("/zone/*/gain", h) }, ErrInvalidName},
		{"class segment", func() error { return s.AddContainer("/zone/[ab]") }, ErrInvalidName},
		{"reserved space", func() error { return s.AddMethod("/zone/a b", h) }, ErrInvalidName},
		{"empty path", func() error { return s.AddMethod("///", h) }, ErrInvalidName},
		{"remove missing", func() error { return s.Remove("/zone/ghost") }, ErrNodeNotFound},
		{"remove through missing", func() error { return s.Remove("/nowhere/at/all") }, ErrNodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRemoveSubtree(t *testing.T) {
	var calls []string
	s := newSpace(t, &calls, "/synth/1/freq", "/synth/2/freq")

	if err := s.Remove("/synth/1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	s.Dispatch(wire.NewMessage("/synth/*/freq"))
	want := "/synth/2/freq:/synth/*/freq"
	if got := strings.Join(calls, " "); got != want {
		t.Errorf("after removal calls = %q, want %q", got, want)
	}

	// Paths under the removed node are gone too.
	if err := s.Remove("/synth/1/freq"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Remove(child of removed) = %v, want ErrNodeNotFound", err)
	}
}

func TestHandlerPanicRecovered(t *testing.T) {
	var calls []string
	var reported []error
	s := NewAddressSpace()
	s.OnDispatchError(func(err error) { reported = append(reported, err) })

	if err := s.AddMethod("/m", HandlerFunc(func(*wire.Message) { panic("boom") })); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMethod("/m", recorder{id: "survivor", calls: &calls}); err != nil {
		t.Fatal(err)
	}

	s.Dispatch(wire.NewMessage("/m"))

	if len(calls) != 1 || calls[0] != "survivor:/m" {
		t.Errorf("later subscriber skipped after panic: calls = %v", calls)
	}
	if len(reported) != 1 || !strings.Contains(reported[0].Error(), "/m") {
		t.Errorf("panic not reported with path: %v", reported)
	}
}

func TestDispatchBadPatternReported(t *testing.T) {
	var calls []string
	var reported []error
	s := newSpace(t, &calls, "/synth/1/freq")
	s.OnDispatchError(func(err error) { reported = append(reported, err) })

	s.Dispatch(wire.NewMessage("/synth/[1/freq"))

	if len(calls) != 0 {
		t.Errorf("handlers ran for an invalid pattern: %v", calls)
	}
	if len(reported) != 1 {
		t.Fatalf("reported = %v, want one error", reported)
	}
}

func TestDispatchNoMatchSilent(t *testing.T) {
	var reported []error
	s := NewAddressSpace()
	s.OnDispatchError(func(err error) { reported = append(reported, err) })

	s.Dispatch(wire.NewMessage("/nothing/here"))
	s.Dispatch(wire.NewMessage("/"))

	if len(reported) != 0 {
		t.Errorf("no-match reported errors: %v", reported)
	}
}

func TestConcurrentMutationAndDispatch(t *testing.T) {
	s := NewAddressSpace()
	var hits sync.Map
	if err := s.AddMethod("/base", HandlerFunc(func(m *wire.Message) {
		hits.Store(m.Address.String(), true)
	})); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			path := "/worker/" + string(rune('a'+n))
			if err := s.AddMethod(path, HandlerFunc(func(*wire.Message) {})); err != nil {
				t.Errorf("AddMethod(%q): %v", path, err)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Dispatch(wire.NewMessage("/base"))
				s.Dispatch(wire.NewMessage("/worker/*"))
			}
		}()
	}
	wg.Wait()

	if _, ok := hits.Load("/base"); !ok {
		t.Error("base handler never ran")
	}
}
