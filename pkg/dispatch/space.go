package dispatch

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/osc-protocol/osc-go/pkg/address"
	"github.com/osc-protocol/osc-go/pkg/wire"
)

// Address space errors.
var (
	// ErrInvalidName reports a mutation path that is empty or whose
	// segments are not literal names.
	ErrInvalidName = errors.New("invalid element name")

	// ErrDuplicateName reports a name collision between a container
	// and a method. Re-adding a container is a no-op and re-adding a
	// method subscribes another handler; only cross-kind collisions
	// fail.
	ErrDuplicateName = errors.New("duplicate element name")

	// ErrNodeNotFound reports a removal path that names no node.
	ErrNodeNotFound = errors.New("node not found")
)

// AddressSpace is the container/method tree a process exposes for
// incoming OSC messages. The zero value is not usable; construct with
// NewAddressSpace.
type AddressSpace struct {
	mu      sync.Mutex
	root    *container
	onError func(error)
}

// NewAddressSpace returns an empty address space.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{root: newContainer(address.Address{})}
}

// OnDispatchError registers fn to receive dispatch-time failures:
// malformed patterns in inbound addresses and recovered handler
// panics. Mutation errors are returned to the caller and never reach
// fn.
func (s *AddressSpace) OnDispatchError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// splitPath validates a mutation path: at least one segment, every
// segment a literal name.
func splitPath(path string) ([]address.Address, error) {
	segs := address.New(path).Split('/')
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: empty path %q", ErrInvalidName, path)
	}
	for _, seg := range segs {
		if seg.HasPattern() || seg.HasReserved() {
			return nil, fmt.Errorf("%w: segment %q", ErrInvalidName, seg)
		}
	}
	return segs, nil
}

// AddMethod registers h at path, creating intermediate containers as
// needed. Adding to an existing method appends h to its subscriber
// list; a container already holding the final name fails with
// ErrDuplicateName.
func (s *AddressSpace) AddMethod(path string, h Handler) error {
	if h == nil {
		return errors.New("nil handler")
	}
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.descend(segs[:len(segs)-1])
	if err != nil {
		return err
	}
	last := segs[len(segs)-1]
	if existing, ok := parent.child(last); ok {
		m, ok := existing.(*method)
		if !ok {
			return fmt.Errorf("%w: container at %q", ErrDuplicateName, path)
		}
		m.handlers = append(m.handlers, h)
		return nil
	}
	parent.addChild(&method{name: last, handlers: []Handler{h}})
	return nil
}

// AddContainer ensures a container exists at path, creating
// intermediate containers as needed. Adding an existing container is
// a no-op; a method holding any segment of the path fails with
// ErrDuplicateName.
func (s *AddressSpace) AddContainer(path string) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.descend(segs)
	return err
}

// descend walks containers for segs, creating missing ones, and
// returns the final container.
func (s *AddressSpace) descend(segs []address.Address) (*container, error) {
	cur := s.root
	for _, seg := range segs {
		child, ok := cur.child(seg)
		if !ok {
			next := newContainer(seg)
			cur.addChild(next)
			cur = next
			continue
		}
		c, ok := child.(*container)
		if !ok {
			return nil, fmt.Errorf("%w: method at %q", ErrDuplicateName, seg)
		}
		cur = c
	}
	return cur, nil
}

// Remove detaches the node at path together with its whole subtree.
func (s *AddressSpace) Remove(path string) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := cur.child(seg)
		if !ok {
			return fmt.Errorf("%w: %q", ErrNodeNotFound, path)
		}
		c, ok := child.(*container)
		if !ok {
			return fmt.Errorf("%w: %q", ErrNodeNotFound, path)
		}
		cur = c
	}
	if !cur.removeChild(segs[len(segs)-1]) {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, path)
	}
	return nil
}

// Dispatch routes a decoded packet. A bundle dispatches its messages
// first, then its nested bundles, recursing over the already-decoded
// child structure. Bundle timetags are not interpreted here;
// scheduling them is the receiving service's concern.
//
// No matching method is a normal, silent outcome.
func (s *AddressSpace) Dispatch(p wire.Packet) {
	switch v := p.(type) {
	case *wire.Message:
		s.dispatchMessage(v)
	case *wire.Bundle:
		s.dispatchBundle(v)
	}
}

func (s *AddressSpace) dispatchBundle(b *wire.Bundle) {
	for _, m := range b.Messages {
		s.dispatchMessage(m)
	}
	for _, nb := range b.Bundles {
		s.dispatchBundle(nb)
	}
}

func (s *AddressSpace) dispatchMessage(msg *wire.Message) {
	targets, err := s.collect(msg.Address)
	if err != nil {
		s.reportError(fmt.Errorf("dispatch %q: %w", msg.Address, err))
		return
	}
	for _, t := range targets {
		s.invoke(t, msg)
	}
}

// target is one matched method: its full path for error reports and
// its subscriber list as captured under the lock.
type target struct {
	path     string
	handlers []Handler
}

// matchFrame is one layer of the iterative walk: a container and the
// index of the next child to examine. For a literal segment the index
// doubles as a visited mark.
type matchFrame struct {
	c    *container
	next int
}

// collect gathers the subscribers of every method matching pattern,
// depth-first, left to right in child-insertion order. The frame
// stack is bounded by the segment count, so wildcard fan-out never
// grows it. An invalid pattern aborts the walk with no targets.
func (s *AddressSpace) collect(pattern address.Address) ([]target, error) {
	segs := pattern.Split('/')
	if len(segs) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var targets []target
	frames := make([]matchFrame, 1, len(segs))
	frames[0] = matchFrame{c: s.root}

	for len(frames) > 0 {
		f := &frames[len(frames)-1]
		depth := len(frames) - 1
		seg := segs[depth]
		last := depth == len(segs)-1

		if !seg.HasPattern() {
			// Literal segment: one index lookup on first visit,
			// then pop.
			if f.next == 0 {
				f.next = len(f.c.children) + 1
				if child, ok := f.c.child(seg); ok {
					if last {
						if m, ok := child.(*method); ok {
							targets = append(targets, s.capture(frames, m))
						}
					} else if c, ok := child.(*container); ok {
						frames = append(frames, matchFrame{c: c})
						continue
					}
				}
			}
			frames = frames[:len(frames)-1]
			continue
		}

		// Pattern segment: resume the scan at the saved cursor so a
		// pop lands on the next sibling, not the first.
		descended := false
		for f.next < len(f.c.children) {
			child := f.c.children[f.next]
			f.next++
			ok, err := address.Match(child.segment(), seg)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if last {
				if m, ok := child.(*method); ok {
					targets = append(targets, s.capture(frames, m))
				}
				continue
			}
			if c, ok := child.(*container); ok {
				frames = append(frames, matchFrame{c: c})
				descended = true
				break
			}
		}
		if !descended {
			frames = frames[:len(frames)-1]
		}
	}
	return targets, nil
}

// capture snapshots a matched method: the handler slice header is
// copied under the lock, so later subscriptions do not leak into this
// pass.
func (s *AddressSpace) capture(frames []matchFrame, m *method) target {
	var sb strings.Builder
	for _, f := range frames[1:] {
		sb.WriteByte('/')
		sb.WriteString(f.c.name.String())
	}
	sb.WriteByte('/')
	sb.WriteString(m.name.String())
	return target{path: sb.String(), handlers: m.handlers}
}

// invoke runs one matched method's subscribers in subscription order,
// recovering panics so one failing subscriber cannot stop the pass.
func (s *AddressSpace) invoke(t target, msg *wire.Message) {
	for _, h := range t.handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.reportError(fmt.Errorf("handler panic at %s: %v", t.path, r))
				}
			}()
			h.HandleMessage(msg)
		}()
	}
}

func (s *AddressSpace) reportError(err error) {
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// DumpTo writes an indented listing of the tree to w, one node per
// line: containers with a trailing '/', methods with their subscriber
// count.
func (s *AddressSpace) DumpTo(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dumpContainer(w, s.root, 0)
}

func dumpContainer(w io.Writer, c *container, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, child := range c.children {
		switch n := child.(type) {
		case *container:
			if _, err := fmt.Fprintf(w, "%s%s/\n", indent, n.name); err != nil {
				return err
			}
			if err := dumpContainer(w, n, depth+1); err != nil {
				return err
			}
		case *method:
			if _, err := fmt.Fprintf(w, "%s%s [%d]\n", indent, n.name, len(n.handlers)); err != nil {
				return err
			}
		}
	}
	return nil
}
