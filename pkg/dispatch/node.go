package dispatch

import (
	"github.com/osc-protocol/osc-go/pkg/address"
	"github.com/osc-protocol/osc-go/pkg/wire"
)

// Handler consumes dispatched messages.
type Handler interface {
	HandleMessage(msg *wire.Message)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(msg *wire.Message)

// HandleMessage calls f(msg).
func (f HandlerFunc) HandleMessage(msg *wire.Message) { f(msg) }

// node is one tree element, a *container or a *method. Both carry
// their literal segment name.
type node interface {
	segment() address.Address
}

// container is an interior node. children keeps insertion order;
// index maps each child's name to its position for literal lookup.
type container struct {
	name     address.Address
	children []node
	index    map[address.Address]int
}

func newContainer(name address.Address) *container {
	return &container{name: name, index: make(map[address.Address]int)}
}

func (c *container) segment() address.Address { return c.name }

// child returns the direct child with the exact name.
func (c *container) child(name address.Address) (node, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.children[i], true
}

func (c *container) addChild(n node) {
	c.index[n.segment()] = len(c.children)
	c.children = append(c.children, n)
}

// removeChild detaches the direct child with the exact name and
// reindexes the children behind it.
func (c *container) removeChild(name address.Address) bool {
	i, ok := c.index[name]
	if !ok {
		return false
	}
	c.children = append(c.children[:i], c.children[i+1:]...)
	delete(c.index, name)
	for j := i; j < len(c.children); j++ {
		c.index[c.children[j].segment()] = j
	}
	return true
}

// method is a leaf node holding its subscribers in subscription
// order.
type method struct {
	name     address.Address
	handlers []Handler
}

func (m *method) segment() address.Address { return m.name }
