// Package dispatch implements the OSC address space: a tree of
// containers and methods that inbound messages are matched against and
// routed through.
//
// # Tree Shape
//
// Interior nodes are containers, leaves are methods. Node names are
// literal path segments; pattern syntax lives only in inbound message
// addresses. Each container keeps its children in insertion order and
// maintains a name index for O(1) literal lookup, so a pattern-free
// address descends with one map lookup per segment.
//
// # Matching Walk
//
// A pattern segment may match any number of siblings, so the walk
// keeps an explicit stack of (container, next-child) frames sized to
// the address depth instead of recursing per match. Matches are
// visited depth-first, left to right in child-insertion order.
//
// # Locking
//
// One exclusive mutex guards every mutation and every walk. Matched
// handlers are collected under the lock and invoked after it is
// released, in match order, so a slow subscriber delays later
// subscribers but never blocks tree mutation. A panicking subscriber
// is recovered and reported through the error hook; the remaining
// subscribers still run.
package dispatch
