package filesystem

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/brettbedarf/bootfs"
	"github.com/puzpuzpuz/xsync/v4"
)

// arena owns every live node and maps handles to them. Handles come from a
// monotonic counter and are never reused.
// The concurrent map and counter do not make the arena goroutine-safe: refs
// and open are plain fields, so callers serialize as FileSystem requires.
type arena struct {
	nodes      *xsync.Map[bootfs.Handle, *Node]
	lastHandle atomic.Uint64
	maxNodes   int // live non-root nodes
}

func newArena(maxNodes int) (*arena, *Node) {
	root := &Node{refs: 1, open: true, handle: bootfs.RootHandle}
	a := &arena{
		nodes:    xsync.NewMap[bootfs.Handle, *Node](),
		maxNodes: maxNodes,
	}
	a.lastHandle.Store(uint64(bootfs.RootHandle))
	a.nodes.Store(root.handle, root)
	return a, root
}

func (a *arena) lookup(h bootfs.Handle) (*Node, bool) {
	return a.nodes.Load(h)
}

// live returns the number of non-root nodes currently allocated
func (a *arena) live() int {
	return a.nodes.Size() - 1
}

// createChild allocates a node under parent and takes one reference on every
// ancestor up to and including the root. On error nothing is modified.
func (a *arena) createChild(parent *Node, segment string, size uint64) (*Node, error) {
	if a.live() >= a.maxNodes {
		return nil, fmt.Errorf("%d nodes in use: %w", a.maxNodes, bootfs.ErrAllocation)
	}

	n := &Node{
		segment: strings.Clone(segment),
		size:    size,
		refs:    1,
		open:    true,
		handle:  bootfs.Handle(a.lastHandle.Add(1)),
		parent:  parent,
	}
	for p := parent; p != nil; p = p.parent {
		p.refs++
	}
	a.nodes.Store(n.handle, n)
	return n, nil
}

// release drops the owning handle's reference on n and one reference on each
// ancestor, walking root-ward. Nodes reaching zero leave the arena. Returns the
// number of nodes freed.
func (a *arena) release(n *Node) int {
	n.open = false
	freed := 0
	for cur := n; cur != nil; {
		parent := cur.parent // captured before cur may be freed
		cur.refs--
		if cur.refs == 0 {
			a.nodes.Delete(cur.handle)
			freed++
		}
		cur = parent
	}
	return freed
}
