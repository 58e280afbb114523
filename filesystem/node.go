package filesystem

import "github.com/brettbedarf/bootfs"

// Node is one entry of the open handle graph. It stores a single path segment and
// a link to its parent; the full remote path is rebuilt from the chain on demand.
//
// refs counts the owning handle (while open) plus one per open descendant handle,
// so an ancestor outlives every handle below it.
type Node struct {
	segment string // path component this node was opened with; "" for root
	size    uint64 // remote size resolved at open; immutable
	refs    uint64
	open    bool // owning handle not yet closed
	handle  bootfs.Handle
	parent  *Node // nil only for root
}

// Name returns the path segment the node was opened with
func (n *Node) Name() string {
	return n.segment
}

// Size returns the remote file size resolved when the node was opened
func (n *Node) Size() uint64 {
	return n.size
}

// Handle returns the caller visible identifier of the node
func (n *Node) Handle() bootfs.Handle {
	return n.handle
}

func (n *Node) IsRoot() bool {
	return n.parent == nil
}
