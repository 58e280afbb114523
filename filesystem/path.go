package filesystem

import "github.com/brettbedarf/bootfs"

// buildPath returns the remote path of n, optionally extended by extra trailing
// segments: segments from the outermost ancestor down, joined by a single
// separator, without leading or trailing separator. The root alone yields "".
//
// The chain is walked twice: once to size the buffer exactly and once to fill it
// back to front, so the path is never grown or copied piecewise.
func buildPath(n *Node, extra ...string) string {
	size := 0
	for _, seg := range extra {
		size += len(seg) + 1
	}
	for cur := n; cur != nil && !cur.IsRoot(); cur = cur.parent {
		size += len(cur.segment) + 1
	}
	if size == 0 {
		return ""
	}

	buf := make([]byte, size-1)
	end := len(buf)
	for i := len(extra) - 1; i >= 0; i-- {
		end = putSegment(buf, end, extra[i])
	}
	for cur := n; cur != nil && !cur.IsRoot(); cur = cur.parent {
		end = putSegment(buf, end, cur.segment)
	}
	return string(buf)
}

// putSegment writes seg so that it ends at buf[end], preceded by a separator
// unless it lands at the start of buf. Returns the new end.
func putSegment(buf []byte, end int, seg string) int {
	start := end - len(seg)
	copy(buf[start:end], seg)
	if start > 0 {
		start--
		buf[start] = bootfs.Separator
	}
	return start
}
