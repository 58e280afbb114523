// Package bootfs contains core domain types and interfaces for the bootfs
// filesystem: a read-only file hierarchy served by a stateless whole-file
// transfer protocol and presented through a handle based file interface.
package bootfs

import "github.com/google/uuid"

// Handle identifies an open node. Handles are never reused within a FileSystem,
// so a released handle stays invalid forever.
type Handle uint64

// RootHandle is the handle of the volume root. It matches the FUSE root node ID.
const RootHandle Handle = 1

// Open modes accepted by [FileProtocol.Open]. Only ModeRead has any effect since
// the backing store is read-only.
const (
	ModeRead   uint64 = 0x0000000000000001
	ModeWrite  uint64 = 0x0000000000000002
	ModeCreate uint64 = 0x8000000000000000
)

// Separator joins path segments in requests sent to the remote server.
const Separator = '/'

// InfoKind selects the metadata structure returned by [FileProtocol.GetInfo].
type InfoKind = uuid.UUID

var (
	// FileInfoID requests basic file information. It is the only supported kind.
	FileInfoID = uuid.MustParse("09576e92-6d3f-11d2-8e39-00a0c969723b")

	// FileSystemInfoID requests volume information. Always unsupported.
	FileSystemInfoID = uuid.MustParse("09576e93-6d3f-11d2-8e39-00a0c969723b")
)
