package server

import (
	"context"
	"errors"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/brettbedarf/bootfs"
	"github.com/brettbedarf/bootfs/filesystem"
	"github.com/brettbedarf/bootfs/internal/util"
)

const (
	fileMode = 0o444
	dirMode  = 0o555
)

// bridge serializes kernel requests into a single FileProtocol
type bridge struct {
	mu       sync.Mutex
	files    bootfs.FileProtocol
	directIO bool
	logger   util.Logger
}

func newBridge(files bootfs.FileProtocol, directIO bool) *bridge {
	return &bridge{files: files, directIO: directIO, logger: util.GetLogger("FuseBridge")}
}

// root opens the volume and returns its inode embedder
func (b *bridge) root() (*remoteNode, error) {
	var h bootfs.Handle
	b.mu.Lock()
	err := b.files.OpenVolume(&h)
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &remoteNode{b: b, handle: h}, nil
}

// stat reads the file info of h, querying the required size first
func (b *bridge) stat(h bootfs.Handle) (*filesystem.FileInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := 0
	if err := b.files.GetInfo(h, bootfs.FileInfoID, &size, nil); err != nil && !errors.Is(err, bootfs.ErrBufferTooSmall) {
		return nil, err
	}
	buf := make([]byte, size)
	if err := b.files.GetInfo(h, bootfs.FileInfoID, &size, buf); err != nil {
		return nil, err
	}
	return filesystem.UnmarshalFileInfo(buf)
}

func (b *bridge) open(parent bootfs.Handle, name string) (bootfs.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.files.Open(parent, name, bootfs.ModeRead, 0)
}

func (b *bridge) close(h bootfs.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.files.Close(h); err != nil {
		b.logger.Warn().Err(err).Uint64("handle", uint64(h)).Msg("Failed to close handle")
	}
}

// readAt serves a positioned read on top of the cursorless Read. The file is
// fetched from byte 0 up to the end of the requested range and sliced at off.
func (b *bridge) readAt(h bootfs.Handle, size uint64, dest []byte, off int64) ([]byte, error) {
	if off < 0 || uint64(off) >= size || len(dest) == 0 {
		return nil, nil
	}
	end := min(uint64(off)+uint64(len(dest)), size)
	buf := make([]byte, end)

	b.mu.Lock()
	got, err := b.files.Read(h, buf)
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if int64(got) <= off {
		return nil, nil
	}
	return buf[off:got], nil
}

// remoteNode is one open handle exposed as an inode. Entries with a size of
// zero are presented as directories since the remote side has no notion of
// one and boot trees put files below them.
type remoteNode struct {
	fs.Inode
	b      *bridge
	handle bootfs.Handle
	size   uint64
}

var _ = (fs.NodeLookuper)((*remoteNode)(nil))
var _ = (fs.NodeGetattrer)((*remoteNode)(nil))
var _ = (fs.NodeOpener)((*remoteNode)(nil))
var _ = (fs.NodeReader)((*remoteNode)(nil))
var _ = (fs.NodeOnForgetter)((*remoteNode)(nil))

func (n *remoteNode) isDir() bool {
	return n.size == 0
}

func fillAttr(out *fuse.Attr, h bootfs.Handle, size uint64) {
	out.Ino = uint64(h)
	out.Size = size
	out.Blocks = (size + 511) / 512
	if size == 0 {
		out.Mode = syscall.S_IFDIR | dirMode
		out.Nlink = 2
	} else {
		out.Mode = syscall.S_IFREG | fileMode
		out.Nlink = 1
	}
}

// Lookup implements fs.NodeLookuper.
func (n *remoteNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	h, err := n.b.open(n.handle, name)
	if err != nil {
		return nil, toErrno(err)
	}
	info, err := n.b.stat(h)
	if err != nil {
		n.b.close(h)
		return nil, toErrno(err)
	}

	child := &remoteNode{b: n.b, handle: h, size: info.FileSize}
	fillAttr(&out.Attr, h, child.size)
	mode := uint32(fuse.S_IFREG)
	if child.isDir() {
		mode = fuse.S_IFDIR
	}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: mode, Ino: uint64(h)}), fs.OK
}

// Getattr implements fs.NodeGetattrer.
func (n *remoteNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	info, err := n.b.stat(n.handle)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(&out.Attr, n.handle, info.FileSize)
	return fs.OK
}

// Open implements fs.NodeOpener. Any write intent is refused.
func (n *remoteNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC|syscall.O_APPEND) != 0 {
		return nil, 0, syscall.EROFS
	}
	if n.b.directIO {
		return nil, fuse.FOPEN_DIRECT_IO, fs.OK
	}
	return nil, fuse.FOPEN_KEEP_CACHE, fs.OK
}

// Read implements fs.NodeReader.
func (n *remoteNode) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := n.b.readAt(n.handle, n.size, dest, off)
	if err != nil {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(data), fs.OK
}

// OnForget implements fs.NodeOnForgetter. Closing the root handle is a no-op.
func (n *remoteNode) OnForget() {
	n.b.close(n.handle)
}

// toErrno maps FileSystem errors to the errno reported to the kernel
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return fs.OK
	case errors.Is(err, bootfs.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, bootfs.ErrInvalidParameter):
		return syscall.EINVAL
	case errors.Is(err, bootfs.ErrUnsupported):
		return syscall.ENOTSUP
	case errors.Is(err, bootfs.ErrBufferTooSmall):
		return syscall.ERANGE
	case errors.Is(err, bootfs.ErrAllocation):
		return syscall.ENOMEM
	default:
		return syscall.EIO
	}
}
