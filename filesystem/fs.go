package filesystem

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/brettbedarf/bootfs"
	"github.com/brettbedarf/bootfs/config"
	"github.com/brettbedarf/bootfs/internal/util"
)

// FileSystem projects the files of a remote transfer server as a tree of open
// handles. Only the handles themselves are stored; every remote call names its
// target by a path rebuilt from the node chain.
//
// A FileSystem is not safe for concurrent use. Callers that share one across
// goroutines must serialize every operation.
type FileSystem struct {
	ctx       context.Context // threaded into every transport call; never replaced
	cfg       *config.Config
	transport bootfs.Transport
	id        uuid.UUID
	root      *Node
	nodes     *arena
	logger    util.Logger
}

var _ bootfs.FileProtocol = (*FileSystem)(nil)

// NewFS creates a FileSystem over transport. ctx bounds every remote call made by
// the returned FileSystem.
func NewFS(ctx context.Context, cfg *config.Config, transport bootfs.Transport) *FileSystem {
	nodes, root := newArena(cfg.MaxHandles)
	id := uuid.New()
	fs := &FileSystem{
		ctx:       ctx,
		cfg:       cfg,
		transport: transport,
		id:        id,
		root:      root,
		nodes:     nodes,
		logger:    util.GetLogger("FileSystem").With().Str("volume", id.String()).Logger(),
	}
	fs.logger.Debug().Str("server", cfg.Server).Str("transport", cfg.Transport).Msg("Volume created")
	return fs
}

// ID returns the volume identifier attached to this FileSystem's log lines
func (fs *FileSystem) ID() uuid.UUID {
	return fs.id
}

// OpenVolume writes the root handle into root. It never touches reference counts.
func (fs *FileSystem) OpenVolume(root *bootfs.Handle) error {
	if root == nil {
		return fmt.Errorf("open volume: nil root: %w", bootfs.ErrInvalidParameter)
	}
	*root = fs.root.handle
	return nil
}

// Open resolves name below parent by querying its size from the server and
// returns a new handle for it. mode and attrs are accepted for interface
// compatibility only; nothing is ever created or written.
//
// Errors wrap [bootfs.ErrNotFound], [bootfs.ErrTransport], [bootfs.ErrAllocation]
// or [bootfs.ErrInvalidParameter]. On error the node graph is left unchanged.
func (fs *FileSystem) Open(parent bootfs.Handle, name string, mode, attrs uint64) (bootfs.Handle, error) {
	p, err := fs.lookupOpen("open", parent)
	if err != nil {
		return 0, err
	}

	path := buildPath(p, name)
	logger := fs.logger.With().Str("op", "open").Str("path", path).Logger()
	logger.Trace().Uint64("mode", mode).Uint64("attrs", attrs).Msg("Open called")

	size, err := fs.transport.QuerySize(fs.ctx, path)
	if err != nil {
		err = remoteError("open", path, err)
		logger.Debug().Err(err).Msg("Size query failed")
		return 0, err
	}

	n, err := fs.nodes.createChild(p, name, size)
	if err != nil {
		logger.Debug().Err(err).Msg("Failed to allocate node")
		return 0, fmt.Errorf("open %q: %w", path, err)
	}
	logger.Trace().Uint64("handle", uint64(n.handle)).Uint64("size", size).Msg("Opened")
	return n.handle, nil
}

// Read fetches the file behind h into buf and returns the number of bytes
// obtained. There is no cursor: every call transfers again from byte 0, bounded
// by len(buf). The returned count may be less than len(buf) for short files.
func (fs *FileSystem) Read(h bootfs.Handle, buf []byte) (int, error) {
	n, err := fs.lookupOpen("read", h)
	if err != nil {
		return 0, err
	}
	if n.IsRoot() {
		return 0, fmt.Errorf("read root: %w", bootfs.ErrUnsupported)
	}

	path := buildPath(n)
	logger := fs.logger.With().Str("op", "read").Str("path", path).Logger()
	logger.Trace().Int("capacity", len(buf)).Msg("Read called")

	got, err := fs.transport.FetchFile(fs.ctx, path, buf)
	if err != nil {
		err = remoteError("read", path, err)
		logger.Debug().Err(err).Msg("Fetch failed")
		return 0, err
	}
	got = min(max(got, 0), len(buf))
	logger.Trace().Str("fetched", humanize.IBytes(uint64(got))).Msg("Read done")
	return got, nil
}

// Close releases h. Every node from h up to the root loses one reference and
// nodes left without references are freed. Closing the root handle is a no-op.
func (fs *FileSystem) Close(h bootfs.Handle) error {
	n, err := fs.lookupOpen("close", h)
	if err != nil {
		return err
	}
	if n.IsRoot() {
		return nil
	}
	freed := fs.nodes.release(n)
	fs.logger.Trace().Str("op", "close").Uint64("handle", uint64(h)).Int("freed", freed).Msg("Closed")
	return nil
}

// GetInfo writes the file info of h into buf. *size carries the caller's stated
// buffer capacity. The rules are strict and deliberately asymmetric:
//
//   - buf nil: report the required size. If *size already covers it this
//     succeeds without data, otherwise *size is set to the requirement and
//     [bootfs.ErrBufferTooSmall] is returned.
//   - *size below the requirement: [bootfs.ErrBufferTooSmall], *size untouched.
//   - *size exactly the requirement: buf is filled.
//   - anything else, including a capacity larger than required: [bootfs.ErrUnsupported].
//
// Callers are expected to query first and then pass an exact buffer.
// Existing loaders depend on the larger-is-unsupported case, so it must not be relaxed.
func (fs *FileSystem) GetInfo(h bootfs.Handle, kind bootfs.InfoKind, size *int, buf []byte) error {
	n, err := fs.lookupOpen("getinfo", h)
	if err != nil {
		return err
	}
	if kind != bootfs.FileInfoID {
		return fmt.Errorf("getinfo %s: %w", kind, bootfs.ErrUnsupported)
	}

	required := FileInfoSize(n.segment)
	switch {
	case buf == nil && size != nil:
		if *size < required {
			*size = required
			return fmt.Errorf("getinfo: need %d bytes: %w", required, bootfs.ErrBufferTooSmall)
		}
		return nil
	case buf != nil && size == nil:
		return fmt.Errorf("getinfo: nil size: %w", bootfs.ErrInvalidParameter)
	case buf != nil && *size < required:
		return fmt.Errorf("getinfo: need %d bytes, have %d: %w", required, *size, bootfs.ErrBufferTooSmall)
	case buf != nil && *size == required:
		if len(buf) < required {
			return fmt.Errorf("getinfo: stated %d bytes, buffer %d: %w", *size, len(buf), bootfs.ErrInvalidParameter)
		}
		encodeFileInfo(buf[:required], n)
		return nil
	default:
		return fmt.Errorf("getinfo: capacity must equal %d: %w", required, bootfs.ErrUnsupported)
	}
}

// lookupOpen resolves h to a node whose owning handle is still open
func (fs *FileSystem) lookupOpen(op string, h bootfs.Handle) (*Node, error) {
	n, ok := fs.nodes.lookup(h)
	if !ok || !n.open {
		return nil, fmt.Errorf("%s: handle %d: %w", op, h, bootfs.ErrInvalidParameter)
	}
	return n, nil
}

// remoteError maps a transport failure onto the error vocabulary: not-found stays
// not-found, everything else becomes a transport error.
func remoteError(op, path string, err error) error {
	switch {
	case errors.Is(err, bootfs.ErrNotFound):
		return fmt.Errorf("%s %q: %w", op, path, bootfs.ErrNotFound)
	case errors.Is(err, bootfs.ErrTransport):
		return fmt.Errorf("%s %q: %w", op, path, err)
	default:
		return fmt.Errorf("%s %q: %w: %w", op, path, bootfs.ErrTransport, err)
	}
}
