package server

import (
	"fmt"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/brettbedarf/bootfs"
	"github.com/brettbedarf/bootfs/config"
	"github.com/brettbedarf/bootfs/internal/util"
)

// BootFs exposes a FileProtocol as a read-only FUSE mount
type BootFs struct {
	files  bootfs.FileProtocol
	cfg    *config.Config
	server *fuse.Server
}

// New creates a BootFs serving files with the given config.
func New(cfg *config.Config, files bootfs.FileProtocol) *BootFs {
	return &BootFs{
		files: files,
		cfg:   cfg,
	}
}

func (b *BootFs) mountOptions() *fs.Options {
	opts := b.cfg.MountOptions
	attrTimeout := time.Duration(b.cfg.AttrTimeout * float64(time.Second))
	entryTimeout := time.Duration(b.cfg.EntryTimeout * float64(time.Second))
	logger := util.NewLogLogger("FuseServer", util.DebugLevel)

	return &fs.Options{
		MountOptions: fuse.MountOptions{
			Name:   opts.Name,
			FsName: opts.FsName,
			Debug:  opts.Debug || b.cfg.LogLvl == util.TraceLevel,
			Logger: logger,
		},
		AttrTimeout:  &attrTimeout,
		EntryTimeout: &entryTimeout,
		Logger:       logger,
	}
}

// Serve mounts the filesystem at mountPoint and returns once the kernel has
// accepted the mount. Requests are handled in the background until Unmount.
func (b *BootFs) Serve(mountPoint string) error {
	root, err := newBridge(b.files, b.cfg.DirectIO).root()
	if err != nil {
		return fmt.Errorf("open volume: %w", err)
	}
	srv, err := fs.Mount(mountPoint, root, b.mountOptions())
	if err != nil {
		return err
	}
	b.server = srv
	logger := util.GetLogger("FuseServer")
	logger.Debug().Str("mountpoint", mountPoint).Msg("Mounted")
	return nil
}

// ServeAsync runs Serve in the background. The channel yields its result once
// the mount is up or has failed, then closes.
func (b *BootFs) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- b.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Wait blocks until the filesystem is unmounted, including by an external
// fusermount. It returns immediately if nothing was mounted.
func (b *BootFs) Wait() {
	if b.server != nil {
		b.server.Wait()
	}
}

// Unmount cleanly unmounts the filesystem.
func (b *BootFs) Unmount() error {
	if b.server == nil {
		return nil
	}
	return b.server.Unmount()
}
