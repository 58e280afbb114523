package filesystem

import (
	"fmt"

	"github.com/brettbedarf/bootfs"
)

// The backing store is read-only and has no cursor, so every mutating or
// positional operation is permanently unsupported.

func unsupported(op string) error {
	return fmt.Errorf("%s: %w", op, bootfs.ErrUnsupported)
}

func (fs *FileSystem) Write(bootfs.Handle, []byte) (int, error) {
	return 0, unsupported("write")
}

func (fs *FileSystem) Delete(bootfs.Handle) error {
	return unsupported("delete")
}

func (fs *FileSystem) SetInfo(bootfs.Handle, bootfs.InfoKind, []byte) error {
	return unsupported("setinfo")
}

func (fs *FileSystem) Flush(bootfs.Handle) error {
	return unsupported("flush")
}

func (fs *FileSystem) GetPosition(bootfs.Handle) (uint64, error) {
	return 0, unsupported("getposition")
}

func (fs *FileSystem) SetPosition(bootfs.Handle, uint64) error {
	return unsupported("setposition")
}

func (fs *FileSystem) OpenEx(bootfs.Handle, string, uint64, uint64) (bootfs.Handle, error) {
	return 0, unsupported("openex")
}

func (fs *FileSystem) ReadEx(bootfs.Handle, []byte) (int, error) {
	return 0, unsupported("readex")
}

func (fs *FileSystem) WriteEx(bootfs.Handle, []byte) (int, error) {
	return 0, unsupported("writeex")
}

func (fs *FileSystem) FlushEx(bootfs.Handle) error {
	return unsupported("flushex")
}
