package bootfs

// FileProtocol is the file access interface consumed by a boot loader. It exposes
// the five supported operations plus the permanently unsupported mutating ones.
type FileProtocol interface {
	// OpenVolume writes the root handle into root
	OpenVolume(root *Handle) error

	// Open resolves name below parent on the remote server and returns a new handle
	Open(parent Handle, name string, mode, attrs uint64) (Handle, error)

	// Read fetches the file from its first byte into buf and returns the number
	// of bytes obtained. There is no read cursor.
	Read(h Handle, buf []byte) (int, error)

	// Close releases h and any ancestor no longer referenced by an open handle
	Close(h Handle) error

	// GetInfo fills buf with the metadata structure selected by kind. See
	// [github.com/brettbedarf/bootfs/filesystem.FileSystem.GetInfo] for the size rules.
	GetInfo(h Handle, kind InfoKind, size *int, buf []byte) error

	Write(h Handle, buf []byte) (int, error)
	Delete(h Handle) error
	SetInfo(h Handle, kind InfoKind, buf []byte) error
	Flush(h Handle) error
	GetPosition(h Handle) (uint64, error)
	SetPosition(h Handle, pos uint64) error
	OpenEx(parent Handle, name string, mode, attrs uint64) (Handle, error)
	ReadEx(h Handle, buf []byte) (int, error)
	WriteEx(h Handle, buf []byte) (int, error)
	FlushEx(h Handle) error
}
