package filesystem

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/brettbedarf/bootfs"
)

// FileInfoHeaderSize is the size of the fixed part of the file info structure,
// i.e. the offset of the NUL terminated UCS-2 file name.
const FileInfoHeaderSize = 80

// Field offsets of the little endian file info layout
const (
	offSize         = 0
	offFileSize     = 8
	offPhysicalSize = 16
	offCreateTime   = 24
	offAccessTime   = 40
	offModifyTime   = 56
	offAttribute    = 72
)

// TimeSize is the size of one packed timestamp in the header
const TimeSize = 16

// FileInfo is the decoded form of the structure written by GetInfo
type FileInfo struct {
	Size             uint64 // size of the whole structure including the name
	FileSize         uint64
	PhysicalSize     uint64
	CreateTime       [TimeSize]byte
	LastAccessTime   [TimeSize]byte
	ModificationTime [TimeSize]byte
	Attribute        uint64
	FileName         string
}

// FileInfoSize returns the encoded size of the file info for name
func FileInfoSize(name string) int {
	units := 0
	for _, r := range name {
		units += utf16.RuneLen(r)
	}
	return FileInfoHeaderSize + (units+1)*2
}

// encodeFileInfo writes the file info of n into buf, which must be exactly
// FileInfoSize(n.segment) bytes. The header is cleared first.
func encodeFileInfo(buf []byte, n *Node) {
	clear(buf[:FileInfoHeaderSize])
	le := binary.LittleEndian
	le.PutUint64(buf[offSize:], uint64(len(buf)))
	le.PutUint64(buf[offFileSize:], n.size)
	le.PutUint64(buf[offPhysicalSize:], n.size)

	off := FileInfoHeaderSize
	for _, u := range utf16.Encode([]rune(n.segment)) {
		le.PutUint16(buf[off:], u)
		off += 2
	}
	le.PutUint16(buf[off:], 0)
}

// UnmarshalFileInfo decodes a buffer filled by GetInfo
func UnmarshalFileInfo(buf []byte) (*FileInfo, error) {
	if len(buf) < FileInfoHeaderSize+2 {
		return nil, fmt.Errorf("file info: %d bytes: %w", len(buf), bootfs.ErrBufferTooSmall)
	}
	le := binary.LittleEndian
	info := &FileInfo{
		Size:         le.Uint64(buf[offSize:]),
		FileSize:     le.Uint64(buf[offFileSize:]),
		PhysicalSize: le.Uint64(buf[offPhysicalSize:]),
		Attribute:    le.Uint64(buf[offAttribute:]),
	}
	copy(info.CreateTime[:], buf[offCreateTime:])
	copy(info.LastAccessTime[:], buf[offAccessTime:])
	copy(info.ModificationTime[:], buf[offModifyTime:])

	if info.Size != uint64(len(buf)) {
		return nil, fmt.Errorf("file info: size field %d, buffer %d: %w",
			info.Size, len(buf), bootfs.ErrInvalidParameter)
	}

	units := make([]uint16, 0, (len(buf)-FileInfoHeaderSize)/2)
	for off := FileInfoHeaderSize; off+1 < len(buf); off += 2 {
		u := le.Uint16(buf[off:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	info.FileName = string(utf16.Decode(units))
	return info, nil
}
