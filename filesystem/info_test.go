package filesystem

import (
	"encoding/binary"
	"testing"

	"github.com/brettbedarf/bootfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileInfoSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want int
	}{
		{"", FileInfoHeaderSize + 2},
		{"kernel.img", FileInfoHeaderSize + 22},
		{"é", FileInfoHeaderSize + 4},
		{"😀", FileInfoHeaderSize + 6}, // surrogate pair
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileInfoSize(tt.name), "name %q", tt.name)
	}
}

func TestEncodeFileInfo(t *testing.T) {
	t.Parallel()

	n := &Node{segment: "vmlinuz-😀", size: 10 << 20}
	buf := make([]byte, FileInfoSize(n.segment))
	for i := range buf {
		buf[i] = 0xAA // header must be cleared, not assumed zero
	}

	encodeFileInfo(buf, n)

	le := binary.LittleEndian
	assert.Equal(t, uint64(len(buf)), le.Uint64(buf[offSize:]))
	assert.Equal(t, n.size, le.Uint64(buf[offFileSize:]))
	assert.Equal(t, n.size, le.Uint64(buf[offPhysicalSize:]))
	assert.Equal(t, make([]byte, offAttribute+8-offCreateTime), buf[offCreateTime:FileInfoHeaderSize],
		"timestamps and attribute must be zero")
	assert.Equal(t, uint16(0), le.Uint16(buf[len(buf)-2:]), "name must be NUL terminated")

	info, err := UnmarshalFileInfo(buf)
	require.NoError(t, err)
	assert.Equal(t, n.segment, info.FileName)
	assert.Equal(t, uint64(len(buf)), info.Size)
	assert.Equal(t, n.size, info.FileSize)
	assert.Equal(t, n.size, info.PhysicalSize)
	assert.Zero(t, info.Attribute)
}

func TestUnmarshalFileInfo_Errors(t *testing.T) {
	t.Parallel()

	t.Run("short buffer", func(t *testing.T) {
		t.Parallel()
		_, err := UnmarshalFileInfo(make([]byte, FileInfoHeaderSize))
		assert.ErrorIs(t, err, bootfs.ErrBufferTooSmall)
	})

	t.Run("size field mismatch", func(t *testing.T) {
		t.Parallel()
		buf := make([]byte, FileInfoSize("a"))
		encodeFileInfo(buf, &Node{segment: "a"})
		_, err := UnmarshalFileInfo(append(buf, 0, 0))
		assert.ErrorIs(t, err, bootfs.ErrInvalidParameter)
	})
}
