package contenthash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceHash computes the content hash the slow way, block by block.
func referenceHash(data []byte) string {
	var sums []byte

	for start := 0; start < len(data); start += BlockSize {
		end := min(start+BlockSize, len(data))
		s := sha256.Sum256(data[start:end])
		sums = append(sums, s[:]...)
	}

	overall := sha256.Sum256(sums)

	return hex.EncodeToString(overall[:])
}

func TestSum_Empty(t *testing.T) {
	// No blocks: SHA-256 of the empty concatenation.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
}

func TestSum_SingleBlock(t *testing.T) {
	data := []byte("hello world")
	assert.Equal(t, referenceHash(data), Sum(data))
}

func TestSum_BlockBoundaries(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"one byte short of a block", BlockSize - 1},
		{"exactly one block", BlockSize},
		{"one byte past a block", BlockSize + 1},
		{"two and a half blocks", 2*BlockSize + BlockSize/2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := bytes.Repeat([]byte{0xA5}, tt.size)
			assert.Equal(t, referenceHash(data), Sum(data))
		})
	}
}

func TestWrite_SplitWritesMatchSingleWrite(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), BlockSize/8)

	h := New()
	for off := 0; off < len(data); off += 1000 {
		end := min(off+1000, len(data))
		n, err := h.Write(data[off:end])
		require.NoError(t, err)
		assert.Equal(t, end-off, n)
	}

	assert.Equal(t, Sum(data), hex.EncodeToString(h.Sum(nil)))
}

func TestSum_DoesNotChangeState(t *testing.T) {
	h := New()
	h.Write([]byte("abc"))

	first := h.Sum(nil)
	second := h.Sum(nil)
	assert.Equal(t, first, second)

	h.Write([]byte("def"))
	assert.Equal(t, Sum([]byte("abcdef")), hex.EncodeToString(h.Sum(nil)))
}

func TestReset(t *testing.T) {
	h := New()
	h.Write(bytes.Repeat([]byte{1}, BlockSize+10))
	h.Reset()

	assert.Equal(t, Sum(nil), hex.EncodeToString(h.Sum(nil)))
}

func TestInterface(t *testing.T) {
	var h hash.Hash = New()
	assert.Equal(t, Size, h.Size())
	assert.Equal(t, sha256.BlockSize, h.BlockSize())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	data := bytes.Repeat([]byte("xyz"), 1<<20)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Sum(data), got)
}

func TestFile_Missing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening")
}
