// Package contenthash implements the Dropbox content hash used to verify
// file transfers end to end.
//
// The input is split into 4 MiB blocks. Each block is hashed with SHA-256,
// the block digests are concatenated, and the concatenation is hashed with
// SHA-256 again. The result is reported as lowercase hex by the API.
//
// Reference: https://www.dropbox.com/developers/reference/content-hash
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

const (
	// Size is the length, in bytes, of a content hash digest.
	Size = sha256.Size

	// BlockSize is the Dropbox block size. Not the hash.Hash block size.
	BlockSize = 4 * 1024 * 1024
)

// digest is the internal state of a content hash computation.
type digest struct {
	blockSums []byte    // concatenated digests of completed blocks
	block     hash.Hash // hashes the current block
	inBlock   int       // bytes written into the current block
}

// New returns a new hash.Hash computing the Dropbox content hash.
func New() hash.Hash {
	return &digest{block: sha256.New()}
}

func (d *digest) Write(p []byte) (int, error) {
	n := len(p)

	for len(p) > 0 {
		chunk := p
		if room := BlockSize - d.inBlock; len(chunk) > room {
			chunk = chunk[:room]
		}

		d.block.Write(chunk)
		d.inBlock += len(chunk)
		p = p[len(chunk):]

		if d.inBlock == BlockSize {
			d.blockSums = d.block.Sum(d.blockSums)
			d.block.Reset()
			d.inBlock = 0
		}
	}

	return n, nil
}

// Sum appends the current hash to b. It does not change the underlying state.
func (d *digest) Sum(b []byte) []byte {
	overall := sha256.New()
	overall.Write(d.blockSums)

	if d.inBlock > 0 {
		overall.Write(d.block.Sum(nil))
	}

	return overall.Sum(b)
}

func (d *digest) Reset() {
	d.blockSums = d.blockSums[:0]
	d.block.Reset()
	d.inBlock = 0
}

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return sha256.BlockSize }

// Sum returns the hex-encoded content hash of data.
func Sum(data []byte) string {
	h := New()
	h.Write(data)

	return hex.EncodeToString(h.Sum(nil))
}

// File computes the hex-encoded content hash of the file at path.
// Uses streaming I/O (constant memory).
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
