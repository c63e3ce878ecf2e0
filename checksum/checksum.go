// Package checksum fingerprints whole files for the end-to-end integrity
// check. Digests are compared for equality only.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

const DefaultBlockSize = 1024

func newHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "", "sha256":
		return sha256.New(), nil
	case "blake3":
		return blake3.New(), nil
	}
	return nil, fmt.Errorf("unknown digest %q", algorithm)
}

// Reader folds r into the hash blockSize bytes at a time and returns the hex
// digest.
func Reader(r io.Reader, algorithm string, blockSize int) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	buf := make([]byte, blockSize)
	for {
		n, err := r.Read(buf)
		h.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func File(path string, algorithm string, blockSize int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Reader(f, algorithm, blockSize)
}
