package fileutil

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/liftws/core/errors"
)

// Digest returns the hex BLAKE3 hash of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.NewIO("open", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.NewIO("read", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Hasher computes a BLAKE3 digest of everything written to it.
type Hasher struct {
	h *blake3.Hasher
}

// NewHasher creates a Hasher.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Hex returns the digest of the bytes written so far.
func (h *Hasher) Hex() string {
	return hex.EncodeToString(h.h.Sum(nil))
}
