// Package md5 provides the 128-bit content digest used for change
// detection. MD5 is a fingerprint here, not an integrity mechanism; the
// width matches the checksums already stored in the check log.
package md5

import (
	"crypto/md5" //nolint:gosec // change-detection fingerprint, not security
	"encoding/hex"
)

// Hasher implements watch.Hasher using MD5.
type Hasher struct{}

// New returns an MD5 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:]), nil
}
