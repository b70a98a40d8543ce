package canon

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash computes a hex SHA-256 with domain separation:
// SHA256(domain + 0x00 + data). The null byte keeps the domain/data
// boundary unambiguous, so digests of different object kinds stay
// disjoint even when their canonical bytes coincide. Domains carry a
// version suffix (for example "pdielec/calc/v1") so the algorithm can
// migrate later.
func Hash(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
