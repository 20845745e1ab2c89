package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// HashLabeledValues hashes an ordered label list followed by float64 values.
// Equal inputs in equal order always produce the same hash.
func HashLabeledValues(labels []string, values []float64) Hash {
	h := sha256.New()
	var buf [8]byte
	for _, label := range labels {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(label)))
		h.Write(buf[:])
		h.Write([]byte(label))
	}
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return Hash(hex.EncodeToString(h.Sum(nil)))
}
