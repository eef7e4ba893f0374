package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeEmbedding encodes a float32 vector into the BLOB representation stored
// in the pages table: a little-endian sequence of IEEE 754 float32 values with
// no length prefix (the length is derived from the BLOB size on decode).
// A nil or empty vector encodes to nil, which SQLite stores as NULL — absent
// embeddings are NULL, never a sentinel vector.
func EncodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DecodeEmbedding decodes a BLOB produced by EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("store: invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// CosineSimilarity computes the cosine similarity between two vectors. It
// returns an error if the vectors have different lengths or if either vector
// has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("store: cosine similarity dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("store: cosine similarity on empty vectors")
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, fmt.Errorf("store: cosine similarity with zero-magnitude vector")
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2)), nil
}
