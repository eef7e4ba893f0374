package store

import (
	"math"
	"testing"
)

func Test_EncodeEmbedding_NilMapsToNull(t *testing.T) {
	t.Parallel()
	if got := EncodeEmbedding(nil); got != nil {
		t.Errorf("nil vector must encode to nil (SQL NULL), got %v", got)
	}
	vec, err := DecodeEmbedding(nil)
	if err != nil || vec != nil {
		t.Errorf("nil blob must decode to nil, got %v, %v", vec, err)
	}
}

func Test_DecodeEmbedding_InvalidLength(t *testing.T) {
	t.Parallel()
	if _, err := DecodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Error("want error for blob length not a multiple of 4")
	}
}

func Test_CosineSimilarity(t *testing.T) {
	t.Parallel()

	identical, err := CosineSimilarity([]float32{0.3, 0.4}, []float32{0.3, 0.4})
	if err != nil {
		t.Fatalf("identical: %v", err)
	}
	if math.Abs(identical-1.0) > 1e-9 {
		t.Errorf("identical vectors: similarity = %v, want 1.0", identical)
	}

	orthogonal, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	if err != nil {
		t.Fatalf("orthogonal: %v", err)
	}
	if math.Abs(orthogonal) > 1e-9 {
		t.Errorf("orthogonal vectors: similarity = %v, want 0", orthogonal)
	}

	if _, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); err == nil {
		t.Error("want error for dimension mismatch")
	}
	if _, err := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); err == nil {
		t.Error("want error for zero-magnitude vector")
	}
}
