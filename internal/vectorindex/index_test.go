package vectorindex

import (
	"errors"
	"testing"

	"github.com/studyowl/docrag/internal/domain"
)

func mustInsert(t *testing.T, ix *Index, key string, vector []float32, metadata map[string]any) {
	t.Helper()
	if err := ix.Insert(key, vector, metadata); err != nil {
		t.Fatalf("insert %q: %v", key, err)
	}
}

func TestIndex_InsertAndSearch(t *testing.T) {
	ix := New()
	mustInsert(t, ix, "x", []float32{1, 0}, nil)
	mustInsert(t, ix, "y", []float32{0, 1}, nil)
	mustInsert(t, ix, "z", []float32{0.7, 0.7}, nil)

	hits, err := ix.Search([]float32{1, 0}, 2, Cosine)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Key != "x" {
		t.Errorf("expected self-hit first, got %q", hits[0].Key)
	}
	if hits[1].Key != "z" {
		t.Errorf("expected z second, got %q", hits[1].Key)
	}

	hits, err = ix.Search([]float32{1, 0}, 1, DotProduct)
	if err != nil {
		t.Fatalf("dot search: %v", err)
	}
	if hits[0].Key != "x" {
		t.Errorf("expected self-hit first under dot product, got %q", hits[0].Key)
	}
}

func TestIndex_MetricDirection(t *testing.T) {
	// p is the exact query; q points the same way but with a larger norm.
	// Similarity and distance metrics must rank them oppositely.
	ix := New()
	mustInsert(t, ix, "p", []float32{2, 0}, nil)
	mustInsert(t, ix, "q", []float32{10, 0}, nil)
	query := []float32{2, 0}

	hits, err := ix.Search(query, 1, DotProduct)
	if err != nil {
		t.Fatalf("dot search: %v", err)
	}
	if hits[0].Key != "q" {
		t.Errorf("dot product should prefer the larger norm, got %q", hits[0].Key)
	}

	hits, err = ix.Search(query, 1, Euclidean)
	if err != nil {
		t.Fatalf("euclidean search: %v", err)
	}
	if hits[0].Key != "p" {
		t.Errorf("euclidean should prefer the exact match, got %q", hits[0].Key)
	}

	hits, err = ix.Search(query, 1, Manhattan)
	if err != nil {
		t.Fatalf("manhattan search: %v", err)
	}
	if hits[0].Key != "p" {
		t.Errorf("manhattan should prefer the exact match, got %q", hits[0].Key)
	}
}

func TestIndex_CustomMetric(t *testing.T) {
	ix := New()
	mustInsert(t, ix, "p", []float32{2, 0}, nil)
	mustInsert(t, ix, "q", []float32{10, 0}, nil)

	negEuclidean := CustomMetric("neg_euclidean", func(a, b []float32) float64 {
		return -euclideanDistance(a, b)
	})
	hits, err := ix.Search([]float32{2, 0}, 1, negEuclidean)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if hits[0].Key != "p" {
		t.Errorf("negated distance under higher-is-better should prefer p, got %q", hits[0].Key)
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	ix := New()
	mustInsert(t, ix, "a", []float32{1, 2}, nil)

	err := ix.Insert("b", []float32{1, 2, 3}, nil)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	var dm *domain.DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatal("expected DimensionMismatchError in chain")
	}
	if dm.Got != 3 || dm.Want != 2 {
		t.Errorf("expected got=3 want=2, got got=%d want=%d", dm.Got, dm.Want)
	}

	if ix.Len() != 1 {
		t.Errorf("failed insert must not change the index, len=%d", ix.Len())
	}
}

func TestIndex_QueryDimensionMismatch(t *testing.T) {
	ix := New()
	mustInsert(t, ix, "a", []float32{1, 2}, nil)

	_, err := ix.Search([]float32{1, 2, 3}, 1, Cosine)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestIndex_InsertEmptyVector(t *testing.T) {
	ix := New()
	err := ix.Insert("a", nil, nil)
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestIndex_SearchEmptyIndex(t *testing.T) {
	ix := New()
	hits, err := ix.Search([]float32{1, 0}, 3, Cosine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != nil {
		t.Errorf("expected nil hits on empty index, got %v", hits)
	}
}

func TestIndex_SearchInvalidMetric(t *testing.T) {
	ix := New()
	mustInsert(t, ix, "a", []float32{1}, nil)

	_, err := ix.Search([]float32{1}, 1, Metric{})
	if !errors.Is(err, domain.ErrUnknownMetric) {
		t.Errorf("expected ErrUnknownMetric for zero Metric, got %v", err)
	}
}

func TestIndex_FewerThanK(t *testing.T) {
	ix := New()
	mustInsert(t, ix, "a", []float32{1, 0}, nil)
	mustInsert(t, ix, "b", []float32{0, 1}, nil)

	hits, err := ix.Search([]float32{1, 0}, 10, Cosine)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected all 2 stored vectors, got %d", len(hits))
	}
}

func TestIndex_OverwriteSameKey(t *testing.T) {
	ix := New()
	mustInsert(t, ix, "a", []float32{1, 0}, map[string]any{"v": 1})
	mustInsert(t, ix, "a", []float32{0, 1}, map[string]any{"v": 2})

	if ix.Len() != 1 {
		t.Fatalf("expected 1 record after overwrite, got %d", ix.Len())
	}
	vec, ok := ix.GetVector("a")
	if !ok || vec[0] != 0 || vec[1] != 1 {
		t.Errorf("expected overwritten vector [0 1], got %v (ok=%v)", vec, ok)
	}
	md, _ := ix.GetMetadata("a")
	if md["v"] != 2 {
		t.Errorf("expected overwritten metadata, got %v", md)
	}
}

func TestIndex_MetadataNeverContainsKey(t *testing.T) {
	ix := New()
	mustInsert(t, ix, "doc_chunk_0", []float32{1, 0}, map[string]any{"document_id": "doc"})

	hits, err := ix.SearchWithMetadata([]float32{1, 0}, 1, Cosine)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if hits[0].Key != "doc_chunk_0" {
		t.Errorf("expected key on hit, got %q", hits[0].Key)
	}
	if _, ok := hits[0].Metadata["key"]; ok {
		t.Error("storage key must not appear inside metadata")
	}
	if hits[0].Metadata["document_id"] != "doc" {
		t.Errorf("expected caller metadata preserved, got %v", hits[0].Metadata)
	}
}

func TestIndex_MetadataIsCopied(t *testing.T) {
	ix := New()
	mustInsert(t, ix, "a", []float32{1}, map[string]any{"n": 1})

	md, _ := ix.GetMetadata("a")
	md["n"] = 99

	again, _ := ix.GetMetadata("a")
	if again["n"] != 1 {
		t.Errorf("mutating a returned copy must not affect stored metadata, got %v", again["n"])
	}
}

func TestIndex_FilterByMetadata(t *testing.T) {
	ix := New()
	mustInsert(t, ix, "a", []float32{1}, map[string]any{"document_id": "d1", "chunk_index": 0})
	mustInsert(t, ix, "b", []float32{2}, map[string]any{"document_id": "d2", "chunk_index": 0})
	mustInsert(t, ix, "c", []float32{3}, map[string]any{"document_id": "d1", "chunk_index": 1})

	matches := ix.FilterByMetadata(func(md map[string]any) bool {
		return md["document_id"] == "d1"
	})
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0]["chunk_index"] != 0 || matches[1]["chunk_index"] != 1 {
		t.Errorf("expected insertion order, got %v", matches)
	}
}
