package domain

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestChunkKey(t *testing.T) {
	if got := ChunkKey("doc-abc", 0); got != "doc-abc_chunk_0" {
		t.Errorf("ChunkKey = %q", got)
	}
	if got := ChunkKey("doc-abc", 42); got != "doc-abc_chunk_42" {
		t.Errorf("ChunkKey = %q", got)
	}
}

func TestNewDimensionMismatch(t *testing.T) {
	err := NewDimensionMismatch(384, 1536)

	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch in chain, got %v", err)
	}
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatal("expected DimensionMismatchError")
	}
	if dm.Got != 384 || dm.Want != 1536 {
		t.Errorf("unexpected dimensions: %+v", dm)
	}
}

type seqEmbedder struct {
	calls  int
	failAt int // 1-based call number that fails, 0 = never
}

func (s *seqEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.calls++
	if s.failAt != 0 && s.calls == s.failAt {
		return EmbeddingResult{}, errors.New("provider failure")
	}
	return EmbeddingResult{
		Embedding:    []float32{float32(len(text))},
		PromptTokens: 2,
		TotalTokens:  3,
	}, nil
}

func TestBatchFallback(t *testing.T) {
	e := &seqEmbedder{}
	res, err := BatchFallback(context.Background(), e, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}

	want := [][]float32{{1}, {2}, {3}}
	if !reflect.DeepEqual(res.Embeddings, want) {
		t.Errorf("expected input-order embeddings %v, got %v", want, res.Embeddings)
	}
	if res.PromptTokens != 6 || res.TotalTokens != 9 {
		t.Errorf("expected aggregated usage, got %+v", res)
	}
	if e.calls != 3 {
		t.Errorf("expected one call per text, got %d", e.calls)
	}
}

func TestBatchFallback_StopsOnError(t *testing.T) {
	e := &seqEmbedder{failAt: 2}
	_, err := BatchFallback(context.Background(), e, []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected error")
	}
	if e.calls != 2 {
		t.Errorf("fallback must stop at the first failure, got %d calls", e.calls)
	}
}
