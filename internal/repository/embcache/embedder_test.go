package embcache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/studyowl/docrag/internal/db"
	"github.com/studyowl/docrag/internal/domain"
)

// fakeStore is an in-memory key-value store recording the last TTL used.
type fakeStore struct {
	data    map[string][]byte
	lastTTL time.Duration
	getErr  error
	setErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (s *fakeStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	s.lastTTL = ttl
	return nil
}

// countingEmbedder returns a fixed vector per text and counts provider calls.
type countingEmbedder struct {
	embedCalls int
	batchCalls int
	lastBatch  []string
	vectors    map[string][]float32
	err        error
}

func (e *countingEmbedder) vectorFor(text string) []float32 {
	if v, ok := e.vectors[text]; ok {
		return v
	}
	return []float32{1, 2, 3}
}

func (e *countingEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.embedCalls++
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: e.vectorFor(text), TotalTokens: 7}, nil
}

func (e *countingEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.batchCalls++
	e.lastBatch = append([]string(nil), texts...)
	if e.err != nil {
		return domain.BatchEmbeddingResult{}, e.err
	}
	embeddings := make([][]float32, len(texts))
	for i, t := range texts {
		embeddings[i] = e.vectorFor(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: 7 * len(texts)}, nil
}

func newCached(inner domain.Embedder, s store) *CachedEmbedder {
	return New(inner, s, time.Hour, nil, zap.NewNop())
}

func TestEmbed_CacheMissThenHit(t *testing.T) {
	inner := &countingEmbedder{}
	s := newFakeStore()
	c := newCached(inner, s)
	ctx := context.Background()

	first, err := c.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("first embed: %v", err)
	}
	if inner.embedCalls != 1 {
		t.Fatalf("expected 1 provider call, got %d", inner.embedCalls)
	}
	if first.TotalTokens != 7 {
		t.Errorf("miss must report provider token usage, got %d", first.TotalTokens)
	}
	if s.lastTTL != time.Hour {
		t.Errorf("expected TTL %v on write, got %v", time.Hour, s.lastTTL)
	}

	second, err := c.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("second embed: %v", err)
	}
	if inner.embedCalls != 1 {
		t.Errorf("cache hit must not call the provider, calls=%d", inner.embedCalls)
	}
	if !reflect.DeepEqual(second.Embedding, first.Embedding) {
		t.Errorf("cached vector differs: %v vs %v", second.Embedding, first.Embedding)
	}
	if second.TotalTokens != 0 {
		t.Errorf("cache hit must report zero tokens, got %d", second.TotalTokens)
	}
}

func TestEmbed_DistinctTextsDistinctKeys(t *testing.T) {
	inner := &countingEmbedder{vectors: map[string][]float32{
		"a": {1},
		"b": {2},
	}}
	s := newFakeStore()
	c := newCached(inner, s)
	ctx := context.Background()

	ra, err := c.Embed(ctx, "a")
	if err != nil {
		t.Fatalf("embed a: %v", err)
	}
	rb, err := c.Embed(ctx, "b")
	if err != nil {
		t.Fatalf("embed b: %v", err)
	}
	if reflect.DeepEqual(ra.Embedding, rb.Embedding) {
		t.Error("different texts must not share a cache entry")
	}
	if len(s.data) != 2 {
		t.Errorf("expected 2 cache entries, got %d", len(s.data))
	}
}

func TestEmbed_StoreFailureDegradesToMiss(t *testing.T) {
	inner := &countingEmbedder{}
	s := newFakeStore()
	s.getErr = errors.New("connection refused")
	s.setErr = errors.New("connection refused")
	c := newCached(inner, s)

	res, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("store failures must never fail an embedding: %v", err)
	}
	if inner.embedCalls != 1 {
		t.Errorf("expected provider fallback, calls=%d", inner.embedCalls)
	}
	if len(res.Embedding) == 0 {
		t.Error("expected a vector despite cache failure")
	}
}

func TestEmbed_ProviderErrorPropagates(t *testing.T) {
	wantErr := errors.New("provider down")
	inner := &countingEmbedder{err: wantErr}
	c := newCached(inner, newFakeStore())

	_, err := c.Embed(context.Background(), "hello")
	if !errors.Is(err, wantErr) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestBatchEmbed_PartialHitsPreserveOrder(t *testing.T) {
	inner := &countingEmbedder{vectors: map[string][]float32{
		"a": {1},
		"b": {2},
		"c": {3},
	}}
	s := newFakeStore()
	c := newCached(inner, s)
	ctx := context.Background()

	// Warm the cache for "b" only.
	if _, err := c.Embed(ctx, "b"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	inner.embedCalls = 0

	res, err := c.BatchEmbed(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("batch embed: %v", err)
	}

	want := [][]float32{{1}, {2}, {3}}
	if !reflect.DeepEqual(res.Embeddings, want) {
		t.Errorf("expected input-order vectors %v, got %v", want, res.Embeddings)
	}
	if inner.batchCalls != 1 {
		t.Fatalf("expected one upstream batch call, got %d", inner.batchCalls)
	}
	if !reflect.DeepEqual(inner.lastBatch, []string{"a", "c"}) {
		t.Errorf("only misses go upstream, got %v", inner.lastBatch)
	}
	if res.TotalTokens != 14 {
		t.Errorf("token usage must cover misses only, got %d", res.TotalTokens)
	}
}

func TestBatchEmbed_AllHitsSkipProvider(t *testing.T) {
	inner := &countingEmbedder{}
	s := newFakeStore()
	c := newCached(inner, s)
	ctx := context.Background()

	if _, err := c.BatchEmbed(ctx, []string{"x", "y"}); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	inner.batchCalls = 0
	inner.embedCalls = 0

	res, err := c.BatchEmbed(ctx, []string{"x", "y"})
	if err != nil {
		t.Fatalf("batch embed: %v", err)
	}
	if inner.batchCalls != 0 || inner.embedCalls != 0 {
		t.Errorf("full cache hit must skip the provider entirely")
	}
	if res.TotalTokens != 0 {
		t.Errorf("full cache hit must report zero tokens, got %d", res.TotalTokens)
	}
}

func TestVectorCacheRoundtrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := bytesToVector(vectorToCacheBytes(in))
	if err != nil {
		t.Fatalf("roundtrip: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("expected %v, got %v", in, out)
	}

	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated cache data")
	}
}
