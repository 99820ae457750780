package vectorindex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/studyowl/docrag/internal/domain"
)

// record holds one stored vector. The key lives outside the metadata map so
// it can never leak through metadata payloads.
type record struct {
	key      string
	vector   []float32
	metadata map[string]any
}

// Hit is one search result: a record key and its score under the query metric.
type Hit struct {
	Key   string
	Score float64
}

// MetadataHit is one metadata-enriched search result. Metadata is a copy and
// never contains the storage key; the key is exposed only via Key.
type MetadataHit struct {
	Key      string
	Score    float64
	Metadata map[string]any
}

// Index is an in-memory vector index for one tenant's corpus. The first
// insert fixes the vector dimensionality. A single coarse lock serializes
// mutation while allowing concurrent readers.
type Index struct {
	mu      sync.RWMutex
	dim     int
	order   []string
	records map[string]record
}

// New creates an empty index. Dimensionality is fixed by the first insert.
func New() *Index {
	return &Index{records: make(map[string]record)}
}

// Insert stores a vector under key, overwriting any previous record with the
// same key in place. Inserting a vector whose length disagrees with the
// index dimensionality fails with domain.ErrDimensionMismatch.
func (ix *Index) Insert(key string, vector []float32, metadata map[string]any) error {
	if len(vector) == 0 {
		return fmt.Errorf("insert %q: vector is empty: %w", key, domain.ErrEmptyInput)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim == 0 {
		ix.dim = len(vector)
	} else if len(vector) != ix.dim {
		return fmt.Errorf("insert %q: %w", key, domain.NewDimensionMismatch(len(vector), ix.dim))
	}

	if _, exists := ix.records[key]; !exists {
		ix.order = append(ix.order, key)
	}
	ix.records[key] = record{key: key, vector: vector, metadata: metadata}
	return nil
}

// Len returns the number of stored vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Dim returns the fixed vector dimensionality, 0 while the index is empty.
func (ix *Index) Dim() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Search scans every stored vector, scores it under the metric, and returns
// the best k hits ordered by the metric's direction convention. Fewer than k
// results means the index holds fewer than k vectors; that is not an error.
func (ix *Index) Search(query []float32, k int, metric Metric) ([]Hit, error) {
	if !metric.valid() {
		return nil, fmt.Errorf("search: %w", domain.ErrUnknownMetric)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.records) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("search query: %w", domain.NewDimensionMismatch(len(query), ix.dim))
	}

	hits := make([]Hit, 0, len(ix.records))
	for _, key := range ix.order {
		rec := ix.records[key]
		hits = append(hits, Hit{Key: key, Score: metric.score(query, rec.vector)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if metric.higherIsBetter {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Score < hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchWithMetadata runs Search and enriches each hit with a copy of the
// record's metadata.
func (ix *Index) SearchWithMetadata(query []float32, k int, metric Metric) ([]MetadataHit, error) {
	hits, err := ix.Search(query, k, metric)
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	enriched := make([]MetadataHit, 0, len(hits))
	for _, h := range hits {
		enriched = append(enriched, MetadataHit{
			Key:      h.Key,
			Score:    h.Score,
			Metadata: copyMetadata(ix.records[h.Key].metadata),
		})
	}
	return enriched, nil
}

// GetVector returns the stored vector for key.
func (ix *Index) GetVector(key string) ([]float32, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.records[key]
	return rec.vector, ok
}

// GetMetadata returns a copy of the metadata stored for key.
func (ix *Index) GetMetadata(key string) (map[string]any, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.records[key]
	if !ok {
		return nil, false
	}
	return copyMetadata(rec.metadata), true
}

// FilterByMetadata returns metadata copies of every record matching the
// predicate, in insertion order. Linear scan; fine at target scale.
func (ix *Index) FilterByMetadata(pred func(map[string]any) bool) []map[string]any {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var matches []map[string]any
	for _, key := range ix.order {
		if md := ix.records[key].metadata; pred(md) {
			matches = append(matches, copyMetadata(md))
		}
	}
	return matches
}

func copyMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
