// Package vectorindex implements a per-tenant in-memory vector index with
// exhaustive k-nearest-neighbor search under selectable distance metrics.
package vectorindex

import (
	"fmt"
	"math"
	"strings"

	"github.com/studyowl/docrag/internal/domain"
)

// ScoreFunc scores a query vector against a stored vector.
type ScoreFunc func(query, stored []float32) float64

// Metric pairs a scoring function with its sort-direction convention.
// Similarity metrics (cosine, dot product) rank higher scores first;
// distance metrics (euclidean, manhattan) rank lower scores first.
// The zero Metric is invalid and rejected by Search.
type Metric struct {
	name           string
	score          ScoreFunc
	higherIsBetter bool
}

// Named metrics.
var (
	Cosine     = Metric{name: "cosine", score: cosineSimilarity, higherIsBetter: true}
	DotProduct = Metric{name: "dot_product", score: dotProduct, higherIsBetter: true}
	Euclidean  = Metric{name: "euclidean", score: euclideanDistance, higherIsBetter: false}
	Manhattan  = Metric{name: "manhattan", score: manhattanDistance, higherIsBetter: false}
)

// ParseMetric resolves a metric identifier. Unknown identifiers fail with
// domain.ErrUnknownMetric instead of silently defaulting: a wrong default
// returns plausible-looking but wrongly ordered results.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(name) {
	case "cosine":
		return Cosine, nil
	case "dot_product":
		return DotProduct, nil
	case "euclidean":
		return Euclidean, nil
	case "manhattan":
		return Manhattan, nil
	default:
		return Metric{}, fmt.Errorf(
			"%q (available: cosine, dot_product, euclidean, manhattan): %w",
			name, domain.ErrUnknownMetric,
		)
	}
}

// CustomMetric wraps a user-supplied scoring function. Custom scorers are
// always treated as higher-is-better.
func CustomMetric(name string, score ScoreFunc) Metric {
	return Metric{name: name, score: score, higherIsBetter: true}
}

// Name returns the metric identifier.
func (m Metric) Name() string { return m.name }

// HigherIsBetter reports the metric's sort-direction convention.
func (m Metric) HigherIsBetter() bool { return m.higherIsBetter }

func (m Metric) valid() bool { return m.score != nil }

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func dotProduct(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func manhattanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return sum
}
