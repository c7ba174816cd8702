// Package similarity scores how alike two games are, combining categorical
// overlap (mechanics, categories) with a cosine over the numeric features.
// Every function here is pure and total: degenerate inputs resolve to defined
// values instead of errors.
package similarity

import (
	"math"

	"github.com/meeplelab/boardgraph/pkg/bgg"
)

// Weights holds the blend of the three sub-metrics. The blend is normalized
// by the weight sum, so the combined score stays in [0,1] by construction.
type Weights struct {
	Mechanics  float64
	Categories float64
	Numeric    float64
}

// DefaultWeights favors mechanics overlap over categories over numerics.
func DefaultWeights() Weights {
	return Weights{Mechanics: 0.5, Categories: 0.3, Numeric: 0.2}
}

// Score returns the similarity of a and b in [0,1].
func Score(a, b *bgg.Item, w Weights) float64 {
	total := w.Mechanics + w.Categories + w.Numeric
	if total <= 0 {
		return 0
	}

	s := w.Mechanics * Jaccard(a.Mechanics, b.Mechanics)
	s += w.Categories * Jaccard(a.Categories, b.Categories)
	s += w.Numeric * Cosine(numericVector(a), numericVector(b))

	return clamp01(s / total)
}

// Jaccard is |A∩B| / |A∪B| over the two tag lists, order-insensitive and
// duplicate-insensitive. Two empty sets trivially agree on having no tags in
// this facet, so empty/empty is 1.0 rather than 0 or undefined.
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}

	intersection := 0
	for tag := range setA {
		if setB[tag] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// Cosine compares two feature vectors of equal, fixed dimension. A dimension
// absent (nil) in either vector is excluded from both. Two vectors with no
// defined dimensions at all trivially agree, like the empty/empty Jaccard
// case, and score 1.0; otherwise, with no shared dimension left after
// exclusion there is no basis for similarity and the result is 0.0. Two
// all-zero shared vectors are identical, scoring 1.0; a zero against a
// non-zero vector scores 0.0.
func Cosine(a, b []*float64) float64 {
	var dot, normA, normB float64
	definedA, definedB, shared := 0, 0, 0
	for i := range a {
		if a[i] != nil {
			definedA++
		}
		if b[i] != nil {
			definedB++
		}
		if a[i] == nil || b[i] == nil {
			continue
		}
		shared++
		dot += *a[i] * *b[i]
		normA += *a[i] * *a[i]
		normB += *b[i] * *b[i]
	}

	if definedA == 0 && definedB == 0 {
		return 1.0
	}
	if shared == 0 {
		return 0.0
	}
	if normA == 0 && normB == 0 {
		return 1.0
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// numericVector builds the fixed-order feature bundle
// {rating, weight, min players, max players, playing time}.
func numericVector(it *bgg.Item) []*float64 {
	return []*float64{
		it.AverageRating,
		it.AverageWeight,
		intToFloat(it.MinPlayers),
		intToFloat(it.MaxPlayers),
		intToFloat(it.PlayingTime),
	}
}

func intToFloat(p *int) *float64 {
	if p == nil {
		return nil
	}
	f := float64(*p)
	return &f
}

func toSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t != "" {
			set[t] = true
		}
	}
	return set
}

// clamp01 absorbs floating-point drift from the cosine computation.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
