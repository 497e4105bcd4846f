// Package simindex provides nearest-neighbor lookup over fixed-length
// embedding vectors. The index is a pluggable capability: consumers accept
// the Index interface and treat a nil index as "similarity unavailable".
package simindex

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Result is one neighbor from a similarity search.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"` // cosine similarity in [-1,1]
}

// Index is the nearest-neighbor capability.
type Index interface {
	// Add inserts or replaces the vector for an ID.
	Add(id string, vec []float32) error
	// Search returns the k most similar vectors, highest first, skipping
	// excluded IDs. Fewer than k results are returned when the index is
	// small.
	Search(vec []float32, k int, exclude map[string]bool) []Result
	// Len reports the number of indexed vectors.
	Len() int
}

// ErrDimension is returned when a vector does not match the index dimension.
var ErrDimension = fmt.Errorf("simindex: vector dimension mismatch")

// BruteForce is an exact inner-product index over L2-normalized vectors.
// Exact search is adequate at the population sizes one ranking cycle sees
// (thousands of papers); the Index interface leaves room for an ANN
// implementation behind the same contract.
type BruteForce struct {
	mu   sync.RWMutex
	dim  int
	ids  []string
	pos  map[string]int
	vecs [][]float32
}

// NewBruteForce creates an empty index for vectors of the given dimension.
func NewBruteForce(dim int) *BruteForce {
	return &BruteForce{dim: dim, pos: make(map[string]int)}
}

// Add normalizes and stores a copy of the vector. Re-adding an ID replaces
// its vector.
func (b *BruteForce) Add(id string, vec []float32) error {
	if len(vec) != b.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(vec), b.dim)
	}

	normalized := normalize(vec)

	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.pos[id]; ok {
		b.vecs[i] = normalized
		return nil
	}
	b.pos[id] = len(b.ids)
	b.ids = append(b.ids, id)
	b.vecs = append(b.vecs, normalized)
	return nil
}

// Search scans all vectors and returns the top-k by cosine similarity.
func (b *BruteForce) Search(vec []float32, k int, exclude map[string]bool) []Result {
	if len(vec) != b.dim || k < 1 {
		return nil
	}
	query := normalize(vec)

	b.mu.RLock()
	defer b.mu.RUnlock()

	results := make([]Result, 0, len(b.ids))
	for i, id := range b.ids {
		if exclude[id] {
			continue
		}
		results = append(results, Result{ID: id, Score: dot(query, b.vecs[i])})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Len reports the number of indexed vectors.
func (b *BruteForce) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids)
}

// Cosine computes cosine similarity between two raw (unnormalized) vectors.
// Zero-magnitude inputs yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dp, na, nb float64
	for i := range a {
		dp += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dp / (math.Sqrt(na) * math.Sqrt(nb))
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	out := make([]float32, len(vec))
	if sum == 0 {
		copy(out, vec)
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(float64(v) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
