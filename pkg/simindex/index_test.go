package simindex_test

import (
	"errors"
	"math"
	"testing"

	"github.com/paperradar/paperradar/pkg/simindex"
)

func TestBruteForce_SearchOrdersBySimilarity(t *testing.T) {
	idx := simindex.NewBruteForce(3)

	vectors := map[string][]float32{
		"same":       {1, 0, 0},
		"close":      {0.9, 0.1, 0},
		"orthogonal": {0, 1, 0},
		"opposite":   {-1, 0, 0},
	}
	for id, v := range vectors {
		if err := idx.Add(id, v); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}

	results := idx.Search([]float32{1, 0, 0}, 3, nil)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	wantOrder := []string{"same", "close", "orthogonal"}
	for i, want := range wantOrder {
		if results[i].ID != want {
			t.Errorf("result %d = %s, want %s", i, results[i].ID, want)
		}
	}
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("identical vector similarity = %g, want 1", results[0].Score)
	}
}

func TestBruteForce_Exclude(t *testing.T) {
	idx := simindex.NewBruteForce(2)
	idx.Add("a", []float32{1, 0})
	idx.Add("b", []float32{0.8, 0.2})

	results := idx.Search([]float32{1, 0}, 5, map[string]bool{"a": true})
	if len(results) != 1 || results[0].ID != "b" {
		t.Errorf("excluded ID still returned: %v", results)
	}
}

func TestBruteForce_DimensionMismatch(t *testing.T) {
	idx := simindex.NewBruteForce(4)
	if err := idx.Add("a", []float32{1, 0}); !errors.Is(err, simindex.ErrDimension) {
		t.Errorf("err = %v, want ErrDimension", err)
	}
	if results := idx.Search([]float32{1, 0}, 3, nil); results != nil {
		t.Errorf("mismatched query returned %v", results)
	}
}

func TestBruteForce_ReplaceVector(t *testing.T) {
	idx := simindex.NewBruteForce(2)
	idx.Add("a", []float32{1, 0})
	idx.Add("a", []float32{0, 1})

	if idx.Len() != 1 {
		t.Fatalf("Len = %d after replacement, want 1", idx.Len())
	}
	results := idx.Search([]float32{0, 1}, 1, nil)
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("replaced vector similarity = %g, want 1", results[0].Score)
	}
}

func TestCosine(t *testing.T) {
	if got := simindex.Cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal cosine = %g, want 0", got)
	}
	if got := simindex.Cosine([]float32{2, 0}, []float32{5, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("parallel cosine = %g, want 1", got)
	}
	if got := simindex.Cosine([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero-vector cosine = %g, want 0", got)
	}
}
