// Package vectorstore implements the in-memory vector index the retrieval
// pipeline searches, along with the binary format it is persisted in.
package vectorstore

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"docuchat/internal/pkg/textsplit"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Entry pairs a chunk with its embedding. Entries keep their insertion order,
// which is the tie-break order for search.
type Entry struct {
	Chunk  textsplit.Chunk
	Vector []float32
}

// Result is one search hit.
type Result struct {
	Chunk textsplit.Chunk
	Score float32
}

// Index is an ordered collection of (chunk, vector) pairs sharing one
// dimension. It is built incrementally, one embedded batch at a time, via New
// and Merge.
type Index struct {
	dim     int
	entries []Entry
}

// New builds an index from one embedded batch. Chunks and vectors correspond
// by position; all vectors must share one non-zero dimension.
func New(chunks []textsplit.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%d chunks but %d vectors", len(chunks), len(vectors))
	}
	x := &Index{}
	if len(vectors) == 0 {
		return x, nil
	}

	x.dim = len(vectors[0])
	if x.dim == 0 {
		return nil, fmt.Errorf("%w: zero-dimension vector for chunk %d", ErrDimensionMismatch, chunks[0].Ordinal)
	}
	x.entries = make([]Entry, len(chunks))
	for i := range chunks {
		if len(vectors[i]) != x.dim {
			return nil, fmt.Errorf("%w: chunk %d has dimension %d, index has %d",
				ErrDimensionMismatch, chunks[i].Ordinal, len(vectors[i]), x.dim)
		}
		x.entries[i] = Entry{Chunk: chunks[i], Vector: vectors[i]}
	}
	return x, nil
}

func (x *Index) Len() int       { return len(x.entries) }
func (x *Index) Dimension() int { return x.dim }

// Merge absorbs the entries of other, keeping the receiver's entries first.
// An empty receiver adopts the other index's dimension.
func (x *Index) Merge(other *Index) error {
	if other == nil || other.Len() == 0 {
		return nil
	}
	if x.Len() == 0 {
		x.dim = other.dim
		x.entries = append(x.entries, other.entries...)
		return nil
	}
	if other.dim != x.dim {
		return fmt.Errorf("%w: merging dimension %d into %d", ErrDimensionMismatch, other.dim, x.dim)
	}
	x.entries = append(x.entries, other.entries...)
	return nil
}

// Search returns the k entries most similar to query by cosine similarity,
// highest first. Equal scores keep insertion order, so earlier chunks win
// ties. k is clamped to the index size; a non-positive k or an empty index
// yields no results.
func (x *Index) Search(query []float32, k int) ([]Result, error) {
	if k <= 0 || x.Len() == 0 {
		return nil, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", ErrDimensionMismatch, len(query), x.dim)
	}

	results := make([]Result, len(x.entries))
	for i := range x.entries {
		results[i] = Result{
			Chunk: x.entries[i].Chunk,
			Score: cosineSimilarity(query, x.entries[i].Vector),
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// cosineSimilarity accumulates in float64 so tie comparisons are stable.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
