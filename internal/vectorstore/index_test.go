package vectorstore

import (
	"errors"
	"testing"

	"docuchat/internal/pkg/textsplit"
)

func chunksOf(texts ...string) []textsplit.Chunk {
	chunks := make([]textsplit.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = textsplit.Chunk{Text: text, Ordinal: i}
	}
	return chunks
}

func TestNewRejectsMismatchedCounts(t *testing.T) {
	_, err := New(chunksOf("a", "b"), [][]float32{{1, 0}})
	if err == nil {
		t.Fatal("expected error for 2 chunks with 1 vector")
	}
}

func TestNewRejectsUnevenDimensions(t *testing.T) {
	_, err := New(chunksOf("a", "b"), [][]float32{{1, 0}, {1, 0, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	index, err := New(
		chunksOf("east", "north", "northeast"),
		[][]float32{{1, 0}, {0, 1}, {1, 1}},
	)
	if err != nil {
		t.Fatal(err)
	}

	hits, err := index.Search([]float32{1, 0.1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Chunk.Text != "east" {
		t.Errorf("top hit = %q, want east", hits[0].Chunk.Text)
	}
	if hits[1].Chunk.Text != "northeast" {
		t.Errorf("second hit = %q, want northeast", hits[1].Chunk.Text)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("scores not descending: %f then %f", hits[0].Score, hits[1].Score)
	}
}

func TestSearchTieBreaksByInsertionOrder(t *testing.T) {
	// Identical vectors score identically; the earlier chunk must win.
	index, err := New(
		chunksOf("first", "second", "third"),
		[][]float32{{1, 0}, {1, 0}, {1, 0}},
	)
	if err != nil {
		t.Fatal(err)
	}

	hits, err := index.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if hits[i].Chunk.Text != want {
			t.Errorf("hit %d = %q, want %q", i, hits[i].Chunk.Text, want)
		}
	}
}

func TestSearchClampsK(t *testing.T) {
	index, err := New(chunksOf("only"), [][]float32{{1, 0}})
	if err != nil {
		t.Fatal(err)
	}
	hits, err := index.Search([]float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("got %d hits, want 1", len(hits))
	}
}

func TestSearchDegenerateInputs(t *testing.T) {
	index, err := New(chunksOf("a"), [][]float32{{1, 0}})
	if err != nil {
		t.Fatal(err)
	}

	if hits, err := index.Search([]float32{1, 0}, 0); err != nil || hits != nil {
		t.Errorf("k=0: got (%v, %v), want (nil, nil)", hits, err)
	}
	empty := &Index{}
	if hits, err := empty.Search([]float32{1, 0}, 3); err != nil || hits != nil {
		t.Errorf("empty index: got (%v, %v), want (nil, nil)", hits, err)
	}
	if _, err := index.Search([]float32{1, 0, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("wrong query dimension: err = %v, want ErrDimensionMismatch", err)
	}
}

func TestMergeAppendsInOrder(t *testing.T) {
	index := &Index{}
	for batch := 0; batch < 3; batch++ {
		texts := make([]textsplit.Chunk, 15)
		vectors := make([][]float32, 15)
		for i := range texts {
			ordinal := batch*15 + i
			texts[i] = textsplit.Chunk{Text: "chunk", Ordinal: ordinal}
			vectors[i] = []float32{float32(ordinal), 1}
		}
		sub, err := New(texts, vectors)
		if err != nil {
			t.Fatal(err)
		}
		if err := index.Merge(sub); err != nil {
			t.Fatal(err)
		}
	}

	if index.Len() != 45 {
		t.Fatalf("merged index has %d entries, want 45", index.Len())
	}
	for i, e := range index.entries {
		if e.Chunk.Ordinal != i {
			t.Fatalf("entry %d has ordinal %d, insertion order lost", i, e.Chunk.Ordinal)
		}
	}
}

func TestMergeRejectsDimensionMismatch(t *testing.T) {
	a, _ := New(chunksOf("a"), [][]float32{{1, 0}})
	b, _ := New(chunksOf("b"), [][]float32{{1, 0, 0}})
	if err := a.Merge(b); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestMergeIntoEmptyAdoptsDimension(t *testing.T) {
	index := &Index{}
	sub, _ := New(chunksOf("a"), [][]float32{{1, 2, 3}})
	if err := index.Merge(sub); err != nil {
		t.Fatal(err)
	}
	if index.Dimension() != 3 {
		t.Errorf("dimension = %d, want 3", index.Dimension())
	}
}
