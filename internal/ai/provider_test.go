package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// scriptedEmbedder fails its first `failures` calls, then succeeds with
// fixed-dimension vectors. It can also return a wrong-shape success.
type scriptedEmbedder struct {
	failures   int
	badPayload bool
	wrongCount bool

	batchCalls int
	queryCalls int
}

func (s *scriptedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.batchCalls++
	if s.badPayload {
		return nil, fmt.Errorf("%w: scripted", ErrBadPayload)
	}
	if s.batchCalls <= s.failures {
		return nil, errors.New("transient upstream failure")
	}
	count := len(texts)
	if s.wrongCount {
		count--
	}
	vectors := make([][]float32, count)
	for i := range vectors {
		vectors[i] = []float32{1, 2, 3}
	}
	return vectors, nil
}

func (s *scriptedEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	s.queryCalls++
	if s.queryCalls <= s.failures {
		return nil, errors.New("transient upstream failure")
	}
	return []float32{1, 2, 3}, nil
}

func TestEmbedBatchRetriesTransientFailures(t *testing.T) {
	backend := &scriptedEmbedder{failures: 2}
	provider := NewProvider(backend, 20, RetryPolicy{MaxAttempts: 3}, 0)

	vectors, err := provider.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if len(vectors) != 2 {
		t.Errorf("got %d vectors, want 2", len(vectors))
	}
	if backend.batchCalls != 3 {
		t.Errorf("backend called %d times, want 3", backend.batchCalls)
	}
}

func TestEmbedBatchExhaustsRetries(t *testing.T) {
	backend := &scriptedEmbedder{failures: 10}
	provider := NewProvider(backend, 20, RetryPolicy{MaxAttempts: 3}, 0)

	_, err := provider.EmbedBatch(context.Background(), []string{"a"})
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("err = %v, want ErrExternalService", err)
	}
	if backend.batchCalls != 3 {
		t.Errorf("backend called %d times, want exactly 3", backend.batchCalls)
	}
}

func TestEmbedBatchDoesNotRetryBadPayload(t *testing.T) {
	backend := &scriptedEmbedder{badPayload: true}
	provider := NewProvider(backend, 20, RetryPolicy{MaxAttempts: 3}, 0)

	_, err := provider.EmbedBatch(context.Background(), []string{"a"})
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("err = %v, want ErrExternalService", err)
	}
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("err = %v, want wrapped ErrBadPayload", err)
	}
	if backend.batchCalls != 1 {
		t.Errorf("backend called %d times, want 1 (no retry)", backend.batchCalls)
	}
}

func TestEmbedBatchValidatesVectorCount(t *testing.T) {
	backend := &scriptedEmbedder{wrongCount: true}
	provider := NewProvider(backend, 20, RetryPolicy{MaxAttempts: 3}, 0)

	_, err := provider.EmbedBatch(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("err = %v, want ErrExternalService", err)
	}
	if backend.batchCalls != 1 {
		t.Errorf("backend called %d times, want 1 (shape errors are terminal)", backend.batchCalls)
	}
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	backend := &scriptedEmbedder{}
	provider := NewProvider(backend, 20, RetryPolicy{MaxAttempts: 3}, 0)

	vectors, err := provider.EmbedBatch(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Errorf("got (%v, %v), want (nil, nil)", vectors, err)
	}
	if backend.batchCalls != 0 {
		t.Errorf("backend called %d times for empty input", backend.batchCalls)
	}
}

func TestEmbedQueryRetries(t *testing.T) {
	backend := &scriptedEmbedder{failures: 1}
	provider := NewProvider(backend, 20, RetryPolicy{MaxAttempts: 3}, 0)

	vector, err := provider.EmbedQuery(context.Background(), "question")
	if err != nil {
		t.Fatalf("expected success on second attempt, got %v", err)
	}
	if len(vector) != 3 {
		t.Errorf("got dimension %d, want 3", len(vector))
	}
	if backend.queryCalls != 2 {
		t.Errorf("backend called %d times, want 2", backend.queryCalls)
	}
}

func TestProviderDefaultBatchSize(t *testing.T) {
	provider := NewProvider(&scriptedEmbedder{}, 0, RetryPolicy{}, 0)
	if provider.BatchSize() != defaultBatchSize {
		t.Errorf("batch size = %d, want default %d", provider.BatchSize(), defaultBatchSize)
	}
}
