package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrExternalService marks a terminal failure of the embedding or
	// generation capability (retries exhausted or malformed payload).
	ErrExternalService = errors.New("external service failure")

	// ErrBadPayload marks a well-formed response with invalid content
	// (wrong vector count, uneven dimensions). Never retried.
	ErrBadPayload = errors.New("malformed embedding response")
)

// Embedder is the minimal embedding capability. EmbedBatch returns one vector
// per input text, in input order; EmbedQuery returns exactly one vector.
// The remote API client and the local ONNX model both satisfy it.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RetryPolicy describes how transient embedding failures are retried. The
// delay grows linearly with the attempt number; a zero delay keeps tests free
// of real waiting.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) wait(attempt int) time.Duration {
	return p.Delay * time.Duration(attempt)
}

// Provider wraps a raw Embedder with the call discipline the pipeline needs:
// fixed batch sizing, per-call retries, response shape validation, and an
// optional pause between successive batch calls so remote providers are not
// hammered. The local variant is constructed with a zero throttle.
type Provider struct {
	backend   Embedder
	batchSize int
	retry     RetryPolicy
	throttle  time.Duration
}

const defaultBatchSize = 20

func NewProvider(backend Embedder, batchSize int, retry RetryPolicy, throttle time.Duration) *Provider {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Provider{
		backend:   backend,
		batchSize: batchSize,
		retry:     retry,
		throttle:  throttle,
	}
}

func (p *Provider) BatchSize() int { return p.batchSize }

// EmbedBatch embeds one batch of chunk texts, retrying transient failures per
// the policy. A response with the wrong shape is surfaced immediately.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 1; attempt <= p.retry.attempts(); attempt++ {
		vectors, err := p.backend.EmbedBatch(ctx, texts)
		if err == nil {
			if verr := validateBatch(vectors, len(texts)); verr != nil {
				return nil, fmt.Errorf("%w: %w", ErrExternalService, verr)
			}
			p.pause()
			return vectors, nil
		}
		if errors.Is(err, ErrBadPayload) {
			return nil, fmt.Errorf("%w: %w", ErrExternalService, err)
		}
		lastErr = err
		if attempt < p.retry.attempts() {
			time.Sleep(p.retry.wait(attempt))
		}
	}
	return nil, fmt.Errorf("embed batch of %d failed after %d attempts: %w: %w",
		len(texts), p.retry.attempts(), ErrExternalService, lastErr)
}

// EmbedQuery embeds a single question with the same retry discipline.
func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= p.retry.attempts(); attempt++ {
		vector, err := p.backend.EmbedQuery(ctx, text)
		if err == nil {
			if len(vector) == 0 {
				return nil, fmt.Errorf("%w: empty query vector", ErrExternalService)
			}
			return vector, nil
		}
		if errors.Is(err, ErrBadPayload) {
			return nil, fmt.Errorf("%w: %w", ErrExternalService, err)
		}
		lastErr = err
		if attempt < p.retry.attempts() {
			time.Sleep(p.retry.wait(attempt))
		}
	}
	return nil, fmt.Errorf("embed query failed after %d attempts: %w: %w",
		p.retry.attempts(), ErrExternalService, lastErr)
}

func (p *Provider) pause() {
	if p.throttle > 0 {
		time.Sleep(p.throttle)
	}
}

// validateBatch checks the contract every backend must meet: one non-empty
// vector per input, all of the same dimension.
func validateBatch(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("got %d vectors for %d inputs", len(vectors), want)
	}
	if want == 0 {
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return errors.New("zero-dimension vector")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	return nil
}
