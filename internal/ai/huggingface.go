package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// HFConfig holds API settings for the HuggingFace Inference API.
type HFConfig struct {
	BaseURL         string
	APIToken        string
	EmbeddingModel  string
	GenerationModel string
}

// GenerationParams bound the output of a text-generation call.
type GenerationParams struct {
	MaxNewTokens int
	Temperature  float64
}

// HFClient calls the HuggingFace Inference API for feature-extraction
// (embeddings) and text generation.
type HFClient struct {
	httpClient *http.Client
	cfg        HFConfig
}

func NewHFClient(cfg HFConfig) *HFClient {
	return &HFClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		cfg:        cfg,
	}
}

// EmbedBatch sends texts to the feature-extraction pipeline and returns one
// L2-normalized vector per input, in input order.
func (c *HFClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := map[string]interface{}{
		"inputs": texts,
		"options": map[string]interface{}{
			"wait_for_model": true,
		},
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/pipeline/feature-extraction/" + c.cfg.EmbeddingModel
	raw, err := c.post(ctx, url, reqBody)
	if err != nil {
		return nil, err
	}

	var vectors [][]float32
	if err := json.Unmarshal(raw, &vectors); err != nil {
		return nil, fmt.Errorf("%w: parse feature-extraction json failed: %v", ErrBadPayload, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d inputs", ErrBadPayload, len(vectors), len(texts))
	}
	for i := range vectors {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("%w: empty vector at position %d", ErrBadPayload, i)
		}
		l2Normalize(vectors[i])
	}
	return vectors, nil
}

// EmbedQuery embeds a single question.
func (c *HFClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", ErrBadPayload, len(vectors))
	}
	return vectors[0], nil
}

// Generate sends an assembled prompt to the text-generation model and returns
// its output, which may be empty. The core does not retry generation calls.
func (c *HFClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	reqBody := map[string]interface{}{
		"inputs": prompt,
		"parameters": map[string]interface{}{
			"max_new_tokens": params.MaxNewTokens,
			"temperature":    params.Temperature,
		},
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/models/" + c.cfg.GenerationModel
	raw, err := c.post(ctx, url, reqBody)
	if err != nil {
		return "", err
	}

	var parsed []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse generation json failed: %v", ErrExternalService, err)
	}
	if len(parsed) == 0 {
		return "", nil
	}
	return parsed[0].GeneratedText, nil
}

func (c *HFClient) post(ctx context.Context, url string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal inference request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build inference request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read inference response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("inference response status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

// l2Normalize scales v to unit length in place so cosine similarity reduces
// to a dot product.
func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
