package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuchat/internal/ai"
	"docuchat/internal/model"
	"docuchat/internal/pkg/textsplit"
	"docuchat/internal/repository"
	"docuchat/internal/vectorstore"
)

const promptTemplate = "Use the following pieces of context to answer the question at the end. " +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer." +
	"\n\n%s\n\nQuestion: %s\nHelpful Answer:"

// noAnswerFallback is returned when the generation model produces no output.
const noAnswerFallback = "I don't know."

// SessionStore is the persistence surface the chatbot needs. The gorm-backed
// repository implements it; tests substitute an in-memory map.
type SessionStore interface {
	Create(session *model.Session) error
	GetByID(sessionID string) (*model.Session, error)
	ListIDs() ([]string, error)
}

// SessionCache is an optional read-through cache in front of the store.
type SessionCache interface {
	Get(ctx context.Context, sessionID string) (*model.Session, bool, error)
	Set(ctx context.Context, session *model.Session) error
}

// Generator produces an answer from an assembled prompt. The core never
// retries a generation call.
type Generator interface {
	Generate(ctx context.Context, prompt string, params ai.GenerationParams) (string, error)
}

// QueryLogSink receives audit records of answered questions, best effort.
type QueryLogSink interface {
	Publish(ctx context.Context, entry model.QueryLog) error
}

// ChatbotConfig bounds segmentation, retrieval and prompt assembly.
type ChatbotConfig struct {
	ChunkSize       int
	ChunkOverlap    int
	TopK            int
	SnippetMaxChars int
	// MaxInputChars truncates oversized uploads before segmentation.
	// Zero disables the guard.
	MaxInputChars int
	Generation    ai.GenerationParams
}

func (c ChatbotConfig) normalized() ChatbotConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.TopK <= 0 {
		c.TopK = 3
	}
	if c.SnippetMaxChars <= 0 {
		c.SnippetMaxChars = 500
	}
	return c
}

// ChatbotService is the core of the system: it turns uploaded text into a
// persisted, searchable session and answers questions against one.
type ChatbotService struct {
	store     SessionStore
	cache     SessionCache
	provider  *ai.Provider
	generator Generator
	logSink   QueryLogSink
	cfg       ChatbotConfig
}

// NewChatbotService wires the pipeline. cache and logSink may be nil.
func NewChatbotService(
	store SessionStore,
	cache SessionCache,
	provider *ai.Provider,
	generator Generator,
	logSink QueryLogSink,
	cfg ChatbotConfig,
) *ChatbotService {
	return &ChatbotService{
		store:     store,
		cache:     cache,
		provider:  provider,
		generator: generator,
		logSink:   logSink,
		cfg:       cfg.normalized(),
	}
}

// BuildSession segments rawText, embeds the chunks batch by batch, folds each
// batch into the index as it arrives, and persists index plus sources under a
// fresh session id. Peak memory stays at one batch's working set plus the
// accumulated index.
func (s *ChatbotService) BuildSession(ctx context.Context, rawText string) (string, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return "", fmt.Errorf("%w: no text to index", ErrValidation)
	}
	if s.cfg.MaxInputChars > 0 {
		if runes := []rune(text); len(runes) > s.cfg.MaxInputChars {
			text = string(runes[:s.cfg.MaxInputChars])
		}
	}

	chunks := textsplit.Split(text, textsplit.Options{
		ChunkSize: s.cfg.ChunkSize,
		Overlap:   s.cfg.ChunkOverlap,
	})
	if len(chunks) == 0 {
		return "", fmt.Errorf("%w: text produced no chunks", ErrValidation)
	}

	index := &vectorstore.Index{}
	batchSize := s.provider.BatchSize()
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Text
		}
		vectors, err := s.provider.EmbedBatch(ctx, texts)
		if err != nil {
			return "", fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}

		sub, err := vectorstore.New(batch, vectors)
		if err != nil {
			return "", fmt.Errorf("%w: index chunks %d-%d: %w", ErrValidation, start, end-1, err)
		}
		if err := index.Merge(sub); err != nil {
			return "", fmt.Errorf("%w: merge chunks %d-%d: %w", ErrValidation, start, end-1, err)
		}
	}

	indexBlob, err := vectorstore.Encode(index)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	sources := make([]string, len(chunks))
	for i := range chunks {
		sources[i] = chunks[i].Text
	}
	sourcesBlob, err := vectorstore.EncodeSources(sources)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}

	session := &model.Session{
		SessionID:   uuid.NewString(),
		IndexBlob:   indexBlob,
		SourcesBlob: sourcesBlob,
	}
	if err := s.store.Create(session); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return session.SessionID, nil
}

// AskResult is the outcome of one question: the generated answer and the
// exact truncated snippets the model was shown.
type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Answer loads the session, retrieves the most relevant chunks for the
// question and delegates to the generation model.
func (s *ChatbotService) Answer(ctx context.Context, sessionID, question string) (*AskResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	question = strings.TrimSpace(question)
	if sessionID == "" || question == "" {
		return nil, fmt.Errorf("%w: session id and question are required", ErrValidation)
	}
	started := time.Now()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	index, err := vectorstore.Decode(session.IndexBlob)
	if err != nil {
		return nil, fmt.Errorf("%w: session %s: %w", ErrStorage, sessionID, err)
	}

	queryVector, err := s.provider.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	hits, err := index.Search(queryVector, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: session %s: %w", ErrValidation, sessionID, err)
	}

	snippets := make([]string, len(hits))
	for i, hit := range hits {
		snippets[i] = truncateRunes(hit.Chunk.Text, s.cfg.SnippetMaxChars)
	}
	prompt := fmt.Sprintf(promptTemplate, strings.Join(snippets, "\n"), question)

	answer, err := s.generator.Generate(ctx, prompt, s.cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("generate answer for session %s: %w: %w", sessionID, ErrExternalService, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = noAnswerFallback
	}

	s.publishLog(sessionID, question, answer, time.Since(started))

	return &AskResult{Answer: answer, Sources: snippets}, nil
}

// ListSessions returns all persisted session ids.
func (s *ChatbotService) ListSessions() ([]string, error) {
	ids, err := s.store.ListIDs()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return ids, nil
}

// SessionSources returns the stored source chunks of a session.
func (s *ChatbotService) SessionSources(ctx context.Context, sessionID string) ([]string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrValidation)
	}
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sources, err := vectorstore.DecodeSources(session.SourcesBlob)
	if err != nil {
		return nil, fmt.Errorf("%w: session %s: %w", ErrStorage, sessionID, err)
	}
	return sources, nil
}

func (s *ChatbotService) loadSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, sessionID)
		if err != nil {
			log.Printf("session cache read failed: %v", err)
		} else if ok {
			return cached, nil
		}
	}

	session, err := s.store.GetByID(sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, session); err != nil {
			log.Printf("session cache write failed: %v", err)
		}
	}
	return session, nil
}

func (s *ChatbotService) publishLog(sessionID, question, answer string, took time.Duration) {
	if s.logSink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.logSink.Publish(ctx, model.QueryLog{
		SessionID:  sessionID,
		Question:   question,
		Answer:     answer,
		DurationMS: took.Milliseconds(),
	})
	if err != nil {
		log.Printf("publish query log failed: %v", err)
	}
}

func truncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
