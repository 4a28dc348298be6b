package ai

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	ort "github.com/yalue/onnxruntime_go"
)

// Token ids fixed by the BERT-style vocabularies the sentence-transformer
// models ship with.
const (
	padToken = "[PAD]"
	unkToken = "[UNK]"
	clsToken = "[CLS]"
	sepToken = "[SEP]"
)

const defaultMaxSeqLen = 256

// LocalEmbedder runs a sentence-transformer ONNX model in-process. It
// tokenizes with the model's WordPiece vocabulary, mean-pools the last hidden
// state over the attention mask and L2-normalizes the result, so its output
// is interchangeable with the remote variant's.
type LocalEmbedder struct {
	mu sync.Mutex

	modelPath string
	vocabPath string
	libPath   string
	maxSeqLen int

	session *ort.DynamicAdvancedSession
	vocab   map[string]int64
	inited  bool
}

// NewLocalEmbedder creates an embedder that lazily loads the ONNX model and
// vocabulary on first use.
func NewLocalEmbedder(modelPath, vocabPath, onnxLibPath string, maxSeqLen int) *LocalEmbedder {
	if maxSeqLen <= 0 {
		maxSeqLen = defaultMaxSeqLen
	}
	return &LocalEmbedder{
		modelPath: modelPath,
		vocabPath: vocabPath,
		libPath:   onnxLibPath,
		maxSeqLen: maxSeqLen,
	}
}

func (e *LocalEmbedder) initOnce() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inited {
		return nil
	}

	if e.libPath != "" {
		ort.SetSharedLibraryPath(e.libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnx init environment: %w", err)
		}
	}

	vocab, err := loadVocab(e.vocabPath)
	if err != nil {
		return fmt.Errorf("load vocab: %w", err)
	}
	e.vocab = vocab

	session, err := ort.NewDynamicAdvancedSession(e.modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil)
	if err != nil {
		return fmt.Errorf("onnx new session: %w", err)
	}
	e.session = session
	e.inited = true
	return nil
}

// loadVocab reads a WordPiece vocabulary, one token per line; the line number
// is the token id.
func loadVocab(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var id int64
	for sc.Scan() {
		vocab[strings.TrimRight(sc.Text(), "\r\n")] = id
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for _, special := range []string{padToken, unkToken, clsToken, sepToken} {
		if _, ok := vocab[special]; !ok {
			return nil, fmt.Errorf("vocab missing %s token", special)
		}
	}
	return vocab, nil
}

// EmbedBatch embeds all texts in one inference run, padded to the longest
// sequence in the batch.
func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.initOnce(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sequences := make([][]int64, len(texts))
	maxLen := 0
	for i, text := range texts {
		sequences[i] = e.tokenize(text)
		if len(sequences[i]) > maxLen {
			maxLen = len(sequences[i])
		}
	}

	n := len(texts)
	inputIDs := make([]int64, n*maxLen)
	attentionMask := make([]int64, n*maxLen)
	tokenTypeIDs := make([]int64, n*maxLen)
	padID := e.vocab[padToken]
	for i, seq := range sequences {
		base := i * maxLen
		for j := 0; j < maxLen; j++ {
			if j < len(seq) {
				inputIDs[base+j] = seq[j]
				attentionMask[base+j] = 1
			} else {
				inputIDs[base+j] = padID
			}
		}
	}

	shape := ort.NewShape(int64(n), int64(maxLen))
	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("onnx attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := []ort.Value{nil}
	e.mu.Lock()
	err = e.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnx output is not a float32 tensor")
	}
	defer hidden.Destroy()

	outShape := hidden.GetShape()
	if len(outShape) != 3 || int(outShape[0]) != n || int(outShape[1]) != maxLen {
		return nil, fmt.Errorf("unexpected hidden state shape %v", outShape)
	}
	dim := int(outShape[2])
	data := hidden.GetData()

	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		vec := make([]float32, dim)
		var count float32
		for j := 0; j < maxLen; j++ {
			if attentionMask[i*maxLen+j] == 0 {
				continue
			}
			offset := (i*maxLen + j) * dim
			for d := 0; d < dim; d++ {
				vec[d] += data[offset+d]
			}
			count++
		}
		if count > 0 {
			for d := range vec {
				vec[d] /= count
			}
		}
		l2Normalize(vec)
		vectors[i] = vec
	}
	return vectors, nil
}

// EmbedQuery embeds a single question.
func (e *LocalEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// tokenize lowercases, splits on whitespace and punctuation, and applies
// greedy longest-match WordPiece, wrapped in [CLS]/[SEP] and truncated to the
// configured sequence length.
func (e *LocalEmbedder) tokenize(text string) []int64 {
	words := basicTokens(text)

	ids := make([]int64, 0, len(words)+2)
	ids = append(ids, e.vocab[clsToken])
	budget := e.maxSeqLen - 2
	for _, word := range words {
		if len(ids)-1 >= budget {
			break
		}
		for _, piece := range e.wordpiece(word) {
			if len(ids)-1 >= budget {
				break
			}
			ids = append(ids, piece)
		}
	}
	ids = append(ids, e.vocab[sepToken])
	return ids
}

func (e *LocalEmbedder) wordpiece(word string) []int64 {
	runes := []rune(word)
	var pieces []int64
	start := 0
	for start < len(runes) {
		end := len(runes)
		var id int64
		found := false
		for end > start {
			candidate := string(runes[start:end])
			if start > 0 {
				candidate = "##" + candidate
			}
			if v, ok := e.vocab[candidate]; ok {
				id = v
				found = true
				break
			}
			end--
		}
		if !found {
			return []int64{e.vocab[unkToken]}
		}
		pieces = append(pieces, id)
		start = end
	}
	return pieces
}

// basicTokens lowercases and splits text into words and standalone
// punctuation marks.
func basicTokens(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
