// Package textsplit turns raw document text into ordered, overlapping chunks
// sized for embedding. Splitting prefers natural boundaries (paragraphs, then
// lines, then words) and only falls back to hard character cuts when a piece
// has no usable separator.
package textsplit

import "strings"

// DefaultSeparators is the boundary priority used when none is configured.
var DefaultSeparators = []string{"\n\n", "\n", " "}

// Chunk is one segment of the source text. Ordinal is the position of the
// chunk in the original document, starting at zero.
type Chunk struct {
	Text    string
	Ordinal int
}

// Options control chunk sizing. Zero values fall back to defaults; an overlap
// that is not smaller than the chunk size is clamped to half of it.
type Options struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

const defaultChunkSize = 1000

func (o Options) normalized() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap >= o.ChunkSize {
		o.Overlap = o.ChunkSize / 2
	}
	if o.Separators == nil {
		o.Separators = DefaultSeparators
	}
	return o
}

// Split segments text into chunks of at most ChunkSize characters where each
// chunk after the first starts with the last Overlap characters of its
// predecessor. Empty or whitespace-only input yields no chunks. The result
// depends only on the input and options.
func Split(text string, opts Options) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	opts = opts.normalized()

	if len([]rune(text)) <= opts.ChunkSize {
		return []Chunk{{Text: text, Ordinal: 0}}
	}

	pieces := splitRecursive(text, opts.Separators, opts.ChunkSize, opts.Overlap)
	merged := mergePieces(pieces, opts.ChunkSize, opts.Overlap)

	chunks := make([]Chunk, 0, len(merged))
	for _, m := range merged {
		if strings.TrimSpace(m) == "" {
			continue
		}
		chunks = append(chunks, Chunk{Text: m, Ordinal: len(chunks)})
	}
	return chunks
}

// splitRecursive breaks text into pieces no longer than size characters,
// trying each separator in priority order and hard-cutting as a last resort.
// Separators stay attached to the preceding piece so concatenating the pieces
// reproduces the input.
func splitRecursive(text string, separators []string, size, overlap int) []string {
	if len([]rune(text)) <= size {
		return []string{text}
	}
	if len(separators) == 0 {
		return cutRunes(text, size-overlap)
	}

	sep := separators[0]
	var out []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if len([]rune(part)) <= size {
			out = append(out, part)
			continue
		}
		out = append(out, splitRecursive(part, separators[1:], size, overlap)...)
	}
	return out
}

// cutRunes hard-cuts text into fixed-width rune slices. The width leaves room
// for the overlap prefix so merged chunks stay within the size bound.
func cutRunes(text string, width int) []string {
	if width <= 0 {
		width = 1
	}
	runes := []rune(text)
	out := make([]string, 0, (len(runes)+width-1)/width)
	for i := 0; i < len(runes); i += width {
		end := i + width
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// mergePieces concatenates adjacent pieces until the next one would push the
// chunk past size, then starts a new chunk seeded with the last overlap
// characters of the finished one.
func mergePieces(pieces []string, size, overlap int) []string {
	var chunks []string
	var cur []rune

	for _, p := range pieces {
		pr := []rune(p)
		if len(cur) > 0 && len(cur)+len(pr) > size {
			chunks = append(chunks, string(cur))

			tail := cur[:]
			if len(tail) > overlap {
				tail = tail[len(tail)-overlap:]
			}
			cur = append([]rune(nil), tail...)
			// A max-width piece may leave no room for the full carry.
			for len(cur) > 0 && len(cur)+len(pr) > size {
				cur = cur[1:]
			}
		}
		cur = append(cur, pr...)
	}
	if len(cur) > 0 {
		chunks = append(chunks, string(cur))
	}
	return chunks
}
