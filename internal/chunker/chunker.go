// Package chunker splits extracted document text into chunks suitable for
// embedding. Three strategies are available: semantic, sentence-based, and a
// simple delimiter splitter that also serves as the fallback when the
// embedding provider is unavailable.
package chunker

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Chunking method names accepted by processing requests.
const (
	MethodSemantic = "semantic"
	MethodSentence = "sentence"
	MethodSimple   = "simple"
)

// chunking_method tags recorded in chunk metadata.
const (
	tagSemantic = "semantic"
	tagSentence = "sentence_based"
	tagSimple   = "simple"
)

// Chunk is one unit of splittable text with its metadata.
type Chunk struct {
	Text     string
	Metadata map[string]interface{}
}

// Embedder provides sentence embeddings for the semantic strategy.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Options controls chunking behavior.
type Options struct {
	// ChunkSize is the character budget per chunk.
	ChunkSize int
	// OverlapSize is carried for API symmetry; only the character fallback
	// inside semantic chunking uses it.
	OverlapSize int
}

// Splitter selects a strategy and splits documents.
type Splitter struct {
	embedder Embedder
	logger   *zap.Logger
}

// New creates a Splitter. The embedder may be nil, in which case the
// semantic strategy degrades to simple.
func New(embedder Embedder, logger *zap.Logger) *Splitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Splitter{embedder: embedder, logger: logger}
}

// Split chunks texts using the named method. Unknown methods use simple.
// Recoverable faults (provider failure, nil embedder) fall back to simple
// with a logged warning; Split never fails on them.
func (s *Splitter) Split(ctx context.Context, method string, texts []string, metadatas []map[string]interface{}, opts Options) []Chunk {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1000
	}

	switch method {
	case MethodSemantic:
		chunks, err := s.splitSemantic(ctx, texts, metadatas, opts)
		if err != nil {
			s.logger.Warn("semantic chunking failed, falling back to simple", zap.Error(err))
			return splitSimple(texts, metadatas, opts.ChunkSize)
		}
		return chunks
	case MethodSentence:
		return splitSentences(texts, metadatas, opts.ChunkSize)
	default:
		return splitSimple(texts, metadatas, opts.ChunkSize)
	}
}

// baseMetadata copies the first input's metadata as the chunk base.
func baseMetadata(metadatas []map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	if len(metadatas) > 0 {
		for k, v := range metadatas[0] {
			out[k] = v
		}
	}
	return out
}

func makeChunk(text string, index int, tag string, metadatas []map[string]interface{}) Chunk {
	md := baseMetadata(metadatas)
	md["chunk_index"] = index
	md["chunk_size"] = len(text)
	md["chunking_method"] = tag
	return Chunk{Text: text, Metadata: md}
}

var sentenceDelims = regexp.MustCompile(`[.!?]+`)

// splitSentences accumulates sentences greedily up to maxChunkSize
// characters per chunk.
func splitSentences(texts []string, metadatas []map[string]interface{}, maxChunkSize int) []Chunk {
	combined := strings.Join(texts, " ")
	sentences := sentenceDelims.Split(combined, -1)

	var chunks []Chunk
	current := ""
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if current != "" && len(current)+len(sentence) > maxChunkSize {
			chunks = append(chunks, makeChunk(current, len(chunks), tagSentence, metadatas))
			current = sentence
			continue
		}
		if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, makeChunk(strings.TrimSpace(current), len(chunks), tagSentence, metadatas))
	}
	return chunks
}

// splitSimple joins texts, splits on newlines, and accumulates lines until
// the chunk reaches chunkSize characters.
func splitSimple(texts []string, metadatas []map[string]interface{}, chunkSize int) []Chunk {
	fullText := strings.Join(texts, " ")

	var lines []string
	for _, line := range strings.Split(fullText, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 1 {
			lines = append(lines, line)
		}
	}

	var chunks []Chunk
	current := ""
	for _, line := range lines {
		current += line + "\n"
		if len(current) >= chunkSize {
			chunks = append(chunks, makeChunk(strings.TrimSpace(current), len(chunks), tagSimple, metadatas))
			current = ""
		}
	}
	if text := strings.TrimSpace(current); text != "" {
		chunks = append(chunks, makeChunk(text, len(chunks), tagSimple, metadatas))
	}
	return chunks
}
