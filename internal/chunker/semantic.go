package chunker

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Semantic chunking parameters. Each sentence is embedded together with one
// neighbor on each side; a split happens where the cosine distance between
// consecutive windows exceeds the 95th percentile of all distances.
const (
	semanticBufferSize = 1
	semanticPercentile = 95.0
)

var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// splitSemantic concatenates texts and splits at sentence boundaries with
// high semantic distance to their neighborhood.
func (s *Splitter) splitSemantic(ctx context.Context, texts []string, metadatas []map[string]interface{}, opts Options) ([]Chunk, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}

	combined := strings.Join(texts, "\n\n")
	sentences := splitIntoSentences(combined)
	if len(sentences) == 0 {
		return nil, nil
	}
	if len(sentences) == 1 {
		return []Chunk{makeChunk(sentences[0], 0, tagSemantic, metadatas)}, nil
	}

	windows := buildWindows(sentences, semanticBufferSize)
	vectors, err := s.embedder.EmbedTexts(ctx, windows)
	if err != nil {
		return nil, fmt.Errorf("embedding sentence windows: %w", err)
	}
	if len(vectors) != len(windows) {
		return nil, fmt.Errorf("got %d vectors for %d windows", len(vectors), len(windows))
	}

	distances := make([]float64, len(vectors)-1)
	for i := 0; i < len(vectors)-1; i++ {
		distances[i] = 1 - cosineSimilarity(vectors[i], vectors[i+1])
	}

	threshold := percentile(distances, semanticPercentile)

	var chunks []Chunk
	start := 0
	for i, d := range distances {
		if d > threshold {
			text := strings.TrimSpace(strings.Join(sentences[start:i+1], " "))
			if text != "" {
				chunks = append(chunks, makeChunk(text, len(chunks), tagSemantic, metadatas))
			}
			start = i + 1
		}
	}
	if start < len(sentences) {
		text := strings.TrimSpace(strings.Join(sentences[start:], " "))
		if text != "" {
			chunks = append(chunks, makeChunk(text, len(chunks), tagSemantic, metadatas))
		}
	}
	return chunks, nil
}

// splitIntoSentences splits text at sentence-ending punctuation followed by
// whitespace, keeping the punctuation with the preceding sentence.
func splitIntoSentences(text string) []string {
	indexes := sentenceBoundary.FindAllStringIndex(text, -1)

	var sentences []string
	start := 0
	for _, loc := range indexes {
		// loc[0] is the punctuation, keep it with the sentence.
		sentence := strings.TrimSpace(text[start : loc[0]+1])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// buildWindows joins each sentence with up to buffer neighbors on each side.
func buildWindows(sentences []string, buffer int) []string {
	windows := make([]string, len(sentences))
	for i := range sentences {
		lo := i - buffer
		if lo < 0 {
			lo = 0
		}
		hi := i + buffer + 1
		if hi > len(sentences) {
			hi = len(sentences)
		}
		windows[i] = strings.Join(sentences[lo:hi], " ")
	}
	return windows
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// percentile returns the p-th percentile of values by linear interpolation.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
