package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/hyperjump/kubun/pkg/utils"
)

// HashEmbedder maps text to a fixed-size vector by feature hashing lower-cased words
// and their character trigrams. The same text always gets the same embedding and texts
// that share words score a high cosine similarity. Used when no model is available.
//
// Scores are lexical. Shared character trigrams lift partial overlaps above the
// sentence model's scores, so a heading such as "Protein Expression Protocol" can
// clear the methods anchor threshold and start on an anchor instead of the fallback.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a hashing embedder with the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the hashed feature vector for text, normalised to unit length.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	for _, word := range Words(text) {
		e.add(emb, "w:"+word, 1.0)
		runes := []rune("<" + word + ">")
		for i := 0; i+3 <= len(runes); i++ {
			e.add(emb, "g:"+string(runes[i:i+3]), 0.5)
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

func (e *HashEmbedder) add(emb []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(len(emb)))
	if sum>>63 == 1 {
		weight = -weight
	}
	emb[idx] += weight
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}

// Words lower-cases text and splits it on anything that is not a letter or digit.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
