package embedding

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

const (
	clsTokenID = 101
	sepTokenID = 102
)

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs. It is only
// useful when no vocabulary file is available.
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	ids := make([]int64, 0)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		ids = append(ids, int64(HashString(word)%30000))
	}
	return pack(ids, clsTokenID, sepTokenID, maxTokens)
}

// WordPieceTokenizer implements BERT uncased tokenisation: lower-casing, accent
// stripping, punctuation splitting, then greedy longest-match WordPiece.
type WordPieceTokenizer struct {
	vocab         map[string]int64
	unk, cls, sep int64
	maxWordChars  int
}

// NewWordPieceTokenizer builds a tokenizer from vocabulary entries in ID order.
// The vocabulary must contain [CLS], [SEP] and [UNK].
func NewWordPieceTokenizer(vocab []string) (*WordPieceTokenizer, error) {
	m := make(map[string]int64, len(vocab))
	for i, tok := range vocab {
		m[tok] = int64(i)
	}
	t := &WordPieceTokenizer{vocab: m, maxWordChars: 100}
	for _, special := range []struct {
		name string
		dst  *int64
	}{{"[UNK]", &t.unk}, {"[CLS]", &t.cls}, {"[SEP]", &t.sep}} {
		id, ok := m[special.name]
		if !ok {
			return nil, fmt.Errorf("vocabulary is missing %s", special.name)
		}
		*special.dst = id
	}
	return t, nil
}

// LoadWordPieceTokenizer reads a vocab.txt file (one token per line).
func LoadWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()
	var vocab []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		vocab = append(vocab, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return NewWordPieceTokenizer(vocab)
}

// Tokenize converts text to padded model inputs of length maxTokens.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	var ids []int64
	for _, word := range basicTokens(text) {
		ids = append(ids, t.wordPiece(word)...)
	}
	return pack(ids, t.cls, t.sep, maxTokens)
}

func (t *WordPieceTokenizer) wordPiece(word string) []int64 {
	runes := []rune(word)
	if len(runes) > t.maxWordChars {
		return []int64{t.unk}
	}
	var out []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		found := int64(-1)
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				found = id
				break
			}
			end--
		}
		if found < 0 {
			return []int64{t.unk}
		}
		out = append(out, found)
		start = end
	}
	return out
}

// basicTokens lower-cases, strips accents, and splits on whitespace and punctuation.
func basicTokens(text string) []string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(text)) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Fields(b.String())
}

// pack wraps ids in [CLS] ... [SEP], truncates to maxTokens, and pads with zeros.
func pack(ids []int64, cls, sep int64, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = cls
	attentionMask[0] = 1
	pos := 1
	for _, id := range ids {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = id
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = sep
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// HashString returns a deterministic non-negative hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	if h < 0 {
		h = 0
	}
	return h
}
