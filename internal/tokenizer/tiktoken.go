package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Vocabulary sizes of the encodings tiktoken-go ships.
var vocabSizes = map[string]int{
	"cl100k_base": 100256,
	"p50k_base":   50257,
	"r50k_base":   50257,
}

// TikToken wraps the pkoukk/tiktoken-go library.
//
// Supported encodings: cl100k_base, p50k_base, r50k_base.
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken loads the named encoding. tiktoken-go downloads the BPE ranks
// on first use unless TIKTOKEN_CACHE_DIR points at a populated cache.
func NewTikToken(encodingName string) (*TikToken, error) {
	if _, ok := vocabSizes[encodingName]; !ok {
		return nil, fmt.Errorf("unknown tiktoken encoding %q", encodingName)
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}

	return &TikToken{
		encoding: encoding,
		name:     encodingName,
	}, nil
}

// Encode converts text to token IDs.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)

	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: Token ID fits in int32 - vocab size < 2^31.
	}

	return result, nil
}

// VocabSize returns the vocabulary size of the encoding.
func (t *TikToken) VocabSize() int {
	return vocabSizes[t.name]
}

// Name returns the encoding name.
func (t *TikToken) Name() string {
	return t.name
}
