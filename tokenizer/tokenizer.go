// Package tokenizer turns text into token IDs for data.TextFeaturizer.
//
// Example usage:
//
//	import "github.com/annet-ml/annet/tokenizer"
//
//	tok, err := tokenizer.NewTikToken("cl100k_base")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tokens, err := tok.Encode("Hello, world!")
package tokenizer

import (
	"github.com/annet-ml/annet/internal/tokenizer"
)

// Tokenizer converts text to token IDs.
type Tokenizer = tokenizer.Tokenizer

// NewTikToken loads an OpenAI BPE encoding.
//
// Supported encodings: "cl100k_base", "p50k_base", "r50k_base".
func NewTikToken(encodingName string) (Tokenizer, error) {
	tok, err := tokenizer.NewTikToken(encodingName)
	if err != nil {
		return nil, err
	}
	return tok, nil
}
