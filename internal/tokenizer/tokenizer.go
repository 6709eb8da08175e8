package tokenizer

// Tokenizer converts text to token IDs.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int32, error)

	// VocabSize returns the total vocabulary size.
	VocabSize() int
}
