package data

import (
	"io"

	"github.com/annet-ml/annet/internal/data"
	"github.com/annet-ml/annet/tokenizer"
)

// Pair is one training sample.
type Pair = data.Pair

// TrainingSet is an ordered collection of input/output vector pairs.
type TrainingSet = data.TrainingSet

// TextFeaturizer maps documents to hashed bag-of-token vectors.
type TextFeaturizer = data.TextFeaturizer

// NewTrainingSet returns an empty training set.
func NewTrainingSet() *TrainingSet {
	return data.NewTrainingSet()
}

// ReadCSV reads one pair per record: inSize input columns followed by
// outSize output columns. Lines starting with '#' are skipped.
func ReadCSV(r io.Reader, inSize, outSize int) (*TrainingSet, error) {
	return data.ReadCSV(r, inSize, outSize)
}

// NewTextFeaturizer returns a featurizer producing dim-sized vectors.
func NewTextFeaturizer(tok tokenizer.Tokenizer, dim int) (*TextFeaturizer, error) {
	return data.NewTextFeaturizer(tok, dim)
}
