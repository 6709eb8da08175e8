package data

import (
	"gonum.org/v1/gonum/floats"

	"github.com/annet-ml/annet/internal/errs"
	"github.com/annet-ml/annet/internal/tokenizer"
)

// TextFeaturizer maps documents to fixed-size vectors by hashing token IDs
// into dim buckets and normalizing the counts to unit length. The vectors are
// suitable as SOM inputs for document maps.
type TextFeaturizer struct {
	tok tokenizer.Tokenizer
	dim int
}

// NewTextFeaturizer returns a featurizer producing dim-sized vectors.
func NewTextFeaturizer(tok tokenizer.Tokenizer, dim int) (*TextFeaturizer, error) {
	if tok == nil {
		return nil, errs.Configuration("data.NewTextFeaturizer", "nil tokenizer")
	}
	if dim < 1 {
		return nil, errs.Configuration("data.NewTextFeaturizer", "dimension must be positive, got %d", dim)
	}
	return &TextFeaturizer{tok: tok, dim: dim}, nil
}

// Dim returns the vector length.
func (f *TextFeaturizer) Dim() int {
	return f.dim
}

// Vector featurizes one document. Empty documents map to the zero vector.
func (f *TextFeaturizer) Vector(text string) ([]float64, error) {
	tokens, err := f.tok.Encode(text)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, "data.Vector", err)
	}

	v := make([]float64, f.dim)
	for _, id := range tokens {
		v[bucket(id, f.dim)]++
	}
	if n := floats.Norm(v, 2); n > 0 {
		floats.Scale(1/n, v)
	}
	return v, nil
}

// TrainingSet featurizes docs into an unsupervised training set.
func (f *TextFeaturizer) TrainingSet(docs []string) (*TrainingSet, error) {
	set := NewTrainingSet()
	for _, doc := range docs {
		v, err := f.Vector(doc)
		if err != nil {
			return nil, err
		}
		set.pairs = append(set.pairs, Pair{Input: v})
	}
	return set, nil
}

// bucket spreads neighbouring token IDs with a multiplicative hash.
func bucket(id int32, dim int) int {
	h := uint32(id) * 2654435761 //nolint:gosec // G115: wraparound is the hash.
	return int(h % uint32(dim))   //nolint:gosec // G115: dim is a positive int.
}
