// Package data holds the training sets consumed by the annet trainers.
package data

import (
	"fmt"
	"slices"

	"github.com/annet-ml/annet/internal/errs"
)

// Pair is one training sample. Output is empty for unsupervised data.
type Pair struct {
	Input  []float64
	Output []float64
}

// TrainingSet is an ordered collection of input/output vector pairs.
//
// A set is owned by the caller and only referenced by the networks it is
// attached to, so one set can be swapped between networks. It must not be
// modified while a training call that uses it is running.
type TrainingSet struct {
	pairs []Pair
}

// NewTrainingSet returns an empty training set.
func NewTrainingSet() *TrainingSet {
	return &TrainingSet{}
}

// Add appends a copy of the pair.
func (s *TrainingSet) Add(input, output []float64) {
	s.pairs = append(s.pairs, Pair{
		Input:  slices.Clone(input),
		Output: slices.Clone(output),
	})
}

// AddInput appends an unsupervised sample.
func (s *TrainingSet) AddInput(input []float64) {
	s.Add(input, nil)
}

// Len returns the number of pairs.
func (s *TrainingSet) Len() int {
	return len(s.pairs)
}

// Input returns the input vector of pair i. The slice is not copied.
func (s *TrainingSet) Input(i int) []float64 {
	return s.pairs[i].Input
}

// Output returns the output vector of pair i. The slice is not copied.
func (s *TrainingSet) Output(i int) []float64 {
	return s.pairs[i].Output
}

// Clear removes all pairs.
func (s *TrainingSet) Clear() {
	s.pairs = nil
}

// InputSize returns the input length of the first pair, or 0 when empty.
func (s *TrainingSet) InputSize() int {
	if len(s.pairs) == 0 {
		return 0
	}
	return len(s.pairs[0].Input)
}

// OutputSize returns the output length of the first pair, or 0 when empty.
func (s *TrainingSet) OutputSize() int {
	if len(s.pairs) == 0 {
		return 0
	}
	return len(s.pairs[0].Output)
}

// Validate checks every pair against the expected vector lengths. A negative
// outSize skips the output check, as unsupervised trainers ignore outputs.
func (s *TrainingSet) Validate(inSize, outSize int) error {
	const op = "data.Validate"
	if len(s.pairs) == 0 {
		return &errs.Error{Kind: errs.KindConfiguration, Op: op, Details: "training set is empty", Err: errs.ErrMissingTrainingData}
	}
	for i, p := range s.pairs {
		if len(p.Input) != inSize {
			return errs.DimensionMismatch(op, fmt.Sprintf("pair %d input", i), inSize, len(p.Input))
		}
		if outSize >= 0 && len(p.Output) != outSize {
			return errs.DimensionMismatch(op, fmt.Sprintf("pair %d output", i), outSize, len(p.Output))
		}
	}
	return nil
}
