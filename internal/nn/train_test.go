package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annet-ml/annet/internal/data"
	"github.com/annet-ml/annet/internal/errs"
)

// samples returns ten 3-in/6-out pairs with a learnable structure.
func samples() *data.TrainingSet {
	set := data.NewTrainingSet()
	inputs := [][]float64{
		{0, 0, 0}, {0, 0, 1}, {0, 1, 0}, {0, 1, 1}, {1, 0, 0},
		{1, 0, 1}, {1, 1, 0}, {1, 1, 1}, {0.5, 0.5, 0}, {0, 0.5, 0.5},
	}
	for _, in := range inputs {
		a, b, c := in[0], in[1], in[2]
		set.Add(in, []float64{a, b, c, 1 - a, (a + b) / 2, (b + c) / 2})
	}
	return set
}

func TestTrainFromData_ReducesError(t *testing.T) {
	n, err := NewFeedForward(Config{LearningRate: 0.075, Seed: 42}, 3, 32, 6)
	require.NoError(t, err)
	n.SetTrainingSet(samples())

	history, err := n.TrainFromData(10000, 0.001)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.LessOrEqual(t, len(history), 10000)
	assert.Less(t, history[len(history)-1], history[0])

	for i := 0; i < n.TrainingSet().Len(); i++ {
		out, err := n.PropagateForward(n.TrainingSet().Input(i))
		require.NoError(t, err)
		assert.Len(t, out, 6)
	}
}

func TestTrainFromData_Momentum(t *testing.T) {
	n, err := NewFeedForward(Config{LearningRate: 0.1, Momentum: 0.5, WeightDecay: 1e-5, Transfer: Tanh, Seed: 3}, 3, 8, 6)
	require.NoError(t, err)
	n.SetTrainingSet(samples())

	history, err := n.TrainFromData(500, 0)
	require.NoError(t, err)
	assert.Len(t, history, 500, "a zero target never stops early")
	assert.Less(t, history[499], history[0])

	var moved bool
	for _, e := range n.Connection(1).Edges() {
		moved = moved || e.Update != 0
	}
	assert.True(t, moved, "previous updates are recorded for momentum")
}

func TestTrainFromData_EarlyStop(t *testing.T) {
	n, err := NewFeedForward(Config{Seed: 1}, 3, 4, 6)
	require.NoError(t, err)
	n.SetTrainingSet(samples())

	var epochs []EpochResult
	history, err := n.TrainFromDataFunc(100, 1e9, func(r EpochResult) {
		epochs = append(epochs, r)
	})
	require.NoError(t, err)
	assert.Len(t, history, 1)
	require.Len(t, epochs, 1)
	assert.Equal(t, EpochResult{Epoch: 0, Error: history[0]}, epochs[0])
}

func TestTrainFromData_Preconditions(t *testing.T) {
	n, err := NewFeedForward(Config{Seed: 1}, 3, 4, 6)
	require.NoError(t, err)

	_, err = n.TrainFromData(10, 0)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
	assert.ErrorIs(t, err, errs.ErrMissingTrainingData)

	n.SetTrainingSet(samples())
	_, err = n.TrainFromData(0, 0)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestTrainFromData_DimensionMismatchLeavesWeights(t *testing.T) {
	n, err := NewFeedForward(Config{Seed: 1}, 3, 4, 6)
	require.NoError(t, err)

	set := samples()
	set.Add([]float64{1, 2}, make([]float64, 6))
	n.SetTrainingSet(set)

	before0, before1 := n.Connection(0).Edges(), n.Connection(1).Edges()
	history, err := n.TrainFromData(10, 0)
	assert.ErrorIs(t, err, errs.ErrDimensionMismatch)
	assert.Nil(t, history)
	assert.Equal(t, before0, n.Connection(0).Edges())
	assert.Equal(t, before1, n.Connection(1).Edges())
}

func TestTrainFromData_NumericInstability(t *testing.T) {
	n, err := NewFeedForward(Config{LearningRate: 1e6, Transfer: Linear, Seed: 5}, 3, 8, 6)
	require.NoError(t, err)
	set := data.NewTrainingSet()
	set.Add([]float64{10, -10, 10}, []float64{100, -100, 100, -100, 100, -100})
	n.SetTrainingSet(set)

	history, err := n.TrainFromData(1000, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNumericInstability)
	assert.Less(t, len(history), 1000)

	for _, c := range []*Connection{n.Connection(0), n.Connection(1)} {
		for _, w := range c.Weights().RawMatrix().Data {
			assert.False(t, math.IsNaN(w) || math.IsInf(w, 0), "rolled back to finite weights")
		}
	}
}
