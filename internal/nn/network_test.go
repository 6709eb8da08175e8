package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annet-ml/annet/internal/errs"
)

func mustLayer(t *testing.T, size int, kind LayerKind) *Layer {
	t.Helper()
	l, err := NewLayer(size, kind)
	require.NoError(t, err)
	return l
}

func TestNewLayer(t *testing.T) {
	l := mustLayer(t, 4, Hidden)
	assert.Equal(t, 4, l.Size())
	assert.Equal(t, Hidden, l.Kind())
	assert.Equal(t, -1, l.Index())
	assert.Len(t, l.Neurons(), 4)
	assert.Equal(t, 3, l.Neuron(3).ID)

	_, err := NewLayer(0, Hidden)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = NewLayer(3, LayerKind(9))
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestAddLayer_Order(t *testing.T) {
	tests := []struct {
		name  string
		kinds []LayerKind
		fail  int // index of the AddLayer call expected to fail, -1 for none
	}{
		{"input hidden output", []LayerKind{Input, Hidden, Output}, -1},
		{"input output", []LayerKind{Input, Output}, -1},
		{"starts with hidden", []LayerKind{Hidden, Output}, 0},
		{"two inputs", []LayerKind{Input, Input}, 1},
		{"after output", []LayerKind{Input, Output, Hidden}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(Config{})
			require.NoError(t, err)
			for i, k := range tt.kinds {
				err := n.AddLayer(mustLayer(t, 2, k))
				if i == tt.fail {
					assert.ErrorIs(t, err, errs.ErrConfiguration)
					return
				}
				require.NoError(t, err)
			}
		})
	}
}

func TestAddLayer_Twice(t *testing.T) {
	n, err := New(Config{})
	require.NoError(t, err)
	in := mustLayer(t, 2, Input)
	require.NoError(t, n.AddLayer(in))

	other, err := New(Config{})
	require.NoError(t, err)
	assert.ErrorIs(t, other.AddLayer(in), errs.ErrConfiguration)
}

func TestConnectLayers(t *testing.T) {
	n, err := New(Config{Seed: 1, InitRange: 0.1})
	require.NoError(t, err)
	in, hid, out := mustLayer(t, 3, Input), mustLayer(t, 4, Hidden), mustLayer(t, 2, Output)

	assert.ErrorIs(t, n.ConnectLayers(in, hid), errs.ErrConfiguration, "layers not added yet")

	require.NoError(t, n.AddLayer(in))
	require.NoError(t, n.AddLayer(hid))
	require.NoError(t, n.AddLayer(out))

	assert.ErrorIs(t, n.ConnectLayers(in, out), errs.ErrConfiguration, "skips a layer")
	assert.ErrorIs(t, n.ConnectLayers(hid, in), errs.ErrConfiguration, "backwards")

	require.NoError(t, n.ConnectLayers(in, hid))
	assert.ErrorIs(t, n.ConnectLayers(in, hid), errs.ErrConfiguration, "already connected")

	c := n.Connection(0)
	require.NotNil(t, c)
	assert.Same(t, hid, in.Next())
	assert.Same(t, c, hid.In())

	edges := c.Edges()
	require.Len(t, edges, 12)
	for _, e := range edges {
		assert.LessOrEqual(t, e.Weight, 0.1)
		assert.GreaterOrEqual(t, e.Weight, -0.1)
		assert.Zero(t, e.Update)
	}
	assert.Equal(t, Edge{Source: 2, Target: 1, Weight: c.Weights().At(1, 2)}, c.Edge(1, 2))

	_, err = n.PropagateForward([]float64{1, 2, 3})
	assert.ErrorIs(t, err, errs.ErrConfiguration, "hidden and output not connected")
}

func TestPropagateForward(t *testing.T) {
	n, err := NewFeedForward(Config{Transfer: Linear}, 2, 1)
	require.NoError(t, err)

	c := n.Connection(0)
	c.Weights().Set(0, 0, 0.5)
	c.Weights().Set(0, 1, -1)
	n.OutputLayer().Biases()[0] = 0.25

	out, err := n.PropagateForward([]float64{2, 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.25}, out, 1e-12)
	assert.Equal(t, out, n.Outputs())

	require.NoError(t, n.SetTransferFunction(Sigmoid))
	out, err = n.PropagateForward([]float64{2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+0.7788007830714049), out[0], 1e-12)
}

func TestPropagateForward_OutputLength(t *testing.T) {
	for _, sizes := range [][]int{{3, 6}, {3, 32, 6}, {1, 4, 4, 2}} {
		n, err := NewFeedForward(Config{Seed: 7}, sizes...)
		require.NoError(t, err)

		out, err := n.PropagateForward(make([]float64, sizes[0]))
		require.NoError(t, err)
		assert.Len(t, out, sizes[len(sizes)-1])
	}
}

func TestPropagateForward_DimensionMismatch(t *testing.T) {
	n, err := NewFeedForward(Config{Seed: 7}, 3, 4, 2)
	require.NoError(t, err)
	before := n.Connection(0).Edges()

	_, err = n.PropagateForward([]float64{1, 2})
	assert.ErrorIs(t, err, errs.ErrDimensionMismatch)
	assert.Equal(t, before, n.Connection(0).Edges())
}

func TestTransferFunctions(t *testing.T) {
	for _, tf := range TransferFunctions() {
		got, err := ParseTransferFunction(tf.String())
		require.NoError(t, err)
		assert.Equal(t, tf, got)
	}

	for _, name := range []string{"Sigmoid", "TANH", "", "logistic"} {
		_, err := ParseTransferFunction(name)
		assert.ErrorIs(t, err, errs.ErrConfiguration, name)
	}

	assert.InDelta(t, 0.5, Sigmoid.Eval(0), 1e-12)
	assert.Equal(t, 0.0, ReLU.Eval(-2))
	assert.Equal(t, -2.0, Linear.Eval(-2))
}

func TestSetters(t *testing.T) {
	n, err := New(Config{})
	require.NoError(t, err)

	require.NoError(t, n.SetLearningRate(0.2))
	require.NoError(t, n.SetMomentum(0.9))
	require.NoError(t, n.SetWeightDecay(0.001))
	require.NoError(t, n.SetTransferFunctionByName("tanh"))

	cfg := n.Config()
	assert.Equal(t, 0.2, cfg.LearningRate)
	assert.Equal(t, 0.9, cfg.Momentum)
	assert.Equal(t, 0.001, cfg.WeightDecay)
	assert.Equal(t, Tanh, cfg.Transfer)

	assert.ErrorIs(t, n.SetLearningRate(-1), errs.ErrConfiguration)
	assert.ErrorIs(t, n.SetMomentum(1), errs.ErrConfiguration)
	assert.ErrorIs(t, n.SetTransferFunctionByName("softmax"), errs.ErrConfiguration)
	assert.Equal(t, cfg, n.Config(), "rejected values leave the config unchanged")
}
