package nn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annet-ml/annet/internal/data"
	"github.com/annet-ml/annet/internal/errs"
	"github.com/annet-ml/annet/internal/serialization"
)

func TestExportImport_RoundTrip(t *testing.T) {
	n, err := NewFeedForward(Config{LearningRate: 0.075, Momentum: 0.3, Transfer: Tanh, Seed: 11}, 3, 32, 6)
	require.NoError(t, err)
	n.SetTrainingSet(samples())
	_, err = n.TrainFromData(50, 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bpnet.annet")
	require.NoError(t, n.ExportToStorage(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, n.String(), loaded.String())
	assert.Equal(t, n.Config().LearningRate, loaded.Config().LearningRate)
	assert.Equal(t, n.Config().Momentum, loaded.Config().Momentum)
	assert.Equal(t, Tanh, loaded.Config().Transfer)

	for i := range n.Layers() {
		assert.Equal(t, n.Layers()[i].Kind(), loaded.Layers()[i].Kind())
		assert.Equal(t, n.Layers()[i].Biases(), loaded.Layers()[i].Biases())
	}
	for b := 0; b < 2; b++ {
		assert.Equal(t, n.Connection(b).Edges(), loaded.Connection(b).Edges())
	}

	require.NotNil(t, loaded.TrainingSet())
	assert.Equal(t, n.TrainingSet().Len(), loaded.TrainingSet().Len())
	for i := 0; i < n.TrainingSet().Len(); i++ {
		assert.Equal(t, n.TrainingSet().Input(i), loaded.TrainingSet().Input(i))
		assert.Equal(t, n.TrainingSet().Output(i), loaded.TrainingSet().Output(i))

		want, err := n.PropagateForward(n.TrainingSet().Input(i))
		require.NoError(t, err)
		got, err := loaded.PropagateForward(n.TrainingSet().Input(i))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestImportFromStorage_ReplacesNetwork(t *testing.T) {
	src, err := NewFeedForward(Config{Seed: 1}, 2, 3, 1)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "small.annet")
	require.NoError(t, src.ExportToStorage(path))

	dst, err := NewFeedForward(Config{Seed: 2}, 4, 4)
	require.NoError(t, err)
	require.NoError(t, dst.ImportFromStorage(path))

	assert.Equal(t, "2-3-1 sigmoid", dst.String())
	assert.Nil(t, dst.TrainingSet())
	assert.Equal(t, src.Connection(0).Edges(), dst.Connection(0).Edges())
}

func TestImportFromStorage_Failures(t *testing.T) {
	dir := t.TempDir()
	src, err := NewFeedForward(Config{Seed: 1}, 2, 3, 1)
	require.NoError(t, err)
	good := filepath.Join(dir, "good.annet")
	require.NoError(t, src.ExportToStorage(good))
	raw, err := os.ReadFile(good)
	require.NoError(t, err)

	truncated := filepath.Join(dir, "truncated.annet")
	require.NoError(t, os.WriteFile(truncated, raw[:len(raw)-10], 0o600))

	corrupt := filepath.Join(dir, "corrupt.annet")
	flipped := append([]byte(nil), raw...)
	flipped[len(flipped)-1] ^= 0xff
	require.NoError(t, os.WriteFile(corrupt, flipped, 0o600))

	for _, path := range []string{truncated, corrupt, filepath.Join(dir, "missing.annet")} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			dst, err := NewFeedForward(Config{Seed: 2}, 4, 4)
			require.NoError(t, err)
			before := dst.Connection(0).Edges()

			err = dst.ImportFromStorage(path)
			assert.ErrorIs(t, err, errs.ErrIO)
			assert.Equal(t, "4-4 sigmoid", dst.String())
			assert.Equal(t, before, dst.Connection(0).Edges())
		})
	}
}

func TestImportFromStorage_LayerSizesDisagreeWithTensors(t *testing.T) {
	tensors := []serialization.Tensor{
		{Name: serialization.EdgeWeightName(0), Shape: []int{2, 3}, Data: make([]float64, 6)},
		{Name: serialization.EdgeUpdateName(0), Shape: []int{2, 3}, Data: make([]float64, 6)},
		{Name: serialization.BiasName(1), Shape: []int{2}, Data: make([]float64, 2)},
	}
	tests := []struct {
		name   string
		layers []serialization.LayerMeta
	}{
		{"wider output", []serialization.LayerMeta{{Kind: "input", Size: 3}, {Kind: "output", Size: 5}}},
		{"huge output", []serialization.LayerMeta{{Kind: "input", Size: 3}, {Kind: "output", Size: 1 << 50}}},
		{"huge input", []serialization.LayerMeta{{Kind: "input", Size: 1 << 50}, {Kind: "output", Size: 2}}},
		{"empty layer", []serialization.LayerMeta{{Kind: "input", Size: 0}, {Kind: "output", Size: 2}}},
		{"single layer", []serialization.LayerMeta{{Kind: "input", Size: 1 << 50}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := serialization.Header{
				ModelType: serialization.ModelBPNet,
				Hyper:     serialization.Hyperparameters{LearningRate: 0.1, Transfer: "sigmoid", InitRange: 0.5},
				Layers:    tt.layers,
			}
			path := filepath.Join(t.TempDir(), "forged.annet")
			require.NoError(t, serialization.WriteFile(path, header, tensors))

			assert.NotPanics(t, func() {
				_, err := Load(path)
				assert.ErrorIs(t, err, errs.ErrIO)
			})
		})
	}
}

func TestExportToStorage_FailureKeepsPreviousFile(t *testing.T) {
	n, err := NewFeedForward(Config{Seed: 1}, 2, 3, 1)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "net.annet")
	require.NoError(t, n.ExportToStorage(path))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	ragged := data.NewTrainingSet()
	ragged.Add([]float64{0, 1}, []float64{1})
	ragged.Add([]float64{1}, []float64{0})
	n.SetTrainingSet(ragged)
	assert.ErrorIs(t, n.ExportToStorage(path), errs.ErrIO)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	_, err = Load(path)
	assert.NoError(t, err)
}

func TestExportToStorage_Incomplete(t *testing.T) {
	n, err := New(Config{})
	require.NoError(t, err)
	require.NoError(t, n.AddLayer(mustLayer(t, 2, Input)))

	err = n.ExportToStorage(filepath.Join(t.TempDir(), "x.annet"))
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}
