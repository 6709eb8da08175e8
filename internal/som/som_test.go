package som

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annet-ml/annet/internal/data"
	"github.com/annet-ml/annet/internal/device"
	"github.com/annet-ml/annet/internal/errs"
	"github.com/annet-ml/annet/internal/kernel"
	"github.com/annet-ml/annet/internal/nn"
	"github.com/annet-ml/annet/internal/parallel"
)

// clusters returns inputs scattered around four corners of the unit square.
func clusters() *data.TrainingSet {
	set := data.NewTrainingSet()
	centers := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	offsets := [][]float64{{0.02, 0.01}, {-0.01, 0.03}, {0.03, -0.02}, {-0.02, -0.01}, {0, 0}}
	for _, c := range centers {
		for _, o := range offsets {
			set.AddInput([]float64{c[0] + o[0], c[1] + o[1]})
		}
	}
	return set
}

func newMap(t *testing.T, cfg Config) *Network {
	t.Helper()
	if cfg.Parallel.NumWorkers == 0 {
		cfg.Parallel = parallel.Sequential()
	}
	n, err := New(cfg)
	require.NoError(t, err)
	return n
}

func TestNew(t *testing.T) {
	n := newMap(t, Config{InputSize: 3, Width: 4, Height: 2, Seed: 1})

	assert.Equal(t, 8, n.Size())
	assert.Equal(t, nn.Input, n.InputLayer().Kind())
	assert.Equal(t, nn.Output, n.OutputLayer().Kind())
	r, c := n.Codebook().Dims()
	assert.Equal(t, 8, r)
	assert.Equal(t, 3, c)

	assert.Equal(t, []float64{0, 0}, n.Position(0))
	assert.Equal(t, []float64{3, 0}, n.Position(3))
	assert.Equal(t, []float64{1, 1}, n.Position(5), "id = y*width + x")

	for _, v := range n.Conscience() {
		assert.Equal(t, 1.0/8, v)
	}
	cfg := n.Config()
	assert.Equal(t, 0.1, cfg.LearningRate)
	assert.Equal(t, 2.0, cfg.Sigma)
	assert.Equal(t, 1, cfg.Devices)
	assert.Equal(t, kernel.Gaussian, cfg.Neighborhood)
	assert.Equal(t, "3 -> 4x2 gaussian", n.String())
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"no input", Config{Width: 2, Height: 2}, errs.ErrConfiguration},
		{"empty grid", Config{InputSize: 2, Width: 0, Height: 2}, errs.ErrConfiguration},
		{"negative rate", Config{InputSize: 2, Width: 2, Height: 2, LearningRate: -1}, errs.ErrConfiguration},
		{"bad neighborhood", Config{InputSize: 2, Width: 2, Height: 2, Neighborhood: kernel.Neighborhood(42)}, errs.ErrConfiguration},
		{"conscience rate", Config{InputSize: 2, Width: 2, Height: 2, ConscienceRate: 1}, errs.ErrConfiguration},
		{"too many devices", Config{InputSize: 2, Width: 2, Height: 2, Devices: 5}, errs.ErrDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBMU_Deterministic(t *testing.T) {
	n := newMap(t, Config{InputSize: 2, Width: 5, Height: 1})
	w := n.Codebook()
	for i, v := range [][]float64{{0, 0}, {1, 1}, {2, 2}, {1, 1}, {3, 3}} {
		w.SetRow(i, v)
	}

	for i := 0; i < 3; i++ {
		bmu, err := n.BMU([]float64{1.1, 0.9})
		require.NoError(t, err)
		assert.Equal(t, 1, bmu.ID, "equidistant neurons resolve to the lowest id")
		assert.InDelta(t, 0.02, bmu.Distance, 1e-12)
		assert.Equal(t, []float64{1, 0}, bmu.Position)
	}

	bmu, err := n.BMU([]float64{2.9, 3.2})
	require.NoError(t, err)
	assert.Equal(t, 4, bmu.ID)

	_, err = n.BMU([]float64{1})
	assert.ErrorIs(t, err, errs.ErrDimensionMismatch)
}

func TestBMU_AcrossDevices(t *testing.T) {
	n := newMap(t, Config{InputSize: 2, Width: 5, Height: 1, Devices: 3})
	w := n.Codebook()
	for i, v := range [][]float64{{9, 9}, {9, 9}, {1, 1}, {9, 9}, {1, 1}} {
		w.SetRow(i, v)
	}
	bmu, err := n.BMU([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, bmu.ID)
	assert.Equal(t, 1, bmu.DeviceID)
}

func TestSchedule(t *testing.T) {
	n := newMap(t, Config{InputSize: 2, Width: 10, Height: 10, Sigma: 5, LearningRate: 0.5})

	prevSigma, prevAlpha := math.Inf(1), math.Inf(1)
	for c := 0; c < 100; c++ {
		sigma, alpha := n.Schedule(c, 100)
		assert.Less(t, sigma, prevSigma)
		assert.Less(t, alpha, prevAlpha)
		prevSigma, prevAlpha = sigma, alpha
	}
	sigma, alpha := n.Schedule(0, 100)
	assert.Equal(t, 5.0, sigma)
	assert.Equal(t, 0.5, alpha)
	sigma, _ = n.Schedule(100, 100)
	assert.InDelta(t, 1.0, sigma, 1e-12)

	require.NoError(t, n.SetSigma(0.5))
	sigma, _ = n.Schedule(100, 100)
	assert.InDelta(t, 0.5*math.Exp(-1), sigma, 1e-12)
}

func TestTrainFromData_ReducesError(t *testing.T) {
	n := newMap(t, Config{InputSize: 2, Width: 4, Height: 4, LearningRate: 0.5, Seed: 3})
	n.SetTrainingSet(clusters())

	var epochs []nn.EpochResult
	history, err := n.TrainFromDataFunc(60, 0, func(r nn.EpochResult) { epochs = append(epochs, r) })
	require.NoError(t, err)
	require.Len(t, history, 60)
	require.Len(t, epochs, 60)
	assert.Equal(t, history[59], epochs[59].Error)
	assert.Less(t, history[59], history[0])
	assert.Less(t, history[59], 0.15)
}

func TestTrainFromData_EarlyStop(t *testing.T) {
	n := newMap(t, Config{InputSize: 2, Width: 4, Height: 4, LearningRate: 0.5, Seed: 3})
	n.SetTrainingSet(clusters())

	history, err := n.TrainFromData(500, 0.2)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Less(t, len(history), 500)
	assert.Less(t, history[len(history)-1], 0.2)
}

func TestTrainFromData_DeviceCountInvariant(t *testing.T) {
	train := func(devices int) ([]float64, []float64, []float64) {
		n := newMap(t, Config{
			InputSize: 2, Width: 5, Height: 3, Seed: 9,
			ConscienceRate: 0.05, ConscienceBias: 0.3,
			Neighborhood: kernel.MexicanHat, Devices: devices,
		})
		n.SetTrainingSet(clusters())
		history, err := n.TrainFromData(20, 0)
		require.NoError(t, err)
		return history, n.Codebook().RawMatrix().Data, n.Conscience()
	}

	h1, w1, c1 := train(1)
	for _, d := range []int{2, 4, 15} {
		h, w, c := train(d)
		assert.Equal(t, h1, h, "%d devices", d)
		assert.Equal(t, w1, w, "%d devices", d)
		assert.Equal(t, c1, c, "%d devices", d)
	}
}

func TestTrainFromData_Conscience(t *testing.T) {
	wins := func(rate, bias float64) map[int]int {
		n := newMap(t, Config{InputSize: 1, Width: 4, Height: 1, Seed: 2, LearningRate: 0.01, Sigma: 0.1})
		w := n.Codebook()
		for i := 0; i < 4; i++ {
			w.Set(i, 0, float64(i)*0.1)
		}
		require.NoError(t, n.SetConscience(rate, bias))
		set := data.NewTrainingSet()
		for i := 0; i < 40; i++ {
			set.AddInput([]float64{0})
		}
		n.SetTrainingSet(set)
		_, err := n.TrainFromData(1, 0)
		require.NoError(t, err)

		count := map[int]int{}
		for i := 0; i < 4; i++ {
			bmu, err := n.BMU([]float64{0})
			require.NoError(t, err)
			count[bmu.ID]++
		}
		return count
	}

	assert.Equal(t, map[int]int{0: 4}, wins(0, 0), "without conscience the nearest neuron always wins")

	n := newMap(t, Config{InputSize: 1, Width: 4, Height: 1, Seed: 2, ConscienceRate: 0.2, ConscienceBias: 1})
	w := n.Codebook()
	for i := 0; i < 4; i++ {
		w.Set(i, 0, float64(i)*0.1)
	}
	set := data.NewTrainingSet()
	for i := 0; i < 20; i++ {
		set.AddInput([]float64{0})
	}
	n.SetTrainingSet(set)
	_, err := n.TrainFromData(1, 0)
	require.NoError(t, err)

	// A neuron that never wins decays to floor.
	floor := 0.25 * math.Pow(0.8, 20)
	var winners int
	var total float64
	for _, v := range n.Conscience() {
		if v > floor+1e-6 {
			winners++
		}
		total += v
	}
	assert.GreaterOrEqual(t, winners, 2, "the frequent winner is penalized and loses some inputs")
	assert.InDelta(t, 1.0, total, 1e-9, "conscience values remain a frequency distribution")
}

func TestTrainFromData_Preconditions(t *testing.T) {
	n := newMap(t, Config{InputSize: 2, Width: 2, Height: 2})

	_, err := n.TrainFromData(10, 0)
	assert.ErrorIs(t, err, errs.ErrMissingTrainingData)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	n.SetTrainingSet(data.NewTrainingSet())
	_, err = n.TrainFromData(10, 0)
	assert.ErrorIs(t, err, errs.ErrMissingTrainingData)

	n.SetTrainingSet(clusters())
	_, err = n.TrainFromData(0, 0)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestTrainFromData_DimensionMismatch(t *testing.T) {
	n := newMap(t, Config{InputSize: 2, Width: 2, Height: 2})
	before := append([]float64(nil), n.Codebook().RawMatrix().Data...)

	set := clusters()
	set.AddInput([]float64{1, 2, 3})
	n.SetTrainingSet(set)

	_, err := n.TrainFromData(10, 0)
	assert.ErrorIs(t, err, errs.ErrDimensionMismatch)
	assert.Equal(t, before, n.Codebook().RawMatrix().Data, "no weight changes before validation passes")
}

func TestTrainFromData_RollsBackNonFinite(t *testing.T) {
	n := newMap(t, Config{InputSize: 2, Width: 2, Height: 2})
	set := data.NewTrainingSet()
	set.AddInput([]float64{math.MaxFloat64, -math.MaxFloat64})
	n.SetTrainingSet(set)
	require.NoError(t, n.SetLearningRate(0.9))
	before := append([]float64(nil), n.Codebook().RawMatrix().Data...)

	history, err := n.TrainFromData(5, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNumericInstability)
	assert.Empty(t, history)
	assert.Equal(t, before, n.Codebook().RawMatrix().Data)
}

func TestSetters(t *testing.T) {
	n := newMap(t, Config{InputSize: 2, Width: 3, Height: 3})

	require.NoError(t, n.SetNeighborhoodByName("epanechnikov"))
	assert.Equal(t, kernel.Epanechnikov, n.Config().Neighborhood)
	assert.ErrorIs(t, n.SetNeighborhoodByName("Gaussian"), errs.ErrConfiguration)
	assert.Equal(t, kernel.Epanechnikov, n.Config().Neighborhood, "failed setters leave the config alone")

	assert.ErrorIs(t, n.SetSigma(0), errs.ErrConfiguration)
	assert.ErrorIs(t, n.SetLearningRate(math.Inf(1)), errs.ErrConfiguration)
	assert.ErrorIs(t, n.SetConscience(-0.1, 0), errs.ErrConfiguration)

	require.NoError(t, n.SetDevices(device.CPU, 9))
	assert.ErrorIs(t, n.SetDevices(device.CPU, 10), errs.ErrDevice)
	assert.Equal(t, 9, n.Config().Devices)
}
