// Package som implements self-organizing maps trained by competitive
// learning with a conscience mechanism.
//
// The map is a rectangular grid of Width×Height output neurons fully
// connected to an input layer; the edge weights form the codebook. Training
// delegates the per-input search and update passes to a device.Cluster, so
// a map can be spread over several CPU or WebGPU devices.
package som

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/annet-ml/annet/internal/data"
	"github.com/annet-ml/annet/internal/device"
	"github.com/annet-ml/annet/internal/errs"
	"github.com/annet-ml/annet/internal/kernel"
	"github.com/annet-ml/annet/internal/nn"
	"github.com/annet-ml/annet/internal/parallel"
)

// Config holds map hyperparameters.
type Config struct {
	InputSize      int                 // Length of every input vector
	Width          int                 // Grid columns
	Height         int                 // Grid rows
	LearningRate   float64             // Initial step size α0 (default: 0.1)
	Neighborhood   kernel.Neighborhood // Neighborhood kernel (default: Gaussian)
	Sigma          float64             // Initial spread σ0 (default: max(Width, Height)/2, at least 1)
	ConscienceRate float64             // β, win frequency smoothing (default: 0, disabled)
	ConscienceBias float64             // γ, penalty on frequent winners (default: 0, disabled)
	Devices        int                 // Number of devices sharing the map (default: 1)
	Backend        device.Backend      // Device implementation (default: device.CPU)
	InitRange      float64             // Initial weights are drawn from U(-InitRange, InitRange) (default: 0.5)
	Seed           int64               // Seed of the weight initializer
	Parallel       parallel.Config     // Kernel fan-out (default: parallel.DefaultConfig())
	Logger         *slog.Logger        // Training progress (default: slog.Default())
}

func (c *Config) setDefaults() {
	if c.LearningRate == 0 {
		c.LearningRate = 0.1
	}
	if c.Sigma == 0 {
		c.Sigma = math.Max(1, float64(max(c.Width, c.Height))/2)
	}
	if c.Devices == 0 {
		c.Devices = 1
	}
	if c.InitRange == 0 {
		c.InitRange = 0.5
	}
	if c.Parallel.NumWorkers == 0 {
		c.Parallel = parallel.DefaultConfig()
	}
}

func (c *Config) validate(op string) error {
	switch {
	case c.InputSize < 1:
		return errs.Configuration(op, "input size must be positive, got %d", c.InputSize)
	case c.Width < 1 || c.Height < 1:
		return errs.Configuration(op, "grid must be at least 1x1, got %dx%d", c.Width, c.Height)
	case !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 0):
		return errs.Configuration(op, "learning rate must be positive and finite, got %v", c.LearningRate)
	case !c.Neighborhood.Valid():
		return errs.Configuration(op, "invalid neighborhood %v", c.Neighborhood)
	case !(c.Sigma > 0) || math.IsInf(c.Sigma, 0):
		return errs.Configuration(op, "sigma must be positive and finite, got %v", c.Sigma)
	case !(c.ConscienceRate >= 0 && c.ConscienceRate < 1):
		return errs.Configuration(op, "conscience rate must be in [0, 1), got %v", c.ConscienceRate)
	case !(c.ConscienceBias >= 0) || math.IsInf(c.ConscienceBias, 0):
		return errs.Configuration(op, "conscience bias must be non-negative and finite, got %v", c.ConscienceBias)
	case !(c.InitRange > 0) || math.IsInf(c.InitRange, 0):
		return errs.Configuration(op, "init range must be positive and finite, got %v", c.InitRange)
	case c.Backend != device.CPU && c.Backend != device.WebGPU:
		return errs.Configuration(op, "invalid backend %v", c.Backend)
	}
	if _, err := device.Partition(c.Width*c.Height, c.Devices); err != nil {
		return err
	}
	return nil
}

// Network is a self-organizing map.
//
// A Network is not safe for concurrent use.
type Network struct {
	cfg        Config
	input      *nn.Layer
	output     *nn.Layer
	conn       *nn.Connection
	positions  *mat.Dense // [N, 2], row id holds (x, y)
	conscience []float64  // [N], running win frequency
	set        *data.TrainingSet
	log        *slog.Logger
}

// New creates a map with randomly initialized codebook vectors and every
// conscience value at 1/N.
func New(cfg Config) (*Network, error) {
	const op = "som.New"
	cfg.setDefaults()
	if err := cfg.validate(op); err != nil {
		return nil, err
	}

	input, err := nn.NewLayer(cfg.InputSize, nn.Input)
	if err != nil {
		return nil, err
	}
	output, err := nn.NewLayer(cfg.Width*cfg.Height, nn.Output)
	if err != nil {
		return nil, err
	}
	//nolint:gosec // Using math/rand for weight initialization (not security-critical)
	rng := rand.New(rand.NewSource(cfg.Seed))
	conn, err := nn.Connect(input, output, rng, cfg.InitRange)
	if err != nil {
		return nil, err
	}

	n := &Network{
		cfg:        cfg,
		input:      input,
		output:     output,
		conn:       conn,
		positions:  gridPositions(cfg.Width, cfg.Height, cfg.Parallel),
		conscience: make([]float64, output.Size()),
		log:        cfg.Logger,
	}
	for i := range n.conscience {
		n.conscience[i] = 1 / float64(len(n.conscience))
	}
	if n.log == nil {
		n.log = slog.Default()
	}
	return n, nil
}

// gridPositions lays neuron id = y·w + x at (x, y).
func gridPositions(w, h int, cfg parallel.Config) *mat.Dense {
	pos := mat.NewDense(w*h, 2, nil)
	parallel.ForGrid(h, w, func(y, x int) {
		pos.SetRow(y*w+x, []float64{float64(x), float64(y)})
	}, cfg)
	return pos
}

// Config returns the current hyperparameters.
func (n *Network) Config() Config { return n.cfg }

// Size returns the number of map neurons.
func (n *Network) Size() int { return n.output.Size() }

// InputLayer returns the input layer.
func (n *Network) InputLayer() *nn.Layer { return n.input }

// OutputLayer returns the grid layer.
func (n *Network) OutputLayer() *nn.Layer { return n.output }

// Codebook returns the edge weights, one row per neuron. The matrix is
// shared with the network.
func (n *Network) Codebook() *mat.Dense { return n.conn.Weights() }

// Position returns the grid coordinates of neuron id.
func (n *Network) Position(id int) []float64 { return mat.Row(nil, id, n.positions) }

// Conscience returns a copy of the conscience values.
func (n *Network) Conscience() []float64 { return append([]float64(nil), n.conscience...) }

// SetTrainingSet attaches set by reference. Only input vectors are used.
func (n *Network) SetTrainingSet(set *data.TrainingSet) { n.set = set }

// TrainingSet returns the attached training set.
func (n *Network) TrainingSet() *data.TrainingSet { return n.set }

// SetLearningRate changes the initial step size.
func (n *Network) SetLearningRate(lr float64) error {
	return n.update(func(c *Config) { c.LearningRate = lr })
}

// SetNeighborhood selects the neighborhood kernel.
func (n *Network) SetNeighborhood(h kernel.Neighborhood) error {
	return n.update(func(c *Config) { c.Neighborhood = h })
}

// SetNeighborhoodByName selects the neighborhood kernel by canonical name.
func (n *Network) SetNeighborhoodByName(name string) error {
	h, err := kernel.ParseNeighborhood(name)
	if err != nil {
		return err
	}
	return n.SetNeighborhood(h)
}

// SetSigma changes the initial neighborhood spread.
func (n *Network) SetSigma(sigma float64) error {
	return n.update(func(c *Config) { c.Sigma = sigma })
}

// SetConscience sets the conscience smoothing rate β and bias γ. Zero for
// both disables the mechanism.
func (n *Network) SetConscience(rate, bias float64) error {
	return n.update(func(c *Config) {
		c.ConscienceRate = rate
		c.ConscienceBias = bias
	})
}

// SetDevices spreads the map over count devices of the given backend.
func (n *Network) SetDevices(backend device.Backend, count int) error {
	return n.update(func(c *Config) {
		c.Backend = backend
		c.Devices = count
	})
}

func (n *Network) update(f func(*Config)) error {
	cfg := n.cfg
	f(&cfg)
	if err := cfg.validate("som.Set"); err != nil {
		return err
	}
	n.cfg = cfg
	return nil
}

// String describes the map, e.g. "3 -> 10x10 gaussian".
func (n *Network) String() string {
	return fmt.Sprintf("%d -> %dx%d %s", n.cfg.InputSize, n.cfg.Width, n.cfg.Height, n.cfg.Neighborhood)
}
