// Package nn implements layered feed-forward networks trained by
// backpropagation with momentum and weight decay.
//
// A network is a chain of layers: one Input layer, any number of Hidden
// layers and one Output layer, each adjacent pair joined by a fully
// connected edge set.
//
// Example:
//
//	net, err := nn.NewFeedForward(nn.Config{LearningRate: 0.075}, 3, 32, 6)
//	if err != nil {
//	    return err
//	}
//	net.SetTrainingSet(set)
//	history, err := net.TrainFromData(10000, 0.001)
package nn

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/annet-ml/annet/internal/data"
	"github.com/annet-ml/annet/internal/errs"
	"github.com/annet-ml/annet/internal/kernel"
	"github.com/annet-ml/annet/internal/parallel"
)

// Config holds network hyperparameters.
type Config struct {
	LearningRate float64          // Step size (default: 0.01)
	Momentum     float64          // Fraction of the previous update re-applied (default: 0)
	WeightDecay  float64          // Fraction of each weight removed per update (default: 0)
	Transfer     TransferFunction // Hidden and output activation (default: Sigmoid)
	InitRange    float64          // Initial weights are drawn from U(-InitRange, InitRange) (default: 0.5)
	Seed         int64            // Seed of the weight initializer
	Parallel     parallel.Config  // Kernel fan-out (default: parallel.DefaultConfig())
	Logger       *slog.Logger     // Training progress (default: slog.Default())
}

// DefaultConfig returns the default hyperparameters.
func DefaultConfig() Config {
	return Config{
		LearningRate: 0.01,
		Transfer:     Sigmoid,
		InitRange:    0.5,
		Parallel:     parallel.DefaultConfig(),
	}
}

func (c *Config) setDefaults() {
	if c.LearningRate == 0 {
		c.LearningRate = 0.01
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
	case !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 0):
		return errs.Configuration(op, "learning rate must be positive and finite, got %v", c.LearningRate)
	case !(c.Momentum >= 0 && c.Momentum < 1):
		return errs.Configuration(op, "momentum must be in [0, 1), got %v", c.Momentum)
	case !(c.WeightDecay >= 0 && c.WeightDecay < 1):
		return errs.Configuration(op, "weight decay must be in [0, 1), got %v", c.WeightDecay)
	case !c.Transfer.valid():
		return errs.Configuration(op, "invalid transfer function %v", c.Transfer)
	case !(c.InitRange > 0) || math.IsInf(c.InitRange, 0):
		return errs.Configuration(op, "init range must be positive and finite, got %v", c.InitRange)
	}
	return nil
}

// Network is a chain of layers trained by backpropagation.
//
// A Network is not safe for concurrent use; training and topology changes
// must be serialized by the caller.
type Network struct {
	cfg    Config
	layers []*Layer
	conns  []*Connection // conns[i] joins layers[i] and layers[i+1], nil until connected
	set    *data.TrainingSet
	rng    *rand.Rand
	exec   kernel.Exec
	log    *slog.Logger
}

// New creates an empty network.
func New(cfg Config) (*Network, error) {
	cfg.setDefaults()
	if err := cfg.validate("nn.New"); err != nil {
		return nil, err
	}
	n := &Network{
		cfg:  cfg,
		rng:  newRand(cfg.Seed),
		exec: kernel.New(cfg.Parallel),
		log:  cfg.Logger,
	}
	if n.log == nil {
		n.log = slog.Default()
	}
	return n, nil
}

// NewFeedForward creates a fully connected chain with the given layer sizes:
// the first is the input layer, the last the output layer.
func NewFeedForward(cfg Config, sizes ...int) (*Network, error) {
	if len(sizes) < 2 {
		return nil, errs.Configuration("nn.NewFeedForward", "need at least 2 layers, got %d", len(sizes))
	}
	n, err := New(cfg)
	if err != nil {
		return nil, err
	}
	for i, size := range sizes {
		kind := Hidden
		switch i {
		case 0:
			kind = Input
		case len(sizes) - 1:
			kind = Output
		}
		l, err := NewLayer(size, kind)
		if err != nil {
			return nil, err
		}
		if err := n.AddLayer(l); err != nil {
			return nil, err
		}
		if i > 0 {
			if err := n.ConnectLayers(n.layers[i-1], l); err != nil {
				return nil, err
			}
		}
	}
	return n, nil
}

// AddLayer appends l to the chain. The first layer must be the Input layer,
// and nothing may follow the Output layer.
func (n *Network) AddLayer(l *Layer) error {
	const op = "nn.AddLayer"
	if l == nil {
		return errs.Configuration(op, "nil layer")
	}
	if l.index >= 0 {
		return errs.Configuration(op, "layer already belongs to a network")
	}
	if len(n.layers) == 0 {
		if l.kind != Input {
			return errs.Configuration(op, "first layer must be an input layer, got %v", l.kind)
		}
	} else {
		if l.kind == Input {
			return errs.Configuration(op, "network already has an input layer")
		}
		if n.layers[len(n.layers)-1].kind == Output {
			return errs.Configuration(op, "cannot add a layer after the output layer")
		}
	}

	l.index = len(n.layers)
	n.layers = append(n.layers, l)
	if l.index > 0 {
		n.conns = append(n.conns, nil)
	}
	return nil
}

// ConnectLayers creates the full bipartite edge set from prev to next.
// Both layers must belong to the network and next must directly follow prev.
func (n *Network) ConnectLayers(prev, next *Layer) error {
	const op = "nn.ConnectLayers"
	if !n.owns(prev) || !n.owns(next) {
		return errs.Configuration(op, "both layers must be added to the network first")
	}
	if next.index != prev.index+1 {
		return errs.Configuration(op, "layer %d does not directly follow layer %d", next.index, prev.index)
	}
	c, err := Connect(prev, next, n.rng, n.cfg.InitRange)
	if err != nil {
		return err
	}
	n.conns[prev.index] = c
	return nil
}

func (n *Network) owns(l *Layer) bool {
	return l != nil && l.index >= 0 && l.index < len(n.layers) && n.layers[l.index] == l
}

// checkChain verifies the network can propagate.
func (n *Network) checkChain(op string) error {
	if len(n.layers) < 2 {
		return errs.Configuration(op, "network needs an input and an output layer, has %d layers", len(n.layers))
	}
	if n.layers[len(n.layers)-1].kind != Output {
		return errs.Configuration(op, "last layer is %v, not output", n.layers[len(n.layers)-1].kind)
	}
	for i, c := range n.conns {
		if c == nil {
			return errs.Configuration(op, "layers %d and %d are not connected", i, i+1)
		}
	}
	return nil
}

// Layers returns the layers in chain order.
func (n *Network) Layers() []*Layer {
	return append([]*Layer(nil), n.layers...)
}

// InputLayer returns the first layer, or nil.
func (n *Network) InputLayer() *Layer {
	if len(n.layers) == 0 {
		return nil
	}
	return n.layers[0]
}

// OutputLayer returns the last layer if it is an output layer, or nil.
func (n *Network) OutputLayer() *Layer {
	if len(n.layers) == 0 || n.layers[len(n.layers)-1].kind != Output {
		return nil
	}
	return n.layers[len(n.layers)-1]
}

// Connection returns the edge set between layers i and i+1, or nil.
func (n *Network) Connection(i int) *Connection {
	if i < 0 || i >= len(n.conns) {
		return nil
	}
	return n.conns[i]
}

// Config returns the current hyperparameters.
func (n *Network) Config() Config {
	return n.cfg
}

// SetTrainingSet attaches set by reference. Passing nil detaches it.
func (n *Network) SetTrainingSet(set *data.TrainingSet) {
	n.set = set
}

// TrainingSet returns the attached training set, or nil.
func (n *Network) TrainingSet() *data.TrainingSet {
	return n.set
}

// SetLearningRate sets the learning rate.
func (n *Network) SetLearningRate(lr float64) error {
	return n.update(func(c *Config) { c.LearningRate = lr })
}

// SetMomentum sets the momentum factor.
func (n *Network) SetMomentum(m float64) error {
	return n.update(func(c *Config) { c.Momentum = m })
}

// SetWeightDecay sets the weight decay factor.
func (n *Network) SetWeightDecay(d float64) error {
	return n.update(func(c *Config) { c.WeightDecay = d })
}

// SetTransferFunction sets the activation of hidden and output neurons.
func (n *Network) SetTransferFunction(t TransferFunction) error {
	return n.update(func(c *Config) { c.Transfer = t })
}

// SetTransferFunctionByName resolves name with ParseTransferFunction.
func (n *Network) SetTransferFunctionByName(name string) error {
	t, err := ParseTransferFunction(name)
	if err != nil {
		return err
	}
	return n.SetTransferFunction(t)
}

func (n *Network) update(f func(*Config)) error {
	cfg := n.cfg
	f(&cfg)
	if err := cfg.validate("nn.Set"); err != nil {
		return err
	}
	n.cfg = cfg
	return nil
}

// String describes the topology, e.g. "3-32-6 sigmoid".
func (n *Network) String() string {
	s := ""
	for i, l := range n.layers {
		if i > 0 {
			s += "-"
		}
		s += fmt.Sprint(l.Size())
	}
	return s + " " + n.cfg.Transfer.String()
}
