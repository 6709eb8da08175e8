package nn

import (
	"github.com/annet-ml/annet/internal/nn"
)

// Config holds network hyperparameters.
type Config = nn.Config

// Network is a chain of layers trained by backpropagation.
type Network = nn.Network

// Layer is one layer of neurons.
type Layer = nn.Layer

// LayerKind is the role of a layer in the chain.
type LayerKind = nn.LayerKind

// Neuron is a read-only view of one neuron.
type Neuron = nn.Neuron

// Connection is the fully connected edge set between two layers.
type Connection = nn.Connection

// Edge is a read-only view of one weighted edge.
type Edge = nn.Edge

// EpochResult reports one completed training epoch.
type EpochResult = nn.EpochResult

// TransferFunction selects the activation of hidden and output neurons.
type TransferFunction = nn.TransferFunction

// Layer kinds.
const (
	Input  = nn.Input
	Hidden = nn.Hidden
	Output = nn.Output
)

// Transfer functions.
const (
	Sigmoid = nn.Sigmoid
	Tanh    = nn.Tanh
	Linear  = nn.Linear
	ReLU    = nn.ReLU
)

// DefaultConfig returns the default hyperparameters.
func DefaultConfig() Config {
	return nn.DefaultConfig()
}

// New creates an empty network.
func New(cfg Config) (*Network, error) {
	return nn.New(cfg)
}

// NewFeedForward creates a fully connected chain with the given layer
// sizes, input first.
//
// Example:
//
//	net, err := nn.NewFeedForward(nn.DefaultConfig(), 3, 32, 6)
func NewFeedForward(cfg Config, sizes ...int) (*Network, error) {
	return nn.NewFeedForward(cfg, sizes...)
}

// NewLayer creates a detached layer of size neurons.
func NewLayer(size int, kind LayerKind) (*Layer, error) {
	return nn.NewLayer(size, kind)
}

// ParseTransferFunction resolves an exact lowercase transfer function name.
func ParseTransferFunction(name string) (TransferFunction, error) {
	return nn.ParseTransferFunction(name)
}

// TransferFunctions lists every transfer function.
func TransferFunctions() []TransferFunction {
	return nn.TransferFunctions()
}

// Load reads a network stored with Network.ExportToStorage.
func Load(path string) (*Network, error) {
	return nn.Load(path)
}
