package som

import (
	"github.com/annet-ml/annet/internal/device"
	"github.com/annet-ml/annet/internal/kernel"
	"github.com/annet-ml/annet/internal/som"
)

// Config holds map hyperparameters.
type Config = som.Config

// Network is a self-organizing map.
type Network = som.Network

// BMU identifies a best matching unit.
type BMU = device.BMUExport

// Neighborhood selects the kernel weighting updates by grid distance.
type Neighborhood = kernel.Neighborhood

// Backend selects the device implementation.
type Backend = device.Backend

// Neighborhood kernels.
const (
	Gaussian     = kernel.Gaussian
	Bubble       = kernel.Bubble
	CutGaussian  = kernel.CutGaussian
	MexicanHat   = kernel.MexicanHat
	Epanechnikov = kernel.Epanechnikov
)

// Backends.
const (
	CPU    = device.CPU
	WebGPU = device.WebGPU
)

// New creates a map with a random codebook.
func New(cfg Config) (*Network, error) {
	return som.New(cfg)
}

// Load reads a map stored with Network.ExportToStorage.
func Load(path string) (*Network, error) {
	return som.Load(path)
}

// ParseNeighborhood resolves an exact lowercase kernel name.
func ParseNeighborhood(name string) (Neighborhood, error) {
	return kernel.ParseNeighborhood(name)
}

// Neighborhoods lists every neighborhood kernel.
func Neighborhoods() []Neighborhood {
	return kernel.Neighborhoods()
}

// ParseBackend resolves "cpu" or "webgpu".
func ParseBackend(name string) (Backend, error) {
	return device.ParseBackend(name)
}
