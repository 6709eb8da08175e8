package device

import (
	"fmt"

	"github.com/annet-ml/annet/internal/errs"
	"github.com/annet-ml/annet/internal/kernel"
	"github.com/annet-ml/annet/internal/parallel"
)

// SearchParams configures a local BMU search.
type SearchParams struct {
	ConscienceBias float64 // γ in score = distance + γ·(conscience − 1/Neurons)
	Neurons        int     // Total neuron count across all devices
}

// UpdateParams configures a neighborhood update pass.
type UpdateParams struct {
	LearningRate   float64
	Sigma          float64
	Neighborhood   kernel.Neighborhood
	ConscienceRate float64 // β in conscience += β·(won − conscience)
}

// Device executes the SOM kernels over slices it has loaded.
//
// A device is driven by a single goroutine; implementations need not be
// safe for concurrent use.
type Device interface {
	// ID returns the device index within its cluster.
	ID() int
	// Name describes the device.
	Name() string
	// Load makes p resident. It is called once before any pass over p.
	Load(p *SplittedNetExport) error
	// LocalBMU finds the best matching unit of p for p.Input.
	LocalBMU(p *SplittedNetExport, sp SearchParams) (BMUExport, error)
	// Update moves every neuron of p towards p.Input by its neighborhood
	// influence around bmu and updates the conscience values.
	Update(p *SplittedNetExport, bmu BMUExport, up UpdateParams) error
	// Sync copies resident state back into p.
	Sync(p *SplittedNetExport) error
	// Release frees device resources.
	Release()
}

// Backend selects the device implementation.
type Backend int

// Backends.
const (
	CPU Backend = iota
	WebGPU
)

// String returns the canonical backend name.
func (b Backend) String() string {
	switch b {
	case CPU:
		return "cpu"
	case WebGPU:
		return "webgpu"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend resolves "cpu" or "webgpu".
func ParseBackend(name string) (Backend, error) {
	for _, b := range []Backend{CPU, WebGPU} {
		if b.String() == name {
			return b, nil
		}
	}
	return 0, errs.Configuration("device.ParseBackend", "unknown backend %q", name)
}

// Open creates count devices of the given backend. CPU devices split the
// worker budget of cfg between them.
func Open(backend Backend, count int, cfg parallel.Config) ([]Device, error) {
	if count < 1 {
		return nil, errs.New(errs.KindDevice, "device.Open", "need at least one device, got %d", count)
	}
	devs := make([]Device, 0, count)
	for i := 0; i < count; i++ {
		switch backend {
		case CPU:
			share := cfg
			share.NumWorkers = max(1, cfg.NumWorkers/count)
			share.Enabled = cfg.Enabled && share.NumWorkers > 1
			devs = append(devs, NewCPU(i, share))
		case WebGPU:
			d, err := OpenWebGPU(i)
			if err != nil {
				release(devs)
				return nil, err
			}
			devs = append(devs, d)
		default:
			return nil, errs.Configuration("device.Open", "unknown backend %v", backend)
		}
	}
	return devs, nil
}
