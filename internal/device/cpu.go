package device

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/annet-ml/annet/internal/kernel"
	"github.com/annet-ml/annet/internal/parallel"
)

// CPUDevice runs the kernels on host memory.
type CPUDevice struct {
	id   int
	exec kernel.Exec
}

// NewCPU returns a CPU device using cfg for its kernel fan-out.
func NewCPU(id int, cfg parallel.Config) *CPUDevice {
	return &CPUDevice{id: id, exec: kernel.New(cfg)}
}

// ID returns the device index.
func (d *CPUDevice) ID() int { return d.id }

// Name describes the device.
func (d *CPUDevice) Name() string {
	return fmt.Sprintf("cpu:%d (%d workers)", d.id, d.exec.Config().NumWorkers)
}

// Load is a no-op; host slices are already resident.
func (d *CPUDevice) Load(_ *SplittedNetExport) error { return nil }

// Sync is a no-op; host slices are already resident.
func (d *CPUDevice) Sync(_ *SplittedNetExport) error { return nil }

// Release is a no-op.
func (d *CPUDevice) Release() {}

// LocalBMU accumulates squared distances one input coordinate at a time,
// adds the conscience term and picks the first minimal score.
func (d *CPUDevice) LocalBMU(p *SplittedNetExport, sp SearchParams) (BMUExport, error) {
	dims, _ := p.Edges.Dims()
	clear(p.dist)
	for k := 0; k < dims; k++ {
		d.exec.SqDiffAcc(p.Input[k], p.Edges.RawRowView(k), p.dist)
	}

	copy(p.score, p.dist)
	if sp.ConscienceBias != 0 {
		d.exec.Axpy(sp.ConscienceBias, p.Conscience, p.score)
		d.exec.AddConst(-sp.ConscienceBias/float64(sp.Neurons), p.score)
	}

	i := floats.MinIdx(p.score)
	return BMUExport{
		ID:       p.Range.Lo + i,
		DeviceID: d.id,
		Position: p.Position(i),
		Score:    p.score[i],
		Distance: p.dist[i],
	}, nil
}

// Update computes each neuron's influence from its squared grid distance
// to the BMU and applies the Hebbian step coordinate by coordinate.
func (d *CPUDevice) Update(p *SplittedNetExport, bmu BMUExport, up UpdateParams) error {
	grid, _ := p.Positions.Dims()
	clear(p.infl)
	for g := 0; g < grid; g++ {
		d.exec.SqDiffAcc(bmu.Position[g], p.Positions.RawRowView(g), p.infl)
	}
	d.exec.ApplyNeighborhood(up.Neighborhood.Func(), up.Sigma, p.infl)
	d.exec.Scale(up.LearningRate, p.infl)

	dims, _ := p.Edges.Dims()
	for k := 0; k < dims; k++ {
		d.exec.Hebbian(p.Input[k], p.infl, p.Edges.RawRowView(k))
	}

	if up.ConscienceRate > 0 {
		d.exec.Scale(1-up.ConscienceRate, p.Conscience)
		if p.Range.Contains(bmu.ID) {
			p.Conscience[bmu.ID-p.Range.Lo] += up.ConscienceRate
		}
	}
	return nil
}
