package device

import (
	"gonum.org/v1/gonum/mat"
)

// BMUExport identifies a best matching unit.
type BMUExport struct {
	ID       int       // Global neuron id
	DeviceID int       // Device owning the neuron
	Position []float64 // Grid position of the neuron
	Score    float64   // Distance adjusted by the conscience term
	Distance float64   // Squared Euclidean distance to the input
}

// better reports whether b beats o in the merge order.
func (b BMUExport) better(o BMUExport) bool {
	return b.Score < o.Score || (b.Score == o.Score && b.ID < o.ID)
}

// SplittedNetExport is one device's resident slice of a SOM.
//
// Edges and Positions are stored dimension-major: row d holds coordinate d
// of every local neuron, so each coordinate is a contiguous vector for the
// elementwise kernels. Column i belongs to global neuron Range.Lo+i.
type SplittedNetExport struct {
	Range      Range
	Edges      *mat.Dense // [inputDim, Range.Len()]
	Positions  *mat.Dense // [gridDim, Range.Len()]
	Conscience []float64  // [Range.Len()]
	Input      []float64  // [inputDim], the current input

	dist  []float64
	score []float64
	infl  []float64
}

// NewSplittedNetExport allocates the buffers of one device slice.
func NewSplittedNetExport(r Range, inputDim, gridDim int) *SplittedNetExport {
	n := r.Len()
	return &SplittedNetExport{
		Range:      r,
		Edges:      mat.NewDense(inputDim, n, nil),
		Positions:  mat.NewDense(gridDim, n, nil),
		Conscience: make([]float64, n),
		Input:      make([]float64, inputDim),
		dist:       make([]float64, n),
		score:      make([]float64, n),
		infl:       make([]float64, n),
	}
}

// Scatter copies the slice's neurons out of the full network state.
// weights and positions hold one row per neuron.
func (p *SplittedNetExport) Scatter(weights, positions *mat.Dense, conscience []float64) {
	lo, hi := p.Range.Lo, p.Range.Hi
	p.Edges.Copy(weights.Slice(lo, hi, 0, weights.RawMatrix().Cols).T())
	p.Positions.Copy(positions.Slice(lo, hi, 0, positions.RawMatrix().Cols).T())
	copy(p.Conscience, conscience[lo:hi])
}

// Gather writes the slice's neurons back into the full network state.
func (p *SplittedNetExport) Gather(weights *mat.Dense, conscience []float64) {
	lo, hi := p.Range.Lo, p.Range.Hi
	dst := weights.Slice(lo, hi, 0, weights.RawMatrix().Cols).(*mat.Dense)
	dst.Copy(p.Edges.T())
	copy(conscience[lo:hi], p.Conscience)
}

// Position returns a copy of the grid position of local neuron i.
func (p *SplittedNetExport) Position(i int) []float64 {
	return mat.Col(nil, i, p.Positions)
}

// SetInput copies x into the slice's input buffer.
func (p *SplittedNetExport) SetInput(x []float64) {
	copy(p.Input, x)
}
