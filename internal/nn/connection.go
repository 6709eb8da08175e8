package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/annet-ml/annet/internal/errs"
)

// Edge is a read-only view of one weighted link between adjacent layers.
type Edge struct {
	Source int     // Neuron id in the source layer
	Target int     // Neuron id in the target layer
	Weight float64
	Update float64 // Previously applied weight update (momentum term)
}

// Connection owns the full bipartite edge set between two adjacent layers.
//
// Weights are stored densely: row j holds the edges into target neuron j,
// column i the edges out of source neuron i.
type Connection struct {
	from    *Layer
	to      *Layer
	weights *mat.Dense // [to.Size, from.Size]
	updates *mat.Dense // [to.Size, from.Size]
}

// Connect creates the edge set from prev to next with weights drawn uniformly
// from [-bound, bound]. Either layer may already carry a connection on the
// other side, but not on the side being connected.
func Connect(prev, next *Layer, rng *rand.Rand, bound float64) (*Connection, error) {
	const op = "nn.Connect"
	switch {
	case prev == nil || next == nil:
		return nil, errs.Configuration(op, "nil layer")
	case prev == next:
		return nil, errs.Configuration(op, "cannot connect a layer to itself")
	case prev.out != nil:
		return nil, errs.Configuration(op, "source layer is already connected")
	case next.in != nil:
		return nil, errs.Configuration(op, "target layer already has incoming edges")
	case next.kind == Input:
		return nil, errs.Configuration(op, "an input layer cannot receive edges")
	case prev.kind == Output:
		return nil, errs.Configuration(op, "an output layer cannot emit edges")
	}

	rows, cols := next.Size(), prev.Size()
	w := make([]float64, rows*cols)
	Uniform(rng, bound, w)

	c := &Connection{
		from:    prev,
		to:      next,
		weights: mat.NewDense(rows, cols, w),
		updates: mat.NewDense(rows, cols, nil),
	}
	prev.out = c
	prev.next = next
	next.in = c
	return c, nil
}

// From returns the source layer.
func (c *Connection) From() *Layer { return c.from }

// To returns the target layer.
func (c *Connection) To() *Layer { return c.to }

// Weights returns the weight matrix. It aliases connection state.
func (c *Connection) Weights() *mat.Dense { return c.weights }

// Updates returns the previous update matrix. It aliases connection state.
func (c *Connection) Updates() *mat.Dense { return c.updates }

// Edge returns the edge from source neuron to target neuron.
func (c *Connection) Edge(target, source int) Edge {
	return Edge{
		Source: source,
		Target: target,
		Weight: c.weights.At(target, source),
		Update: c.updates.At(target, source),
	}
}

// Edges returns all edges ordered by target, then source.
func (c *Connection) Edges() []Edge {
	rows, cols := c.weights.Dims()
	out := make([]Edge, 0, rows*cols)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			out = append(out, c.Edge(j, i))
		}
	}
	return out
}
