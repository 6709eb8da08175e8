package nn

import (
	"fmt"

	"github.com/annet-ml/annet/internal/errs"
)

// LayerKind is the role of a layer in a network.
type LayerKind int

// Layer kinds.
const (
	Input LayerKind = iota + 1
	Hidden
	Output
)

// String returns the canonical name of the kind.
func (k LayerKind) String() string {
	switch k {
	case Input:
		return "input"
	case Hidden:
		return "hidden"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("LayerKind(%d)", int(k))
	}
}

// ParseLayerKind resolves a canonical kind name. Matching is exact.
func ParseLayerKind(name string) (LayerKind, error) {
	for _, k := range []LayerKind{Input, Hidden, Output} {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, errs.Configuration("nn.ParseLayerKind", "unknown layer kind %q", name)
}

// Neuron is a read-only view of one unit of a layer.
type Neuron struct {
	ID    int     // Index within its layer
	Value float64 // Activation after the last forward pass
	Bias  float64
	Delta float64 // Error signal from the last backward pass
}

// Layer is an ordered, fixed-size collection of neurons.
//
// Neuron state is kept as parallel slices so the kernels can run over whole
// layers. The size is fixed at construction.
type Layer struct {
	kind  LayerKind
	index int // Position in the owning network, -1 until added

	values []float64 // Activations
	net    []float64 // Weighted input sums before the transfer function
	bias   []float64
	delta  []float64

	in   *Connection // Edges from the previous layer
	out  *Connection // Edges to the next layer
	next *Layer
}

// NewLayer creates a detached layer of size neurons.
func NewLayer(size int, kind LayerKind) (*Layer, error) {
	if size < 1 {
		return nil, errs.Configuration("nn.NewLayer", "layer size must be positive, got %d", size)
	}
	if kind < Input || kind > Output {
		return nil, errs.Configuration("nn.NewLayer", "invalid layer kind %v", kind)
	}
	return &Layer{
		kind:   kind,
		index:  -1,
		values: make([]float64, size),
		net:    make([]float64, size),
		bias:   make([]float64, size),
		delta:  make([]float64, size),
	}, nil
}

// Kind returns the layer kind.
func (l *Layer) Kind() LayerKind { return l.kind }

// Size returns the number of neurons.
func (l *Layer) Size() int { return len(l.values) }

// Index returns the layer position in its network, or -1 if detached.
func (l *Layer) Index() int { return l.index }

// Next returns the layer this one feeds, or nil.
func (l *Layer) Next() *Layer { return l.next }

// In returns the incoming connection, or nil.
func (l *Layer) In() *Connection { return l.in }

// Out returns the outgoing connection, or nil.
func (l *Layer) Out() *Connection { return l.out }

// Values returns the activations. The slice aliases layer state.
func (l *Layer) Values() []float64 { return l.values }

// Biases returns the biases. The slice aliases layer state.
func (l *Layer) Biases() []float64 { return l.bias }

// Neuron returns a view of neuron id.
func (l *Layer) Neuron(id int) Neuron {
	return Neuron{ID: id, Value: l.values[id], Bias: l.bias[id], Delta: l.delta[id]}
}

// Neurons returns views of all neurons in id order.
func (l *Layer) Neurons() []Neuron {
	out := make([]Neuron, l.Size())
	for i := range out {
		out[i] = l.Neuron(i)
	}
	return out
}
