package nn

import (
	"fmt"
	"math"

	"github.com/annet-ml/annet/internal/errs"
)

// TransferFunction selects the activation applied by hidden and output neurons.
type TransferFunction int

// Transfer functions.
const (
	Sigmoid TransferFunction = iota
	Tanh
	Linear
	ReLU
)

// transfer pairs an activation with its derivative. The derivative receives
// both the net input and the activation it produced.
type transfer struct {
	name string
	f    func(x float64) float64
	df   func(x, y float64) float64
}

var transfers = [...]transfer{
	Sigmoid: {
		name: "sigmoid",
		f:    func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
		df:   func(_, y float64) float64 { return y * (1 - y) },
	},
	Tanh: {
		name: "tanh",
		f:    math.Tanh,
		df:   func(_, y float64) float64 { return 1 - y*y },
	},
	Linear: {
		name: "linear",
		f:    func(x float64) float64 { return x },
		df:   func(_, _ float64) float64 { return 1 },
	},
	ReLU: {
		name: "relu",
		f:    func(x float64) float64 { return math.Max(0, x) },
		df: func(x, _ float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		},
	},
}

// String returns the canonical name.
func (t TransferFunction) String() string {
	if !t.valid() {
		return fmt.Sprintf("TransferFunction(%d)", int(t))
	}
	return transfers[t].name
}

func (t TransferFunction) valid() bool {
	return t >= 0 && int(t) < len(transfers)
}

// TransferFunctions returns every supported transfer function.
func TransferFunctions() []TransferFunction {
	out := make([]TransferFunction, len(transfers))
	for i := range out {
		out[i] = TransferFunction(i)
	}
	return out
}

// ParseTransferFunction resolves a canonical name such as "sigmoid".
// Matching is exact; unknown names are rejected.
func ParseTransferFunction(name string) (TransferFunction, error) {
	for i, tr := range transfers {
		if tr.name == name {
			return TransferFunction(i), nil
		}
	}
	return 0, errs.Configuration("nn.ParseTransferFunction", "unknown transfer function %q", name)
}

// Eval applies the function to x.
func (t TransferFunction) Eval(x float64) float64 {
	return transfers[t].f(x)
}
