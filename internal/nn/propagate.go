package nn

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/annet-ml/annet/internal/errs"
	"github.com/annet-ml/annet/internal/parallel"
)

// PropagateForward feeds input through the chain and returns a copy of the
// output layer activations. The network is left untouched on error.
func (n *Network) PropagateForward(input []float64) ([]float64, error) {
	const op = "nn.PropagateForward"
	if err := n.checkChain(op); err != nil {
		return nil, err
	}
	if want := n.layers[0].Size(); len(input) != want {
		return nil, errs.DimensionMismatch(op, "input", want, len(input))
	}
	n.forward(input)
	return slices.Clone(n.layers[len(n.layers)-1].values), nil
}

// Outputs returns a copy of the output activations of the last forward pass.
func (n *Network) Outputs() []float64 {
	if out := n.OutputLayer(); out != nil {
		return slices.Clone(out.values)
	}
	return nil
}

func (n *Network) forward(input []float64) {
	copy(n.layers[0].values, input)
	tr := transfers[n.cfg.Transfer]
	for _, c := range n.conns {
		c.forward(tr, n.cfg.Parallel)
	}
}

// forward computes to.values = f(W·from.values + bias).
func (c *Connection) forward(tr transfer, cfg parallel.Config) {
	src := mat.NewVecDense(len(c.from.values), c.from.values)
	dst := mat.NewVecDense(len(c.to.net), c.to.net)
	dst.MulVec(c.weights, src)
	floats.Add(c.to.net, c.to.bias)

	net, values := c.to.net, c.to.values
	parallel.For(len(net), func(j int) {
		values[j] = tr.f(net[j])
	}, cfg)
}

// backward computes the deltas of every non-input layer for target and
// returns the summed squared output error.
func (n *Network) backward(target []float64) float64 {
	tr := transfers[n.cfg.Transfer]

	out := n.layers[len(n.layers)-1]
	copy(out.delta, out.values)
	n.exec.AXmY(1, target, out.delta)
	var sq float64
	for k, e := range out.delta {
		sq += e * e
		out.delta[k] = e * tr.df(out.net[k], out.values[k])
	}

	// Hidden deltas use the weights as they were during the forward pass.
	for i := len(n.conns) - 1; i >= 1; i-- {
		c := n.conns[i]
		h := c.from
		d := mat.NewVecDense(len(h.delta), h.delta)
		d.MulVec(c.weights.T(), mat.NewVecDense(len(c.to.delta), c.to.delta))
		for j := range h.delta {
			h.delta[j] *= tr.df(h.net[j], h.values[j])
		}
	}
	return sq
}

// adjust applies the delta rule to every edge and bias.
func (n *Network) adjust() {
	lr, m, decay := n.cfg.LearningRate, n.cfg.Momentum, n.cfg.WeightDecay
	for _, c := range n.conns {
		rows, _ := c.weights.Dims()
		parallel.For(rows, func(j int) {
			step := lr * c.to.delta[j]
			n.exec.DeltaRule(step, m, decay, c.from.values, c.weights.RawRowView(j), c.updates.RawRowView(j))
			c.to.bias[j] += step
		}, n.cfg.Parallel)
	}
}
