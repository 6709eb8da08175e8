package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/annet-ml/annet/internal/errs"
)

// EpochResult reports one completed training epoch.
type EpochResult struct {
	Epoch int     // Zero-based epoch index
	Error float64 // Root mean square output error over the epoch
}

// TrainFromData runs online backpropagation over the attached training set
// for at most maxCycles epochs and returns the error of every epoch.
//
// Training stops early once an epoch error drops below targetError. All
// pairs are validated before any weight changes. If an epoch produces a
// non-finite weight, that epoch is rolled back and the errors of the
// completed epochs are returned with a numeric instability error.
func (n *Network) TrainFromData(maxCycles int, targetError float64) ([]float64, error) {
	return n.TrainFromDataFunc(maxCycles, targetError, nil)
}

// TrainFromDataFunc is TrainFromData with a callback invoked after every
// completed epoch.
func (n *Network) TrainFromDataFunc(maxCycles int, targetError float64, onEpoch func(EpochResult)) ([]float64, error) {
	const op = "nn.TrainFromData"
	if maxCycles < 1 {
		return nil, errs.Configuration(op, "max cycles must be positive, got %d", maxCycles)
	}
	if err := n.checkChain(op); err != nil {
		return nil, err
	}
	if n.set == nil {
		return nil, &errs.Error{Kind: errs.KindConfiguration, Op: op, Err: errs.ErrMissingTrainingData}
	}
	if err := n.set.Validate(n.layers[0].Size(), n.layers[len(n.layers)-1].Size()); err != nil {
		return nil, err
	}

	pairs := n.set.Len()
	outputs := n.layers[len(n.layers)-1].Size()
	history := make([]float64, 0, min(maxCycles, 1024))
	snap := n.snapshot()

	for epoch := 0; epoch < maxCycles; epoch++ {
		snap.capture(n)

		var sq float64
		for p := 0; p < pairs; p++ {
			n.forward(n.set.Input(p))
			sq += n.backward(n.set.Output(p))
			n.adjust()
		}
		rms := math.Sqrt(sq / float64(pairs*outputs))

		if math.IsNaN(rms) || math.IsInf(rms, 0) || !n.finite() {
			snap.restore(n)
			n.log.Warn("training diverged", "epoch", epoch, "error", rms)
			return history, errs.New(errs.KindNumericInstability, op,
				"non-finite weights in epoch %d, rolled back", epoch)
		}

		history = append(history, rms)
		n.log.Debug("epoch finished", "epoch", epoch, "error", rms)
		if onEpoch != nil {
			onEpoch(EpochResult{Epoch: epoch, Error: rms})
		}
		if rms < targetError {
			break
		}
	}

	n.log.Info("training finished", "net", n.String(), "epochs", len(history), "error", history[len(history)-1])
	return history, nil
}

// finite reports whether every weight and bias is finite.
func (n *Network) finite() bool {
	for _, c := range n.conns {
		if !allFinite(c.weights.RawMatrix().Data) {
			return false
		}
	}
	for _, l := range n.layers[1:] {
		if !allFinite(l.bias) {
			return false
		}
	}
	return true
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// snapshot holds the trainable state at the start of an epoch.
type snapshot struct {
	weights []*mat.Dense
	updates []*mat.Dense
	biases  [][]float64
}

func (n *Network) snapshot() *snapshot {
	s := &snapshot{}
	for _, c := range n.conns {
		r, k := c.weights.Dims()
		s.weights = append(s.weights, mat.NewDense(r, k, nil))
		s.updates = append(s.updates, mat.NewDense(r, k, nil))
	}
	for _, l := range n.layers {
		s.biases = append(s.biases, make([]float64, l.Size()))
	}
	return s
}

func (s *snapshot) capture(n *Network) {
	for i, c := range n.conns {
		s.weights[i].Copy(c.weights)
		s.updates[i].Copy(c.updates)
	}
	for i, l := range n.layers {
		copy(s.biases[i], l.bias)
	}
}

func (s *snapshot) restore(n *Network) {
	for i, c := range n.conns {
		c.weights.Copy(s.weights[i])
		c.updates.Copy(s.updates[i])
	}
	for i, l := range n.layers {
		copy(l.bias, s.biases[i])
	}
}
