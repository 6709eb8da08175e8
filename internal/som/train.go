package som

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/annet-ml/annet/internal/device"
	"github.com/annet-ml/annet/internal/errs"
	"github.com/annet-ml/annet/internal/nn"
)

// Schedule returns the neighborhood spread and learning rate of cycle t out
// of maxCycles:
//
//	σ_t = σ0·exp(−t/λ), λ = maxCycles/ln σ0 (σ0 > 1) or maxCycles
//	α_t = α0·exp(−t/maxCycles)
//
// With σ0 > 1 the spread decays to 1 by the last cycle.
func (n *Network) Schedule(t, maxCycles int) (sigma, alpha float64) {
	lambda := float64(maxCycles)
	if n.cfg.Sigma > 1 {
		lambda /= math.Log(n.cfg.Sigma)
	}
	sigma = n.cfg.Sigma * math.Exp(-float64(t)/lambda)
	alpha = n.cfg.LearningRate * math.Exp(-float64(t)/float64(maxCycles))
	return sigma, alpha
}

// TrainFromData runs competitive learning over the input vectors of the
// attached training set for at most maxCycles epochs and returns the mean
// quantization error of every epoch.
//
// Training stops early once an epoch error drops below targetError. If an
// epoch produces a non-finite weight, the map keeps the state of the last
// completed epoch and a numeric instability error is returned.
func (n *Network) TrainFromData(maxCycles int, targetError float64) ([]float64, error) {
	return n.TrainFromDataFunc(maxCycles, targetError, nil)
}

// TrainFromDataFunc is TrainFromData with a callback invoked after every
// completed epoch.
func (n *Network) TrainFromDataFunc(maxCycles int, targetError float64, onEpoch func(nn.EpochResult)) ([]float64, error) {
	const op = "som.TrainFromData"
	if maxCycles < 1 {
		return nil, errs.Configuration(op, "max cycles must be positive, got %d", maxCycles)
	}
	if n.set == nil {
		return nil, &errs.Error{Kind: errs.KindConfiguration, Op: op, Err: errs.ErrMissingTrainingData}
	}
	if err := n.set.Validate(n.cfg.InputSize, -1); err != nil {
		return nil, err
	}

	cluster, err := n.cluster()
	if err != nil {
		return nil, err
	}
	defer cluster.Close()

	weights := n.conn.Weights()
	rows, cols := weights.Dims()
	next := mat.NewDense(rows, cols, nil)
	nextConscience := make([]float64, len(n.conscience))

	pairs := n.set.Len()
	sp := device.SearchParams{ConscienceBias: n.cfg.ConscienceBias}
	history := make([]float64, 0, min(maxCycles, 1024))

	for epoch := 0; epoch < maxCycles; epoch++ {
		sigma, alpha := n.Schedule(epoch, maxCycles)
		up := device.UpdateParams{
			LearningRate:   alpha,
			Sigma:          sigma,
			Neighborhood:   n.cfg.Neighborhood,
			ConscienceRate: n.cfg.ConscienceRate,
		}

		var qe float64
		for p := 0; p < pairs; p++ {
			bmu, err := cluster.Step(n.set.Input(p), sp, up)
			if err != nil {
				return history, err
			}
			qe += math.Sqrt(bmu.Distance)
		}
		qe /= float64(pairs)

		if err := cluster.Gather(next, nextConscience); err != nil {
			return history, err
		}
		if math.IsNaN(qe) || math.IsInf(qe, 0) || !allFinite(next.RawMatrix().Data) || !allFinite(nextConscience) {
			n.log.Warn("training diverged", "epoch", epoch, "error", qe)
			return history, errs.New(errs.KindNumericInstability, op,
				"non-finite weights in epoch %d, rolled back", epoch)
		}
		weights.Copy(next)
		copy(n.conscience, nextConscience)

		history = append(history, qe)
		n.log.Debug("epoch finished", "epoch", epoch, "error", qe, "sigma", sigma, "alpha", alpha)
		if onEpoch != nil {
			onEpoch(nn.EpochResult{Epoch: epoch, Error: qe})
		}
		if qe < targetError {
			break
		}
	}

	n.log.Info("training finished", "net", n.String(), "devices", cluster.Devices(), "ranges", cluster.Ranges(),
		"epochs", len(history), "error", history[len(history)-1])
	return history, nil
}

// BMU returns the best matching unit of input under the current conscience
// values. The map is not modified.
func (n *Network) BMU(input []float64) (device.BMUExport, error) {
	const op = "som.BMU"
	if len(input) != n.cfg.InputSize {
		return device.BMUExport{}, errs.DimensionMismatch(op, "input", n.cfg.InputSize, len(input))
	}
	cluster, err := n.cluster()
	if err != nil {
		return device.BMUExport{}, err
	}
	defer cluster.Close()
	return cluster.Search(input, device.SearchParams{ConscienceBias: n.cfg.ConscienceBias})
}

// cluster distributes the current map state over the configured devices.
func (n *Network) cluster() (*device.Cluster, error) {
	devs, err := device.Open(n.cfg.Backend, n.cfg.Devices, n.cfg.Parallel)
	if err != nil {
		return nil, err
	}
	return device.NewCluster(devs, n.conn.Weights(), n.positions, n.conscience)
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
