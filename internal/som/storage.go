package som

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/annet-ml/annet/internal/device"
	"github.com/annet-ml/annet/internal/errs"
	"github.com/annet-ml/annet/internal/kernel"
	"github.com/annet-ml/annet/internal/nn"
	"github.com/annet-ml/annet/internal/serialization"
)

// ExportToStorage writes the hyperparameters, codebook, grid positions and
// conscience values to path. An attached training set is embedded.
func (n *Network) ExportToStorage(path string) error {
	const op = "som.ExportToStorage"
	header := serialization.Header{
		ModelType: serialization.ModelSOM,
		Hyper: serialization.Hyperparameters{
			LearningRate:   n.cfg.LearningRate,
			InitRange:      n.cfg.InitRange,
			Seed:           n.cfg.Seed,
			Neighborhood:   n.cfg.Neighborhood.String(),
			Sigma:          n.cfg.Sigma,
			ConscienceRate: n.cfg.ConscienceRate,
			ConscienceBias: n.cfg.ConscienceBias,
			GridWidth:      n.cfg.Width,
			GridHeight:     n.cfg.Height,
		},
		Layers: nn.LayerMetas([]*nn.Layer{n.input, n.output}),
	}

	tensors := nn.ConnectionTensors(0, n.conn)
	tensors = append(tensors,
		serialization.Tensor{Name: serialization.TensorSOMPositions, Shape: []int{n.Size(), 2}, Data: n.positions.RawMatrix().Data},
		serialization.Tensor{Name: serialization.TensorSOMConscience, Shape: []int{n.Size()}, Data: n.conscience},
	)
	if n.set != nil && n.set.Len() > 0 {
		tensors = append(tensors, inputTensor(n))
	}

	if err := serialization.WriteFile(path, header, tensors); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}
	n.log.Info("map exported", "path", path, "net", n.String())
	return nil
}

// checkShapes verifies the declared layers and grid against the stored
// tensors before the map is allocated.
func checkShapes(f *serialization.File) error {
	h := f.Header
	if err := nn.CheckLayerShapes(f, h.Layers, false); err != nil {
		return err
	}
	neurons, w, g := h.Layers[1].Size, h.Hyper.GridWidth, h.Hyper.GridHeight
	if w < 1 || g < 1 || neurons%w != 0 || neurons/w != g {
		return fmt.Errorf("output layer of %d neurons does not fill a %dx%d grid", neurons, w, g)
	}
	if err := f.CheckShape(serialization.TensorSOMPositions, neurons, 2); err != nil {
		return err
	}
	return f.CheckShape(serialization.TensorSOMConscience, neurons)
}

// inputTensor flattens the input vectors of the attached training set.
// Outputs are not used by the map and are not stored.
func inputTensor(n *Network) serialization.Tensor {
	pairs := n.set.Len()
	inputs := make([]float64, 0, pairs*n.cfg.InputSize)
	for p := 0; p < pairs; p++ {
		inputs = append(inputs, n.set.Input(p)...)
	}
	return serialization.Tensor{Name: serialization.TensorTrainingInput, Shape: []int{pairs, n.cfg.InputSize}, Data: inputs}
}

// ImportFromStorage replaces the map with the one stored at path. The
// receiver is only modified once the whole file has been decoded; its
// devices, logger and fan-out configuration are kept.
func (n *Network) ImportFromStorage(path string) error {
	ambient := Config{
		Devices:  n.cfg.Devices,
		Backend:  n.cfg.Backend,
		Parallel: n.cfg.Parallel,
		Logger:   n.cfg.Logger,
	}
	loaded, err := load(path, ambient)
	if err != nil {
		return err
	}
	*n = *loaded
	return nil
}

// Load reads a map stored by ExportToStorage. Every failure, including
// structurally invalid content, is an IO error.
func Load(path string) (*Network, error) {
	return load(path, Config{})
}

func load(path string, ambient Config) (*Network, error) {
	const op = "som.ImportFromStorage"
	f, err := serialization.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, op, err)
	}
	n, err := fromFile(f, ambient)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, op, err)
	}
	return n, nil
}

func fromFile(f *serialization.File, ambient Config) (*Network, error) {
	h := f.Header
	if h.ModelType != serialization.ModelSOM {
		return nil, fmt.Errorf("model type %q is not %q", h.ModelType, serialization.ModelSOM)
	}
	if len(h.Layers) != 2 {
		return nil, fmt.Errorf("a map has 2 layers, header declares %d", len(h.Layers))
	}
	if err := checkShapes(f); err != nil {
		return nil, err
	}
	in, err := nn.LayerFromMeta(h.Layers[0])
	if err != nil {
		return nil, err
	}
	out, err := nn.LayerFromMeta(h.Layers[1])
	if err != nil {
		return nil, err
	}
	if in.Kind() != nn.Input || out.Kind() != nn.Output {
		return nil, fmt.Errorf("layers are %v and %v, want input and output", in.Kind(), out.Kind())
	}
	nb, err := kernel.ParseNeighborhood(h.Hyper.Neighborhood)
	if err != nil {
		return nil, err
	}

	cfg := ambient
	cfg.InputSize = in.Size()
	cfg.Width = h.Hyper.GridWidth
	cfg.Height = h.Hyper.GridHeight
	cfg.LearningRate = h.Hyper.LearningRate
	cfg.Neighborhood = nb
	cfg.Sigma = h.Hyper.Sigma
	cfg.ConscienceRate = h.Hyper.ConscienceRate
	cfg.ConscienceBias = h.Hyper.ConscienceBias
	cfg.InitRange = h.Hyper.InitRange
	cfg.Seed = h.Hyper.Seed
	// The receiver's device count is kept while it still fits the grid.
	if _, err := device.Partition(cfg.Width*cfg.Height, max(cfg.Devices, 1)); err != nil {
		cfg.Devices = 1
	}
	n, err := New(cfg)
	if err != nil {
		return nil, err
	}

	if err := nn.LoadConnection(f, 0, n.conn); err != nil {
		return nil, err
	}
	pos, err := f.Tensor(serialization.TensorSOMPositions, n.Size(), 2)
	if err != nil {
		return nil, err
	}
	cons, err := f.Tensor(serialization.TensorSOMConscience, n.Size())
	if err != nil {
		return nil, err
	}
	if !allFinite(pos) || !allFinite(cons) {
		return nil, fmt.Errorf("map state holds non-finite values")
	}
	n.positions = mat.NewDense(n.Size(), 2, append([]float64(nil), pos...))
	copy(n.conscience, cons)

	if f.HasTrainingSet() {
		set, err := nn.LoadTrainingSet(f)
		if err != nil {
			return nil, err
		}
		n.set = set
	}
	return n, nil
}
