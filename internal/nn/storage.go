package nn

import (
	"fmt"

	"github.com/annet-ml/annet/internal/data"
	"github.com/annet-ml/annet/internal/errs"
	"github.com/annet-ml/annet/internal/serialization"
)

// ExportToStorage writes the topology, hyperparameters, weights, momentum
// terms and biases to path. An attached training set is embedded.
func (n *Network) ExportToStorage(path string) error {
	const op = "nn.ExportToStorage"
	if err := n.checkChain(op); err != nil {
		return err
	}

	header := serialization.Header{
		ModelType: serialization.ModelBPNet,
		Hyper: serialization.Hyperparameters{
			LearningRate: n.cfg.LearningRate,
			Momentum:     n.cfg.Momentum,
			WeightDecay:  n.cfg.WeightDecay,
			Transfer:     n.cfg.Transfer.String(),
			InitRange:    n.cfg.InitRange,
			Seed:         n.cfg.Seed,
		},
		Layers: LayerMetas(n.layers),
	}

	var tensors []serialization.Tensor
	for b, c := range n.conns {
		tensors = append(tensors, ConnectionTensors(b, c)...)
	}
	for l := 1; l < len(n.layers); l++ {
		tensors = append(tensors, serialization.Tensor{
			Name:  serialization.BiasName(l),
			Shape: []int{n.layers[l].Size()},
			Data:  n.layers[l].bias,
		})
	}
	if n.set != nil {
		tensors = append(tensors, TrainingSetTensors(n.set)...)
	}

	if err := serialization.WriteFile(path, header, tensors); err != nil {
		return errs.Wrap(errs.KindIO, op, err)
	}
	n.log.Info("network exported", "path", path, "net", n.String())
	return nil
}

// ImportFromStorage replaces the network with the one stored at path. The
// receiver is only modified once the whole file has been decoded; its
// logger and fan-out configuration are kept.
func (n *Network) ImportFromStorage(path string) error {
	cfg := Config{Parallel: n.cfg.Parallel, Logger: n.cfg.Logger}
	loaded, err := load(path, cfg)
	if err != nil {
		return err
	}
	*n = *loaded
	return nil
}

// Load reads a network stored by ExportToStorage. Every failure, including
// structurally invalid content, is an IO error.
func Load(path string) (*Network, error) {
	return load(path, Config{})
}

func load(path string, ambient Config) (*Network, error) {
	const op = "nn.ImportFromStorage"
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
	if h.ModelType != serialization.ModelBPNet {
		return nil, fmt.Errorf("model type %q is not %q", h.ModelType, serialization.ModelBPNet)
	}
	tr, err := ParseTransferFunction(h.Hyper.Transfer)
	if err != nil {
		return nil, err
	}

	if err := CheckLayerShapes(f, h.Layers, true); err != nil {
		return nil, err
	}

	cfg := ambient
	cfg.LearningRate = h.Hyper.LearningRate
	cfg.Momentum = h.Hyper.Momentum
	cfg.WeightDecay = h.Hyper.WeightDecay
	cfg.Transfer = tr
	cfg.InitRange = h.Hyper.InitRange
	cfg.Seed = h.Hyper.Seed
	n, err := New(cfg)
	if err != nil {
		return nil, err
	}

	for _, meta := range h.Layers {
		l, err := LayerFromMeta(meta)
		if err != nil {
			return nil, err
		}
		if err := n.AddLayer(l); err != nil {
			return nil, err
		}
		if l.index > 0 {
			if err := n.ConnectLayers(n.layers[l.index-1], l); err != nil {
				return nil, err
			}
		}
	}
	if err := n.checkChain("nn.ImportFromStorage"); err != nil {
		return nil, err
	}

	for b, c := range n.conns {
		if err := LoadConnection(f, b, c); err != nil {
			return nil, err
		}
	}
	for l := 1; l < len(n.layers); l++ {
		bias, err := f.Tensor(serialization.BiasName(l), n.layers[l].Size())
		if err != nil {
			return nil, err
		}
		copy(n.layers[l].bias, bias)
	}

	if f.HasTrainingSet() {
		set, err := LoadTrainingSet(f)
		if err != nil {
			return nil, err
		}
		n.set = set
	}
	return n, nil
}

// LayerMetas describes layers for a file header.
func LayerMetas(layers []*Layer) []serialization.LayerMeta {
	out := make([]serialization.LayerMeta, len(layers))
	for i, l := range layers {
		out[i] = serialization.LayerMeta{Kind: l.kind.String(), Size: l.Size()}
	}
	return out
}

// CheckLayerShapes verifies the declared layer sizes against the stored
// edge tensors, and the bias tensors when withBias is set, before anything
// is allocated from the header. Stored shapes are bounded by the data
// section, so sizes that pass are backed by real data.
func CheckLayerShapes(f *serialization.File, layers []serialization.LayerMeta, withBias bool) error {
	if len(layers) < 2 {
		return fmt.Errorf("%d layers stored, need at least 2", len(layers))
	}
	for l, meta := range layers {
		if meta.Size < 1 {
			return fmt.Errorf("layer %d has size %d", l, meta.Size)
		}
	}
	for b := 0; b+1 < len(layers); b++ {
		from, to := layers[b].Size, layers[b+1].Size
		if err := f.CheckShape(serialization.EdgeWeightName(b), to, from); err != nil {
			return err
		}
		if err := f.CheckShape(serialization.EdgeUpdateName(b), to, from); err != nil {
			return err
		}
		if withBias {
			if err := f.CheckShape(serialization.BiasName(b+1), to); err != nil {
				return err
			}
		}
	}
	return nil
}

// LayerFromMeta builds a detached layer from its header descriptor.
func LayerFromMeta(meta serialization.LayerMeta) (*Layer, error) {
	kind, err := ParseLayerKind(meta.Kind)
	if err != nil {
		return nil, err
	}
	return NewLayer(meta.Size, kind)
}

// ConnectionTensors returns the weight and update tensors of boundary b.
func ConnectionTensors(b int, c *Connection) []serialization.Tensor {
	r, k := c.weights.Dims()
	return []serialization.Tensor{
		{Name: serialization.EdgeWeightName(b), Shape: []int{r, k}, Data: c.weights.RawMatrix().Data},
		{Name: serialization.EdgeUpdateName(b), Shape: []int{r, k}, Data: c.updates.RawMatrix().Data},
	}
}

// LoadConnection overwrites the weights and updates of boundary b with the
// stored tensors, which must match the connection's shape.
func LoadConnection(f *serialization.File, b int, c *Connection) error {
	r, k := c.weights.Dims()
	w, err := f.Tensor(serialization.EdgeWeightName(b), r, k)
	if err != nil {
		return err
	}
	u, err := f.Tensor(serialization.EdgeUpdateName(b), r, k)
	if err != nil {
		return err
	}
	if !allFinite(w) || !allFinite(u) {
		return fmt.Errorf("boundary %d holds non-finite weights", b)
	}
	copy(c.weights.RawMatrix().Data, w)
	copy(c.updates.RawMatrix().Data, u)
	return nil
}

// TrainingSetTensors flattens set into [pairs, size] tensors in pair order.
// Every pair must have the lengths of the first one.
func TrainingSetTensors(set *data.TrainingSet) []serialization.Tensor {
	pairs, in, out := set.Len(), set.InputSize(), set.OutputSize()
	inputs := make([]float64, 0, pairs*in)
	outputs := make([]float64, 0, pairs*out)
	for p := 0; p < pairs; p++ {
		inputs = append(inputs, set.Input(p)...)
		outputs = append(outputs, set.Output(p)...)
	}
	return []serialization.Tensor{
		{Name: serialization.TensorTrainingInput, Shape: []int{pairs, in}, Data: inputs},
		{Name: serialization.TensorTrainingOutput, Shape: []int{pairs, out}, Data: outputs},
	}
}

// LoadTrainingSet rebuilds an embedded training set. A file without the
// output tensor yields an input-only set.
func LoadTrainingSet(f *serialization.File) (*data.TrainingSet, error) {
	inShape, ok := f.Shape(serialization.TensorTrainingInput)
	if !ok || len(inShape) != 2 {
		return nil, fmt.Errorf("training set flag set but %s is missing or not 2-D", serialization.TensorTrainingInput)
	}
	inputs, err := f.Tensor(serialization.TensorTrainingInput, inShape...)
	if err != nil {
		return nil, err
	}
	set := data.NewTrainingSet()
	in := inShape[1]

	outShape, ok := f.Shape(serialization.TensorTrainingOutput)
	if !ok {
		for p := 0; p < inShape[0]; p++ {
			set.AddInput(inputs[p*in : (p+1)*in])
		}
		return set, nil
	}
	if len(outShape) != 2 || outShape[0] != inShape[0] {
		return nil, fmt.Errorf("%s disagrees with %s", serialization.TensorTrainingOutput, serialization.TensorTrainingInput)
	}
	outputs, err := f.Tensor(serialization.TensorTrainingOutput, outShape...)
	if err != nil {
		return nil, err
	}
	out := outShape[1]
	for p := 0; p < inShape[0]; p++ {
		set.Add(inputs[p*in:(p+1)*in], outputs[p*out:(p+1)*out])
	}
	return set, nil
}
