package serialization

import (
	"fmt"
	"time"
)

// Format constants.
const (
	MagicBytes       = "ANNT"
	FormatVersion    = 1
	HeaderAlignment  = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSize  = 64   // 0x40 bytes
	ChecksumSize     = 32   // SHA-256
	ChecksumOffset   = 0x20 // Checksum position in the fixed header
	DTypeFloat64     = "float64"
	bytesPerElement  = 8
	creatorSignature = "annet"
)

// Flags stored in the fixed header.
const (
	FlagHasMetadata    uint32 = 1 << 0 // bit 0: custom metadata included
	FlagHasTrainingSet uint32 = 1 << 1 // bit 1: training set embedded
)

// Model types.
const (
	ModelBPNet = "bpnet"
	ModelSOM   = "som"
)

// Names of the embedded training set tensors, [pairs, size] each.
const (
	TensorTrainingInput  = "trainingset.input"
	TensorTrainingOutput = "trainingset.output"
)

// Names of the SOM state tensors: grid positions [N, 2] and conscience
// values [N].
const (
	TensorSOMPositions  = "som.positions"
	TensorSOMConscience = "som.conscience"
)

// Header represents the JSON header of a .annet file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	Creator       string            `json:"creator"`
	ModelType     string            `json:"model_type"` // ModelBPNet or ModelSOM
	CreatedAt     time.Time         `json:"created_at"`
	Hyper         Hyperparameters   `json:"hyperparameters"`
	Layers        []LayerMeta       `json:"layers"` // In chain order
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Hyperparameters is the union of the settings of every network kind.
// Fields a network kind does not use are left zero.
type Hyperparameters struct {
	LearningRate float64 `json:"learning_rate"`
	Momentum     float64 `json:"momentum,omitempty"`
	WeightDecay  float64 `json:"weight_decay,omitempty"`
	Transfer     string  `json:"transfer,omitempty"`
	InitRange    float64 `json:"init_range,omitempty"`
	Seed         int64   `json:"seed,omitempty"`

	Neighborhood   string  `json:"neighborhood,omitempty"`
	Sigma          float64 `json:"sigma,omitempty"`
	ConscienceRate float64 `json:"conscience_rate,omitempty"`
	ConscienceBias float64 `json:"conscience_bias,omitempty"`
	GridWidth      int     `json:"grid_width,omitempty"`
	GridHeight     int     `json:"grid_height,omitempty"`
}

// LayerMeta describes one layer.
type LayerMeta struct {
	Kind string `json:"kind"` // "input", "hidden" or "output"
	Size int    `json:"size"`
}

// TensorMeta describes a tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "edges.0.weight")
	DType  string `json:"dtype"`  // Always "float64"
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// Tensor is a named float64 array in row-major order.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float64
}

// EdgeWeightName names the weight matrix between layers b and b+1.
func EdgeWeightName(b int) string { return fmt.Sprintf("edges.%d.weight", b) }

// EdgeUpdateName names the previous update matrix between layers b and b+1.
func EdgeUpdateName(b int) string { return fmt.Sprintf("edges.%d.update", b) }

// BiasName names the bias vector of layer l.
func BiasName(l int) string { return fmt.Sprintf("layer.%d.bias", l) }

func numElements(shape []int) (int64, bool) {
	n := int64(1)
	for _, d := range shape {
		if d < 0 {
			return 0, false
		}
		n *= int64(d)
		if n > 1<<40 {
			return 0, false
		}
	}
	return n, true
}
