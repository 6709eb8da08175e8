package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
)

// File is a decoded and validated .annet file.
type File struct {
	Header Header
	Flags  uint32
	data   []byte
	index  map[string]TensorMeta
}

// ReadFile reads and validates the .annet file at path.
func ReadFile(path string) (*File, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	f, err := Decode(file)
	if err != nil {
		return nil, err
	}

	var extra [1]byte
	if n, _ := file.Read(extra[:]); n > 0 {
		return nil, ErrTrailingData
	}
	return f, nil
}

// Decode reads one .annet file from r and validates its checksum and
// tensor table.
func Decode(r io.Reader) (*File, error) {
	fixedHeader := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixedHeader); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", truncated(err))
	}
	if string(fixedHeader[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if version := binary.LittleEndian.Uint32(fixedHeader[4:8]); version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	f := &File{Flags: binary.LittleEndian.Uint32(fixedHeader[8:12])}
	headerSize := binary.LittleEndian.Uint64(fixedHeader[16:24])
	dataSize := binary.LittleEndian.Uint64(fixedHeader[24:32])
	var stored [32]byte
	copy(stored[:], fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	if dataSize > MaxDataSize {
		return nil, &ValidationError{Type: "data_too_large", Details: fmt.Sprintf("data section of %d bytes", dataSize)}
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header JSON: %w", truncated(err))
	}
	if err := json.Unmarshal(headerBytes, &f.Header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if _, err := io.CopyN(io.Discard, r, paddingAfter(headerSize)); err != nil {
		return nil, fmt.Errorf("failed to read padding: %w", truncated(err))
	}

	// Grow the buffer as data arrives so a corrupt size cannot force a huge allocation.
	var buf bytes.Buffer
	//nolint:gosec // G115: dataSize is bounded by MaxDataSize
	if _, err := io.CopyN(&buf, r, int64(dataSize)); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", truncated(err))
	}
	f.data = buf.Bytes()

	if err := ValidateChecksum(ComputeChecksum(f.data), stored); err != nil {
		return nil, err
	}
	if err := ValidateHeader(&f.Header, int64(len(f.data))); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	f.index = make(map[string]TensorMeta, len(f.Header.Tensors))
	for _, meta := range f.Header.Tensors {
		f.index[meta.Name] = meta
	}
	return f, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return err
}

// HasTrainingSet reports whether a training set is embedded.
func (f *File) HasTrainingSet() bool {
	return f.Flags&FlagHasTrainingSet != 0
}

// TensorNames returns the tensor names in file order.
func (f *File) TensorNames() []string {
	names := make([]string, len(f.Header.Tensors))
	for i, meta := range f.Header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// CheckShape reports whether the named tensor is stored with exactly the
// given shape, without decoding it.
func (f *File) CheckShape(name string, shape ...int) error {
	meta, ok := f.index[name]
	if !ok {
		return &ValidationError{Type: "missing_tensor", Tensor: name, Details: "not present in file"}
	}
	if !slices.Equal(meta.Shape, shape) {
		return &ValidationError{
			Type:    "shape_mismatch",
			Tensor:  name,
			Details: fmt.Sprintf("stored shape %v, expected %v", meta.Shape, shape),
		}
	}
	return nil
}

// Tensor decodes the named tensor, which must have exactly the given shape.
func (f *File) Tensor(name string, shape ...int) ([]float64, error) {
	if err := f.CheckShape(name, shape...); err != nil {
		return nil, err
	}

	meta := f.index[name]
	raw := f.data[meta.Offset : meta.Offset+meta.Size]
	out := make([]float64, len(raw)/bytesPerElement)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*bytesPerElement:]))
	}
	return out, nil
}

// Shape returns the stored shape of the named tensor.
func (f *File) Shape(name string) ([]int, bool) {
	meta, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(meta.Shape), true
}
