package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteFile writes a .annet file at path. The file is encoded next to the
// target and renamed over it, so a failed write leaves any previous file
// at path untouched.
func WriteFile(path string, header Header, tensors []Tensor) (err error) {
	file, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(file.Name())
		}
	}()

	if err := Encode(file, header, tensors); err != nil {
		return err
	}
	//nolint:gosec // G302: Model files are meant to be shared
	if err := file.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(file.Name(), path); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// Encode writes header and tensors in .annet format. The tensor table,
// format version, creator and creation time of header are filled in here.
func Encode(w io.Writer, header Header, tensors []Tensor) error {
	header.FormatVersion = FormatVersion
	header.Creator = creatorSignature
	header.CreatedAt = time.Now().UTC()
	header.Tensors = make([]TensorMeta, 0, len(tensors))

	var dataSize int64
	flags := uint32(0)
	for _, t := range tensors {
		n, ok := numElements(t.Shape)
		if !ok || n != int64(len(t.Data)) {
			return fmt.Errorf("tensor %s: shape %v does not match %d elements", t.Name, t.Shape, len(t.Data))
		}
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		size := n * bytesPerElement
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   t.Name,
			DType:  DTypeFloat64,
			Shape:  append([]int(nil), t.Shape...),
			Offset: dataSize,
			Size:   size,
		})
		dataSize += size
		if strings.HasPrefix(t.Name, "trainingset.") {
			flags |= FlagHasTrainingSet
		}
	}
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}

	data := make([]byte, 0, dataSize)
	for _, t := range tensors {
		for _, v := range t.Data {
			data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
		}
	}
	checksum := ComputeChecksum(data)

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	headerSize := uint64(len(headerJSON))

	fixedHeader := make([]byte, FixedHeaderSize)
	copy(fixedHeader[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixedHeader[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)
	binary.LittleEndian.PutUint64(fixedHeader[16:24], headerSize)
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(len(data)))
	copy(fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixedHeader); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}
	if padding := paddingAfter(headerSize); padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// paddingAfter returns the zero bytes between the JSON header and the data.
func paddingAfter(headerSize uint64) int64 {
	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize, conversion is safe
	currentPos := int64(FixedHeaderSize) + int64(headerSize)
	return (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
}
