package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/aot/internal/tensor"
)

// SafeTensorInfo describes a tensor in a SafeTensors header.
type SafeTensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end)
}

var safeTensorsDTypes = map[tensor.DataType]string{
	tensor.Float32:  "F32",
	tensor.Float64:  "F64",
	tensor.Float16:  "F16",
	tensor.BFloat16: "BF16",
	tensor.Int8:     "I8",
	tensor.Int32:    "I32",
	tensor.Int64:    "I64",
	tensor.Uint8:    "U8",
	tensor.Bool:     "BOOL",
}

func dtypeFromSafeTensors(s string) (tensor.DataType, error) {
	for dt, name := range safeTensorsDTypes {
		if name == s {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedDType, s)
}

// ReadSafeTensors reads every tensor of a SafeTensors file ordered by data
// offset, i.e. in the order their bytes appear in the file.
func ReadSafeTensors(path string) ([]Tensor, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	type entry struct {
		name string
		info SafeTensorInfo
	}
	entries := make([]entry, 0, len(raw))
	metas := make([]TensorMeta, 0, len(raw))
	for name, value := range raw {
		if name == "__metadata__" {
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tensor %s: %w", name, err)
		}
		entries = append(entries, entry{name: name, info: info})
		metas = append(metas, TensorMeta{
			Name:   name,
			Offset: info.DataOffsets[0],
			Size:   info.DataOffsets[1] - info.DataOffsets[0],
		})
	}

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	dataOffset := int64(8 + headerSize)
	if err := ValidateTensorOffsets(metas, info.Size()-dataOffset); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].info.DataOffsets[0] != entries[j].info.DataOffsets[0] {
			return entries[i].info.DataOffsets[0] < entries[j].info.DataOffsets[0]
		}
		return entries[i].name < entries[j].name
	})

	out := make([]Tensor, 0, len(entries))
	for _, e := range entries {
		dtype, err := dtypeFromSafeTensors(e.info.DType)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", e.name, err)
		}
		shape := make(tensor.Shape, len(e.info.Shape))
		for i, d := range e.info.Shape {
			shape[i] = int(d)
		}
		data := make([]byte, e.info.DataOffsets[1]-e.info.DataOffsets[0])
		if _, err := file.Seek(dataOffset+e.info.DataOffsets[0], io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to seek to tensor data: %w", err)
		}
		if _, err := io.ReadFull(file, data); err != nil {
			return nil, fmt.Errorf("failed to read tensor %s: %w", e.name, err)
		}
		t := Tensor{Name: e.name, DType: dtype, Shape: shape, Data: data}
		if err := t.check(); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// WriteSafeTensors writes tensors to a SafeTensors file.
//
// Tensors are written in alphabetical order by name (SafeTensors requirement).
func WriteSafeTensors(path string, tensors []Tensor, metadata map[string]string) error {
	sorted := make([]Tensor, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	header := make(map[string]interface{})
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}

	var currentOffset int64
	for _, t := range sorted {
		if err := t.check(); err != nil {
			return err
		}
		name, ok := safeTensorsDTypes[t.DType]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedDType, t.DType)
		}
		shape := make([]int64, len(t.Shape))
		for i, dim := range t.Shape {
			shape[i] = int64(dim)
		}
		size := int64(len(t.Data))
		header[t.Name] = SafeTensorInfo{
			DType:       name,
			Shape:       shape,
			DataOffsets: [2]int64{currentOffset, currentOffset + size},
		}
		currentOffset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		_ = file.Close() // Best effort close
	}()

	if err := binary.Write(file, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, t := range sorted {
		if _, err := file.Write(t.Data); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", t.Name, err)
		}
	}
	return file.Close()
}
