package serialization

import (
	"fmt"

	"github.com/born-ml/aot/internal/tensor"
)

// Format constants.
const (
	MagicBytes        = "BORN"
	FormatVersion     = 1    // v1: Basic format without checksum
	FormatVersionV2   = 2    // v2: With SHA-256 checksum
	HeaderAlignment   = 64   // Align tensor data to 64 bytes
	FixedHeaderSizeV1 = 20   // magic + version + flags + header size
	FixedHeaderSizeV2 = 64   // v2 fixed header size (0x40 bytes)
	ChecksumSize      = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffsetV2  = 0x20 // Checksum offset in v2 fixed header
)

// Flags for the .born format.
const (
	FlagHasMetadata uint32 = 1 << 2 // bit 2: custom metadata included
)

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	BornVersion   string            `json:"born_version"`
	ModelType     string            `json:"model_type"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata"`
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "layer.0.weight")
	DType  string `json:"dtype"`  // Data type (e.g., "float32", "float64")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Offset in the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// Tensor is a named, typed byte payload read from or written to a container.
type Tensor struct {
	Name  string
	DType tensor.DataType
	Shape tensor.Shape
	Data  []byte
}

// SizeInBytes is the payload size implied by dtype and shape.
func (t Tensor) SizeInBytes() int {
	return t.Shape.NumElements() * t.DType.Size()
}

func (t Tensor) check() error {
	if err := ValidateTensorName(t.Name); err != nil {
		return err
	}
	if err := t.Shape.Validate(); err != nil {
		return fmt.Errorf("invalid shape for tensor %s: %w", t.Name, err)
	}
	if len(t.Data) != t.SizeInBytes() {
		return fmt.Errorf("tensor %s: %d data bytes, shape %s of %s needs %d",
			t.Name, len(t.Data), t.Shape, t.DType, t.SizeInBytes())
	}
	return nil
}

// alignUp rounds pos up to HeaderAlignment.
func alignUp(pos int64) int64 {
	return pos + (HeaderAlignment-(pos%HeaderAlignment))%HeaderAlignment
}
