package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const bornVersion = "0.5.4" // Born format producer version

// WriteBorn writes tensors to path in .born v2 format, preserving order.
func WriteBorn(path string, tensors []Tensor, metadata map[string]string) error {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteBornTo(file, tensors, metadata); err != nil {
		_ = file.Close() // Best effort close on error
		return err
	}
	return file.Close()
}

// WriteBornTo writes tensors in .born v2 format to an io.Writer.
//
// Layout:
//
//	0x00-0x03  magic "BORN"
//	0x04-0x07  version (2)
//	0x08-0x0B  flags
//	0x0C-0x0F  reserved
//	0x10-0x17  header size
//	0x18-0x1F  data size
//	0x20-0x3F  SHA-256 of the tensor data
func WriteBornTo(w io.Writer, tensors []Tensor, metadata map[string]string) error {
	header := Header{
		FormatVersion: FormatVersionV2,
		BornVersion:   bornVersion,
		ModelType:     "bundle-constants",
		Tensors:       make([]TensorMeta, 0, len(tensors)),
		Metadata:      metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var data []byte
	for _, t := range tensors {
		if err := t.check(); err != nil {
			return err
		}
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   t.Name,
			DType:  t.DType.String(),
			Shape:  []int(t.Shape.Clone()),
			Offset: int64(len(data)),
			Size:   int64(len(t.Data)),
		})
		data = append(data, t.Data...)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	fixed := make([]byte, FixedHeaderSizeV2)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersionV2))
	flags := uint32(0)
	if len(metadata) > 0 {
		flags |= FlagHasMetadata
	}
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	checksum := ComputeChecksum(data)
	copy(fixed[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize], checksum[:])

	if _, err := w.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	pos := int64(FixedHeaderSizeV2) + int64(len(headerJSON))
	if padding := alignUp(pos) - pos; padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}
