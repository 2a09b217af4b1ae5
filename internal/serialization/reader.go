package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/born-ml/aot/internal/tensor"
)

// BornReader reads tensors from a .born file.
type BornReader struct {
	file       *os.File
	header     Header
	flags      uint32
	version    uint32
	dataOffset int64 // Offset where tensor data starts
	dataSize   int64 // Size of the data section
	opts       ReaderOptions
	closed     bool
}

// ReaderOptions configures the behavior of BornReader.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// NewBornReader opens a .born file with strict validation.
func NewBornReader(path string) (*BornReader, error) {
	return NewBornReaderWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// NewBornReaderWithOptions opens a .born file with custom options.
func NewBornReaderWithOptions(path string, opts ReaderOptions) (*BornReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r := &BornReader{file: file, opts: opts}
	if err := r.parseHeader(); err != nil {
		_ = file.Close() // Best effort close on error
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if r.version == FormatVersion {
		r.dataSize = info.Size() - r.dataOffset
	}

	if err := ValidateHeader(&r.header, r.dataSize, opts.ValidationLevel); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return r, nil
}

func (r *BornReader) parseHeader() error {
	fixed := make([]byte, FixedHeaderSizeV1)
	if _, err := io.ReadFull(r.file, fixed); err != nil {
		return fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return ErrInvalidMagic
	}
	r.version = binary.LittleEndian.Uint32(fixed[4:8])
	r.flags = binary.LittleEndian.Uint32(fixed[8:12])

	var headerSize uint64
	var checksum [32]byte
	switch r.version {
	case FormatVersion:
		headerSize = binary.LittleEndian.Uint64(fixed[12:20])
	case FormatVersionV2:
		rest := make([]byte, FixedHeaderSizeV2-FixedHeaderSizeV1)
		if _, err := io.ReadFull(r.file, rest); err != nil {
			return fmt.Errorf("failed to read fixed header: %w", err)
		}
		full := append(fixed, rest...)
		headerSize = binary.LittleEndian.Uint64(full[16:24])
		//nolint:gosec // G115: bounded by MaxHeaderSize check below and file size
		r.dataSize = int64(binary.LittleEndian.Uint64(full[24:32]))
		copy(checksum[:], full[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize])
	default:
		return fmt.Errorf("%w: got %d, expected %d or %d", ErrUnsupportedVersion, r.version, FormatVersion, FormatVersionV2)
	}

	if headerSize > MaxHeaderSize {
		return ErrHeaderTooLarge
	}
	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r.file, headerBytes); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	fixedSize := int64(FixedHeaderSizeV1)
	if r.version == FormatVersionV2 {
		fixedSize = FixedHeaderSizeV2
	}
	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	r.dataOffset = alignUp(fixedSize + int64(headerSize))

	if r.version == FormatVersionV2 && !r.opts.SkipChecksumValidation {
		if _, err := r.file.Seek(r.dataOffset, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek to tensor data: %w", err)
		}
		computed, err := ComputeChecksumReader(io.LimitReader(r.file, r.dataSize))
		if err != nil {
			return fmt.Errorf("failed to read tensor data for checksum: %w", err)
		}
		if err := ValidateChecksum(computed, checksum); err != nil {
			return err
		}
	}
	return nil
}

// Header returns the file header.
func (r *BornReader) Header() Header {
	return r.header
}

// Version returns the format version of the file.
func (r *BornReader) Version() uint32 {
	return r.version
}

// TensorNames returns the tensor names in file order.
func (r *BornReader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, meta := range r.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// Tensor reads a single tensor.
func (r *BornReader) Tensor(name string) (Tensor, error) {
	if r.closed {
		return Tensor{}, fmt.Errorf("reader is closed")
	}
	for _, meta := range r.header.Tensors {
		if meta.Name == name {
			return r.load(meta)
		}
	}
	return Tensor{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
}

// Tensors reads every tensor in file order.
func (r *BornReader) Tensors() ([]Tensor, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}
	out := make([]Tensor, 0, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		t, err := r.load(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to load tensor %s: %w", meta.Name, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *BornReader) load(meta TensorMeta) (Tensor, error) {
	dtype, err := tensor.ParseDataType(meta.DType)
	if err != nil {
		return Tensor{}, fmt.Errorf("%w: %s", ErrUnsupportedDType, meta.DType)
	}
	if _, err := r.file.Seek(r.dataOffset+meta.Offset, io.SeekStart); err != nil {
		return Tensor{}, fmt.Errorf("failed to seek to tensor data: %w", err)
	}
	data := make([]byte, meta.Size)
	if _, err := io.ReadFull(r.file, data); err != nil {
		return Tensor{}, fmt.Errorf("failed to read tensor data: %w", err)
	}
	t := Tensor{Name: meta.Name, DType: dtype, Shape: tensor.Shape(meta.Shape), Data: data}
	if err := t.check(); err != nil {
		return Tensor{}, err
	}
	return t, nil
}

// Close closes the reader and the underlying file.
func (r *BornReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// Format identifies a weights container.
type Format string

// Supported formats.
const (
	FormatUnknown     Format = "unknown"
	FormatBorn        Format = "born"
	FormatSafeTensors Format = "safetensors"
)

// DetectFormat identifies a container by extension, falling back to the
// magic bytes.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".born":
		return FormatBorn, nil
	case ".safetensors":
		return FormatSafeTensors, nil
	}

	//nolint:gosec // G304: File path comes from user input
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return FormatUnknown, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if bytes.Equal(magic, []byte(MagicBytes)) {
		return FormatBorn, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// ReadTensors reads every tensor of a .born or .safetensors file in file order.
func ReadTensors(path string) ([]Tensor, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatBorn:
		r, err := NewBornReader(path)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = r.Close()
		}()
		return r.Tensors()
	case FormatSafeTensors:
		return ReadSafeTensors(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}
