package serialization

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/aot/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTensors() []Tensor {
	return []Tensor{
		{Name: "fc.weight", DType: tensor.Float32, Shape: tensor.Shape{2, 2}, Data: []byte{
			0, 0, 128, 63, 0, 0, 0, 64, 0, 0, 64, 64, 0, 0, 128, 64,
		}},
		{Name: "fc.bias", DType: tensor.Float32, Shape: tensor.Shape{2}, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{Name: "mask", DType: tensor.Uint8, Shape: tensor.Shape{3}, Data: []byte{1, 0, 1}},
	}
}

func TestBorn_RoundTripPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	in := sampleTensors()
	require.NoError(t, WriteBorn(path, in, map[string]string{"origin": "test"}))

	r, err := NewBornReader(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	assert.Equal(t, uint32(FormatVersionV2), r.Version())
	assert.Equal(t, []string{"fc.weight", "fc.bias", "mask"}, r.TensorNames())
	assert.Equal(t, "test", r.Header().Metadata["origin"])

	out, err := r.Tensors()
	require.NoError(t, err)
	assert.Equal(t, in, out)

	bias, err := r.Tensor("fc.bias")
	require.NoError(t, err)
	assert.Equal(t, in[1], bias)

	_, err = r.Tensor("missing")
	assert.ErrorIs(t, err, ErrTensorNotFound)
}

func TestBorn_CorruptionDetected(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBornTo(&buf, sampleTensors(), nil))
	data := buf.Bytes()
	data[len(data)-1] ^= 0xFF

	path := filepath.Join(t.TempDir(), "corrupt.born")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err := NewBornReader(path)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	r, err := NewBornReaderWithOptions(path, ReaderOptions{SkipChecksumValidation: true, ValidationLevel: ValidationStrict})
	require.NoError(t, err)
	_ = r.Close()
}

func TestBorn_InvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.born")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{'X'}, 64), 0o600))
	_, err := NewBornReader(path)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestBorn_RejectsMismatchedPayload(t *testing.T) {
	bad := []Tensor{{Name: "w", DType: tensor.Float32, Shape: tensor.Shape{2}, Data: []byte{1, 2, 3}}}
	assert.Error(t, WriteBornTo(&bytes.Buffer{}, bad, nil))
}

func TestSafeTensors_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, WriteSafeTensors(path, sampleTensors(), map[string]string{"format": "pt"}))

	out, err := ReadSafeTensors(path)
	require.NoError(t, err)

	// The writer stores tensors alphabetically, the reader returns file order.
	require.Len(t, out, 3)
	assert.Equal(t, []string{"fc.bias", "fc.weight", "mask"}, []string{out[0].Name, out[1].Name, out[2].Name})
	assert.Equal(t, sampleTensors()[1], out[0])
	assert.Equal(t, sampleTensors()[0], out[1])
}

func TestReadTensors_DetectsFormat(t *testing.T) {
	dir := t.TempDir()
	born := filepath.Join(dir, "weights.bin")
	require.NoError(t, WriteBorn(born, sampleTensors(), nil))

	format, err := DetectFormat(born)
	require.NoError(t, err)
	assert.Equal(t, FormatBorn, format)

	out, err := ReadTensors(born)
	require.NoError(t, err)
	assert.Equal(t, sampleTensors(), out)

	unknown := filepath.Join(dir, "weights.dat")
	require.NoError(t, os.WriteFile(unknown, []byte("nope"), 0o600))
	_, err = ReadTensors(unknown)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
