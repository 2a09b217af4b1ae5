package serialization

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		wantErr  error
	}{
		{
			name: "no overlap",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 0, Size: 100},
				{Name: "tensor2", Offset: 100, Size: 200},
				{Name: "tensor3", Offset: 300, Size: 150},
			},
			dataSize: 500,
		},
		{
			name: "unsorted input",
			tensors: []TensorMeta{
				{Name: "tensor2", Offset: 64, Size: 64},
				{Name: "tensor1", Offset: 0, Size: 64},
			},
			dataSize: 128,
		},
		{
			name: "partial overlap at boundary",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 0, Size: 100},
				{Name: "tensor2", Offset: 99, Size: 100},
			},
			dataSize: 200,
			wantErr:  ErrOffsetOverlap,
		},
		{
			name: "tensor extends beyond data",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 0, Size: 100},
				{Name: "tensor2", Offset: 100, Size: 200},
			},
			dataSize: 250,
			wantErr:  ErrOutOfBounds,
		},
		{
			name:     "negative size",
			tensors:  []TensorMeta{{Name: "tensor1", Offset: 10, Size: -5}},
			dataSize: 100,
			wantErr:  ErrNegativeOffset,
		},
		{
			name:     "tensor fits exactly",
			tensors:  []TensorMeta{{Name: "tensor1", Offset: 0, Size: 500}},
			dataSize: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateTensorBounds_AllowsSharing(t *testing.T) {
	shared := []TensorMeta{
		{Name: "a", Offset: 0, Size: 64},
		{Name: "b", Offset: 0, Size: 32},
	}
	assert.NoError(t, ValidateTensorBounds(shared, 64))
	assert.ErrorIs(t, ValidateTensorOffsets(shared, 64), ErrOffsetOverlap)
	assert.ErrorIs(t, ValidateTensorBounds(shared, 48), ErrOutOfBounds)
}

func TestValidateTensorOffsets_TooManyTensors(t *testing.T) {
	tensors := make([]TensorMeta, MaxTensorCount+1)
	assert.ErrorIs(t, ValidateTensorOffsets(tensors, 0), ErrTooManyTensors)
}

func TestValidateTensorName(t *testing.T) {
	for _, name := range []string{"layer.0.weight", "conv1_bias", "x"} {
		assert.NoError(t, ValidateTensorName(name), name)
	}
	for _, name := range []string{"../malicious", "a/b", `a\b`, "nul\x00", strings.Repeat("a", MaxTensorNameLen+1)} {
		assert.Error(t, ValidateTensorName(name), name)
	}
}

func TestValidateHeader_Levels(t *testing.T) {
	header := Header{
		Tensors: []TensorMeta{
			{Name: "tensor1", Offset: 0, Size: 100},
			{Name: "tensor2", Offset: 50, Size: 100},
		},
	}

	assert.NoError(t, ValidateHeader(&header, 200, ValidationNormal))
	assert.Error(t, ValidateHeader(&header, 200, ValidationStrict))

	bad := Header{Tensors: []TensorMeta{{Name: "../../../etc/passwd", Offset: -1000, Size: -1000}}}
	assert.NoError(t, ValidateHeader(&bad, 100, ValidationNone))
	assert.Error(t, ValidateHeader(&bad, 100, ValidationNormal))
}

func TestValidationError_Messages(t *testing.T) {
	assert.Equal(t,
		`out_of_bounds: tensor "layer1": offset 100 + size 200 > data_size 250`,
		(&ValidationError{Type: "out_of_bounds", Tensor: "layer1", Details: "offset 100 + size 200 > data_size 250"}).Error())
	assert.Equal(t,
		`offset_overlap: tensors "t1" and "t2": regions [0-100] and [50-150] overlap`,
		(&ValidationError{Type: "offset_overlap", Tensor: "t1", Tensor2: "t2", Details: "regions [0-100] and [50-150] overlap"}).Error())
	assert.Equal(t, "too_many_tensors: got 100001, max 100000",
		(&ValidationError{Type: "too_many_tensors", Details: "got 100001, max 100000"}).Error())
}

// FuzzValidateTensorOffsets ensures offset validation never panics.
func FuzzValidateTensorOffsets(f *testing.F) {
	f.Add(int64(0), int64(100), int64(200))
	f.Add(int64(-100), int64(50), int64(1000))
	f.Add(int64(100), int64(-50), int64(1000))

	f.Fuzz(func(_ *testing.T, offset, size, dataSize int64) {
		_ = ValidateTensorOffsets([]TensorMeta{{Name: "fuzz_tensor", Offset: offset, Size: size}}, dataSize)
	})
}
