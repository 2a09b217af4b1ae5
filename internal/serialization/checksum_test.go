package serialization

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeChecksum(t *testing.T) {
	weights := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	assert.Equal(t, ComputeChecksum(weights), ComputeChecksum(weights))
	assert.NotEqual(t, ComputeChecksum(weights), ComputeChecksum([]byte{0xDE, 0xAD, 0xBE, 0xEE}))

	fromReader, err := ComputeChecksumReader(bytes.NewReader(weights))
	require.NoError(t, err)
	assert.Equal(t, ComputeChecksum(weights), fromReader)
}

func TestValidateChecksum(t *testing.T) {
	sum := ComputeChecksum([]byte("net.weights.bin"))
	require.NoError(t, ValidateChecksum(sum, sum))

	var other [32]byte
	assert.ErrorIs(t, ValidateChecksum(sum, other), ErrChecksumMismatch)
}

func TestChecksumFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "net.weights.bin")
	data := make([]byte, 64)
	copy(data, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.NoError(t, os.WriteFile(path, data, 0o600))

	sum, err := ChecksumFile(path)
	require.NoError(t, err)
	assert.Equal(t, ComputeChecksum(data), sum)

	_, err = ChecksumFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
