package bundle

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_DetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(t *testing.T, res *Result)
	}{
		{
			name: "weights payload",
			tamper: func(t *testing.T, res *Result) {
				require.NoError(t, os.WriteFile(res.WeightsPath, []byte{0, 0, 0, 0}, 0o600))
			},
		},
		{
			name: "weights length",
			tamper: func(t *testing.T, res *Result) {
				require.NoError(t, os.WriteFile(res.WeightsPath, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0}, 0o600))
			},
		},
		{
			name: "text weights",
			tamper: func(t *testing.T, res *Result) {
				require.NoError(t, os.WriteFile(res.IncludePath, []byte(" 0XDE, 0XAD, 0XBE, 0X00,\n"), 0o600))
			},
		},
		{
			name: "header sizes",
			tamper: func(t *testing.T, res *Result) {
				require.NoError(t, os.WriteFile(res.HeaderPath, []byte("#define NET_CONSTANT_MEM_SIZE     8\n"), 0o600))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := saveScenario(t, Options{API: Static})
			require.NoError(t, Verify(res))
			tt.tamper(t, res)
			assert.ErrorIs(t, Verify(res), ErrInvariant)
		})
	}
}

func TestVerify_MissingFiles(t *testing.T) {
	res := saveScenario(t, Options{API: Dynamic})
	require.NoError(t, os.Remove(res.HeaderPath))
	assert.ErrorIs(t, Verify(res), ErrOpenFile)
	assert.ErrorIs(t, Verify(&Result{}), ErrInvariant)
}
