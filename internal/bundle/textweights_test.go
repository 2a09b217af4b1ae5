package bundle

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, data []byte) string {
	t.Helper()
	var out strings.Builder
	require.NoError(t, EncodeText(bytes.NewReader(data), &out))
	return out.String()
}

func TestEncodeText_Format(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, "\n"},
		{"one byte", []byte{0x0A}, " 0X0A,\n"},
		{
			name: "exactly one line",
			data: bytes.Repeat([]byte{0xFF}, 20),
			want: strings.Repeat(" 0XFF,", 20) + "\n\n",
		},
		{
			name: "wraps after twenty bytes",
			data: bytesOf(21, 0),
			want: " 0X00, 0X01, 0X02, 0X03, 0X04, 0X05, 0X06, 0X07, 0X08, 0X09," +
				" 0X0A, 0X0B, 0X0C, 0X0D, 0X0E, 0X0F, 0X10, 0X11, 0X12, 0X13,\n" +
				" 0X14,\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encode(t, tt.data))
		})
	}
}

func TestDecodeText_RoundTrip(t *testing.T) {
	var data []byte
	for i := 0; i < 3; i++ {
		data = append(data, bytesOf(256, 0)...)
	}
	decoded, err := DecodeText(strings.NewReader(encode(t, data)))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	decoded, err = DecodeText(strings.NewReader(encode(t, nil)))
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeText_Invalid(t *testing.T) {
	for _, in := range []string{" 0XZZ,", " 12,", " 0X100,"} {
		_, err := DecodeText(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestSerializeBinaryToText_MissingInput(t *testing.T) {
	dir := t.TempDir()
	err := serializeBinaryToText(filepath.Join(dir, "missing.weights"), filepath.Join(dir, "net.inc"))
	assert.ErrorIs(t, err, ErrOpenFile)
}
