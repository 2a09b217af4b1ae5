package bundle

import (
	"strings"
	"testing"

	"github.com/born-ml/aot/internal/ir"
	"github.com/born-ml/aot/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioHeader(t *testing.T, api APIMode) string {
	t.Helper()
	l, err := reconcileLayout(scenarioFunction(t), linear(t, 1))
	require.NoError(t, err)
	set, err := api.artifacts()
	require.NoError(t, err)
	return renderHeader(&headerData{
		bundleName:   "net",
		entryName:    "net",
		totals:       l.Totals(),
		placeholders: l.Placeholders(),
	}, set)
}

func TestRenderHeader_ModelInfo(t *testing.T) {
	header := scenarioHeader(t, Dynamic)

	assert.True(t, strings.HasPrefix(header, "// Bundle API header file\n// Auto-generated file. Do not edit!\n"+
		"#ifndef _BORN_BUNDLE_NET_H\n#define _BORN_BUNDLE_NET_H\n\n#include <stdint.h>\n"))
	assert.Contains(t, header, "// Model name: \"net\"\n"+
		"// Total data size: 12 (bytes)\n"+
		"// Placeholders:\n"+
		"//\n"+
		"//   Name: \"X\"\n"+
		"//   Type: float32\n"+
		"//   Shape: [2]\n"+
		"//   Size: 2 (elements)\n"+
		"//   Size: 8 (bytes)\n"+
		"//   Offset: 0 (bytes)\n"+
		"//\n"+
		"// NOTE: Placeholders are allocated within the \"mutableWeight\"\n")
}

func TestRenderHeader_Dynamic(t *testing.T) {
	header := scenarioHeader(t, Dynamic)

	assert.True(t, strings.HasSuffix(header, "#ifdef __cplusplus\nextern \"C\" {\n#endif\n\n"+
		"// Bundle memory configuration (memory layout)\n"+
		"extern BundleConfig net_config;\n\n"+
		"// Bundle entry point (inference function)\n"+
		"void net(uint8_t *constantWeight, uint8_t *mutableWeight, uint8_t *activations);\n"+
		"\n#ifdef __cplusplus\n}\n#endif\n#endif\n"), header)
	assert.Contains(t, header, "#define _BORN_BUNDLE_COMMON_DEFS\n"+dynamicCommonDefines+"\n#endif\n")
}

func TestRenderHeader_Static(t *testing.T) {
	header := scenarioHeader(t, Static)

	assert.True(t, strings.HasSuffix(header, "#ifdef __cplusplus\nextern \"C\" {\n#endif\n\n"+
		"// Placeholder address offsets within mutable buffer (bytes)\n"+
		"#define NET_X  0\n\n"+
		"// Memory sizes (bytes)\n"+
		"#define NET_CONSTANT_MEM_SIZE     4\n"+
		"#define NET_MUTABLE_MEM_SIZE      8\n"+
		"#define NET_ACTIVATIONS_MEM_SIZE  0\n\n"+
		"// Memory alignment (bytes)\n"+
		"#define NET_MEM_ALIGN  1\n\n"+
		"// Bundle entry point (inference function)\n"+
		"void net(uint8_t *constantWeight, uint8_t *mutableWeight, uint8_t *activations);\n"+
		"\n#ifdef __cplusplus\n}\n#endif\n#endif\n"), header)
	assert.Contains(t, header, "#define BORN_GET_ADDR(mutableBaseAddr, placeholderOff)")
}

func TestRenderHeader_StaticMacroPadding(t *testing.T) {
	fn := ir.NewFunction("lenet")
	_, err := fn.AddPlaceholder("X", ir.Tensor(tensor.Float32, 2))
	require.NoError(t, err)
	_, err = fn.AddPlaceholder("input.0", ir.Tensor(tensor.Float32, 1, 28, 28))
	require.NoError(t, err)
	l, err := reconcileLayout(fn, linear(t, 64))
	require.NoError(t, err)

	set, err := Static.artifacts()
	require.NoError(t, err)
	header := renderHeader(&headerData{
		bundleName:   "le-net",
		entryName:    "lenet",
		totals:       l.Totals(),
		placeholders: l.Placeholders(),
	}, set)

	assert.Contains(t, header, "#define LE_NET_X        0\n#define LE_NET_input_0  64\n")
	assert.Contains(t, header, "//   Shape: [1, 28, 28]\n")
	assert.Contains(t, header, "#ifndef _BORN_BUNDLE_LE_NET_H\n")
}

func TestCheckOffsetMacros(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		wantErr string
	}{
		{name: "distinct", names: []string{"X", "input.0", "input_1"}},
		{name: "sanitized clash", names: []string{"a-b", "a_b"}, wantErr: `placeholders "a-b" and "a_b" both define the a_b macro`},
		{name: "size macro clash", names: []string{"MEM.ALIGN"}, wantErr: `placeholder "MEM.ALIGN" clashes with the MEM_ALIGN macro`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			placeholders := make([]Variable, len(tt.names))
			for i, n := range tt.names {
				placeholders[i] = Variable{Name: n}
			}
			err := checkOffsetMacros(placeholders)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvariant)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
