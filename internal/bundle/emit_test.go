package bundle

import (
	"testing"

	"github.com/born-ml/aot/internal/codegen"
	bir "github.com/born-ml/aot/internal/ir"
	"github.com/born-ml/aot/internal/tensor"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manyPlaceholders(t *testing.T) *Layout {
	t.Helper()
	fn := bir.NewFunction("net")
	_, err := fn.AddConstant("w", bir.Tensor(tensor.Float32, 2), bytesOf(8, 0))
	require.NoError(t, err)
	for _, name := range []string{"in", "hidden", "out"} {
		_, err := fn.AddPlaceholder(name, bir.Tensor(tensor.Float32, 3))
		require.NoError(t, err)
	}
	_, err = fn.AddActivation("scratch", bir.Tensor(tensor.Float32, 16))
	require.NoError(t, err)
	l, err := reconcileLayout(fn, linear(t, 64))
	require.NoError(t, err)
	return l
}

func TestSymbolTable_MatchesPlaceholders(t *testing.T) {
	l := manyPlaceholders(t)

	assert.Equal(t, []SymbolTableEntry{
		{Name: "in", Offset: 0, Size: 3, Kind: 1},
		{Name: "hidden", Offset: 64, Size: 3, Kind: 1},
		{Name: "out", Offset: 128, Size: 3, Kind: 1},
	}, symbolTable(l))

	cfg := bundleConfig(l)
	assert.Equal(t, uint64(3), cfg.NumSymbols)
	assert.Len(t, cfg.SymbolTable, 3)
	assert.Equal(t, uint64(64), cfg.ConstantWeightVarsMemSize)
	assert.Equal(t, uint64(192), cfg.MutableWeightVarsMemSize)
	assert.Equal(t, uint64(64), cfg.ActivationsMemSize)
	assert.Equal(t, uint64(codegen.TensorAlignment), cfg.Alignment)
}

func TestEmitBundleConfig_RequiresSymbolTable(t *testing.T) {
	m := codegen.NewModule("net")
	_, err := emitBundleConfig(m, "net", manyPlaceholders(t))
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Contains(t, err.Error(), "expected to find a symbol table")
}

func intValues(t *testing.T, c constant.Constant) []int64 {
	t.Helper()
	var elems []constant.Constant
	switch c := c.(type) {
	case *constant.Array:
		elems = c.Elems
	case *constant.Struct:
		elems = c.Fields
	default:
		t.Fatalf("unexpected constant %T", c)
	}
	var out []int64
	for _, e := range elems {
		if i, ok := e.(*constant.Int); ok {
			out = append(out, i.X.Int64())
		}
	}
	return out
}

func TestEmitBundleConfig(t *testing.T) {
	l := manyPlaceholders(t)
	m := codegen.NewModule("net")
	symtab, err := emitSymbolTable(m, "net", l)
	require.NoError(t, err)
	cfg, err := emitBundleConfig(m, "net", l)
	require.NoError(t, err)

	assert.Equal(t, enum.LinkageInternal, symtab.Linkage)
	assert.True(t, symtab.Immutable)
	arr, ok := symtab.ContentType.(*types.ArrayType)
	require.True(t, ok)
	assert.Equal(t, uint64(3), arr.Len)
	assert.True(t, arr.ElemType.Equal(symbolTableEntryType))

	rows := symtab.Init.(*constant.Array).Elems
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{64, 3, 1}, intValues(t, rows[1]))

	name := m.Global("netSymbolTable.name.1")
	require.NotNil(t, name)
	assert.Equal(t, enum.LinkagePrivate, name.Linkage)
	assert.Equal(t, enum.UnnamedAddrUnnamedAddr, name.UnnamedAddr)
	assert.Equal(t, []byte("hidden\x00"), name.Init.(*constant.CharArray).X)

	assert.Equal(t, enum.LinkageNone, cfg.Linkage)
	assert.True(t, cfg.Immutable)
	assert.Equal(t, []int64{64, 192, 64, 64, 3}, intValues(t, cfg.Init))
	fields := cfg.Init.(*constant.Struct).Fields
	require.Len(t, fields, 6)
	cast, ok := fields[5].(*constant.ExprBitCast)
	require.True(t, ok)
	assert.Same(t, symtab, cast.From)

	_, err = emitBundleConfig(m, "net", l)
	assert.ErrorIs(t, err, ErrInvariant, "emitting the config twice")
}

func TestEmitSymbolTable_NoPlaceholders(t *testing.T) {
	fn := bir.NewFunction("net")
	_, err := fn.AddConstant("w", bir.Tensor(tensor.Float32, 1), bytesOf(4, 0))
	require.NoError(t, err)
	l, err := reconcileLayout(fn, linear(t, 64))
	require.NoError(t, err)

	m := codegen.NewModule("net")
	symtab, err := emitSymbolTable(m, "net", l)
	require.NoError(t, err)
	_, ok := symtab.Init.(*constant.ZeroInitializer)
	assert.True(t, ok)

	cfg, err := emitBundleConfig(m, "net", l)
	require.NoError(t, err)
	assert.Equal(t, []int64{64, 0, 0, 64, 0}, intValues(t, cfg.Init))
}

func TestEmitBundleEntryFunction(t *testing.T) {
	l := manyPlaceholders(t)
	m := codegen.NewModule("net")
	body, err := m.NewOpaqueFunc(codegen.MainFunctionName, types.Void,
		bodyParams()...)
	require.NoError(t, err)

	fn, err := emitBundleEntryFunction(m, "net", l)
	require.NoError(t, err)

	assert.Equal(t, enum.LinkageInternal, body.Linkage)
	assert.Equal(t, enum.LinkageNone, fn.Linkage)
	assert.Len(t, fn.Params, 3)
	require.Len(t, fn.Blocks, 1)

	block := fn.Blocks[0]
	require.Len(t, block.Insts, 1)
	call, ok := block.Insts[0].(*ir.InstCall)
	require.True(t, ok)
	assert.Same(t, body.Func, call.Callee)
	require.Len(t, call.Args, 4)
	for i := 0; i < 3; i++ {
		assert.Same(t, fn.Params[i], call.Args[i])
	}
	ret, ok := block.Term.(*ir.TermRet)
	require.True(t, ok)
	assert.Nil(t, ret.X)

	offsets := m.Global("net.offsets")
	require.NotNil(t, offsets)
	assert.Equal(t, enum.LinkagePrivate, offsets.Linkage)
	assert.Equal(t, []int64{0, 0, 64, 128, 0}, intValues(t, offsets.Init))
	cast, ok := call.Args[3].(*constant.ExprBitCast)
	require.True(t, ok)
	assert.Same(t, offsets, cast.From)
}

func bodyParams() []*ir.Param {
	return []*ir.Param{
		ir.NewParam("", types.I8Ptr),
		ir.NewParam("", types.I8Ptr),
		ir.NewParam("", types.I8Ptr),
		ir.NewParam("", types.I8Ptr),
	}
}

func TestEmitBundleEntryFunction_NoBody(t *testing.T) {
	_, err := emitBundleEntryFunction(codegen.NewModule("net"), "net", manyPlaceholders(t))
	assert.ErrorIs(t, err, ErrInvariant)
}
