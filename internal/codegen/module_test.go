package codegen

import (
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bytePtrParams(n int) []*ir.Param {
	params := make([]*ir.Param, n)
	for i := range params {
		params[i] = ir.NewParam("", types.I8Ptr)
	}
	return params
}

func TestWriteText_Module(t *testing.T) {
	m := NewModule("net")
	m.SetTargetTriple("x86_64-unknown-linux-gnu")

	table, err := m.NewGlobalDef("net.offsets", constant.NewArray(types.NewArray(2, types.I64),
		constant.NewInt(types.I64, 0), constant.NewInt(types.I64, 64)))
	require.NoError(t, err)
	table.Linkage = enum.LinkagePrivate
	table.UnnamedAddr = enum.UnnamedAddrUnnamedAddr
	table.Immutable = true

	main, err := m.NewOpaqueFunc(MainFunctionName, types.Void, bytePtrParams(4)...)
	require.NoError(t, err)
	main.Linkage = enum.LinkageInternal
	main.Body = "entry:\n  ret void\n"

	params := bytePtrParams(3)
	entry, err := m.NewFunc("net", types.Void, params...)
	require.NoError(t, err)
	b := entry.NewBlock("entry")
	b.NewCall(main.Func, params[0], params[1], params[2], constant.NewBitCast(table, types.I8Ptr))
	b.NewRet(nil)

	m.Prelude = "declare void @llvm.trap()\n"

	text := Text(m)
	assert.Contains(t, text, `source_filename = "net"`)
	assert.Contains(t, text, `target triple = "x86_64-unknown-linux-gnu"`)
	assert.Contains(t, text, "@net.offsets = private unnamed_addr constant [2 x i64] [i64 0, i64 64]")
	assert.Contains(t, text, "define void @net(i8* %0, i8* %1, i8* %2)")
	assert.Contains(t, text, "call void @main(")
	assert.Contains(t, text, "declare void @llvm.trap()\n")
	assert.True(t, strings.HasSuffix(text,
		"\ndefine internal void @main(i8* %0, i8* %1, i8* %2, i8* %3) {\nentry:\n  ret void\n}\n"), text)

	// The opaque body is printed once, after the llir definitions.
	assert.Equal(t, 1, strings.Count(text, "@main(i8* %0"))
	assert.Less(t, strings.Index(text, "define void @net("), strings.Index(text, "define internal void @main("))
}

func TestWriteText_OpaqueDeclaration(t *testing.T) {
	m := NewModule("decl")
	_, err := m.NewOpaqueFunc(MainFunctionName, types.Void, bytePtrParams(4)...)
	require.NoError(t, err)

	assert.Contains(t, Text(m), "declare void @main(i8*, i8*, i8*, i8*)\n")
}

func TestModule_DuplicateSymbols(t *testing.T) {
	m := NewModule("m")
	_, err := m.NewGlobalDef("x", constant.NewInt(types.I64, 1))
	require.NoError(t, err)

	_, err = m.NewFunc("x", types.Void)
	assert.ErrorIs(t, err, ErrDuplicateSymbol)
	_, err = m.NewOpaqueFunc("x", types.Void)
	assert.ErrorIs(t, err, ErrDuplicateSymbol)
	_, err = m.NewGlobalDef("x", constant.NewInt(types.I64, 2))
	assert.ErrorIs(t, err, ErrDuplicateSymbol)

	assert.NotNil(t, m.Global("x"))
	assert.Nil(t, m.Func("x"))
	assert.Nil(t, m.Opaque("x"))
	assert.Len(t, m.Globals(), 1)
	assert.Empty(t, m.OpaqueFuncs())
}

func TestModule_Lookup(t *testing.T) {
	m := NewModule("net")
	assert.Equal(t, "net", m.Name())

	f, err := m.NewFunc("net", types.Void)
	require.NoError(t, err)
	body, err := m.NewOpaqueFunc(MainFunctionName, types.Void)
	require.NoError(t, err)

	assert.Same(t, f, m.Func("net"))
	assert.Same(t, body, m.Opaque(MainFunctionName))
	assert.Nil(t, m.Func(MainFunctionName), "opaque functions stay out of the llir module")
	assert.Len(t, m.IR().Funcs, 1)
	assert.True(t, body.IsDeclaration())
}
