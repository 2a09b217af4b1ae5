package bundle

import (
	"github.com/born-ml/aot/internal/codegen"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
)

func offsetsTableName(entryName string) string {
	return entryName + ".offsets"
}

// emitBundleEntryFunction adds the externally visible entry point
//
//	void <entry>(i8 *constantWeight, i8 *mutableWeight, i8 *activations)
//
// which calls the compiled body with the three base pointers and a constant
// table of per-value offsets. The body is demoted to internal linkage. The
// offsets are compile-time constants, so this must run before code
// generation.
func emitBundleEntryFunction(m *codegen.Module, entryName string, l *Layout) (*ir.Func, error) {
	const op = "emit entry function"
	body := m.Opaque(codegen.MainFunctionName)
	if body == nil {
		return nil, invariantf(op, "compiled function %q not found", codegen.MainFunctionName)
	}

	offsets := l.OffsetsTable()
	elems := make([]constant.Constant, len(offsets))
	for i, off := range offsets {
		elems[i] = i64(off)
	}
	table, err := m.NewGlobalDef(offsetsTableName(entryName),
		arrayConst(types.NewArray(uint64(len(elems)), types.I64), elems))
	if err != nil {
		return nil, fail(op, "", ErrInvariant, err)
	}
	table.Linkage = enum.LinkagePrivate
	table.UnnamedAddr = enum.UnnamedAddrUnnamedAddr
	table.Immutable = true

	constantWeight := ir.NewParam("", types.I8Ptr)
	mutableWeight := ir.NewParam("", types.I8Ptr)
	activations := ir.NewParam("", types.I8Ptr)
	fn, err := m.NewFunc(entryName, types.Void, constantWeight, mutableWeight, activations)
	if err != nil {
		return nil, fail(op, "", ErrInvariant, err)
	}

	b := fn.NewBlock("entry")
	b.NewCall(body.Func, constantWeight, mutableWeight, activations, constant.NewBitCast(table, types.I8Ptr))
	b.NewRet(nil)

	body.Linkage = enum.LinkageInternal
	return fn, nil
}
