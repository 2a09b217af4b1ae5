package bundle

import (
	"fmt"

	"github.com/born-ml/aot/internal/codegen"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
)

// symbolKindMutable marks a symbol table entry as a placeholder.
const symbolKindMutable = 1

// symbolTableEntryType mirrors the header's SymbolTableEntry:
// { const char *name; uint64_t offset; uint64_t size; char kind; }.
var symbolTableEntryType = types.NewStruct(types.I8Ptr, types.I64, types.I64, types.I8)

// SymbolTableEntry describes one placeholder to a dynamic-mode loader.
type SymbolTableEntry struct {
	Name   string
	Offset uint64 // Byte offset in the mutable region
	Size   uint64 // Number of elements
	Kind   uint8
}

func symbolTableName(entryName string) string {
	return entryName + "SymbolTable"
}

// symbolTable lists every placeholder in enumeration order.
func symbolTable(l *Layout) []SymbolTableEntry {
	placeholders := l.Placeholders()
	entries := make([]SymbolTableEntry, len(placeholders))
	for i, v := range placeholders {
		entries[i] = SymbolTableEntry{
			Name:   v.Name,
			Offset: v.Offset,
			Size:   v.Size,
			Kind:   symbolKindMutable,
		}
	}
	return entries
}

// emitSymbolTable adds the internal <entry>SymbolTable array to m, with one
// private string constant per placeholder name.
func emitSymbolTable(m *codegen.Module, entryName string, l *Layout) (*ir.Global, error) {
	entries := symbolTable(l)
	elems := make([]constant.Constant, len(entries))
	for i, e := range entries {
		name, err := m.NewGlobalDef(
			fmt.Sprintf("%s.name.%d", symbolTableName(entryName), i),
			constant.NewCharArrayFromString(e.Name+"\x00"),
		)
		if err != nil {
			return nil, fail("emit symbol table", "", ErrInvariant, err)
		}
		name.Linkage = enum.LinkagePrivate
		name.UnnamedAddr = enum.UnnamedAddrUnnamedAddr
		name.Immutable = true

		elems[i] = constant.NewStruct(symbolTableEntryType,
			constant.NewBitCast(name, types.I8Ptr),
			i64(e.Offset),
			i64(e.Size),
			constant.NewInt(types.I8, int64(e.Kind)),
		)
	}

	typ := types.NewArray(uint64(len(elems)), symbolTableEntryType)
	g, err := m.NewGlobalDef(symbolTableName(entryName), arrayConst(typ, elems))
	if err != nil {
		return nil, fail("emit symbol table", "", ErrInvariant, err)
	}
	g.Linkage = enum.LinkageInternal
	g.Immutable = true
	return g, nil
}

// i64 is an i64 constant. Sizes and offsets in a bundle fit in int64.
func i64(v uint64) *constant.Int {
	return constant.NewInt(types.I64, int64(v)) //nolint:gosec // G115: see above
}

// arrayConst returns elems as an array of typ, or zeroinitializer when empty.
func arrayConst(typ *types.ArrayType, elems []constant.Constant) constant.Constant {
	if len(elems) == 0 {
		return constant.NewZeroInitializer(typ)
	}
	return constant.NewArray(typ, elems...)
}
