package bundle

import (
	"github.com/born-ml/aot/internal/codegen"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// bundleConfigType mirrors the header's BundleConfig.
var bundleConfigType = types.NewStruct(
	types.I64,   // constantWeightVarsMemSize
	types.I64,   // mutableWeightVarsMemSize
	types.I64,   // activationsMemSize
	types.I64,   // alignment
	types.I64,   // numSymbols
	types.I8Ptr, // symbolTable
)

// Config is the record a dynamic-mode client reads to size its buffers.
type Config struct {
	ConstantWeightVarsMemSize uint64
	MutableWeightVarsMemSize  uint64
	ActivationsMemSize        uint64
	Alignment                 uint64
	NumSymbols                uint64
	SymbolTable               []SymbolTableEntry
}

func bundleConfigName(entryName string) string {
	return entryName + "_config"
}

// bundleConfig derives the config record from the layout.
func bundleConfig(l *Layout) Config {
	t := l.Totals()
	entries := symbolTable(l)
	return Config{
		ConstantWeightVarsMemSize: t.ConstantWeightVarsMemSize,
		MutableWeightVarsMemSize:  t.MutableWeightVarsMemSize,
		ActivationsMemSize:        t.ActivationsMemSize,
		Alignment:                 t.Alignment,
		NumSymbols:                uint64(len(entries)),
		SymbolTable:               entries,
	}
}

// emitBundleConfig adds the external <entry>_config constant to m. The
// symbol table must already be in the module.
func emitBundleConfig(m *codegen.Module, entryName string, l *Layout) (*ir.Global, error) {
	const op = "emit bundle config"
	symtab := m.Global(symbolTableName(entryName))
	if symtab == nil {
		return nil, invariantf(op, "expected to find a symbol table %q", symbolTableName(entryName))
	}

	cfg := bundleConfig(l)
	arr, ok := symtab.ContentType.(*types.ArrayType)
	if !ok || arr.Len != cfg.NumSymbols {
		return nil, invariantf(op, "symbol table %q does not have %d entries", symtab.Name(), cfg.NumSymbols)
	}

	g, err := m.NewGlobalDef(bundleConfigName(entryName), constant.NewStruct(bundleConfigType,
		i64(cfg.ConstantWeightVarsMemSize),
		i64(cfg.MutableWeightVarsMemSize),
		i64(cfg.ActivationsMemSize),
		i64(cfg.Alignment),
		i64(cfg.NumSymbols),
		constant.NewBitCast(symtab, types.I8Ptr),
	))
	if err != nil {
		return nil, fail(op, "", ErrInvariant, err)
	}
	g.Immutable = true
	return g, nil
}
