package codegen

import (
	"errors"
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// Common errors.
var (
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	ErrNoBody          = errors.New("function has no body")
)

// OpaqueFunc is a function whose definition was generated elsewhere and is
// carried as IR text. The llir function is never added to the module's
// function list: calls to it print by name and the definition is appended
// when the module is written.
type OpaqueFunc struct {
	*ir.Func
	// Body is the text placed between the braces. Parameters are %0..%N-1.
	Body string
}

// IsDeclaration reports whether the function has no body yet.
func (f *OpaqueFunc) IsDeclaration() bool {
	return f.Body == ""
}

// Module is a compilation unit.
type Module struct {
	llvm *ir.Module
	// Prelude holds externally generated top-level text (declarations,
	// attributes, metadata) printed after the generated definitions.
	Prelude string
	opaque  []*OpaqueFunc
	symbols map[string]struct{}
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	m := ir.NewModule()
	m.SourceFilename = name
	return &Module{
		llvm:    m,
		symbols: make(map[string]struct{}),
	}
}

// IR returns the underlying llir module.
func (m *Module) IR() *ir.Module {
	return m.llvm
}

// Name returns the module's source file name.
func (m *Module) Name() string {
	return m.llvm.SourceFilename
}

// TargetTriple returns the module's target triple.
func (m *Module) TargetTriple() string {
	return m.llvm.TargetTriple
}

// SetTargetTriple sets the module's target triple.
func (m *Module) SetTargetTriple(triple string) {
	m.llvm.TargetTriple = triple
}

func (m *Module) claim(name string) error {
	if _, ok := m.symbols[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSymbol, name)
	}
	m.symbols[name] = struct{}{}
	return nil
}

// NewGlobalDef defines a global initialized with init.
func (m *Module) NewGlobalDef(name string, init constant.Constant) (*ir.Global, error) {
	if err := m.claim(name); err != nil {
		return nil, err
	}
	return m.llvm.NewGlobalDef(name, init), nil
}

// NewFunc defines a function whose blocks are built with the llir API.
func (m *Module) NewFunc(name string, ret types.Type, params ...*ir.Param) (*ir.Func, error) {
	if err := m.claim(name); err != nil {
		return nil, err
	}
	return m.llvm.NewFunc(name, ret, params...), nil
}

// NewOpaqueFunc declares a function whose body is supplied later as text.
func (m *Module) NewOpaqueFunc(name string, ret types.Type, params ...*ir.Param) (*OpaqueFunc, error) {
	if err := m.claim(name); err != nil {
		return nil, err
	}
	f := &OpaqueFunc{Func: ir.NewFunc(name, ret, params...)}
	m.opaque = append(m.opaque, f)
	return f, nil
}

// Global returns the named global, or nil.
func (m *Module) Global(name string) *ir.Global {
	for _, g := range m.llvm.Globals {
		if g.Name() == name {
			return g
		}
	}
	return nil
}

// Globals returns the globals in insertion order.
func (m *Module) Globals() []*ir.Global {
	out := make([]*ir.Global, len(m.llvm.Globals))
	copy(out, m.llvm.Globals)
	return out
}

// Func returns the named llir-built function, or nil.
func (m *Module) Func(name string) *ir.Func {
	for _, f := range m.llvm.Funcs {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// Opaque returns the named opaque function, or nil.
func (m *Module) Opaque(name string) *OpaqueFunc {
	for _, f := range m.opaque {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// OpaqueFuncs returns the opaque functions in declaration order.
func (m *Module) OpaqueFuncs() []*OpaqueFunc {
	out := make([]*OpaqueFunc, len(m.opaque))
	copy(out, m.opaque)
	return out
}
