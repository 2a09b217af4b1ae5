package codegen

import (
	"errors"
	"fmt"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// Precompiled is a code generator whose function body was lowered ahead of
// time by an external tool. It owns the module a bundle is emitted into:
// InitCodeGen declares the body function, PerformCodeGen installs its text.
type Precompiled struct {
	// Body is the IR placed inside `define void @main(i8*, i8*, i8*, i8*)`.
	// Parameters are %0 (constant weights), %1 (mutable weights),
	// %2 (activations) and %3 (the offsets table).
	Body string
	// Prelude is top-level IR the body depends on (declarations, metadata).
	Prelude string
	// Compiler is the host compiler used by the default target machine.
	Compiler string
	// NewTarget overrides target machine construction.
	NewTarget func(TargetOptions) (TargetMachine, error)

	module *Module
	tm     TargetMachine
}

// LoadPrecompiled reads a body file and an optional prelude file.
func LoadPrecompiled(bodyPath, preludePath string) (*Precompiled, error) {
	//nolint:gosec // G304: File path comes from user input
	body, err := os.ReadFile(bodyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	g := &Precompiled{Body: string(body)}
	if preludePath != "" {
		//nolint:gosec // G304: File path comes from user input
		prelude, err := os.ReadFile(preludePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read prelude: %w", err)
		}
		g.Prelude = string(prelude)
	}
	return g, nil
}

// InitTargetMachine creates the target machine.
func (g *Precompiled) InitTargetMachine(opts TargetOptions) error {
	if g.NewTarget != nil {
		tm, err := g.NewTarget(opts)
		if err != nil {
			return err
		}
		g.tm = tm
		return nil
	}
	g.tm = NewExternalTarget(g.Compiler, opts)
	return nil
}

// InitCodeGen creates the module and declares the body function.
func (g *Precompiled) InitCodeGen(bundleName, mainEntryName string) error {
	if bundleName == "" {
		return errors.New("empty bundle name")
	}
	m := NewModule(bundleName)
	if g.tm != nil {
		m.SetTargetTriple(g.tm.Triple())
	}
	if _, err := m.NewOpaqueFunc(MainFunctionName, types.Void,
		ir.NewParam("", types.I8Ptr), // constant weights
		ir.NewParam("", types.I8Ptr), // mutable weights
		ir.NewParam("", types.I8Ptr), // activations
		ir.NewParam("", types.I8Ptr), // offsets table
	); err != nil {
		return err
	}
	g.module = m
	return nil
}

// Module returns the module under construction.
func (g *Precompiled) Module() *Module {
	return g.module
}

// TargetMachine returns the target machine.
func (g *Precompiled) TargetMachine() TargetMachine {
	return g.tm
}

// PerformCodeGen installs the precompiled body.
func (g *Precompiled) PerformCodeGen() error {
	if g.module == nil {
		return errors.New("code generation not initialized")
	}
	fn := g.module.Opaque(MainFunctionName)
	if fn == nil {
		return fmt.Errorf("function %s not declared", MainFunctionName)
	}
	if g.Body == "" {
		return fmt.Errorf("%w: %s", ErrNoBody, MainFunctionName)
	}
	fn.Body = g.Body
	g.module.Prelude = g.Prelude
	return nil
}
