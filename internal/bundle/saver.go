package bundle

import (
	"fmt"

	"github.com/born-ml/aot/internal/alloc"
	"github.com/born-ml/aot/internal/codegen"
	"github.com/born-ml/aot/internal/ir"
	"go.uber.org/zap"
)

// CodeGenerator lowers a function into a module and emits native code.
type CodeGenerator interface {
	// InitTargetMachine creates the target machine for opts.
	InitTargetMachine(opts codegen.TargetOptions) error
	// InitCodeGen creates the module and declares the compiled body
	// (codegen.MainFunctionName) taking four pointers.
	InitCodeGen(bundleName, mainEntryName string) error
	// Module returns the module under construction.
	Module() *codegen.Module
	// TargetMachine returns the machine created by InitTargetMachine.
	TargetMachine() codegen.TargetMachine
	// PerformCodeGen generates the compiled body.
	PerformCodeGen() error
}

// Saver produces one bundle from a function.
type Saver struct {
	fn        *ir.Function
	gen       CodeGenerator
	allocator alloc.Allocator
	saved     bool
}

// NewSaver creates a saver for fn.
func NewSaver(fn *ir.Function, gen CodeGenerator, allocator alloc.Allocator) *Saver {
	return &Saver{fn: fn, gen: gen, allocator: allocator}
}

// Save runs the whole pipeline: it allocates memory, emits the entry
// function, generates code and writes every artifact to opts.OutputDir.
// A Saver can only be used once.
func (s *Saver) Save(opts Options) (*Result, error) {
	if s.saved {
		return nil, invariantf("save", "bundle already saved")
	}
	s.saved = true

	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, &Error{Op: "save", Err: err}
	}
	if s.fn == nil || s.gen == nil || s.allocator == nil {
		return nil, invariantf("save", "saver needs a function, a code generator and an allocator")
	}
	set, err := opts.API.artifacts()
	if err != nil {
		return nil, err
	}

	if err := s.gen.InitTargetMachine(opts.Target); err != nil {
		return nil, &Error{Op: "init target machine", Err: err}
	}
	if err := s.gen.InitCodeGen(opts.BundleName, opts.MainEntryName); err != nil {
		return nil, &Error{Op: "init code generation", Err: err}
	}
	m := s.gen.Module()
	if m == nil {
		return nil, invariantf("save", "code generator has no module")
	}

	layout, err := reconcileLayout(s.fn, s.allocator)
	if err != nil {
		return nil, err
	}
	if set.offsetMacros {
		if err := checkOffsetMacros(layout.Placeholders()); err != nil {
			return nil, err
		}
	}
	if _, err := emitBundleEntryFunction(m, opts.MainEntryName, layout); err != nil {
		return nil, err
	}
	if err := s.gen.PerformCodeGen(); err != nil {
		return nil, &Error{Op: "generate code", Err: err}
	}

	p := &producer{
		opts:   opts,
		set:    set,
		module: m,
		tm:     s.gen.TargetMachine(),
		layout: layout,
	}
	res, err := p.produce()
	if err != nil {
		return nil, err
	}

	Logger().Info("bundle saved",
		zap.String("bundle", res.BundleName),
		zap.Stringer("api", res.API),
		zap.Uint64("constant_bytes", res.Totals.ConstantWeightVarsMemSize),
		zap.Uint64("mutable_bytes", res.Totals.MutableWeightVarsMemSize),
		zap.Uint64("activation_bytes", res.Totals.ActivationsMemSize),
		zap.Int("symbols", res.NumSymbols),
		zap.String("weights_sha256", fmt.Sprintf("%x", res.WeightsSHA256)))
	return res, nil
}

// Save is shorthand for NewSaver(fn, gen, allocator).Save(opts).
func Save(fn *ir.Function, gen CodeGenerator, allocator alloc.Allocator, opts Options) (*Result, error) {
	return NewSaver(fn, gen, allocator).Save(opts)
}
