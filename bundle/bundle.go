// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package bundle packages compiled inference functions into deployable
// bundles.
//
// This package wraps the internal bundle implementation and exports a clean
// public API. A bundle consists of:
//   - <name>.o (or <name>.ll plus <name>.o from an external compiler)
//   - <name>.weights, the constant region exactly as laid out in memory
//   - <name>.h, the C API header
//   - <name>.inc, the weights as C array text (static API only)
//
// Example usage:
//
//	import "github.com/born-ml/aot/bundle"
//
//	m, err := bundle.LoadManifest("mnist.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fn, _ := m.Function()
//	gen, _ := m.CodeGenerator()
//	allocator, _ := m.Allocator()
//
//	res, err := bundle.Save(fn, gen, allocator, m.Options())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("weights: %s (%d bytes)\n", res.WeightsPath, res.Totals.ConstantWeightVarsMemSize)
package bundle

import (
	"io"

	"github.com/born-ml/aot/internal/alloc"
	"github.com/born-ml/aot/internal/bundle"
	"github.com/born-ml/aot/internal/ir"
	"github.com/born-ml/aot/internal/manifest"
	"go.uber.org/zap"
)

// Function is the value inventory of a compiled function.
type Function = ir.Function

// Type is the storage descriptor of a value.
type Type = ir.Type

// NewFunction creates an empty function.
func NewFunction(name string) *Function {
	return ir.NewFunction(name)
}

// Allocator lays out a function's values in the three memory regions.
type Allocator = alloc.Allocator

// NewLinearAllocator returns the reference bump allocator.
func NewLinearAllocator(alignment uint64) (Allocator, error) {
	a, err := alloc.NewLinear(alignment)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Manifest is a YAML bundle description.
type Manifest = manifest.Manifest

// LoadManifest reads a YAML bundle manifest.
func LoadManifest(path string) (*Manifest, error) {
	return manifest.Load(path)
}

// APIMode selects the dynamic or static bundle API.
type APIMode = bundle.APIMode

// API modes.
const (
	Dynamic APIMode = bundle.Dynamic
	Static  APIMode = bundle.Static
)

// Options configures a Save.
type Options = bundle.Options

// Result describes a produced bundle.
type Result = bundle.Result

// Totals are the region sizes and alignment of a bundle.
type Totals = bundle.Totals

// Layout is the reconciled memory layout a bundle was produced from.
type Layout = bundle.Layout

// Variable is one value's layout record.
type Variable = bundle.Variable

// SymbolTableEntry describes a placeholder in a dynamic bundle.
type SymbolTableEntry = bundle.SymbolTableEntry

// Config is the dynamic bundle's memory configuration record.
type Config = bundle.Config

// CodeGenerator lowers a function into a module and emits native code.
type CodeGenerator = bundle.CodeGenerator

// Saver produces one bundle from a function.
type Saver = bundle.Saver

// Error records a failed pipeline step.
type Error = bundle.Error

// Error kinds.
var (
	ErrOpenFile         = bundle.ErrOpenFile
	ErrWrite            = bundle.ErrWrite
	ErrInvariant        = bundle.ErrInvariant
	ErrExternalCompiler = bundle.ErrExternalCompiler
	ErrAllocation       = bundle.ErrAllocation
)

// NewSaver creates a saver for fn.
func NewSaver(fn *Function, gen CodeGenerator, allocator Allocator) *Saver {
	return bundle.NewSaver(fn, gen, allocator)
}

// Save produces a bundle for fn in opts.OutputDir.
func Save(fn *Function, gen CodeGenerator, allocator Allocator, opts Options) (*Result, error) {
	return bundle.Save(fn, gen, allocator, opts)
}

// Verify checks that the files of a produced bundle agree with its layout.
func Verify(res *Result) error {
	return bundle.Verify(res)
}

// ParseAPIMode parses "dynamic" or "static".
func ParseAPIMode(s string) (APIMode, error) {
	return bundle.ParseAPIMode(s)
}

// EncodeText writes binary weights as C array text, 20 bytes per line.
func EncodeText(r io.Reader, w io.Writer) error {
	return bundle.EncodeText(r, w)
}

// DecodeText parses C array text written by EncodeText.
func DecodeText(r io.Reader) ([]byte, error) {
	return bundle.DecodeText(r)
}

// SetLogger configures the logger used while saving bundles.
func SetLogger(l *zap.Logger) {
	bundle.SetLogger(l)
}
