// Package manifest reads YAML bundle manifests.
//
// A manifest names a bundle and lists everything needed to save it: the
// weights file holding the constants, the placeholders and activations of the
// compiled function, tensor views, the precompiled function body and the
// bundle options.
//
//	bundle: mnist
//	api: static
//	weights: mnist.safetensors
//	body: mnist_main.ll
//	placeholders:
//	  - {name: input, dtype: float32, shape: [1, 784]}
//	  - {name: output, dtype: float32, shape: [1, 10]}
//	activations:
//	  - {name: fc1, dtype: float32, shape: [1, 128]}
//
// Relative paths are resolved against the manifest's directory.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/born-ml/aot/internal/alloc"
	"github.com/born-ml/aot/internal/bundle"
	"github.com/born-ml/aot/internal/codegen"
	"github.com/born-ml/aot/internal/ir"
	"github.com/born-ml/aot/internal/serialization"
	"github.com/born-ml/aot/internal/tensor"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Common errors.
var (
	ErrInvalidManifest = errors.New("invalid manifest")
	ErrUnknownTensor   = errors.New("unknown tensor")
)

// TensorSpec declares a placeholder or activation.
type TensorSpec struct {
	Name  string          `yaml:"name"`
	DType tensor.DataType `yaml:"dtype"`
	Shape []int           `yaml:"shape"`
}

// ViewSpec declares a view of Base starting Offset bytes in.
type ViewSpec struct {
	Name   string          `yaml:"name"`
	Base   string          `yaml:"base"`
	Offset uint64          `yaml:"offset"`
	DType  tensor.DataType `yaml:"dtype"`
	Shape  []int           `yaml:"shape"`
}

// Manifest describes one bundle.
type Manifest struct {
	Bundle string         `yaml:"bundle"`
	Entry  string         `yaml:"entry"`
	API    bundle.APIMode `yaml:"api"`
	Output string         `yaml:"output"`

	LLVMCompiler        string                `yaml:"llvm_compiler"`
	LLVMCompilerOptions []string              `yaml:"llvm_compiler_options"`
	Target              codegen.TargetOptions `yaml:"target"`

	// Body and Prelude are the precompiled function body files.
	Body    string `yaml:"body"`
	Prelude string `yaml:"prelude"`

	// Weights is a .born or .safetensors file holding the constants.
	Weights string `yaml:"weights"`
	// Constants selects and orders constants from Weights. Empty means every
	// tensor in file order.
	Constants    []string     `yaml:"constants"`
	Placeholders []TensorSpec `yaml:"placeholders"`
	Activations  []TensorSpec `yaml:"activations"`
	Views        []ViewSpec   `yaml:"views"`

	// Alignment of the linear allocator. Defaults to codegen.TensorAlignment.
	Alignment uint64 `yaml:"alignment"`

	dir string
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	//nolint:gosec // G304: File path comes from user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	Logger().Debug("loaded manifest", zap.String("path", path), zap.String("bundle", m.Bundle))
	return m, nil
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if m.Bundle == "" {
		return nil, fmt.Errorf("%w: bundle name is required", ErrInvalidManifest)
	}
	return &m, nil
}

// Dir is the directory relative paths are resolved against.
func (m *Manifest) Dir() string {
	if m.dir == "" {
		return "."
	}
	return m.dir
}

// Path resolves p against the manifest directory.
func (m *Manifest) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir(), p)
}

// Options returns the bundle options the manifest describes.
func (m *Manifest) Options() bundle.Options {
	return bundle.Options{
		API:                 m.API,
		OutputDir:           m.Path(m.Output),
		BundleName:          m.Bundle,
		MainEntryName:       m.Entry,
		LLVMCompiler:        m.LLVMCompiler,
		LLVMCompilerOptions: append([]string(nil), m.LLVMCompilerOptions...),
		Target:              m.Target,
	}
}

// Allocator returns the linear allocator for the manifest's alignment.
func (m *Manifest) Allocator() (*alloc.Linear, error) {
	alignment := m.Alignment
	if alignment == 0 {
		alignment = codegen.TensorAlignment
	}
	return alloc.NewLinear(alignment)
}

// CodeGenerator loads the precompiled body and prelude.
func (m *Manifest) CodeGenerator() (*codegen.Precompiled, error) {
	if m.Body == "" {
		return nil, fmt.Errorf("%w: no function body", ErrInvalidManifest)
	}
	return codegen.LoadPrecompiled(m.Path(m.Body), m.Path(m.Prelude))
}

// Function builds the function the manifest describes. Constants are read
// from the weights file; placeholders, activations and views follow in
// declaration order.
func (m *Manifest) Function() (*ir.Function, error) {
	fn := ir.NewFunction(m.Bundle)

	if err := m.addConstants(fn); err != nil {
		return nil, err
	}
	for _, p := range m.Placeholders {
		if _, err := fn.AddPlaceholder(p.Name, ir.Type{DType: p.DType, Shape: p.Shape}); err != nil {
			return nil, fmt.Errorf("failed to add placeholder: %w", err)
		}
	}
	for _, a := range m.Activations {
		if _, err := fn.AddActivation(a.Name, ir.Type{DType: a.DType, Shape: a.Shape}); err != nil {
			return nil, fmt.Errorf("failed to add activation: %w", err)
		}
	}
	for _, v := range m.Views {
		base := fn.Lookup(v.Base)
		if base == nil {
			return nil, fmt.Errorf("%w: view %q has unknown base %q", ErrUnknownTensor, v.Name, v.Base)
		}
		if _, err := fn.AddTensorView(v.Name, base, v.Offset, ir.Type{DType: v.DType, Shape: v.Shape}); err != nil {
			return nil, fmt.Errorf("failed to add view: %w", err)
		}
	}

	Logger().Debug("built function",
		zap.String("name", fn.Name()),
		zap.Int("constants", len(fn.Constants())),
		zap.Int("placeholders", len(fn.Placeholders())),
		zap.Int("activations", len(fn.Activations())),
		zap.Int("views", len(fn.TensorViews())))
	return fn, nil
}

func (m *Manifest) addConstants(fn *ir.Function) error {
	if m.Weights == "" {
		if len(m.Constants) > 0 {
			return fmt.Errorf("%w: constants listed without a weights file", ErrInvalidManifest)
		}
		return nil
	}

	tensors, err := serialization.ReadTensors(m.Path(m.Weights))
	if err != nil {
		return fmt.Errorf("failed to read weights: %w", err)
	}

	selected := tensors
	if len(m.Constants) > 0 {
		byName := make(map[string]serialization.Tensor, len(tensors))
		for _, t := range tensors {
			byName[t.Name] = t
		}
		selected = make([]serialization.Tensor, 0, len(m.Constants))
		for _, name := range m.Constants {
			t, ok := byName[name]
			if !ok {
				return fmt.Errorf("%w: constant %q not in %s", ErrUnknownTensor, name, m.Weights)
			}
			selected = append(selected, t)
		}
	}

	for _, t := range selected {
		if _, err := fn.AddConstant(t.Name, ir.Type{DType: t.DType, Shape: t.Shape}, t.Data); err != nil {
			return fmt.Errorf("failed to add constant: %w", err)
		}
	}
	return nil
}
