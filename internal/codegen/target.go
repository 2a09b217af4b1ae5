package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrCompilerFailed is returned when the host compiler exits unsuccessfully.
var ErrCompilerFailed = errors.New("host compiler failed")

// TargetOptions selects the machine a bundle is compiled for.
type TargetOptions struct {
	Triple     string   `yaml:"triple"`
	Arch       string   `yaml:"arch"`
	CPU        string   `yaml:"cpu"`
	Features   []string `yaml:"features"`
	CodeModel  string   `yaml:"code_model"`  // "small" (default), "medium", "large"
	RelocModel string   `yaml:"reloc_model"` // "static" (default) or "pic"
}

// TargetMachine emits native object code for a module.
type TargetMachine interface {
	Triple() string
	EmitObject(m *Module, w io.Writer) error
}

// ExternalTarget produces objects by running a host C/LLVM compiler over the
// module's textual IR.
type ExternalTarget struct {
	Compiler string
	Options  TargetOptions
}

// NewExternalTarget returns a target compiling with the given compiler,
// "clang" when empty.
func NewExternalTarget(compiler string, opts TargetOptions) *ExternalTarget {
	if compiler == "" {
		compiler = "clang"
	}
	return &ExternalTarget{Compiler: compiler, Options: opts}
}

// Triple returns the configured target triple.
func (t *ExternalTarget) Triple() string {
	return t.Options.Triple
}

// Args returns the compiler arguments for compiling input into output.
func (t *ExternalTarget) Args(input, output string) []string {
	args := []string{"-c", "-x", "ir", "-O2"}
	if t.Options.Triple != "" {
		args = append(args, "-target", t.Options.Triple)
	}
	if t.Options.Arch != "" {
		args = append(args, "-march="+t.Options.Arch)
	}
	if t.Options.CPU != "" {
		args = append(args, "-mcpu="+t.Options.CPU)
	}
	for _, f := range t.Options.Features {
		args = append(args, "-Xclang", "-target-feature", "-Xclang", f)
	}
	if t.Options.CodeModel != "" {
		args = append(args, "-mcmodel="+t.Options.CodeModel)
	}
	switch t.Options.RelocModel {
	case "pic":
		args = append(args, "-fPIC")
	case "", "static":
		args = append(args, "-fno-pic")
	}
	return append(args, "-o", output, input)
}

// EmitObject prints m to a scratch directory, compiles it and streams the
// resulting object into w.
func (t *ExternalTarget) EmitObject(m *Module, w io.Writer) error {
	dir, err := os.MkdirTemp("", "born-aot-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir) // Best effort cleanup
	}()

	input := filepath.Join(dir, "module.ll")
	output := filepath.Join(dir, "module.o")
	if err := os.WriteFile(input, []byte(Text(m)), 0o600); err != nil {
		return fmt.Errorf("failed to write module: %w", err)
	}

	args := t.Args(input, output)
	//nolint:gosec // G204: compiler path is operator configuration
	cmd := exec.Command(t.Compiler, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s %s: %v: %s", ErrCompilerFailed,
			t.Compiler, strings.Join(args, " "), err, out.String())
	}

	//nolint:gosec // G304: path is inside our scratch directory
	obj, err := os.Open(output)
	if err != nil {
		return fmt.Errorf("failed to open object: %w", err)
	}
	defer func() {
		_ = obj.Close()
	}()
	if _, err := io.Copy(w, obj); err != nil {
		return fmt.Errorf("failed to copy object: %w", err)
	}
	return nil
}
