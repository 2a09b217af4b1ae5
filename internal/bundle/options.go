package bundle

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/born-ml/aot/internal/codegen"
)

// Options configures a single Save. It is read once at the start of the
// call and never mutated by the pipeline.
type Options struct {
	// API selects the dynamic or static contract.
	API APIMode
	// OutputDir receives every artifact. It must exist.
	OutputDir string
	// BundleName names the output files, the header guard and the static
	// macros.
	BundleName string
	// MainEntryName names the entry function and the embedded symbols.
	// Defaults to BundleName.
	MainEntryName string
	// LLVMCompiler, when set, switches the code artifact to textual IR and
	// runs this executable to produce <bundle>.o.
	LLVMCompiler string
	// LLVMCompilerOptions are passed to LLVMCompiler before the input path.
	LLVMCompilerOptions []string
	// Target configures the code generator's target machine.
	Target codegen.TargetOptions
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (o Options) withDefaults() Options {
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if o.MainEntryName == "" {
		o.MainEntryName = o.BundleName
	}
	o.LLVMCompilerOptions = append([]string(nil), o.LLVMCompilerOptions...)
	return o
}

func (o Options) validate() error {
	if !identRe.MatchString(o.BundleName) {
		return fmt.Errorf("bundle name %q is not a C identifier", o.BundleName)
	}
	if !identRe.MatchString(o.MainEntryName) {
		return fmt.Errorf("entry name %q is not a C identifier", o.MainEntryName)
	}
	if o.MainEntryName == codegen.MainFunctionName {
		return fmt.Errorf("entry name %q clashes with the compiled function body", o.MainEntryName)
	}
	return nil
}

// path returns <OutputDir>/<BundleName><ext>.
func (o Options) path(ext string) string {
	return filepath.Join(o.OutputDir, o.BundleName+ext)
}
