package bundle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/born-ml/aot/internal/codegen"
	"github.com/born-ml/aot/internal/serialization"
	"go.uber.org/zap"
)

// Result describes a produced bundle.
type Result struct {
	BundleName string
	EntryName  string
	API        APIMode

	// CodePath is the emitted code artifact: <bundle>.o, or <bundle>.ll when
	// an external compiler is configured.
	CodePath string
	// ObjectPath is the object produced by the external compiler, if any.
	ObjectPath string
	// CompilerCommand is the external compiler command line, if one ran.
	CompilerCommand string
	WeightsPath     string
	HeaderPath      string
	// IncludePath is the textual weights file, static mode only.
	IncludePath string

	Totals        Totals
	NumSymbols    int
	WeightsSHA256 [32]byte

	// Layout is the layout every artifact was produced from.
	Layout *Layout
}

// producer writes the artifacts of one Save, in order.
type producer struct {
	opts   Options
	set    artifactSet
	module *codegen.Module
	tm     codegen.TargetMachine
	layout *Layout
}

func (p *producer) produce() (*Result, error) {
	res := &Result{
		BundleName:  p.opts.BundleName,
		EntryName:   p.opts.MainEntryName,
		API:         p.opts.API,
		WeightsPath: p.opts.path(".weights"),
		HeaderPath:  p.opts.path(".h"),
		Totals:      p.layout.Totals(),
		NumSymbols:  len(p.layout.Placeholders()),
		Layout:      p.layout,
	}
	if p.set.textWeights {
		res.IncludePath = p.opts.path(".inc")
	}

	if p.set.embedLayout {
		if _, err := emitSymbolTable(p.module, p.opts.MainEntryName, p.layout); err != nil {
			return nil, err
		}
		if _, err := emitBundleConfig(p.module, p.opts.MainEntryName, p.layout); err != nil {
			return nil, err
		}
	}

	if err := p.produceCode(res); err != nil {
		return nil, err
	}

	Logger().Debug("Producing a bundle",
		zap.String("bundle", res.BundleName),
		zap.Stringer("api", res.API),
		zap.String("code", res.CodePath),
		zap.String("weights", res.WeightsPath),
		zap.String("header", res.HeaderPath),
		zap.String("include", res.IncludePath))

	if err := saveWeights(res.WeightsPath, p.layout); err != nil {
		return nil, err
	}
	h := &headerData{
		bundleName:   p.opts.BundleName,
		entryName:    p.opts.MainEntryName,
		totals:       res.Totals,
		placeholders: p.layout.Placeholders(),
	}
	if err := saveHeader(res.HeaderPath, h, p.set); err != nil {
		return nil, err
	}
	if p.set.textWeights {
		if err := serializeBinaryToText(res.WeightsPath, res.IncludePath); err != nil {
			return nil, err
		}
	}

	sum, err := serialization.ChecksumFile(res.WeightsPath)
	if err != nil {
		return nil, fail("checksum weights", res.WeightsPath, ErrOpenFile, err)
	}
	res.WeightsSHA256 = sum
	return res, nil
}

// produceCode writes the code artifact. With an external compiler the
// module is printed as textual IR and compiled by it, otherwise the target
// machine emits an object directly.
func (p *producer) produceCode(res *Result) error {
	if p.opts.LLVMCompiler == "" {
		if p.tm == nil {
			return invariantf("emit object", "target machine not initialized")
		}
		res.CodePath = p.opts.path(".o")
		return writeFile("emit object", res.CodePath, func(w io.Writer) error {
			return p.tm.EmitObject(p.module, w)
		})
	}

	res.CodePath = p.opts.path(".ll")
	if err := writeFile("write module", res.CodePath, func(w io.Writer) error {
		return codegen.WriteText(w, p.module)
	}); err != nil {
		return err
	}
	res.ObjectPath = p.opts.path(".o")
	cmd, err := runExternalCompiler(p.opts.LLVMCompiler, p.opts.LLVMCompilerOptions, res.CodePath, res.ObjectPath)
	res.CompilerCommand = cmd
	return err
}

// runExternalCompiler runs compiler with options, the input path and
// "-o output", and waits for it. It returns the command line.
func runExternalCompiler(compiler string, options []string, input, output string) (string, error) {
	args := make([]string, 0, len(options)+3)
	args = append(args, options...)
	args = append(args, input, "-o", output)
	cmdline := strings.Join(append([]string{compiler}, args...), " ")
	Logger().Debug("running external compiler", zap.String("cmd", cmdline))

	//nolint:gosec // G204: The compiler and its options are user configuration
	cmd := exec.Command(compiler, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return cmdline, fail("run external compiler", cmdline, ErrExternalCompiler, err)
	}
	return cmdline, nil
}

// writeFile creates path, hands it to write and closes it. Open failures
// are ErrOpenFile, everything after is ErrWrite.
func writeFile(op, path string, write func(io.Writer) error) error {
	//nolint:gosec // G304: Output path is built from the configured output directory
	file, err := os.Create(path)
	if err != nil {
		return fail(op, path, ErrOpenFile, err)
	}
	if err := write(file); err != nil {
		_ = file.Close() // Best effort close on error
		var bundleErr *Error
		if errors.As(err, &bundleErr) {
			return err
		}
		return fail(op, path, ErrWrite, err)
	}
	if err := file.Close(); err != nil {
		return fail(op, path, ErrWrite, err)
	}
	return nil
}
