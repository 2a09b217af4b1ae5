// Package main provides the born-aot bundle CLI.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/born-ml/aot/internal/bundle"
	"github.com/born-ml/aot/internal/manifest"
	"github.com/born-ml/aot/internal/serialization"
	"go.uber.org/zap"
)

const version = "v0.1.0-dev"

func usage() {
	fmt.Fprintln(os.Stderr, "born-aot - package compiled inference functions into bundles")
	fmt.Fprintf(os.Stderr, "Version: %s\n\n", version)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  save       Save a bundle described by a manifest (default)")
	fmt.Fprintln(os.Stderr, "  pack       Convert a .safetensors file to .born")
	fmt.Fprintln(os.Stderr, "  version    Show version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Run 'born-aot <command> -h' for command flags.")
}

func main() {
	cmd, args := "save", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "version":
		fmt.Printf("born-aot %s\n", version)
		return
	case "help":
		usage()
		return
	case "save":
		err = runSave(args)
	case "pack":
		err = runPack(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, " ") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// saveConfig is the parsed save command line.
type saveConfig struct {
	manifest     string
	body         string
	output       string
	api          bundle.APIMode
	apiSet       bool
	compiler     string
	compilerOpts stringList
	target       string
	mcpu         string
	verbose      bool
	verify       bool
}

func parseSaveFlags(args []string) (*saveConfig, error) {
	cfg := &saveConfig{}
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	fs.StringVar(&cfg.manifest, "manifest", "", "YAML bundle manifest (required)")
	fs.StringVar(&cfg.body, "body", "", "Precompiled function body (overrides the manifest)")
	fs.StringVar(&cfg.output, "output", "", "Output directory (overrides the manifest)")
	fs.TextVar(&cfg.api, "bundle-api", bundle.Dynamic, "Bundle API: dynamic or static (overrides the manifest)")
	fs.StringVar(&cfg.compiler, "llvm-compiler", "", "External compiler for the textual IR (overrides the manifest)")
	fs.Var(&cfg.compilerOpts, "llvm-compiler-opt", "Option passed to the external compiler (repeatable)")
	fs.StringVar(&cfg.target, "target", "", "Target triple")
	fs.StringVar(&cfg.mcpu, "mcpu", "", "Target CPU")
	fs.BoolVar(&cfg.verbose, "v", false, "Verbose logging")
	fs.BoolVar(&cfg.verify, "verify", false, "Re-read the bundle and check it against its layout")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "bundle-api" {
			cfg.apiSet = true
		}
	})
	if cfg.manifest == "" && fs.NArg() == 1 {
		cfg.manifest = fs.Arg(0)
	}
	if cfg.manifest == "" {
		return nil, errors.New("a manifest is required (-manifest file.yaml)")
	}
	return cfg, nil
}

// apply overrides manifest settings with command line flags. Paths given on
// the command line are relative to the working directory.
func (cfg *saveConfig) apply(m *manifest.Manifest) error {
	abs := func(p string) (string, error) {
		if p == "" {
			return "", nil
		}
		return filepath.Abs(p)
	}
	var err error
	if cfg.body != "" {
		if m.Body, err = abs(cfg.body); err != nil {
			return err
		}
	}
	if cfg.output != "" {
		if m.Output, err = abs(cfg.output); err != nil {
			return err
		}
	}
	if cfg.apiSet {
		m.API = cfg.api
	}
	if cfg.compiler != "" {
		m.LLVMCompiler = cfg.compiler
	}
	if len(cfg.compilerOpts) > 0 {
		m.LLVMCompilerOptions = append([]string(nil), cfg.compilerOpts...)
	}
	if cfg.target != "" {
		m.Target.Triple = cfg.target
	}
	if cfg.mcpu != "" {
		m.Target.CPU = cfg.mcpu
	}
	return nil
}

func runSave(args []string) error {
	cfg, err := parseSaveFlags(args)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()
	bundle.SetLogger(log)
	manifest.SetLogger(log)

	m, err := manifest.Load(cfg.manifest)
	if err != nil {
		return err
	}
	if err := cfg.apply(m); err != nil {
		return err
	}

	fn, err := m.Function()
	if err != nil {
		return err
	}
	gen, err := m.CodeGenerator()
	if err != nil {
		return err
	}
	allocator, err := m.Allocator()
	if err != nil {
		return err
	}

	opts := m.Options()
	//nolint:gosec // G301: Bundle artifacts are meant to be shared with the build
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	res, err := bundle.NewSaver(fn, gen, allocator).Save(opts)
	if err != nil {
		return err
	}
	if cfg.verify {
		if err := bundle.Verify(res); err != nil {
			return err
		}
		log.Info("bundle verified", zap.String("bundle", res.BundleName))
	}

	printSummary(os.Stdout, res, cfg.verify)
	return nil
}

func runPack(args []string) error {
	fs := flag.NewFlagSet("pack", flag.ContinueOnError)
	out := fs.String("o", "", "Output .born file (default: input with .born extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: born-aot pack [-o out.born] weights.safetensors")
	}
	in := fs.Arg(0)
	if *out == "" {
		*out = strings.TrimSuffix(in, filepath.Ext(in)) + ".born"
	}

	tensors, err := serialization.ReadTensors(in)
	if err != nil {
		return err
	}
	if err := serialization.WriteBorn(*out, tensors, map[string]string{"source": filepath.Base(in)}); err != nil {
		return err
	}
	fmt.Printf("Packed %d tensors into %s\n", len(tensors), *out)
	return nil
}
