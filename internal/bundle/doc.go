// Package bundle packages a compiled function and its memory layout into a
// deployable bundle.
//
// A bundle is one code artifact (a native object, or textual LLVM IR that an
// external compiler turns into one), a binary weights file holding the
// constant region, a C header describing the layout and the entry point, and
// in static mode a textual copy of the weights for inclusion in C sources.
//
// Every number in the header, the embedded symbol table and the weights file
// comes from a single reconciled Layout, so the artifacts agree byte for byte.
//
// Two API modes are supported:
//
//   - Dynamic: the layout is discovered at run time through the
//     <entry>_config record and <entry>SymbolTable embedded in the code.
//   - Static: the layout is published as header macros and the weights are
//     also emitted as a .inc file, for targets without a file system.
//
// Basic usage:
//
//	saver := bundle.NewSaver(fn, gen, allocator)
//	res, err := saver.Save(bundle.Options{
//	    BundleName: "mnist",
//	    OutputDir:  "out",
//	    API:        bundle.Static,
//	})
package bundle
