// Package codegen models the compiled module that a bundle is emitted into.
//
// A Module wraps an llir/llvm module. Globals, constants and generated
// functions are built with the llir API; function bodies produced by an
// external code generator are carried as opaque text and appended when the
// module is printed. The printed textual LLVM IR doubles as the bundle's
// portable intermediate form.
//
// Native object files are produced by a TargetMachine. ExternalTarget runs a
// host compiler (clang by default) over the printed module.
package codegen

// TensorAlignment is the byte alignment of every tensor in a bundle's memory
// regions. It is reported to clients in the bundle config and header.
const TensorAlignment = 64

// MainFunctionName is the name of the compiled function body that bundle
// entry points forward to.
const MainFunctionName = "main"
