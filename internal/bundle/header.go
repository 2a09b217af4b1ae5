package bundle

import (
	"fmt"
	"io"
	"strings"
)

// headerTemplate takes, in order: the upper-case bundle name twice, the
// common definitions, the model info and the API section.
const headerTemplate = `// Bundle API header file
// Auto-generated file. Do not edit!
#ifndef _BORN_BUNDLE_%s_H
#define _BORN_BUNDLE_%s_H

#include <stdint.h>

// ---------------------------------------------------------------
//                       Common definitions
// ---------------------------------------------------------------
#ifndef _BORN_BUNDLE_COMMON_DEFS
#define _BORN_BUNDLE_COMMON_DEFS
%s
#endif

// ---------------------------------------------------------------
//                          Bundle API
// ---------------------------------------------------------------
%s
// NOTE: Placeholders are allocated within the "mutableWeight"
// buffer and are identified using an offset relative to base.
// ---------------------------------------------------------------
#ifdef __cplusplus
extern "C" {
#endif
%s
#ifdef __cplusplus
}
#endif
#endif
`

const dynamicCommonDefines = `
// Type describing a symbol table entry of a generated bundle.
typedef struct SymbolTableEntry {
  // Name of a variable.
  const char *name;
  // Offset of the variable inside the memory area.
  uint64_t offset;
  // The number of elements inside this variable.
  uint64_t size;
  // Variable kind: 1 if it is a mutable variable, 0 otherwise.
  char kind;
} SymbolTableEntry;

// Type describing the config of a generated bundle.
typedef struct BundleConfig {
  // Size of the constant weight variables memory area.
  uint64_t constantWeightVarsMemSize;
  // Size of the mutable weight variables memory area.
  uint64_t mutableWeightVarsMemSize;
  // Size of the activations memory area.
  uint64_t activationsMemSize;
  // Alignment to be used for weights and activations.
  uint64_t alignment;
  // Number of symbols in the symbol table.
  uint64_t numSymbols;
  // Symbol table.
  const SymbolTableEntry *symbolTable;
} BundleConfig;
`

const staticCommonDefines = `
// Memory alignment definition with given alignment size
// for static allocation of memory.
#define BORN_MEM_ALIGN(size)  __attribute__((aligned(size)))

// Macro function to get the absolute address of a
// placeholder using the base address of the mutable
// weight buffer and placeholder offset definition.
#define BORN_GET_ADDR(mutableBaseAddr, placeholderOff)  (((uint8_t*)(mutableBaseAddr)) + placeholderOff)
`

// headerData is everything the header prints, taken from one Layout.
type headerData struct {
	bundleName   string
	entryName    string
	totals       Totals
	placeholders []Variable
}

func (h *headerData) macroPrefix() string {
	return macroName(strings.ToUpper(h.bundleName))
}

// macroName replaces characters that are not valid in a C identifier.
func macroName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// sizeMacros are the fixed static-mode macro suffixes.
var sizeMacros = []string{"CONSTANT_MEM_SIZE", "MUTABLE_MEM_SIZE", "ACTIVATIONS_MEM_SIZE", "MEM_ALIGN"}

// checkOffsetMacros rejects placeholders whose offset macros would redefine
// another placeholder's macro or a size macro.
func checkOffsetMacros(placeholders []Variable) error {
	owner := make(map[string]string, len(placeholders)+len(sizeMacros))
	for _, m := range sizeMacros {
		owner[m] = ""
	}
	for _, v := range placeholders {
		name := macroName(v.Name)
		if prev, ok := owner[name]; ok {
			if prev == "" {
				return invariantf("check header macros", "placeholder %q clashes with the %s macro", v.Name, name)
			}
			return invariantf("check header macros", "placeholders %q and %q both define the %s macro", prev, v.Name, name)
		}
		owner[name] = v.Name
	}
	return nil
}

func modelInfo(h *headerData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Model name: %q\n", h.bundleName)
	fmt.Fprintf(&b, "// Total data size: %d (bytes)\n", h.totals.Total())
	b.WriteString("// Placeholders:\n")
	for _, v := range h.placeholders {
		fmt.Fprintf(&b, "//\n"+
			"//   Name: %q\n"+
			"//   Type: %s\n"+
			"//   Shape: %s\n"+
			"//   Size: %d (elements)\n"+
			"//   Size: %d (bytes)\n"+
			"//   Offset: %d (bytes)\n",
			v.Name, v.ElementType, v.Shape, v.Size, v.SizeInBytes, v.Offset)
	}
	b.WriteString("//")
	return b.String()
}

func dynamicHeaderAPI(h *headerData) string {
	return "// Bundle memory configuration (memory layout)\n" +
		fmt.Sprintf("extern BundleConfig %s;\n", bundleConfigName(h.entryName)) +
		"\n"
}

func staticHeaderAPI(h *headerData) string {
	prefix := h.macroPrefix()
	var b strings.Builder

	width := 0
	for _, v := range h.placeholders {
		width = max(width, len(macroName(v.Name)))
	}
	b.WriteString("// Placeholder address offsets within mutable buffer (bytes)\n")
	for _, v := range h.placeholders {
		fmt.Fprintf(&b, "#define %s_%-*s  %d\n", prefix, width, macroName(v.Name), v.Offset)
	}
	b.WriteString("\n")

	b.WriteString("// Memory sizes (bytes)\n")
	fmt.Fprintf(&b, "#define %s_CONSTANT_MEM_SIZE     %d\n", prefix, h.totals.ConstantWeightVarsMemSize)
	fmt.Fprintf(&b, "#define %s_MUTABLE_MEM_SIZE      %d\n", prefix, h.totals.MutableWeightVarsMemSize)
	fmt.Fprintf(&b, "#define %s_ACTIVATIONS_MEM_SIZE  %d\n", prefix, h.totals.ActivationsMemSize)
	b.WriteString("\n")
	b.WriteString("// Memory alignment (bytes)\n")
	fmt.Fprintf(&b, "#define %s_MEM_ALIGN  %d\n", prefix, h.totals.Alignment)
	b.WriteString("\n")
	return b.String()
}

// renderHeader returns the complete header text.
func renderHeader(h *headerData, set artifactSet) string {
	api := "\n" + set.headerAPI(h) +
		"// Bundle entry point (inference function)\n" +
		fmt.Sprintf("void %s(uint8_t *constantWeight, uint8_t *mutableWeight, uint8_t *activations);\n", h.entryName)
	prefix := h.macroPrefix()
	return fmt.Sprintf(headerTemplate, prefix, prefix, set.commonDefines, modelInfo(h), api)
}

// saveHeader writes the header to path.
func saveHeader(path string, h *headerData, set artifactSet) error {
	return writeFile("write header", path, func(w io.Writer) error {
		_, err := io.WriteString(w, renderHeader(h, set))
		return err
	})
}
