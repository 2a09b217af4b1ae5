package codegen

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/llir/llvm/ir/enum"
)

// WriteText prints m as textual LLVM IR: the llir module first, then the
// prelude, then the opaque function definitions.
func WriteText(w io.Writer, m *Module) error {
	bw := bufio.NewWriter(w)

	if _, err := m.llvm.WriteTo(bw); err != nil {
		return fmt.Errorf("failed to print module: %w", err)
	}

	if m.Prelude != "" {
		bw.WriteString("\n")
		bw.WriteString(strings.TrimRight(m.Prelude, "\n"))
		bw.WriteString("\n")
	}

	for _, f := range m.opaque {
		bw.WriteString("\n")
		writeOpaque(bw, f)
	}

	return bw.Flush()
}

// Text is WriteText into a string.
func Text(m *Module) string {
	var sb strings.Builder
	_ = WriteText(&sb, m) // strings.Builder never fails
	return sb.String()
}

func linkageKeyword(l enum.Linkage) string {
	switch l {
	case enum.LinkagePrivate:
		return "private "
	case enum.LinkageInternal:
		return "internal "
	default:
		return ""
	}
}

func writeOpaque(w *bufio.Writer, f *OpaqueFunc) {
	ret := f.Sig.RetType.LLString()
	if f.IsDeclaration() {
		params := make([]string, len(f.Params))
		for i, p := range f.Params {
			params[i] = p.Typ.LLString()
		}
		fmt.Fprintf(w, "declare %s %s(%s)\n", ret, f.Ident(), strings.Join(params, ", "))
		return
	}

	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %%%d", p.Typ.LLString(), i)
	}
	fmt.Fprintf(w, "define %s%s %s(%s) {\n", linkageKeyword(f.Linkage), ret, f.Ident(), strings.Join(params, ", "))
	w.WriteString(strings.Trim(f.Body, "\n"))
	w.WriteString("\n}\n")
}
