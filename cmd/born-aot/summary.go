package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/born-ml/aot/internal/bundle"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Width(10)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	sizeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))
)

// printSummary prints the bundle summary, styled when w is a terminal.
func printSummary(w io.Writer, res *bundle.Result, verified bool) {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int
	}
	fmt.Fprint(w, renderSummary(res, verified, styled))
}

func renderSummary(res *bundle.Result, verified, styled bool) string {
	paint := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}
	label := func(text string) string {
		if !styled {
			return fmt.Sprintf("%-10s", text)
		}
		return labelStyle.Render(text)
	}

	var b strings.Builder
	b.WriteString(paint(titleStyle, fmt.Sprintf("Bundle %s (%s API)", res.BundleName, res.API)))
	b.WriteString("\n")

	row := func(name, value string) {
		fmt.Fprintf(&b, "  %s %s\n", label(name), value)
	}
	row("code", paint(pathStyle, res.CodePath))
	if res.ObjectPath != "" {
		row("object", paint(pathStyle, res.ObjectPath))
	}
	row("weights", fmt.Sprintf("%s %s", paint(pathStyle, res.WeightsPath),
		paint(sizeStyle, fmt.Sprintf("(%d bytes, sha256 %x)", res.Totals.ConstantWeightVarsMemSize, res.WeightsSHA256[:8]))))
	row("header", paint(pathStyle, res.HeaderPath))
	if res.IncludePath != "" {
		row("include", paint(pathStyle, res.IncludePath))
	}
	row("memory", paint(sizeStyle, fmt.Sprintf("constant %d, mutable %d, activations %d, align %d",
		res.Totals.ConstantWeightVarsMemSize,
		res.Totals.MutableWeightVarsMemSize,
		res.Totals.ActivationsMemSize,
		res.Totals.Alignment)))
	row("entry", fmt.Sprintf("%s, %d placeholders", res.EntryName, res.NumSymbols))
	if verified {
		row("verify", paint(okStyle, "ok"))
	}
	return b.String()
}
