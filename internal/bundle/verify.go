package bundle

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/born-ml/aot/internal/serialization"
)

// Verify re-reads the files of a produced bundle and checks that they agree
// with the layout they were produced from: the weights file has exactly the
// constant region size and holds every constant payload at its offset, its
// checksum matches, the header carries the layout numbers, and the static
// .inc file decodes to the weights file.
func Verify(res *Result) error {
	const op = "verify bundle"
	if res == nil || res.Layout == nil {
		return invariantf(op, "result has no layout")
	}

	//nolint:gosec // G304: Path comes from a produced bundle
	weights, err := os.ReadFile(res.WeightsPath)
	if err != nil {
		return fail(op, res.WeightsPath, ErrOpenFile, err)
	}
	//nolint:gosec // G115: file sizes are never negative
	if uint64(len(weights)) != res.Totals.ConstantWeightVarsMemSize {
		return invariantf(op, "weights file has %d bytes, constant region is %d",
			len(weights), res.Totals.ConstantWeightVarsMemSize)
	}
	if err := serialization.ValidateChecksum(serialization.ComputeChecksum(weights), res.WeightsSHA256); err != nil {
		return fail(op, res.WeightsPath, ErrInvariant, err)
	}
	for _, v := range res.Layout.Constants() {
		got := weights[v.Offset : v.Offset+v.SizeInBytes]
		if !bytes.Equal(got, v.Payload) {
			return invariantf(op, "weights file bytes of %q at offset %d differ from its payload", v.Name, v.Offset)
		}
	}

	//nolint:gosec // G304: Path comes from a produced bundle
	header, err := os.ReadFile(res.HeaderPath)
	if err != nil {
		return fail(op, res.HeaderPath, ErrOpenFile, err)
	}
	for _, want := range expectedHeaderLines(res) {
		if !bytes.Contains(header, []byte(want)) {
			return invariantf(op, "header does not contain %q", want)
		}
	}

	if res.IncludePath == "" {
		return nil
	}
	//nolint:gosec // G304: Path comes from a produced bundle
	text, err := os.Open(res.IncludePath)
	if err != nil {
		return fail(op, res.IncludePath, ErrOpenFile, err)
	}
	defer func() {
		_ = text.Close()
	}()
	decoded, err := DecodeText(text)
	if err != nil {
		return fail(op, res.IncludePath, ErrInvariant, err)
	}
	if !bytes.Equal(decoded, weights) {
		return invariantf(op, "text weights decode to %d bytes that differ from the weights file", len(decoded))
	}
	return nil
}

// expectedHeaderLines lists header fragments that must match the layout.
func expectedHeaderLines(res *Result) []string {
	lines := []string{
		fmt.Sprintf("// Total data size: %d (bytes)\n", res.Totals.Total()),
		fmt.Sprintf("void %s(uint8_t *constantWeight,", res.EntryName),
	}
	for _, v := range res.Layout.Placeholders() {
		lines = append(lines, fmt.Sprintf("//   Offset: %d (bytes)\n", v.Offset))
	}
	switch res.API {
	case Dynamic:
		lines = append(lines, fmt.Sprintf("extern BundleConfig %s;\n", bundleConfigName(res.EntryName)))
	case Static:
		prefix := macroName(strings.ToUpper(res.BundleName))
		lines = append(lines,
			fmt.Sprintf("#define %s_CONSTANT_MEM_SIZE     %d\n", prefix, res.Totals.ConstantWeightVarsMemSize),
			fmt.Sprintf("#define %s_MUTABLE_MEM_SIZE      %d\n", prefix, res.Totals.MutableWeightVarsMemSize),
			fmt.Sprintf("#define %s_ACTIVATIONS_MEM_SIZE  %d\n", prefix, res.Totals.ActivationsMemSize),
			fmt.Sprintf("#define %s_MEM_ALIGN  %d\n", prefix, res.Totals.Alignment))
	}
	return lines
}
