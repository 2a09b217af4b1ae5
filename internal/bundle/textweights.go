package bundle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// textBytesPerLine is the number of bytes per line of a .inc file.
const textBytesPerLine = 20

// EncodeText writes r as a C array initializer body: " 0XHH," per byte, a
// newline after every 20th byte and one final newline.
func EncodeText(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	for i := 0; ; i++ {
		ch, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read weights: %w", err)
		}
		fmt.Fprintf(bw, " 0X%02X,", ch)
		if i%textBytesPerLine == textBytesPerLine-1 {
			bw.WriteByte('\n')
		}
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

// DecodeText parses the output of EncodeText back into bytes.
func DecodeText(r io.Reader) ([]byte, error) {
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read text weights: %w", err)
	}
	var out []byte
	for i, field := range strings.Split(string(text), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		hex, ok := strings.CutPrefix(field, "0X")
		if !ok {
			hex, ok = strings.CutPrefix(field, "0x")
		}
		if !ok {
			return nil, fmt.Errorf("field %d: %q is not a hex byte", i, field)
		}
		v, err := strconv.ParseUint(hex, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// serializeBinaryToText encodes the binary file binPath into txtPath.
func serializeBinaryToText(binPath, txtPath string) error {
	//nolint:gosec // G304: Input is the weights file written by this package
	in, err := os.Open(binPath)
	if err != nil {
		return fail("open weights file", binPath, ErrOpenFile, err)
	}
	defer func() {
		_ = in.Close()
	}()
	return writeFile("write text weights", txtPath, func(w io.Writer) error {
		return EncodeText(in, w)
	})
}
