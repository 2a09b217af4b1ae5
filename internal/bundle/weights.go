package bundle

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// span is a half-open byte range [start, end).
type span struct {
	start, end uint64
}

// coverage is the union of written ranges. Writes never move backwards, so
// appending keeps it sorted.
type coverage []span

func (c coverage) add(s span) coverage {
	if n := len(c); n > 0 && c[n-1].end >= s.start {
		if s.end > c[n-1].end {
			c[n-1].end = s.end
		}
		return c
	}
	return append(c, s)
}

func (c coverage) covers(s span) bool {
	if s.start == s.end {
		return true
	}
	for _, w := range c {
		if w.start <= s.start && s.end <= w.end {
			return true
		}
	}
	return false
}

// saveWeights writes the constant region of l to path.
func saveWeights(path string, l *Layout) error {
	//nolint:gosec // G304: Output path is built from the configured output directory
	file, err := os.Create(path)
	if err != nil {
		return fail("open weights file", path, ErrOpenFile, err)
	}
	if err := writeWeights(file, l); err != nil {
		_ = file.Close() // Best effort close on error
		var bundleErr *Error
		if errors.As(err, &bundleErr) {
			bundleErr.Path = path
		}
		return err
	}
	if err := file.Close(); err != nil {
		return fail("close weights file", path, ErrWrite, err)
	}
	return nil
}

// writeWeights writes every constant payload at its offset and pads the
// output with zeros up to the constant region size.
//
// Constants are visited in enumeration order. A constant starting before the
// end of the previous write aliases bytes that are already written and is
// skipped; its whole range must lie inside bytes written so far.
func writeWeights(w io.WriteSeeker, l *Layout) error {
	var (
		pos, maxPos uint64
		written     coverage
		last        string
	)
	for _, v := range l.Constants() {
		r := span{start: v.Offset, end: v.Offset + v.SizeInBytes}
		if v.Offset < pos {
			if !written.covers(r) {
				return invariantf("write weights",
					"constant %q at [%d, %d) starts inside a previous write but is not covered by it",
					v.Name, r.start, r.end)
			}
			Logger().Debug("skipping aliased constant",
				zap.String("name", v.Name),
				zap.Uint64("offset", v.Offset),
				zap.Uint64("size", v.SizeInBytes))
			continue
		}
		if uint64(len(v.Payload)) != v.SizeInBytes {
			return invariantf("write weights", "constant %q has %d payload bytes, layout says %d",
				v.Name, len(v.Payload), v.SizeInBytes)
		}
		//nolint:gosec // G115: offsets are bounded by the constant region size
		if _, err := w.Seek(int64(v.Offset), io.SeekStart); err != nil {
			return fail("write weights", "", ErrWrite, fmt.Errorf("failed to seek to %q: %w", v.Name, err))
		}
		if _, err := w.Write(v.Payload); err != nil {
			return fail("write weights", "", ErrWrite, fmt.Errorf("failed to write %q: %w", v.Name, err))
		}
		pos = r.end
		maxPos = max(maxPos, pos)
		written = written.add(r)
		last = v.Name
	}

	size := l.Totals().ConstantWeightVarsMemSize
	if maxPos > size {
		return invariantf("write weights", "wrote %d bytes, constant region is %d", maxPos, size)
	}
	//nolint:gosec // G115: bounded by the constant region size
	if _, err := w.Seek(int64(maxPos), io.SeekStart); err != nil {
		return fail("write weights", "", ErrWrite, fmt.Errorf("failed to seek to padding after %q: %w", last, err))
	}
	if err := writeZeros(w, size-maxPos); err != nil {
		return fail("write weights", "", ErrWrite, fmt.Errorf("failed to write padding after %q: %w", last, err))
	}
	return nil
}

func writeZeros(w io.Writer, n uint64) error {
	const chunk = 4096
	zeros := make([]byte, min(n, chunk))
	for n > 0 {
		k := min(n, chunk)
		if _, err := w.Write(zeros[:k]); err != nil {
			return err
		}
		n -= k
	}
	return nil
}
