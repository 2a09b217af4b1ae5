// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package bundle_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/aot/bundle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextRoundTrip(t *testing.T) {
	data := []byte{0x00, 0x7F, 0x80, 0xFF}
	var buf bytes.Buffer
	require.NoError(t, bundle.EncodeText(bytes.NewReader(data), &buf))
	assert.Equal(t, " 0X00, 0X7F, 0X80, 0XFF,\n", buf.String())

	decoded, err := bundle.DecodeText(&buf)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestParseAPIMode(t *testing.T) {
	mode, err := bundle.ParseAPIMode("static")
	require.NoError(t, err)
	assert.Equal(t, bundle.Static, mode)
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bundle: net\napi: dynamic\n"), 0o600))

	m, err := bundle.LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "net", m.Options().BundleName)

	fn, err := m.Function()
	require.NoError(t, err)
	assert.Empty(t, fn.Values())

	a, err := bundle.NewLinearAllocator(64)
	require.NoError(t, err)
	assert.NotNil(t, a)
	_, err = bundle.NewLinearAllocator(3)
	assert.Error(t, err)
}
