package stream

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func TestOpenInputPlainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.mrc")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	src, err := OpenInput(path)
	require.NoError(t, err)
	defer src.Close()

	got, err := io.ReadAll(src)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestOpenInputGzipBySuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.mrc.gz")
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte("hello"))
	gw.Close()
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	src, err := OpenInput(path)
	require.NoError(t, err)
	defer src.Close()

	got, err := io.ReadAll(src)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestOpenOutputRoundTripCompressed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mrc")
	sink, err := OpenOutput(path, 6)
	require.NoError(t, err)
	_, err = sink.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	gr, err := gzip.NewReader(bytes.NewReader(raw))
	require.NoError(t, err, "expected gzip-compressed output")

	got, err := io.ReadAll(gr)
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))
}
