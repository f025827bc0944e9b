// Package stream provides the plain/gzip byte-stream layer shared by
// every subcommand: opening an input (a path, "-" for stdin, with
// transparent gzip detection by suffix or magic bytes) and a matching
// output sink.
package stream

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/deutsche-nationalbibliothek/marc21/internal/errs"
)

const gzipMagic0, gzipMagic1 = 0x1f, 0x8b

// Source is a readable input stream plus whatever needs closing when
// the caller is done with it.
type Source struct {
	io.Reader
	closers []io.Closer
}

// Close closes every underlying resource opened for this Source, in
// reverse order (gzip reader before the file it wraps).
func (s *Source) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenInput opens path for reading, or stdin if path is "-" or empty.
// Gzip input is detected either by a ".gz" suffix or, for stdin where
// no suffix is available, by peeking the 2-byte gzip magic number.
func OpenInput(path string) (*Source, error) {
	var f io.Reader
	var closers []io.Closer

	if path == "" || path == "-" {
		f = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, errs.Wrap(errs.IoError, "stream.OpenInput", err)
		}
		f = file
		closers = append(closers, file)
	}

	br := bufio.NewReaderSize(f, 64*1024)

	gz := strings.HasSuffix(path, ".gz")
	if !gz {
		peek, err := br.Peek(2)
		if err == nil && len(peek) == 2 && peek[0] == gzipMagic0 && peek[1] == gzipMagic1 {
			gz = true
		}
	}

	if !gz {
		return &Source{Reader: br, closers: closers}, nil
	}

	gr, err := gzip.NewReader(br)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, errs.Wrap(errs.IoError, "stream.OpenInput", err)
	}
	closers = append(closers, gr)
	return &Source{Reader: gr, closers: closers}, nil
}

// Sink is a writable output stream plus whatever needs flushing and
// closing when the caller is done with it.
type Sink struct {
	io.Writer
	flushers []func() error
	closers  []io.Closer
}

// Close flushes and closes every underlying resource, in reverse
// order of opening (gzip writer before the file it wraps).
func (s *Sink) Close() error {
	var first error
	for i := len(s.flushers) - 1; i >= 0; i-- {
		if err := s.flushers[i](); err != nil && first == nil {
			first = err
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenOutput opens path for writing (truncating it), or stdout if path
// is "-" or empty. level is the gzip compression level in 1..9; a
// level of 0 means "not explicitly requested" and output is only
// gzip-compressed if path ends in ".gz", at the library's default
// level. A positive level forces gzip compression at that level
// regardless of the path's suffix.
func OpenOutput(path string, level int) (*Sink, error) {
	var w io.Writer
	var closers []io.Closer

	if path == "" || path == "-" {
		w = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return nil, errs.Wrap(errs.IoError, "stream.OpenOutput", err)
		}
		w = file
		closers = append(closers, file)
	}

	bw := bufio.NewWriterSize(w, 64*1024)
	flushers := []func() error{bw.Flush}

	if level <= 0 && !strings.HasSuffix(path, ".gz") {
		return &Sink{Writer: bw, flushers: flushers, closers: closers}, nil
	}

	gzLevel := level
	if gzLevel <= 0 {
		gzLevel = gzip.DefaultCompression
	}
	gw, err := gzip.NewWriterLevel(bw, gzLevel)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, "stream.OpenOutput", err)
	}
	flushers = append(flushers, gw.Close)
	return &Sink{Writer: gw, flushers: flushers, closers: closers}, nil
}
