// Package command implements the per-subcommand drivers shared by the
// marc21 CLI: each one consumes a stream of decoded records and writes
// a derivative to a sink.
package command

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/deutsche-nationalbibliothek/marc21/filter"
	"github.com/deutsche-nationalbibliothek/marc21/internal/errs"
	"github.com/deutsche-nationalbibliothek/marc21/internal/progress"
	"github.com/deutsche-nationalbibliothek/marc21/internal/stream"
	"github.com/deutsche-nationalbibliothek/marc21/marc"
)

// Options holds the shared flags every subcommand accepts, plus the
// where-capable subset. Fields left at their zero value mean "off".
type Options struct {
	Inputs      []string // positional paths; empty means stdin
	Output      string   // "" or "-" means stdout
	Compression int      // gzip level, 0 means "no forced compression"
	SkipInvalid bool
	Progress    bool
	ProgressInterval time.Duration

	Where               string // compiled once, up front, by compiledWhere
	SimilarityThreshold float64

	Log *zap.SugaredLogger
}

// compiledWhere compiles opts.Where, or returns nil if it is empty.
func compiledWhere(opts Options) (*filter.Expr, error) {
	if opts.Where == "" {
		return nil, nil
	}
	expr, err := filter.Compile(opts.Where, filter.CompileOptions{SimilarityThreshold: opts.SimilarityThreshold})
	if err != nil {
		switch err.(type) {
		case *filter.TypeError:
			return nil, errs.Wrap(errs.ExprTypeError, "where", err)
		case *filter.RegexErr:
			return nil, errs.Wrap(errs.RegexError, "where", err)
		default:
			return nil, errs.Wrap(errs.ExprParseError, "where", err)
		}
	}
	return expr, nil
}

func defaultInterval() time.Duration { return 2 * time.Second }

// openInputs opens opts.Inputs in order, or stdin if none were given,
// and returns a single Decoder reading them as one concatenated
// stream, plus a function to close every opened source.
func openInputs(opts Options) (*marc.Decoder, func() error, error) {
	if len(opts.Inputs) == 0 {
		src, err := stream.OpenInput("-")
		if err != nil {
			return nil, nil, err
		}
		return marc.NewDecoder(src), src.Close, nil
	}

	mr := &multiSource{paths: opts.Inputs}
	if err := mr.advance(); err != nil && err != io.EOF {
		return nil, nil, err
	}
	return marc.NewDecoder(mr), mr.Close, nil
}

// multiSource concatenates a sequence of paths into one io.Reader,
// opening the next file only once the previous one is exhausted, so
// at most one is open at a time.
type multiSource struct {
	paths   []string
	idx     int
	current *stream.Source
}

func (m *multiSource) advance() error {
	if m.current != nil {
		m.current.Close()
		m.current = nil
	}
	if m.idx >= len(m.paths) {
		return io.EOF
	}
	src, err := stream.OpenInput(m.paths[m.idx])
	if err != nil {
		return err
	}
	m.idx++
	m.current = src
	return nil
}

func (m *multiSource) Read(p []byte) (int, error) {
	for {
		if m.current == nil {
			return 0, io.EOF
		}
		n, err := m.current.Read(p)
		if n > 0 {
			return n, nil
		}
		if err == io.EOF {
			if aerr := m.advance(); aerr != nil {
				return 0, aerr
			}
			continue
		}
		if err != nil {
			return 0, err
		}
	}
}

func (m *multiSource) Close() error {
	if m.current != nil {
		return m.current.Close()
	}
	return nil
}

// runContext bundles what every subcommand needs: the decoded stream,
// the compiled predicate, progress tracking, and the output sink.
type runContext struct {
	opts    Options
	where   *filter.Expr
	dec     *marc.Decoder
	closeIn func() error
	sink    *stream.Sink
	ticker  *progress.Ticker
}

func newRunContext(opts Options) (*runContext, error) {
	where, err := compiledWhere(opts)
	if err != nil {
		return nil, err
	}
	dec, closeIn, err := openInputs(opts)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, "open input", err)
	}
	sink, err := stream.OpenOutput(opts.Output, opts.Compression)
	if err != nil {
		closeIn()
		return nil, err
	}
	var ticker *progress.Ticker
	if opts.Progress {
		interval := opts.ProgressInterval
		if interval == 0 {
			interval = defaultInterval()
		}
		ticker = progress.NewTicker(os.Stderr, opts.Log, interval)
	}
	return &runContext{opts: opts, where: where, dec: dec, closeIn: closeIn, sink: sink, ticker: ticker}, nil
}

func (rc *runContext) close() error {
	err1 := rc.closeIn()
	err2 := rc.sink.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// next decodes the next record, transparently handling Invalid per
// --skip-invalid and progress accounting. It returns (nil, false, nil)
// at clean EOF.
func (rc *runContext) next() (*marc.Record, bool, error) {
	for {
		rec, inv, err := rc.dec.Next()
		if err == io.EOF {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, errs.Wrap(errs.IoError, "decode", err)
		}
		if inv != nil {
			if rc.ticker != nil {
				rc.ticker.Tick(false)
			}
			if rc.opts.Log != nil {
				rc.opts.Log.Warnw("invalid record", "ordinal", inv.Ordinal, "reason", inv.Err)
			}
			if rc.opts.SkipInvalid {
				continue
			}
			return nil, false, errs.Wrapf(errs.DecodeError, "decode", "invalid record at ordinal %d: %v", inv.Ordinal, inv.Err)
		}
		if rc.ticker != nil {
			rc.ticker.Tick(true)
		}
		if rc.where != nil && !rc.where.Matches(rec) {
			continue
		}
		return rec, true, nil
	}
}

func (rc *runContext) finish() {
	if rc.ticker != nil {
		rc.ticker.Summary()
	}
}
