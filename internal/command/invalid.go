package command

import (
	"io"
	"os"

	"github.com/deutsche-nationalbibliothek/marc21/internal/progress"
	"github.com/deutsche-nationalbibliothek/marc21/internal/stream"
)

// Invalid implements the invalid subcommand: it bypasses the decoded
// path entirely and emits the raw bytes of every Invalid result,
// ignoring --where (rejected by the CLI layer) and --skip-invalid
// (meaningless here: this command's entire output is invalid records).
func Invalid(opts Options) error {
	dec, closeIn, err := openInputs(opts)
	if err != nil {
		return err
	}
	defer closeIn()

	sink, err := stream.OpenOutput(opts.Output, opts.Compression)
	if err != nil {
		return err
	}
	defer sink.Close()

	var ticker *progress.Ticker
	if opts.Progress {
		interval := opts.ProgressInterval
		if interval == 0 {
			interval = defaultInterval()
		}
		ticker = progress.NewTicker(os.Stderr, opts.Log, interval)
		defer ticker.Summary()
	}

	for {
		_, inv, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if inv == nil {
			if ticker != nil {
				ticker.Tick(true)
			}
			continue
		}
		if ticker != nil {
			ticker.Tick(false)
		}
		if _, err := sink.Write(inv.Bytes); err != nil {
			return err
		}
	}
}
