// Command marc21 is a toolkit for streaming transformations over
// MARC 21 (ISO 2709) bibliographic records: concatenation, counting,
// hashing, sampling, splitting, invalid-record extraction,
// pretty-printing, and predicate filtering.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/deutsche-nationalbibliothek/marc21/internal/command"
	"github.com/deutsche-nationalbibliothek/marc21/internal/errs"
)

var version = "dev"

func main() {
	app := buildApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "marc21: "+err.Error())
		os.Exit(1)
	}
}

// state carries the one thing every subcommand needs beyond its own
// flags: the structured logger, which is only known once Before has
// run (it depends on the global --debug flag). Every command closure
// below reads *state.logger, not a copy, so it always sees the value
// Before assigned before any Action runs.
type state struct {
	logger *zap.SugaredLogger
}

func buildApp() *cli.App {
	var debug bool
	st := &state{}

	app := &cli.App{
		Name:    "marc21",
		Usage:   "stream MARC 21 (ISO 2709) records: concat, count, filter, hash, invalid, print, sample, split",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "emit structured debug logs to stderr", Destination: &debug},
		},
		Before: func(c *cli.Context) error {
			var z *zap.Logger
			var err error
			if debug {
				z, err = zap.NewDevelopment()
			} else {
				z, err = zap.NewProduction()
			}
			if err != nil {
				return err
			}
			st.logger = z.Sugar()
			return nil
		},
		Commands: []*cli.Command{
			whereCapableCommand(st, "concat", []string{"cat"}, "pass through every matching record's raw bytes", noPositional, func(opts command.Options, c *cli.Context) error {
				return command.Concat(opts)
			}),
			whereCapableCommand(st, "count", []string{"cnt"}, "print the number of matching records", noPositional, func(opts command.Options, c *cli.Context) error {
				return command.Count(opts)
			}),
			filterCommand(st),
			whereCapableCommand(st, "hash", nil, "print \"<id> <sha256>\" for every matching record", tsvFlag, func(opts command.Options, c *cli.Context) error {
				return command.Hash(opts, c.Bool("tsv"))
			}),
			invalidCommand(st),
			whereCapableCommand(st, "print", nil, "render each matching record in human-readable form", noPositional, func(opts command.Options, c *cli.Context) error {
				return command.Print(opts)
			}),
			sampleCommand(st),
			splitCommand(st),
			completionCommand(),
			manCommand(),
		},
	}

	return app
}

func sharedFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output path, '-' or omitted for stdout"},
		&cli.IntFlag{Name: "compression", Aliases: []string{"c"}, Usage: "gzip level for output"},
		&cli.BoolFlag{Name: "skip-invalid", Aliases: []string{"s"}, Usage: "swallow invalid records instead of aborting"},
		&cli.BoolFlag{Name: "progress", Aliases: []string{"p"}, Usage: "emit periodic progress to stderr"},
	}
}

func whereFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "where", Usage: "optional filter expression applied as an implicit predicate"},
		&cli.IntFlag{Name: "strsim-threshold", Usage: "similarity threshold for =*/!* as an integer percent 0-100 (0 selects the default, 1 is read as 100); fractional values are not accepted", Value: 80},
	}
}

func tsvFlag() []cli.Flag {
	return []cli.Flag{&cli.BoolFlag{Name: "tsv", Usage: "separate id and hash with a tab instead of a space"}}
}

func noPositional() []cli.Flag { return nil }

func baseOptions(c *cli.Context, st *state) command.Options {
	return command.Options{
		Inputs:              c.Args().Slice(),
		Output:              c.String("output"),
		Compression:         c.Int("compression"),
		SkipInvalid:         c.Bool("skip-invalid"),
		Progress:            c.Bool("progress"),
		ProgressInterval:    2 * time.Second,
		Where:               c.String("where"),
		SimilarityThreshold: normalizeThreshold(c.Int("strsim-threshold")),
		Log:                 st.logger,
	}
}

func normalizeThreshold(n int) float64 {
	if n <= 0 {
		return 0
	}
	if n > 1 {
		return float64(n) / 100
	}
	return float64(n)
}

// whereCapableCommand builds a subcommand that shares the common flag
// set plus --where/--strsim-threshold plus whatever extra flags the
// caller supplies.
func whereCapableCommand(st *state, name string, aliases []string, usage string, extra func() []cli.Flag, run func(command.Options, *cli.Context) error) *cli.Command {
	flags := append(append(sharedFlags(), whereFlags()...), extra()...)
	return &cli.Command{
		Name:    name,
		Aliases: aliases,
		Usage:   usage,
		Flags:   flags,
		Action: func(c *cli.Context) error {
			return run(baseOptions(c, st), c)
		},
	}
}

func filterCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "filter",
		Usage:     "emit matching records' raw bytes; predicate is the first positional argument",
		ArgsUsage: "EXPR [path...]",
		Flags:     append(sharedFlags(), &cli.IntFlag{Name: "strsim-threshold", Value: 80}),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return errs.Wrapf(errs.UsageError, "filter", "missing required filter expression")
			}
			opts := command.Options{
				Inputs:              c.Args().Slice()[1:],
				Output:              c.String("output"),
				Compression:         c.Int("compression"),
				SkipInvalid:         c.Bool("skip-invalid"),
				Progress:            c.Bool("progress"),
				ProgressInterval:    2 * time.Second,
				Where:               c.Args().First(),
				SimilarityThreshold: normalizeThreshold(c.Int("strsim-threshold")),
				Log:                 st.logger,
			}
			return command.Filter(opts)
		},
	}
}

func invalidCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "invalid",
		Usage:     "emit the raw bytes of every invalid record",
		ArgsUsage: "[path...]",
		Flags:     sharedFlags(),
		Action: func(c *cli.Context) error {
			opts := command.Options{
				Inputs:           c.Args().Slice(),
				Output:           c.String("output"),
				Compression:      c.Int("compression"),
				SkipInvalid:      c.Bool("skip-invalid"),
				Progress:         c.Bool("progress"),
				ProgressInterval: 2 * time.Second,
				Log:              st.logger,
			}
			return command.Invalid(opts)
		},
	}
}

func sampleCommand(st *state) *cli.Command {
	flags := append(append(sharedFlags(), whereFlags()...), &cli.Int64Flag{Name: "seed", Usage: "deterministic PRNG seed"})
	return &cli.Command{
		Name:      "sample",
		Usage:     "reservoir-sample a fixed number of matching records",
		ArgsUsage: "SIZE [path...]",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return errs.Wrapf(errs.UsageError, "sample", "missing required sample size")
			}
			size, err := parsePositiveInt(c.Args().First())
			if err != nil {
				return errs.Wrap(errs.UsageError, "sample", err)
			}
			opts := command.Options{
				Inputs:              c.Args().Slice()[1:],
				Output:              c.String("output"),
				Compression:         c.Int("compression"),
				SkipInvalid:         c.Bool("skip-invalid"),
				Progress:            c.Bool("progress"),
				ProgressInterval:    2 * time.Second,
				Where:               c.String("where"),
				SimilarityThreshold: normalizeThreshold(c.Int("strsim-threshold")),
				Log:                 st.logger,
			}
			var seed *int64
			if c.IsSet("seed") {
				s := c.Int64("seed")
				seed = &s
			}
			return command.Sample(opts, size, seed)
		},
	}
}

func splitCommand(st *state) *cli.Command {
	flags := append(append(sharedFlags(), whereFlags()...),
		&cli.StringFlag{Name: "filename", Usage: "chunk filename template, '{}' is the zero-padded chunk ordinal"},
		&cli.StringFlag{Name: "outdir", Aliases: []string{"o"}, Usage: "output directory"},
	)
	return &cli.Command{
		Name:      "split",
		Usage:     "split matching records into fixed-size chunk files",
		ArgsUsage: "CHUNK_SIZE [path...]",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return errs.Wrapf(errs.UsageError, "split", "missing required chunk size")
			}
			size, err := parsePositiveInt(c.Args().First())
			if err != nil {
				return errs.Wrap(errs.UsageError, "split", err)
			}
			opts := command.Options{
				Inputs:              c.Args().Slice()[1:],
				Compression:         c.Int("compression"),
				SkipInvalid:         c.Bool("skip-invalid"),
				Progress:            c.Bool("progress"),
				ProgressInterval:    2 * time.Second,
				Where:               c.String("where"),
				SimilarityThreshold: normalizeThreshold(c.Int("strsim-threshold")),
				Log:                 st.logger,
			}
			return command.Split(opts, size, c.String("outdir"), c.String("filename"))
		},
	}
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, fmt.Errorf("expected a positive integer, got empty string")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("expected a positive integer, got %q", s)
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, fmt.Errorf("expected a positive integer, got %q", s)
	}
	return n, nil
}
