package command

import "github.com/deutsche-nationalbibliothek/marc21/marc"

// Filter implements the filter subcommand: its predicate is the
// required positional expression, passed in as opts.Where by the CLI
// layer (unlike the where-capable subcommands, filter does not also
// accept a separate --where flag). Otherwise it behaves exactly like
// Concat: pass through every matching record's raw bytes.
func Filter(opts Options) error {
	rc, err := newRunContext(opts)
	if err != nil {
		return err
	}
	defer rc.close()
	defer rc.finish()

	for {
		rec, ok, err := rc.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if _, err := marc.Encode(rc.sink, rec); err != nil {
			return err
		}
	}
}
