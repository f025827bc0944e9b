package command

import "github.com/deutsche-nationalbibliothek/marc21/marc"

// Concat implements the concat/cat subcommand: pass through every
// (valid, where-matching) record's raw bytes, in input order.
func Concat(opts Options) error {
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
