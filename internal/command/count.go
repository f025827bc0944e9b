package command

import "fmt"

// Count implements the count/cnt subcommand: emit a single decimal
// integer, the number of records that passed the predicate.
func Count(opts Options) error {
	rc, err := newRunContext(opts)
	if err != nil {
		return err
	}
	defer rc.close()
	defer rc.finish()

	n := 0
	for {
		_, ok, err := rc.next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		n++
	}
	fmt.Fprintln(rc.sink, n)
	return nil
}
