package command

import (
	"fmt"
	"io"

	"github.com/deutsche-nationalbibliothek/marc21/marc"
)

// Print implements the print subcommand: render each matching record
// in the human-readable block format. Blocks are blank-line
// separated; the first line is the leader, then one line per field.
func Print(opts Options) error {
	rc, err := newRunContext(opts)
	if err != nil {
		return err
	}
	defer rc.close()
	defer rc.finish()

	first := true
	for {
		rec, ok, err := rc.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !first {
			fmt.Fprintln(rc.sink)
		}
		first = false
		writeRecord(rc.sink, rec)
	}
}

func writeRecord(w io.Writer, rec *marc.Record) {
	leader := rec.Leader()
	fmt.Fprintf(w, "LDR %s\n", leader[:])
	for _, f := range rec.Fields() {
		if f.IsControl() {
			fmt.Fprintf(w, "%s %s\n", f.Tag(), f.ControlValue())
			continue
		}
		ind := f.Indicators()
		fmt.Fprintf(w, "%s/%c%c", f.Tag(), renderIndicator(ind[0]), renderIndicator(ind[1]))
		for _, sf := range f.Subfields() {
			fmt.Fprintf(w, " $%c %s", sf.Code, sf.Value)
		}
		fmt.Fprintln(w)
	}
}

func renderIndicator(b byte) byte {
	if b == ' ' {
		return '#'
	}
	return b
}
