package command

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash implements the hash subcommand: for each matching record, emit
// "<record-id> <hex SHA-256 of raw bytes>", tab-separated under --tsv
// or space-separated otherwise. The id is control field 001, empty if
// absent.
func Hash(opts Options, tsv bool) error {
	rc, err := newRunContext(opts)
	if err != nil {
		return err
	}
	defer rc.close()
	defer rc.finish()

	sep := " "
	if tsv {
		sep = "\t"
	}

	for {
		rec, ok, err := rc.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		sum := sha256.Sum256(rec.Raw())
		fmt.Fprintf(rc.sink, "%s%s%s\n", rec.ControlNumber(), sep, hex.EncodeToString(sum[:]))
	}
}
