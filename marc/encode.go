package marc

import "io"

// Encode writes a record's raw bytes to sink. Since this package never
// mutates a decoded Record, encoding is always a pass-through of the
// bytes produced by the Decoder — re-encoding a valid record is
// bit-identical to its input.
func Encode(w io.Writer, r *Record) (int64, error) {
	n, err := w.Write(r.raw)
	return int64(n), err
}
