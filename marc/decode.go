package marc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Invalid carries the raw bytes and stream ordinal of a record that
// failed leader or directory validation, plus the reason. Ordinals are
// zero-based and count invalid records alongside valid ones.
type Invalid struct {
	Bytes   []byte
	Ordinal int
	Err     error
}

func (inv *Invalid) Error() string {
	return fmt.Sprintf("marc: invalid record at ordinal %d: %v", inv.Ordinal, inv.Err)
}

// Decoder reads a sequence of MARC 21 records from an underlying byte
// stream. It is single-pass: fields and subfields on the Record
// returned by Next are zero-copy views over that Record's own buffer,
// so a Record is safe to retain past the next call to Next without
// cloning.
type Decoder struct {
	r       *bufio.Reader
	ordinal int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next decodes the next record from the stream. Exactly one of the
// three results is meaningful:
//
//   - (rec, nil, nil): a valid record.
//   - (nil, inv, nil): an invalid record; the decoder has resynchronized
//     and is ready for the next call.
//   - (nil, nil, io.EOF): clean end of stream.
//   - (nil, nil, err): an underlying I/O error, err is not io.EOF.
func (d *Decoder) Next() (*Record, *Invalid, error) {
	lenBuf := make([]byte, 5)
	n, err := io.ReadFull(d.r, lenBuf)
	if n == 0 && errors.Is(err, io.EOF) {
		return nil, nil, io.EOF
	}
	if err != nil {
		// Fewer than 5 bytes before EOF: a partial trailing record,
		// always invalid.
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, d.invalid(lenBuf[:n], errors.New("truncated length prefix at end of stream")), nil
		}
		return nil, nil, err
	}

	if !isDigits(lenBuf) {
		raw, rerr := d.resync(lenBuf)
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return nil, nil, rerr
		}
		return nil, d.invalid(raw, errors.New("record length prefix is not 5 ASCII digits")), nil
	}

	length := atoiFixed(lenBuf)
	if length < LeaderSize+2 {
		full, rerr := d.resyncFrom(lenBuf)
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return nil, nil, rerr
		}
		return nil, d.invalid(full, errors.New("record length too small to hold a leader and terminators")), nil
	}
	body := make([]byte, length-5)
	n, err = io.ReadFull(d.r, body)
	if err != nil {
		raw := append(lenBuf, body[:n]...)
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, d.invalid(raw, errors.New("truncated record at end of stream")), nil
		}
		return nil, nil, err
	}

	raw := append(lenBuf, body...)
	if raw[length-1] != recordTerminator {
		full, rerr := d.resyncFrom(raw)
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return nil, nil, rerr
		}
		return nil, d.invalid(full, errors.New("record length prefix does not match actual record terminator")), nil
	}

	rec, verr := newRecordView(raw)
	if verr != nil {
		return nil, d.invalid(raw, verr), nil
	}
	rec.ordinal = d.ordinal
	d.ordinal++
	return rec, nil, nil
}

func (d *Decoder) invalid(raw []byte, err error) *Invalid {
	inv := &Invalid{Bytes: raw, Ordinal: d.ordinal, Err: err}
	d.ordinal++
	return inv
}

// resync is used when the 5-byte length prefix itself is not decimal:
// we have no trustworthy length, so collect bytes one at a time,
// starting from what we already consumed, until the next record
// terminator (or EOF).
func (d *Decoder) resync(already []byte) ([]byte, error) {
	return d.resyncFrom(already)
}

// resyncFrom scans forward byte-wise for a record terminator, starting
// from bytes already read (which contain no terminator), and returns
// everything consumed including the terminator.
func (d *Decoder) resyncFrom(already []byte) ([]byte, error) {
	buf := append([]byte(nil), already...)
	if i := bytes.IndexByte(buf, recordTerminator); i >= 0 {
		return buf[:i+1], nil
	}
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return buf, err
		}
		buf = append(buf, b)
		if b == recordTerminator {
			return buf, nil
		}
	}
}

// newRecordView parses and validates a fully-framed L-byte record
// buffer, returning a zero-copy Record view over it.
func newRecordView(raw []byte) (*Record, error) {
	if len(raw) < LeaderSize+2 {
		return nil, fmt.Errorf("marc: record shorter than minimum leader+terminators")
	}
	var leader Leader
	copy(leader[:], raw[:LeaderSize])

	if leader.Length() != len(raw) {
		return nil, fmt.Errorf("marc: leader length %d does not match actual length %d", leader.Length(), len(raw))
	}
	if err := leader.validate(); err != nil {
		return nil, err
	}

	base := leader.BaseAddress()
	if base <= LeaderSize || base > len(raw) {
		return nil, fmt.Errorf("marc: base address %d out of range", base)
	}
	if raw[base-1] != fieldTerminator {
		return nil, fmt.Errorf("marc: directory does not end with field terminator")
	}
	if raw[len(raw)-1] != recordTerminator {
		return nil, fmt.Errorf("marc: data area does not end with record terminator")
	}

	dir := raw[LeaderSize : base-1]
	if len(dir)%12 != 0 {
		return nil, fmt.Errorf("marc: directory length %d is not a multiple of 12", len(dir))
	}

	data := raw[base : len(raw)-1] // excludes the record terminator
	if bytes.IndexByte(data, recordTerminator) >= 0 {
		return nil, fmt.Errorf("marc: record terminator inside the data area before the end of the record")
	}
	fields := make([]Field, 0, len(dir)/12)
	for len(dir) > 0 {
		entry := dir[:12]
		dir = dir[12:]

		tag := string(entry[:3])
		if !isTag(tag) {
			return nil, fmt.Errorf("marc: tag %q is not 3 ASCII digits", tag)
		}
		flen := atoiFixed(entry[3:7])
		foff := atoiFixed(entry[7:12])
		if foff < 0 || flen < 1 || foff+flen > len(data) {
			return nil, fmt.Errorf("marc: field %s directory entry out of range (offset=%d length=%d data=%d)", tag, foff, flen, len(data))
		}
		fraw := data[foff : foff+flen]
		if fraw[len(fraw)-1] != fieldTerminator {
			return nil, fmt.Errorf("marc: field %s value does not end with field terminator", tag)
		}
		value := fraw[:len(fraw)-1]

		if isControlTag(tag) {
			if bytes.IndexByte(value, subfieldDelimiter) >= 0 {
				return nil, fmt.Errorf("marc: control field %s contains a subfield delimiter", tag)
			}
			fields = append(fields, Field{tag: tag, value: value, data: false})
			continue
		}

		if len(value) < 2 {
			return nil, fmt.Errorf("marc: data field %s shorter than its two indicators", tag)
		}
		body := value[2:]
		if len(body) == 0 {
			return nil, fmt.Errorf("marc: data field %s has no subfields", tag)
		}
		if err := validateSubfieldRuns(tag, body); err != nil {
			return nil, err
		}
		fields = append(fields, Field{tag: tag, value: value, data: true})
	}

	return &Record{raw: raw, leader: leader, fields: fields}, nil
}

func validateSubfieldRuns(tag string, body []byte) error {
	if body[0] != subfieldDelimiter {
		return fmt.Errorf("marc: data field %s subfields do not start with a delimiter", tag)
	}
	for pos := 0; pos < len(body); {
		if body[pos] != subfieldDelimiter {
			return fmt.Errorf("marc: data field %s subfield delimiters are not properly paired", tag)
		}
		if pos+1 >= len(body) {
			return fmt.Errorf("marc: data field %s has a delimiter with no code", tag)
		}
		next := pos + 2
		for next < len(body) && body[next] != subfieldDelimiter {
			next++
		}
		pos = next
	}
	return nil
}

func isTag(tag string) bool {
	if len(tag) != 3 {
		return false
	}
	return isDigits([]byte(tag))
}

func isControlTag(tag string) bool {
	return tag[0] == '0' && tag[1] == '0' && tag[2] != '0'
}
