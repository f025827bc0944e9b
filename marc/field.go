package marc

import "bytes"

// Field terminators and delimiters used inside the ISO 2709 data area.
const (
	subfieldDelimiter = 0x1f
	fieldTerminator   = 0x1e
	recordTerminator  = 0x1d
)

// Field is a zero-copy view of one control or data field, borrowing
// from the Record's backing buffer.
type Field struct {
	tag   string
	value []byte // control: opaque value; data: 2 indicator bytes + subfield runs
	data  bool
}

// Tag returns the field's 3-digit tag.
func (f Field) Tag() string { return f.tag }

// IsControl reports whether the field is a control field (tag 001-009).
func (f Field) IsControl() bool { return !f.data }

// IsData reports whether the field is a data field (tag 010-999).
func (f Field) IsData() bool { return f.data }

// ControlValue returns the opaque value of a control field. It panics
// if called on a data field; callers should check IsControl first.
func (f Field) ControlValue() []byte {
	if f.data {
		panic("marc: ControlValue called on data field")
	}
	return f.value
}

// Indicators returns the two indicator bytes of a data field. It
// panics if called on a control field.
func (f Field) Indicators() [2]byte {
	if !f.data {
		panic("marc: Indicators called on control field")
	}
	return [2]byte{f.value[0], f.value[1]}
}

// Subfields returns the data field's subfields in document order. It
// panics if called on a control field.
func (f Field) Subfields() []Subfield {
	if !f.data {
		panic("marc: Subfields called on control field")
	}
	body := f.value[2:]
	subs := make([]Subfield, 0, 4)
	pos := 0
	for pos < len(body) {
		// body is already validated: every run starts with a delimiter
		// followed by a code byte.
		code := body[pos+1]
		start := pos + 2
		end := len(body)
		if next := bytes.IndexByte(body[start:], subfieldDelimiter); next >= 0 {
			end = start + next
		}
		subs = append(subs, Subfield{Code: code, Value: body[start:end]})
		pos = end
	}
	return subs
}

// Subfield is a (code, value) pair inside a data field.
type Subfield struct {
	Code  byte
	Value []byte
}
