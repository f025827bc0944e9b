package marc

// Record is a decoded MARC 21 record. Its fields and subfields are
// zero-copy views over the record's own raw buffer, so a Record
// remains valid and independent after the Decoder that produced it has
// moved on to the next one.
type Record struct {
	raw     []byte
	leader  Leader
	fields  []Field
	ordinal int
}

// Ordinal returns the record's zero-based position in the source
// stream it was decoded from, counting invalid records alongside valid
// ones.
func (r *Record) Ordinal() int { return r.ordinal }

// Raw returns the record's original, untouched bytes: leader,
// directory, data area, and terminators. It is the pass-through value
// concat, filter, and split write out.
func (r *Record) Raw() []byte { return r.raw }

// Leader returns the record's leader.
func (r *Record) Leader() Leader { return r.leader }

// Fields returns every field in document order.
func (r *Record) Fields() []Field { return r.fields }

// ControlField returns the value of the first control field matching
// tag, and whether one was found.
func (r *Record) ControlField(tag string) ([]byte, bool) {
	for _, f := range r.fields {
		if f.IsControl() && f.Tag() == tag {
			return f.ControlValue(), true
		}
	}
	return nil, false
}

// ControlNumber returns the value of control field 001, trimmed of
// nothing (the raw byte-string), or an empty slice if absent. It is
// the record id used by the hash command.
func (r *Record) ControlNumber() []byte {
	v, ok := r.ControlField("001")
	if !ok {
		return nil
	}
	return v
}
