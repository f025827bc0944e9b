package marc

import (
	"bytes"
	"fmt"
)

// testField describes one field to bake into a synthetic record.
type testField struct {
	tag   string
	value string // control field: literal value; data field: ind1+ind2+subfield runs, caller supplies delimiters
}

// buildRecord assembles a minimal, valid ISO 2709 record from a leader
// status/type pair and a list of fields, computing the directory and
// base address itself, since no binary fixture file is checked into
// this workspace.
func buildRecord(status, typ byte, fields []testField) []byte {
	var data bytes.Buffer
	type dirEntry struct {
		tag    string
		length int
		offset int
	}
	var entries []dirEntry
	for _, f := range fields {
		offset := data.Len()
		data.WriteString(f.value)
		data.WriteByte(fieldTerminator)
		entries = append(entries, dirEntry{f.tag, data.Len() - offset, offset})
	}
	data.WriteByte(recordTerminator)

	var dir bytes.Buffer
	for _, e := range entries {
		dir.WriteString(fmt.Sprintf("%s%04d%05d", e.tag, e.length, e.offset))
	}
	dir.WriteByte(fieldTerminator)

	base := LeaderSize + dir.Len()
	total := base + data.Len()

	var out bytes.Buffer
	fmt.Fprintf(&out, "%05d", total)
	out.WriteByte(status)
	out.WriteByte(typ)
	out.WriteString(" a 22") // biblevel, control, charcoding, ind count, subfield code len
	fmt.Fprintf(&out, "%05d", base)
	out.WriteString(" i 4500") // encoding level, form, multipart, entry map constant
	out.Write(dir.Bytes())
	out.Write(data.Bytes())
	return out.Bytes()
}

func dataFieldValue(ind1, ind2 byte, subs ...[2]string) string {
	var b bytes.Buffer
	b.WriteByte(ind1)
	b.WriteByte(ind2)
	for _, s := range subs {
		b.WriteByte(subfieldDelimiter)
		b.WriteString(s[0])
		b.WriteString(s[1])
	}
	return b.String()
}
