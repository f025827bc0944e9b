package filter

import (
	"bytes"
	"fmt"

	"github.com/deutsche-nationalbibliothek/marc21/marc"
)

const (
	subfieldDelimiter = 0x1f
	fieldTerminator   = 0x1e
	recordTerminator  = 0x1d
)

type testField struct {
	tag   string
	value string
}

// buildRecord mirrors the marc package's own test builder: it exists
// because no binary MARC fixture is available in this workspace.
func buildRecord(status, typ byte, fields []testField) *marc.Record {
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

	base := marc.LeaderSize + dir.Len()
	total := base + data.Len()

	var out bytes.Buffer
	fmt.Fprintf(&out, "%05d", total)
	out.WriteByte(status)
	out.WriteByte(typ)
	out.WriteString(" a 22")
	fmt.Fprintf(&out, "%05d", base)
	out.WriteString(" i 4500")
	out.Write(dir.Bytes())
	out.Write(data.Bytes())

	dec := marc.NewDecoder(bytes.NewReader(out.Bytes()))
	rec, inv, err := dec.Next()
	if err != nil || inv != nil {
		panic(fmt.Sprintf("testutil: buildRecord produced an invalid record: err=%v inv=%v", err, inv))
	}
	return rec
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
