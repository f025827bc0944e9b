package command

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
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

func buildRecordBytes(status, typ byte, fields []testField) []byte {
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

	const leaderSize = 24
	base := leaderSize + dir.Len()
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

func writeInputFile(t *testing.T, records ...[]byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "in.mrc")
	var buf bytes.Buffer
	for _, r := range records {
		buf.Write(r)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConcatPassesThroughValidRecords(t *testing.T) {
	r1 := buildRecordBytes('a', 'a', []testField{{"001", "1"}})
	r2 := buildRecordBytes('a', 'a', []testField{{"001", "2"}})
	inPath := writeInputFile(t, r1, r2)
	outPath := filepath.Join(t.TempDir(), "out.mrc")

	err := Concat(Options{Inputs: []string{inPath}, Output: outPath})
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	want := append(append([]byte{}, r1...), r2...)
	if !bytes.Equal(got, want) {
		t.Errorf("concat output does not match input bytes")
	}
}

func TestCountWithWhere(t *testing.T) {
	r1 := buildRecordBytes('a', 'a', []testField{{"001", "1"}})
	r2 := buildRecordBytes('z', 'a', []testField{{"001", "2"}})
	inPath := writeInputFile(t, r1, r2)
	outPath := filepath.Join(t.TempDir(), "out.txt")

	err := Count(Options{Inputs: []string{inPath}, Output: outPath, Where: `ldr.status == "z"`})
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "1\n" {
		t.Errorf("got %q, want %q", got, "1\n")
	}
}

func TestHashTSVFormat(t *testing.T) {
	r1 := buildRecordBytes('a', 'a', []testField{{"001", "X"}})
	inPath := writeInputFile(t, r1)
	outPath := filepath.Join(t.TempDir(), "out.txt")

	err := Hash(Options{Inputs: []string{inPath}, Output: outPath}, true)
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(got, []byte("X\t")) {
		t.Errorf("got %q, want it to start with \"X\\t\"", got)
	}
}

func TestSplitProducesExpectedChunkCounts(t *testing.T) {
	var recs [][]byte
	for i := 0; i < 10; i++ {
		recs = append(recs, buildRecordBytes('a', 'a', []testField{{"001", fmt.Sprintf("%d", i)}}))
	}
	inPath := writeInputFile(t, recs...)
	outDir := t.TempDir()

	err := Split(Options{Inputs: []string{inPath}}, 3, outDir, "p_{}.mrc")
	if err != nil {
		t.Fatal(err)
	}
	wantCounts := map[string]int{"p_0.mrc": 3, "p_1.mrc": 3, "p_2.mrc": 3, "p_3.mrc": 1}
	for name, wantN := range wantCounts {
		raw, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		n := bytes.Count(raw, []byte{recordTerminator})
		if n != wantN {
			t.Errorf("%s: got %d records, want %d", name, n, wantN)
		}
	}
}

func TestInvalidCommandEmitsOnlyInvalidRecords(t *testing.T) {
	valid := buildRecordBytes('a', 'a', []testField{{"001", "1"}})
	garbage := []byte("not a marc record at all")
	inPath := writeInputFile(t, valid, garbage)
	outPath := filepath.Join(t.TempDir(), "out.mrc")

	err := Invalid(Options{Inputs: []string{inPath}, Output: outPath})
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 {
		t.Error("expected some invalid output for trailing garbage")
	}
	if bytes.Equal(got, valid) {
		t.Error("invalid output should not be the valid record's own bytes")
	}
}
