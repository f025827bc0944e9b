package marc

import (
	"bytes"
	"io"
	"testing"
)

func simpleValidRecord() []byte {
	return buildRecord('a', 'a', []testField{
		{"001", "119232022"},
		{"245", dataFieldValue(' ', '0', [2]string{"a", "Love in the time of cholera /"})},
		{"100", dataFieldValue('1', '#', [2]string{"a", "Garcia Marquez, Gabriel."})},
	})
}

func TestDecodeValidRecord(t *testing.T) {
	raw := simpleValidRecord()
	d := NewDecoder(bytes.NewReader(raw))

	rec, inv, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv != nil {
		t.Fatalf("unexpected invalid: %v", inv.Err)
	}
	if rec.Leader().Status() != 'a' {
		t.Errorf("status = %q, want 'a'", rec.Leader().Status())
	}
	if got, ok := rec.ControlField("001"); !ok || string(got) != "119232022" {
		t.Errorf("control 001 = %q, ok=%v", got, ok)
	}
	if !bytes.Equal(rec.Raw(), raw) {
		t.Errorf("raw bytes changed during decode")
	}

	_, _, err = d.Next()
	if err != io.EOF {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	raw := simpleValidRecord()
	d := NewDecoder(bytes.NewReader(raw))
	rec, inv, err := d.Next()
	if err != nil || inv != nil {
		t.Fatalf("decode failed: err=%v inv=%v", err, inv)
	}

	var buf bytes.Buffer
	if _, err := Encode(&buf, rec); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), raw) {
		t.Errorf("decode-then-encode is not bit-identical:\n got  %x\n want %x", buf.Bytes(), raw)
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	d := NewDecoder(bytes.NewReader(nil))
	_, _, err := d.Next()
	if err != io.EOF {
		t.Errorf("expected io.EOF on empty input, got %v", err)
	}
}

func TestDecodeZeroLengthLeader(t *testing.T) {
	raw := []byte("00000" + string(make([]byte, 19)) + string(rune(recordTerminator)))
	d := NewDecoder(bytes.NewReader(raw))
	_, inv, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv == nil {
		t.Fatal("expected invalid record for leader length 00000")
	}
}

func TestDecodeTrailingGarbageAtEOF(t *testing.T) {
	raw := append(simpleValidRecord(), []byte("12345")...)
	d := NewDecoder(bytes.NewReader(raw))

	_, inv, err := d.Next()
	if err != nil || inv != nil {
		t.Fatalf("first record should decode cleanly: err=%v inv=%v", err, inv)
	}

	_, inv, err = d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv == nil {
		t.Fatal("expected invalid trailing partial record")
	}
	if string(inv.Bytes) != "12345" {
		t.Errorf("invalid bytes = %q, want %q", inv.Bytes, "12345")
	}
}

func TestDecodeEmbeddedTerminatorInSubfieldIsInvalidNotSplit(t *testing.T) {
	// A record terminator byte embedded in a subfield value, before the
	// real terminator derived from the leader length, makes the record
	// invalid, but must not cause the decoder to split the stream early:
	// the invalid result carries the whole length-framed record.
	raw := buildRecord('a', 'a', []testField{
		{"001", "1"},
		{"245", dataFieldValue(' ', '0', [2]string{"a", "odd\x1dvalue"})},
	})
	d := NewDecoder(bytes.NewReader(raw))
	_, inv, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv == nil {
		t.Fatal("expected invalid record for an embedded record terminator")
	}
	if !bytes.Equal(inv.Bytes, raw) {
		t.Errorf("invalid bytes = %q, want the whole record %q", inv.Bytes, raw)
	}
	if _, _, err := d.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after the single framed record, got %v", err)
	}
}

func TestDecodeResynchronizesAfterInvalidRecord(t *testing.T) {
	good := simpleValidRecord()
	var bad bytes.Buffer
	bad.WriteString("abcde") // non-digit length prefix
	bad.WriteString("junk data here")
	bad.WriteByte(recordTerminator)

	stream := append(bad.Bytes(), good...)
	d := NewDecoder(bytes.NewReader(stream))

	_, inv, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv == nil {
		t.Fatal("expected first record to be invalid")
	}
	if inv.Ordinal != 0 {
		t.Errorf("ordinal = %d, want 0", inv.Ordinal)
	}

	rec, inv, err := d.Next()
	if err != nil || inv != nil {
		t.Fatalf("expected decoder to resynchronize onto the valid record: err=%v inv=%v", err, inv)
	}
	if rec.Ordinal() != 1 {
		t.Errorf("ordinal = %d, want 1", rec.Ordinal())
	}
}

func TestDecodeInvalidIndicatorCount(t *testing.T) {
	raw := simpleValidRecord()
	raw[10] = '1' // corrupt indicator_count
	d := NewDecoder(bytes.NewReader(raw))
	_, inv, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv == nil {
		t.Fatal("expected invalid record for bad indicator_count")
	}
}
