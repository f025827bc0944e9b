// Package marc implements a streaming decoder and encoder for MARC 21
// (ISO 2709) bibliographic records.
package marc

import "fmt"

// LeaderSize is the fixed length of the MARC 21 record leader.
const LeaderSize = 24

// leader byte positions, per the MARC 21 leader layout.
const (
	posLength              = 0
	posStatus              = 5
	posType                = 6
	posBibLevel            = 7
	posControlType         = 8
	posCharCoding          = 9
	posIndicatorCount      = 10
	posSubfieldCodeLength  = 11
	posBaseAddress         = 12
	posEncodingLevel       = 17
	posDescCatForm         = 18
	posMultipartLevel      = 19
	posEntryMapFixed       = 20
)

const entryMapConstant = "4500"

// Leader holds the 24-byte leader of a decoded record, copied out of
// the record's backing buffer.
type Leader [LeaderSize]byte

// Length returns the leader's total-record-length slot (bytes 0-4) as
// an integer. The caller has already validated it is 5 ASCII digits.
func (l Leader) Length() int {
	return atoiFixed(l[posLength : posLength+5])
}

// Status returns the record status byte (position 5).
func (l Leader) Status() byte { return l[posStatus] }

// Type returns the record type byte (position 6).
func (l Leader) Type() byte { return l[posType] }

// BibliographicLevel returns the bibliographic level byte (position 7).
func (l Leader) BibliographicLevel() byte { return l[posBibLevel] }

// ControlType returns the control type byte (position 8).
func (l Leader) ControlType() byte { return l[posControlType] }

// CharacterCoding returns the character coding scheme byte (position 9).
func (l Leader) CharacterCoding() byte { return l[posCharCoding] }

// EncodingLevel returns the encoding level byte (position 17).
func (l Leader) EncodingLevel() byte { return l[posEncodingLevel] }

// DescriptiveCatalogingForm returns the descriptive cataloging form byte
// (position 18).
func (l Leader) DescriptiveCatalogingForm() byte { return l[posDescCatForm] }

// MultipartResourceRecordLevel returns the multipart resource record
// level byte (position 19).
func (l Leader) MultipartResourceRecordLevel() byte { return l[posMultipartLevel] }

// BaseAddress returns the base address of data slot (bytes 12-16) as an
// integer.
func (l Leader) BaseAddress() int {
	return atoiFixed(l[posBaseAddress : posBaseAddress+5])
}

// Slot looks up a leader value by the semantic names the filter
// language uses (ldr.status, ldr.type, and so on). ok is false for an
// unknown name.
func (l Leader) Slot(name string) (byte, bool) {
	switch name {
	case "status":
		return l.Status(), true
	case "type":
		return l.Type(), true
	case "bibliographic_level":
		return l.BibliographicLevel(), true
	case "control_type":
		return l.ControlType(), true
	case "character_coding":
		return l.CharacterCoding(), true
	case "encoding_level":
		return l.EncodingLevel(), true
	case "descriptive_cataloging_form":
		return l.DescriptiveCatalogingForm(), true
	case "multipart_resource_record_level":
		return l.MultipartResourceRecordLevel(), true
	default:
		return 0, false
	}
}

func atoiFixed(b []byte) int {
	n := 0
	for _, c := range b {
		n = n*10 + int(c-'0')
	}
	return n
}

func isDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// validate checks the fixed MARC21 leader constants: indicator_count
// == 2, subfield_code_length == 2, and the entry-map trailer "4500".
func (l Leader) validate() error {
	if !isDigits(l[posLength : posLength+5]) {
		return fmt.Errorf("leader: record length is not 5 ASCII digits")
	}
	if l[posIndicatorCount] != '2' {
		return fmt.Errorf("leader: indicator count must be 2, got %q", l[posIndicatorCount])
	}
	if l[posSubfieldCodeLength] != '2' {
		return fmt.Errorf("leader: subfield code length must be 2, got %q", l[posSubfieldCodeLength])
	}
	if !isDigits(l[posBaseAddress : posBaseAddress+5]) {
		return fmt.Errorf("leader: base address is not 5 ASCII digits")
	}
	if string(l[posEntryMapFixed:posEntryMapFixed+4]) != entryMapConstant {
		return fmt.Errorf("leader: entry map trailer must be %q, got %q", entryMapConstant, l[posEntryMapFixed:posEntryMapFixed+4])
	}
	return nil
}
