package dicom

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// CharacterSet decodes and encodes text values according to a
// SpecificCharacterSet value. The first defined term selects the encoding;
// code extension escape sequences are handled for the ISO 2022 Japanese
// repertoires only.
type CharacterSet struct {
	terms []string
	enc   encoding.Encoding // nil means the default repertoire
}

// DefaultCharacterSet is the ISO IR 6 repertoire used when a dataset has
// no SpecificCharacterSet.
var DefaultCharacterSet = &CharacterSet{}

var encodings = map[string]encoding.Encoding{
	"ISO_IR 100":      charmap.ISO8859_1,
	"ISO_IR 101":      charmap.ISO8859_2,
	"ISO_IR 109":      charmap.ISO8859_3,
	"ISO_IR 110":      charmap.ISO8859_4,
	"ISO_IR 144":      charmap.ISO8859_5,
	"ISO_IR 127":      charmap.ISO8859_6,
	"ISO_IR 126":      charmap.ISO8859_7,
	"ISO_IR 138":      charmap.ISO8859_8,
	"ISO_IR 148":      charmap.ISO8859_9,
	"ISO_IR 203":      charmap.ISO8859_15,
	"ISO_IR 166":      charmap.Windows874,
	"ISO_IR 13":       japanese.ShiftJIS,
	"ISO_IR 192":      unicode.UTF8,
	"GB18030":         simplifiedchinese.GB18030,
	"GBK":             simplifiedchinese.GBK,
	"ISO 2022 IR 6":   nil,
	"ISO 2022 IR 100": charmap.ISO8859_1,
	"ISO 2022 IR 101": charmap.ISO8859_2,
	"ISO 2022 IR 144": charmap.ISO8859_5,
	"ISO 2022 IR 126": charmap.ISO8859_7,
	"ISO 2022 IR 13":  japanese.ShiftJIS,
	"ISO 2022 IR 87":  japanese.ISO2022JP,
	"ISO 2022 IR 159": japanese.ISO2022JP,
	"ISO 2022 IR 149": korean.EUCKR,
	"ISO 2022 IR 58":  simplifiedchinese.HZGB2312,
}

// ParseCharacterSet builds a character set from the values of a
// SpecificCharacterSet element. Unknown terms fall back to the default
// repertoire.
func ParseCharacterSet(terms []string) *CharacterSet {
	cs := &CharacterSet{terms: terms}
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if enc, ok := encodings[t]; ok && enc != nil {
			cs.enc = enc
			break
		}
	}
	return cs
}

// Terms returns the defined terms the set was built from.
func (cs *CharacterSet) Terms() []string { return cs.terms }

// IsDefault reports whether text passes through unchanged.
func (cs *CharacterSet) IsDefault() bool { return cs == nil || cs.enc == nil || cs.enc == unicode.UTF8 }

// Decode converts raw value bytes to a Go string.
func (cs *CharacterSet) Decode(b []byte) string {
	if cs.IsDefault() {
		return string(b)
	}
	s, err := cs.enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// Encode converts a Go string to value bytes. Characters the repertoire
// cannot represent are replaced.
func (cs *CharacterSet) Encode(s string) []byte {
	if cs.IsDefault() {
		return []byte(s)
	}
	b, err := encoding.ReplaceUnsupported(cs.enc.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return b
}
