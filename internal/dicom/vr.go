package dicom

import "fmt"

// VR is a value representation. The set is closed: every VR has an entry
// in vrTable and the zero value VRUnknown asks Put operations to resolve
// the VR from the dictionary.
type VR uint8

// Value representations.
const (
	VRUnknown VR = iota
	AE
	AS
	AT
	CS
	DA
	DS
	DT
	FD
	FL
	IS
	LO
	LT
	OB
	OD
	OF
	OL
	OV
	OW
	PN
	SH
	SL
	SQ
	SS
	ST
	SV
	TM
	UC
	UI
	UL
	UN
	UR
	US
	UT
	UV
	numVR
)

type vrClass uint8

const (
	classText      vrClass = iota + 1 // free text
	classDate                         // DA, DT, TM
	classDecimal                      // DS
	classIntString                    // IS
	classInt                          // binary integers
	classFloat                        // binary floats
	classTag                          // AT
	classBytes                        // O* and UN
	classSequence                     // SQ
)

type vrInfo struct {
	code  string
	class vrClass
	// width is the byte size of one binary value, which is also the unit
	// swapped when toggling endianness.
	width  int
	long   bool // 32-bit length field in explicit VR
	pad    byte
	multi  bool // backslash separated values
	signed bool
	// charset marks text decoded through SpecificCharacterSet.
	charset bool
}

var vrTable = [numVR]vrInfo{
	VRUnknown: {code: "??", class: classBytes, width: 1, long: true},
	AE:        {code: "AE", class: classText, pad: ' ', multi: true},
	AS:        {code: "AS", class: classText, pad: ' ', multi: true},
	AT:        {code: "AT", class: classTag, width: 2},
	CS:        {code: "CS", class: classText, pad: ' ', multi: true},
	DA:        {code: "DA", class: classDate, pad: ' ', multi: true},
	DS:        {code: "DS", class: classDecimal, pad: ' ', multi: true},
	DT:        {code: "DT", class: classDate, pad: ' ', multi: true},
	FD:        {code: "FD", class: classFloat, width: 8},
	FL:        {code: "FL", class: classFloat, width: 4},
	IS:        {code: "IS", class: classIntString, pad: ' ', multi: true},
	LO:        {code: "LO", class: classText, pad: ' ', multi: true, charset: true},
	LT:        {code: "LT", class: classText, pad: ' ', charset: true},
	OB:        {code: "OB", class: classBytes, width: 1, long: true},
	OD:        {code: "OD", class: classBytes, width: 8, long: true},
	OF:        {code: "OF", class: classBytes, width: 4, long: true},
	OL:        {code: "OL", class: classBytes, width: 4, long: true},
	OV:        {code: "OV", class: classBytes, width: 8, long: true},
	OW:        {code: "OW", class: classBytes, width: 2, long: true},
	PN:        {code: "PN", class: classText, pad: ' ', multi: true, charset: true},
	SH:        {code: "SH", class: classText, pad: ' ', multi: true, charset: true},
	SL:        {code: "SL", class: classInt, width: 4, signed: true},
	SQ:        {code: "SQ", class: classSequence, long: true},
	SS:        {code: "SS", class: classInt, width: 2, signed: true},
	ST:        {code: "ST", class: classText, pad: ' ', charset: true},
	SV:        {code: "SV", class: classInt, width: 8, long: true, signed: true},
	TM:        {code: "TM", class: classDate, pad: ' ', multi: true},
	UC:        {code: "UC", class: classText, long: true, pad: ' ', multi: true, charset: true},
	UI:        {code: "UI", class: classText, multi: true},
	UL:        {code: "UL", class: classInt, width: 4},
	UN:        {code: "UN", class: classBytes, width: 1, long: true},
	UR:        {code: "UR", class: classText, long: true, pad: ' '},
	US:        {code: "US", class: classInt, width: 2},
	UT:        {code: "UT", class: classText, long: true, pad: ' ', charset: true},
	UV:        {code: "UV", class: classInt, width: 8, long: true},
}

var vrByCode = func() map[string]VR {
	m := make(map[string]VR, numVR)
	for v := AE; v < numVR; v++ {
		m[vrTable[v].code] = v
	}
	return m
}()

func (v VR) info() *vrInfo {
	if v >= numVR {
		return &vrTable[VRUnknown]
	}
	return &vrTable[v]
}

func (v VR) String() string { return v.info().code }

// ParseVR maps a two letter code to its VR. Unknown codes return
// VRUnknown and false.
func ParseVR(code string) (VR, bool) {
	v, ok := vrByCode[code]
	return v, ok
}

func vrFromBytes(b0, b1 byte) (VR, error) {
	v, ok := vrByCode[string([]byte{b0, b1})]
	if !ok {
		return VRUnknown, fmt.Errorf("unknown VR %q", []byte{b0, b1})
	}
	return v, nil
}

// HasLongLength reports whether the VR uses a reserved field and a 32-bit
// length in explicit VR encodings.
func (v VR) HasLongLength() bool { return v.info().long }

// PaddingByte returns the byte appended to odd length values.
func (v VR) PaddingByte() byte { return v.info().pad }

// IsText reports whether values are stored as character strings.
func (v VR) IsText() bool {
	switch v.info().class {
	case classText, classDate, classDecimal, classIntString:
		return true
	}
	return false
}

// IsBinary reports whether values are stored as binary numbers or bytes.
func (v VR) IsBinary() bool {
	switch v.info().class {
	case classInt, classFloat, classTag, classBytes:
		return true
	}
	return false
}

// ToggleEndian swaps b in place between little and big endian, unit by
// unit. Text, sequences and single byte VRs are left untouched.
func (v VR) ToggleEndian(b []byte) {
	w := v.info().width
	if w < 2 || !v.IsBinary() {
		return
	}
	for i := 0; i+w <= len(b); i += w {
		for lo, hi := i, i+w-1; lo < hi; lo, hi = lo+1, hi-1 {
			b[lo], b[hi] = b[hi], b[lo]
		}
	}
}
