package corruption

import (
	"bytes"
	"encoding/binary"
	"math"
	"slices"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// Real Siemens output carries an FL (0070,0253) LineThickness whose length
// is not a multiple of 4 and an OW pixel data element of odd length. The
// generator writes well formed placeholders and Malform shortens both,
// so the element structure stays readable.

var (
	lineThicknessHeader = []byte{0x70, 0x00, 0x53, 0x02, 'F', 'L', 0x08, 0x00}
	pixelDataHeader     = []byte{0xE0, 0x7F, 0x10, 0x00, 'O', 'W', 0x00, 0x00}
)

// putLineThickness stores the two float placeholder.
func putLineThickness(ds *dicom.Dataset) error {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b, math.Float32bits(1))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(2))
	return ds.PutBytes(tag.LineThickness, dicom.FL, b)
}

// Malform rewrites an explicit VR little endian Part 10 encoding: the
// LineThickness placeholder drops to 7 bytes and trailing pixel data loses
// its last byte. It reports whether anything changed.
func Malform(data []byte) ([]byte, bool) {
	changed := false
	if i := bytes.Index(data, lineThicknessHeader); i >= 0 {
		binary.LittleEndian.PutUint16(data[i+6:], 7)
		data = slices.Delete(data, i+15, i+16)
		changed = true
	}
	if i := bytes.Index(data, pixelDataHeader); i >= 0 && i+12 <= len(data) {
		n := binary.LittleEndian.Uint32(data[i+8:])
		if n > 1 && n%2 == 0 && i+12+int(n) == len(data) {
			binary.LittleEndian.PutUint32(data[i+8:], n-1)
			data = data[:len(data)-1]
			changed = true
		}
	}
	return data, changed
}
