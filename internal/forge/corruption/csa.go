package corruption

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
)

// csaField is one entry of a Siemens CSA header.
type csaField struct {
	name    string
	vr      string
	syngoDT int32
	values  []string
}

// encodeCSA writes fields in the "SV10" layout: a 16 byte preamble, then
// per field a 64 byte name, VM, a 4 byte VR, the syngo data type, the item
// count and a 77 marker, then the items, each with its length four times
// and padded to 4 bytes.
func encodeCSA(fields []csaField) []byte {
	var buf bytes.Buffer
	le := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	fixed := func(s string, n int) {
		b := make([]byte, n)
		copy(b, s)
		buf.Write(b)
	}

	buf.WriteString("SV10")
	buf.Write([]byte{4, 3, 2, 1})
	le(uint32(len(fields)))
	le(uint32(77))
	for _, f := range fields {
		fixed(f.name, 64)
		le(int32(len(f.values)))
		fixed(f.vr, 4)
		le(f.syngoDT)
		le(int32(len(f.values)))
		le(uint32(77))
		for _, v := range f.values {
			for range 4 {
				le(uint32(len(v)))
			}
			buf.WriteString(v)
			buf.Write(make([]byte, (4-len(v)%4)%4))
		}
	}
	return buf.Bytes()
}

func noise(rng *rand.Rand, lo, spread int) []byte {
	b := make([]byte, lo+rng.IntN(spread))
	for i := range b {
		b[i] = byte(rng.Uint32())
	}
	return b
}

// csaImageHeader returns an image header followed by 1 to 3 KiB of noise.
func csaImageHeader(rng *rand.Rand) []byte {
	h := encodeCSA([]csaField{
		{"NumberOfImagesInMosaic", "IS", 6, []string{"1"}},
		{"SliceNormalVector", "FD", 3, []string{"0.0", "0.0", "1.0"}},
		{"DiffusionGradientDirection", "FD", 3, []string{"0.0", "0.0", "0.0"}},
		{"B_value", "IS", 6, []string{"0"}},
		{"SliceMeasurementDuration", "DS", 3, []string{"265000.0"}},
		{"BandwidthPerPixelPhaseEncode", "FD", 3, []string{"45.455"}},
		{"ImaRelTablePosition", "IS", 6, []string{"0", "0", "0"}},
		{"RealDwellTime", "IS", 6, []string{"5700"}},
		{"ImaCoilString", "LO", 19, []string{"HEA;HEP"}},
	})
	return append(h, noise(rng, 1024, 2048)...)
}

// csaSeriesHeader returns a series header followed by noise.
func csaSeriesHeader(rng *rand.Rand) []byte {
	h := encodeCSA([]csaField{
		{"UsedPatientWeight", "DS", 3, []string{"70.0"}},
		{"MrProtocolVersion", "IS", 6, []string{"1"}},
		{"DataFileName", "LO", 19, []string{"%ScanProtocol%_PROT"}},
		{"MrProtocol", "LO", 19, []string{"### ASCCONV BEGIN ###"}},
		{"Isocentered", "IS", 6, []string{"1"}},
		{"CoilForGradient", "LO", 19, []string{"AS"}},
		{"TablePositionOrigin", "FD", 3, []string{"0.0", "0.0", "0.0"}},
	})
	return append(h, noise(rng, 512, 1024)...)
}
