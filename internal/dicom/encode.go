package dicom

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

func byteOrder(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// pad appends the VR padding byte to odd length values.
func pad(vr VR, b []byte) []byte {
	if len(b)%2 == 1 {
		b = append(b, vr.PaddingByte())
	}
	return b
}

func encodeStrings(vr VR, vals []string, cs *CharacterSet, bigEndian bool) ([]byte, error) {
	info := vr.info()
	switch info.class {
	case classText, classDate, classDecimal, classIntString:
		if len(vals) > 1 && !info.multi {
			return nil, fmt.Errorf("%w: %s holds a single value, got %d", ErrIncompatibleVR, vr, len(vals))
		}
		s := strings.Join(vals, `\`)
		var b []byte
		if info.charset {
			b = cs.Encode(s)
		} else {
			b = []byte(s)
		}
		return pad(vr, b), nil
	case classInt:
		ints := make([]int, len(vals))
		for i, v := range vals {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an integer", ErrIncompatibleVR, v)
			}
			ints[i] = n
		}
		return encodeInts(vr, ints, bigEndian)
	case classFloat:
		fs := make([]float64, len(vals))
		for i, v := range vals {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a number", ErrIncompatibleVR, v)
			}
			fs[i] = f
		}
		return encodeFloats(vr, fs, bigEndian)
	case classTag:
		ts := make([]tag.Tag, len(vals))
		for i, v := range vals {
			t, err := tag.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrIncompatibleVR, err)
			}
			ts[i] = t
		}
		return encodeTags(vr, ts, bigEndian)
	case classBytes:
		if info.width == 1 && len(vals) <= 1 {
			var b []byte
			if len(vals) == 1 {
				b = []byte(vals[0])
			}
			return pad(vr, b), nil
		}
	}
	return nil, fmt.Errorf("%w: cannot store text in %s", ErrIncompatibleVR, vr)
}

func encodeInts(vr VR, vals []int, bigEndian bool) ([]byte, error) {
	info := vr.info()
	order := byteOrder(bigEndian)
	switch info.class {
	case classInt, classBytes:
		if info.class == classBytes && (vr == OF || vr == OD) {
			fs := make([]float64, len(vals))
			for i, v := range vals {
				fs[i] = float64(v)
			}
			return encodeFloats(vr, fs, bigEndian)
		}
		w := info.width
		b := make([]byte, len(vals)*w)
		for i, v := range vals {
			if !fitsWidth(v, w) {
				return nil, fmt.Errorf("%w: %d overflows %s", ErrIncompatibleVR, v, vr)
			}
			switch w {
			case 1:
				b[i] = byte(v)
			case 2:
				order.PutUint16(b[i*2:], uint16(v))
			case 4:
				order.PutUint32(b[i*4:], uint32(v))
			case 8:
				order.PutUint64(b[i*8:], uint64(v))
			}
		}
		return pad(vr, b), nil
	case classIntString, classDecimal:
		s := make([]string, len(vals))
		for i, v := range vals {
			s[i] = strconv.Itoa(v)
		}
		return encodeStrings(vr, s, nil, bigEndian)
	case classFloat:
		fs := make([]float64, len(vals))
		for i, v := range vals {
			fs[i] = float64(v)
		}
		return encodeFloats(vr, fs, bigEndian)
	}
	return nil, fmt.Errorf("%w: cannot store integers in %s", ErrIncompatibleVR, vr)
}

// fitsWidth accepts both the signed and unsigned range of a w byte field.
func fitsWidth(v, w int) bool {
	if w >= 8 {
		return true
	}
	bits := uint(w * 8)
	return v >= -(1<<(bits-1)) && v < 1<<bits
}

func encodeFloats(vr VR, vals []float64, bigEndian bool) ([]byte, error) {
	order := byteOrder(bigEndian)
	switch vr {
	case FL, OF:
		b := make([]byte, len(vals)*4)
		for i, v := range vals {
			order.PutUint32(b[i*4:], math.Float32bits(float32(v)))
		}
		return b, nil
	case FD, OD:
		b := make([]byte, len(vals)*8)
		for i, v := range vals {
			order.PutUint64(b[i*8:], math.Float64bits(v))
		}
		return b, nil
	case DS:
		s := make([]string, len(vals))
		for i, v := range vals {
			s[i] = formatDS(v)
		}
		return encodeStrings(vr, s, nil, bigEndian)
	}
	ints := make([]int, len(vals))
	for i, v := range vals {
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: %g is not integral for %s", ErrIncompatibleVR, v, vr)
		}
		ints[i] = int(v)
	}
	switch vr.info().class {
	case classInt, classIntString:
		return encodeInts(vr, ints, bigEndian)
	}
	return nil, fmt.Errorf("%w: cannot store floats in %s", ErrIncompatibleVR, vr)
}

// formatDS renders f within the 16 character limit of DS.
func formatDS(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	for prec := 15; len(s) > 16 && prec > 0; prec-- {
		s = strconv.FormatFloat(f, 'g', prec, 64)
	}
	return s
}

func encodeTags(vr VR, vals []tag.Tag, bigEndian bool) ([]byte, error) {
	if vr != AT {
		ints := make([]int, len(vals))
		for i, t := range vals {
			ints[i] = int(t)
		}
		return encodeInts(vr, ints, bigEndian)
	}
	order := byteOrder(bigEndian)
	b := make([]byte, len(vals)*4)
	for i, t := range vals {
		order.PutUint16(b[i*4:], t.Group())
		order.PutUint16(b[i*4+2:], t.Element())
	}
	return b, nil
}

func encodeDates(vr VR, vals []time.Time) ([]byte, error) {
	if vr.info().class != classDate {
		return nil, fmt.Errorf("%w: cannot store dates in %s", ErrIncompatibleVR, vr)
	}
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = formatDate(vr, v)
	}
	return encodeStrings(vr, s, nil, false)
}

// splitText trims padding and splits a decoded text value into its values.
func splitText(vr VR, s string) []string {
	info := vr.info()
	s = strings.TrimRight(s, " \x00")
	if s == "" {
		return nil
	}
	if !info.multi {
		return []string{s}
	}
	vals := strings.Split(s, `\`)
	for i, v := range vals {
		vals[i] = strings.TrimSpace(strings.TrimRight(v, "\x00"))
	}
	return vals
}
