package lut

import (
	"encoding/binary"
	"fmt"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// Descriptor is the decoded LUTDescriptor.
type Descriptor struct {
	Entries int
	First   int
	Bits    int
}

// ParseDescriptor decodes the three LUTDescriptor values. An entry count of
// 0 stands for 65536; the first mapped value is signed when signed is set.
func ParseDescriptor(vals []int, signed bool) (Descriptor, error) {
	if len(vals) != 3 {
		return Descriptor{}, fmt.Errorf("%w: %d values", ErrBadDescriptor, len(vals))
	}
	d := Descriptor{Entries: vals[0], First: vals[1], Bits: vals[2]}
	if d.Entries == 0 {
		d.Entries = 1 << 16
	}
	if d.Entries < 0 || d.Entries > 1<<16 {
		return Descriptor{}, fmt.Errorf("%w: %d entries", ErrBadDescriptor, d.Entries)
	}
	// SS and US encodings of the first value agree once truncated
	if signed {
		d.First = int(int16(uint16(d.First)))
	} else {
		d.First = int(uint16(d.First))
	}
	if d.Bits < 1 || d.Bits > maxBits {
		return Descriptor{}, fmt.Errorf("%w: %d bits per entry", ErrBadDescriptor, d.Bits)
	}
	return d, nil
}

// NewFromSequenceItem builds the table held by an item of a Modality,
// VOI or Presentation LUT sequence. signed is the pixel representation of
// the values the table is indexed by.
func NewFromSequenceItem(item *dicom.Dataset, signed bool) (*Table, error) {
	vals, ok := item.Ints(tag.LUTDescriptor)
	if !ok {
		return nil, fmt.Errorf("%w: missing", ErrBadDescriptor)
	}
	d, err := ParseDescriptor(vals, signed)
	if err != nil {
		return nil, err
	}
	e := item.Get(tag.LUTData)
	if e == nil || e.HasItems() {
		return nil, fmt.Errorf("%w: missing", ErrBadData)
	}
	return NewFromData(d, e.Bytes(), e.BigEndian(), signed)
}

// NewFromData builds a table from raw LUTData. The data holds one byte per
// entry, padded to even length, or one 16 bit word per entry.
func NewFromData(d Descriptor, data []byte, bigEndian, signed bool) (*Table, error) {
	t := newTable(bitsFor(d.Entries), signed, d.First, d.Entries, d.Bits)
	switch {
	case len(data) == 2*d.Entries:
		var order binary.ByteOrder = binary.LittleEndian
		if bigEndian {
			order = binary.BigEndian
		}
		for i := range t.data {
			t.data[i] = int32(order.Uint16(data[2*i:]))
		}
	case len(data) == d.Entries || len(data) == d.Entries+1 && d.Entries%2 == 1:
		if d.Bits > 8 {
			return nil, fmt.Errorf("%w: %d bit entries in %d bytes", ErrBadData, d.Bits, len(data))
		}
		for i := range t.data {
			t.data[i] = int32(data[i])
		}
	default:
		return nil, fmt.Errorf("%w: %d bytes for %d entries", ErrBadData, len(data), d.Entries)
	}
	mask := int32(outMax(d.Bits))
	for i, v := range t.data {
		t.data[i] = v & mask
	}
	return t, nil
}
