// Package lut builds the pixel value lookup tables that turn stored sample
// values into display values: the Modality LUT or rescale, the VOI LUT or
// window, and the Presentation LUT, composed into a single table.
package lut

import (
	"errors"
	"fmt"
)

var (
	// ErrBadDescriptor is returned for a missing or invalid LUTDescriptor.
	ErrBadDescriptor = errors.New("invalid LUT descriptor")
	// ErrBadData is returned when LUTData is missing or does not hold the
	// number of entries the descriptor declares.
	ErrBadData = errors.New("invalid LUT data")
	// ErrBitDepth is returned for input or output depths outside 1..16.
	ErrBitDepth = errors.New("unsupported bit depth")
)

const maxBits = 16

// Table maps input values to output values. Inputs outside the table are
// clamped to its first or last entry.
type Table struct {
	inBits  int
	signed  bool
	offset  int
	outBits int
	data    []int32
}

func checkBits(in, out int) error {
	if in < 1 || in > maxBits {
		return fmt.Errorf("%w: %d input bits", ErrBitDepth, in)
	}
	if out < 1 || out > maxBits {
		return fmt.Errorf("%w: %d output bits", ErrBitDepth, out)
	}
	return nil
}

// inputRange returns the smallest value and the number of values of an
// inBits wide sample.
func inputRange(inBits int, signed bool) (int, int) {
	n := 1 << inBits
	if signed {
		return -n / 2, n
	}
	return 0, n
}

func outMax(outBits int) int { return 1<<outBits - 1 }

// bitsFor returns the number of bits needed to count n values.
func bitsFor(n int) int {
	b := 1
	for 1<<b < n {
		b++
	}
	return b
}

func newTable(inBits int, signed bool, offset, n, outBits int) *Table {
	return &Table{
		inBits:  inBits,
		signed:  signed,
		offset:  offset,
		outBits: outBits,
		data:    make([]int32, n),
	}
}

// NewIdentity maps every inBits value to itself.
func NewIdentity(inBits int, signed bool, outBits int) (*Table, error) {
	return NewRescale(inBits, signed, 1, 0, outBits)
}

// NewRescale applies slope and intercept, rounding to the nearest integer.
// Outputs are modality values and are not clamped.
func NewRescale(inBits int, signed bool, slope, intercept float64, outBits int) (*Table, error) {
	if err := checkBits(inBits, outBits); err != nil {
		return nil, err
	}
	lo, n := inputRange(inBits, signed)
	t := newTable(inBits, signed, lo, n, outBits)
	for i := range t.data {
		t.data[i] = int32(round(float64(lo+i)*slope + intercept))
	}
	return t, nil
}

func round(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}

func (t *Table) InBits() int  { return t.inBits }
func (t *Table) OutBits() int { return t.outBits }
func (t *Table) Signed() bool { return t.signed }

// Offset returns the first input value of the table.
func (t *Table) Offset() int { return t.offset }

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.data) }

// Lookup maps one input value.
func (t *Table) Lookup(in int) int {
	i := in - t.offset
	switch {
	case i < 0:
		i = 0
	case i >= len(t.data):
		i = len(t.data) - 1
	}
	return int(t.data[i])
}

// LookupBytes maps 8 bit samples in place.
func (t *Table) LookupBytes(b []byte) {
	for i, v := range b {
		in := int(v)
		if t.signed {
			in = int(int8(v))
		}
		b[i] = byte(t.Lookup(in))
	}
}

// LookupShorts maps 16 bit samples in place.
func (t *Table) LookupShorts(s []uint16) {
	for i, v := range s {
		in := int(v)
		if t.signed {
			in = int(int16(v))
		}
		s[i] = uint16(t.Lookup(in))
	}
}

// Combine returns the table x -> next(t(x)) with the outputs of next
// scaled from its own depth to outBits, reflected when inverse is set.
func (t *Table) Combine(next *Table, outBits int, inverse bool) (*Table, error) {
	if err := checkBits(t.inBits, outBits); err != nil {
		return nil, err
	}
	c := newTable(t.inBits, t.signed, t.offset, len(t.data), outBits)
	top := outMax(outBits)
	for i, v := range t.data {
		y := shift(next.Lookup(int(v)), next.outBits, outBits)
		if inverse {
			y = top - y
		}
		c.data[i] = int32(y)
	}
	return c, nil
}

func shift(v, from, to int) int {
	switch {
	case v < 0:
		return 0
	case from > to:
		return v >> (from - to)
	case from < to:
		return v << (to - from)
	}
	return v
}

// Inverse returns the table with its outputs reflected within the output
// range.
func (t *Table) Inverse() *Table {
	c := newTable(t.inBits, t.signed, t.offset, len(t.data), t.outBits)
	top := int32(outMax(t.outBits))
	for i, v := range t.data {
		c.data[i] = top - v
	}
	return c
}

// Remap sends each output through pval2out, which is indexed by P-value
// scaled to its length. The output depth becomes the one needed for the
// largest pval2out entry.
func (t *Table) Remap(pval2out []int) *Table {
	if len(pval2out) == 0 {
		return t
	}
	top := 1
	for _, v := range pval2out {
		if v > top {
			top = v
		}
	}
	c := newTable(t.inBits, t.signed, t.offset, len(t.data), bitsFor(top+1))
	n := len(pval2out)
	for i, v := range t.data {
		idx := int(v) * n >> t.outBits
		switch {
		case idx < 0:
			idx = 0
		case idx >= n:
			idx = n - 1
		}
		c.data[i] = int32(pval2out[idx])
	}
	return c
}

// fill sets the output of inputs lo through hi to v.
func (t *Table) fill(lo, hi, v int) {
	if lo > hi {
		lo, hi = hi, lo
	}
	for in := max(lo, t.offset); in <= hi && in-t.offset < len(t.data); in++ {
		t.data[in-t.offset] = int32(v)
	}
}

// outputRange returns the smallest and largest output.
func (t *Table) outputRange() (int, int) {
	lo, hi := int(t.data[0]), int(t.data[0])
	for _, v := range t.data[1:] {
		lo = min(lo, int(v))
		hi = max(hi, int(v))
	}
	return lo, hi
}
