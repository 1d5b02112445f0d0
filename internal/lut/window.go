package lut

import (
	"fmt"
	"math"
	"strings"
)

// Shape is the VOI LUT function applied by a window.
type Shape int

const (
	Linear Shape = iota
	LinearExact
	Sigmoid
)

func (s Shape) String() string {
	switch s {
	case LinearExact:
		return "LINEAR_EXACT"
	case Sigmoid:
		return "SIGMOID"
	}
	return "LINEAR"
}

// ParseShape reads a VOILUTFunction value. An empty value is LINEAR.
func ParseShape(s string) (Shape, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "LINEAR":
		return Linear, nil
	case "LINEAR_EXACT":
		return LinearExact, nil
	case "SIGMOID":
		return Sigmoid, nil
	}
	return Linear, fmt.Errorf("unknown VOI LUT function %q", s)
}

// Window is a center/width VOI transform.
type Window struct {
	Center float64
	Width  float64
	Shape  Shape
}

// apply maps a modality value to 0..top. A negative width windows with
// its magnitude and reflects the result.
func (w Window) apply(x float64, top int) int {
	ymax := float64(top)
	c, wd := w.Center, w.Width
	reflect := wd < 0
	if reflect {
		wd = -wd
	}
	var y float64
	switch w.Shape {
	case Sigmoid:
		if wd <= 0 {
			wd = 1
		}
		y = ymax / (1 + math.Exp(-4*(x-c)/wd))
	case LinearExact:
		if wd <= 0 {
			wd = math.SmallestNonzeroFloat64
		}
		switch {
		case x <= c-wd/2:
			y = 0
		case x > c+wd/2:
			y = ymax
		default:
			y = ((x-c)/wd + 0.5) * ymax
		}
	default:
		if wd < 1 {
			wd = 1
		}
		switch {
		case x <= c-0.5-(wd-1)/2:
			y = 0
		case x > c-0.5+(wd-1)/2:
			y = ymax
		default:
			y = ((x-(c-0.5))/(wd-1) + 0.5) * ymax
		}
	}
	v := min(max(int(math.Round(y)), 0), top)
	if reflect {
		v = top - v
	}
	return v
}

// NewWindow rescales inBits samples with slope and intercept, then applies
// the window. With inverse set the output is reflected.
func NewWindow(inBits int, signed bool, slope, intercept float64, w Window, outBits int, inverse bool) (*Table, error) {
	if err := checkBits(inBits, outBits); err != nil {
		return nil, err
	}
	lo, n := inputRange(inBits, signed)
	t := newTable(inBits, signed, lo, n, outBits)
	top := outMax(outBits)
	for i := range t.data {
		y := w.apply(float64(lo+i)*slope+intercept, top)
		if inverse {
			y = top - y
		}
		t.data[i] = int32(y)
	}
	return t, nil
}

// windowOver builds a window whose inputs are the outputs of t, so that
// t.Combine can apply it.
func windowOver(t *Table, w Window, outBits int) (*Table, error) {
	lo, hi := t.outputRange()
	n := hi - lo + 1
	if n > 1<<maxBits {
		return nil, fmt.Errorf("%w: modality outputs span %d values", ErrBitDepth, n)
	}
	win := newTable(bitsFor(n), lo < 0, lo, n, outBits)
	top := outMax(outBits)
	for i := range win.data {
		win.data[i] = int32(w.apply(float64(lo+i), top))
	}
	return win, nil
}

// fullRange returns the window spanning the outputs of t.
func fullRange(t *Table) Window {
	lo, hi := t.outputRange()
	return Window{
		Center: float64(lo+hi+1) / 2,
		Width:  float64(hi - lo + 1),
	}
}
