package lut

import (
	"fmt"
	"strings"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// Options steers ForImage. The zero value renders the image's first
// window, or its full range, to 8 bits.
type Options struct {
	// OutBits is the output depth, 8 when zero.
	OutBits int
	// Window overrides the windows of the image.
	Window *Window
	// VOIIndex selects among several windows or VOI LUTs.
	VOIIndex int
	// PresentationLUT is a Presentation LUT sequence item, typically taken
	// from a presentation state.
	PresentationLUT *dicom.Dataset
	// PresentationShape overrides PresentationLUTShape (IDENTITY or
	// INVERSE).
	PresentationShape string
	// Inverse reflects the final output once more.
	Inverse bool
	// PVal2Out remaps the presentation values to device values.
	PVal2Out []int
	// PadOutput is written for padding samples.
	PadOutput int
	// IgnorePadding keeps padding samples on the regular mapping.
	IgnorePadding bool
}

// ForImage builds the table mapping the stored values of ds to display
// values: Modality LUT or rescale, then the VOI LUT or window, then the
// Presentation LUT. MONOCHROME1 data and an INVERSE presentation shape
// reflect the output. Padding values are mapped last.
func ForImage(ds *dicom.Dataset, opts Options) (*Table, error) {
	outBits := opts.OutBits
	if outBits == 0 {
		outBits = 8
	}
	stored := ds.IntOr(tag.BitsStored, ds.IntOr(tag.BitsAllocated, 8))
	signed := ds.IntOr(tag.PixelRepresentation, 0) == 1

	var plut *Table
	if item := opts.PresentationLUT; item != nil {
		var err error
		if plut, err = NewFromSequenceItem(item, false); err != nil {
			return nil, fmt.Errorf("presentation LUT: %w", err)
		}
	}
	voiBits := outBits
	if plut != nil {
		voiBits = plut.inBits
	}

	modality, err := modalityStage(ds, signed)
	if err != nil {
		return nil, err
	}
	t, err := voiStage(ds, modality, stored, signed, voiBits, opts)
	if err != nil {
		return nil, err
	}

	inverse := opts.Inverse != presentationInverse(ds, opts)
	switch {
	case plut != nil:
		if t, err = t.Combine(plut, outBits, inverse); err != nil {
			return nil, err
		}
	case inverse:
		t = t.Inverse()
	}
	t = t.Remap(opts.PVal2Out)

	if pad, ok := ds.Int(tag.PixelPaddingValue); ok && !opts.IgnorePadding {
		limit := ds.IntOr(tag.PixelPaddingRangeLimit, pad)
		if signed {
			pad, limit = int(int16(uint16(pad))), int(int16(uint16(limit)))
		}
		t.fill(pad, limit, opts.PadOutput)
	}
	return t, nil
}

// modalityStage returns the Modality LUT, or nil when the image only
// rescales.
func modalityStage(ds *dicom.Dataset, signed bool) (*Table, error) {
	item, ok := ds.Item(tag.ModalityLUTSequence, 0)
	if !ok {
		return nil, nil
	}
	t, err := NewFromSequenceItem(item, signed)
	if err != nil {
		return nil, fmt.Errorf("modality LUT: %w", err)
	}
	return t, nil
}

func voiStage(ds *dicom.Dataset, modality *Table, stored int, signed bool, outBits int, opts Options) (*Table, error) {
	slope := ds.FloatOr(tag.RescaleSlope, 1)
	intercept := ds.FloatOr(tag.RescaleIntercept, 0)
	if slope == 0 {
		slope = 1
	}

	w, ok := imageWindow(ds, opts)
	if !ok {
		if item, found := ds.Item(tag.VOILUTSequence, opts.VOIIndex); found {
			// the VOI LUT is indexed by modality values
			voi, err := NewFromSequenceItem(item, signed || intercept < 0)
			if err != nil {
				return nil, fmt.Errorf("VOI LUT: %w", err)
			}
			first := modality
			if first == nil {
				if first, err = NewRescale(stored, signed, slope, intercept, stored); err != nil {
					return nil, err
				}
			}
			return first.Combine(voi, outBits, false)
		}
	}

	if modality == nil {
		if !ok {
			rescaled, err := NewRescale(stored, signed, slope, intercept, stored)
			if err != nil {
				return nil, err
			}
			w = fullRange(rescaled)
		}
		return NewWindow(stored, signed, slope, intercept, w, outBits, false)
	}
	if !ok {
		w = fullRange(modality)
	}
	win, err := windowOver(modality, w, outBits)
	if err != nil {
		return nil, err
	}
	return modality.Combine(win, outBits, false)
}

// imageWindow picks the window from opts or from the image attributes.
func imageWindow(ds *dicom.Dataset, opts Options) (Window, bool) {
	if opts.Window != nil {
		return *opts.Window, true
	}
	centers, ok := ds.Floats(tag.WindowCenter)
	if !ok {
		return Window{}, false
	}
	widths, ok := ds.Floats(tag.WindowWidth)
	if !ok {
		return Window{}, false
	}
	i := opts.VOIIndex
	if i >= len(centers) || i >= len(widths) {
		i = 0
	}
	if len(centers) == 0 || len(widths) == 0 {
		return Window{}, false
	}
	shape, _ := ParseShape(ds.StringOr(tag.VOILUTFunction, ""))
	return Window{Center: centers[i], Width: widths[i], Shape: shape}, true
}

func presentationInverse(ds *dicom.Dataset, opts Options) bool {
	shape := opts.PresentationShape
	if shape == "" {
		shape = ds.StringOr(tag.PresentationLUTShape, "")
	}
	if shape != "" {
		return strings.EqualFold(strings.TrimSpace(shape), "INVERSE")
	}
	return strings.TrimSpace(ds.StringOr(tag.PhotometricInterpretation, "")) == "MONOCHROME1"
}
