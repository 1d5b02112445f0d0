package main

import (
	"fmt"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/lut"
)

func runLUT(a *app, args []string) error {
	fs, verbose := a.flagSet("lut", "[flags] FILE")
	center := fs.Float64("center", 0, "window center, overrides the image windows")
	width := fs.Float64("width", 0, "window width, overrides the image windows")
	shape := fs.String("shape", "LINEAR", "window function: LINEAR, LINEAR_EXACT or SIGMOID")
	voiIndex := fs.Int("voi", 0, "which window or VOI LUT of the image to use")
	outBits := fs.Int("out-bits", 8, "output depth in bits")
	presentation := fs.String("presentation", "", "presentation shape: IDENTITY or INVERSE")
	inverse := fs.Bool("inverse", false, "reflect the output once more")
	padOutput := fs.Int("pad-output", 0, "output value of padding samples")
	ignorePadding := fs.Bool("ignore-padding", false, "map padding samples like any other")
	samples := fs.IntP("samples", "n", 9, "number of sample mappings to print")
	if err := a.parse(fs, verbose, args); err != nil {
		return err
	}
	if err := wantArgs(fs, 1, 1); err != nil {
		return err
	}

	f, err := dicom.ReadFile(fs.Arg(0), dicom.SkipPixelData(), dicom.WithReaderLogger(a.log))
	if err != nil {
		return err
	}
	opts := lut.Options{
		OutBits:           *outBits,
		VOIIndex:          *voiIndex,
		PresentationShape: *presentation,
		Inverse:           *inverse,
		PadOutput:         *padOutput,
		IgnorePadding:     *ignorePadding,
	}
	if fs.Changed("center") || fs.Changed("width") {
		s, err := lut.ParseShape(*shape)
		if err != nil {
			return err
		}
		opts.Window = &lut.Window{Center: *center, Width: *width, Shape: s}
	}
	t, err := lut.ForImage(f.Dataset, opts)
	if err != nil {
		return fmt.Errorf("build LUT: %w", err)
	}

	fmt.Fprintln(a.stdout, titleStyle.Render(fs.Arg(0)))
	fmt.Fprintln(a.stdout, field("Input bits", fmt.Sprint(t.InBits())))
	fmt.Fprintln(a.stdout, field("Signed", fmt.Sprint(t.Signed())))
	fmt.Fprintln(a.stdout, field("Output bits", fmt.Sprint(t.OutBits())))
	fmt.Fprintln(a.stdout, field("Entries", fmt.Sprintf("%d from %d", t.Len(), t.Offset())))
	fmt.Fprintln(a.stdout)

	n := max(*samples, 2)
	lo, hi := t.Offset(), t.Offset()+t.Len()-1
	for i := range n {
		in := lo + (hi-lo)*i/(n-1)
		fmt.Fprintf(a.stdout, "  %s %s %s\n",
			nameStyle.Render(fmt.Sprintf("%8d", in)), treeStyle.Render("->"), valueStyle.Render(fmt.Sprint(t.Lookup(in))))
	}
	return nil
}
