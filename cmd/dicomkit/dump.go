package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mrsinham/dicomkit/internal/dicom"
)

func runDump(a *app, args []string) error {
	fs, verbose := a.flagSet("dump", "[flags] FILE")
	noPixels := fs.Bool("no-pixel-data", false, "stop reading at the pixel data")
	noMeta := fs.Bool("no-meta", false, "leave out the file meta information")
	width := fs.IntP("width", "w", 64, "maximum width of a printed value")
	if err := a.parse(fs, verbose, args); err != nil {
		return err
	}
	if err := wantArgs(fs, 1, 1); err != nil {
		return err
	}

	opts := []dicom.ReaderOption{dicom.WithReaderLogger(a.log)}
	if *noPixels {
		opts = append(opts, dicom.SkipPixelData())
	}
	f, err := dicom.ReadFile(fs.Arg(0), opts...)
	if err != nil {
		return err
	}

	d := dumper{w: a.stdout, width: *width}
	fmt.Fprintln(a.stdout, titleStyle.Render(fs.Arg(0)))
	fmt.Fprintln(a.stdout, field("Transfer syntax", f.TransferSyntax.UID))
	if !*noMeta && f.Meta != nil {
		fmt.Fprintln(a.stdout)
		fmt.Fprintln(a.stdout, labelStyle.Render("# file meta information"))
		d.dataset(f.Meta, 0)
	}
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, labelStyle.Render("# dataset"))
	d.dataset(f.Dataset, 0)
	return nil
}

type dumper struct {
	w     io.Writer
	width int
}

func (d dumper) dataset(ds *dicom.Dataset, depth int) {
	indent := strings.Repeat("  ", depth)
	for e := range ds.All() {
		name := ds.Keyword(e.Tag())
		if name == "" {
			name = "?"
		}
		fmt.Fprintf(d.w, "%s%s %s %s %s\n", indent,
			treeStyle.Render(e.Tag().String()), e.VR(), nameStyle.Render(name), valueStyle.Render(d.value(ds, e)))
		for i, item := range e.Items() {
			fmt.Fprintf(d.w, "%s  %s\n", indent, folderStyle.Render(fmt.Sprintf("> item %d", i+1)))
			d.dataset(item, depth+2)
		}
	}
}

// value renders an element value on one line, cut to the dumper width.
func (d dumper) value(ds *dicom.Dataset, e *dicom.Element) string {
	var s string
	switch vr := e.VR(); {
	case e.HasDatasets():
		return fmt.Sprintf("(%d items)", e.CountItems())
	case e.HasFragments():
		return fmt.Sprintf("(%d fragments)", len(e.Fragments()))
	case vr.IsText():
		vals, err := e.Strings(ds.CharacterSet())
		if err != nil {
			return "(" + err.Error() + ")"
		}
		s = "[" + strings.Join(vals, `\`) + "]"
	case vr == dicom.US || vr == dicom.SS || vr == dicom.UL || vr == dicom.SL:
		vals, err := e.Ints()
		if err != nil {
			return "(" + err.Error() + ")"
		}
		s = joinValues(vals)
	case vr == dicom.FL || vr == dicom.FD:
		vals, err := e.Floats()
		if err != nil {
			return "(" + err.Error() + ")"
		}
		s = joinValues(vals)
	case vr == dicom.AT:
		vals, err := e.Tags()
		if err != nil {
			return "(" + err.Error() + ")"
		}
		s = joinValues(vals)
	default:
		return fmt.Sprintf("(%d bytes)", e.Len())
	}
	if r := []rune(s); d.width > 3 && len(r) > d.width {
		s = string(r[:d.width-3]) + "..."
	}
	return s
}

func joinValues[T any](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, `\`)
}
