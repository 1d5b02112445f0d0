package dicom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// Writer encodes elements in one transfer syntax. Sequences and items use
// undefined lengths unless WithExplicitLengths is given.
type Writer struct {
	w        io.Writer
	pos      int64
	ts       TransferSyntax
	order    binary.ByteOrder
	explicit bool
	hdr      [12]byte
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithExplicitLengths writes sequences and items with computed lengths.
func WithExplicitLengths() WriterOption {
	return func(w *Writer) { w.explicit = true }
}

// WithStartOffset sets the stream offset of the first byte written, so
// that item offsets are reported relative to an enclosing file.
func WithStartOffset(off int64) WriterOption {
	return func(w *Writer) { w.pos = off }
}

// NewWriter returns a Writer encoding to dst with ts. Deflate is the
// caller's concern: pass a flate writer and an explicit VR little endian
// syntax.
func NewWriter(dst io.Writer, ts TransferSyntax, opts ...WriterOption) *Writer {
	w := &Writer{w: dst, ts: ts, order: byteOrder(ts.BigEndian)}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Pos returns the offset of the next byte to be written.
func (w *Writer) Pos() int64 { return w.pos }

func (w *Writer) write(b []byte) error {
	n, err := w.w.Write(b)
	w.pos += int64(n)
	return err
}

// WriteHeader writes an element or item header.
func (w *Writer) WriteHeader(t tag.Tag, vr VR, length uint32) error {
	b := w.hdr[:]
	w.order.PutUint16(b[0:], t.Group())
	w.order.PutUint16(b[2:], t.Element())
	if t.IsDelimiter() || !w.ts.ExplicitVR {
		w.order.PutUint32(b[4:], length)
		return w.write(b[:8])
	}
	if vr == VRUnknown {
		vr = UN
	}
	code := vr.String()
	b[4], b[5] = code[0], code[1]
	if !vr.HasLongLength() {
		w.order.PutUint16(b[6:], uint16(length))
		return w.write(b[:8])
	}
	b[6], b[7] = 0, 0
	w.order.PutUint32(b[8:], length)
	return w.write(b[:12])
}

func (w *Writer) headerLen(vr VR) int64 {
	if !w.ts.ExplicitVR || !vr.HasLongLength() {
		return 8
	}
	return 12
}

// WriteDataset writes every element of ds in ascending tag order.
func (w *Writer) WriteDataset(ds *Dataset) error {
	for e := range ds.All() {
		if err := w.WriteElement(e); err != nil {
			return err
		}
	}
	return nil
}

// WriteElement writes one element, converting byte order as needed.
func (w *Writer) WriteElement(e *Element) error {
	switch {
	case e.vr == SQ:
		return w.writeSequence(e)
	case e.encaps:
		return w.writeFragments(e)
	}
	v := e.WithEndian(w.ts.BigEndian).value
	if len(v)%2 == 1 {
		v = append(v[:len(v):len(v)], e.vr.PaddingByte())
	}
	vr := e.vr
	if vr == VRUnknown {
		vr = UN
	}
	if w.ts.ExplicitVR && !vr.HasLongLength() && len(v) > 0xFFFF {
		return fmt.Errorf("write %s: %d bytes exceed the 16-bit length of %s", e.tag, len(v), vr)
	}
	if err := w.WriteHeader(e.tag, vr, uint32(len(v))); err != nil {
		return err
	}
	return w.write(v)
}

func (w *Writer) sub(buf *bytes.Buffer, start int64) *Writer {
	return &Writer{w: buf, pos: start, ts: w.ts, order: w.order, explicit: w.explicit}
}

func (w *Writer) writeSequence(e *Element) error {
	if !w.explicit {
		if err := w.WriteHeader(e.tag, SQ, UndefinedLength); err != nil {
			return err
		}
		for _, item := range e.items {
			if err := w.WriteItem(item); err != nil {
				return err
			}
		}
		return w.WriteHeader(tag.SequenceDelimitationItem, VRUnknown, 0)
	}
	var buf bytes.Buffer
	sw := w.sub(&buf, w.pos+w.headerLen(SQ))
	for _, item := range e.items {
		if err := sw.WriteItem(item); err != nil {
			return err
		}
	}
	if err := w.WriteHeader(e.tag, SQ, uint32(buf.Len())); err != nil {
		return err
	}
	return w.write(buf.Bytes())
}

// WriteItem writes ds as a sequence item and records the offset of its
// Item tag in ds.
func (w *Writer) WriteItem(ds *Dataset) error {
	ds.itemOffset = w.pos
	if !w.explicit {
		if err := w.WriteHeader(tag.Item, VRUnknown, UndefinedLength); err != nil {
			return err
		}
		if err := w.WriteDataset(ds); err != nil {
			return err
		}
		return w.WriteHeader(tag.ItemDelimitationItem, VRUnknown, 0)
	}
	var buf bytes.Buffer
	if err := w.sub(&buf, w.pos+8).WriteDataset(ds); err != nil {
		return err
	}
	if err := w.WriteHeader(tag.Item, VRUnknown, uint32(buf.Len())); err != nil {
		return err
	}
	return w.write(buf.Bytes())
}

// WriteSequenceDelimiter ends a sequence of undefined length.
func (w *Writer) WriteSequenceDelimiter() error {
	return w.WriteHeader(tag.SequenceDelimitationItem, VRUnknown, 0)
}

func (w *Writer) writeFragments(e *Element) error {
	if err := w.WriteHeader(e.tag, e.vr, UndefinedLength); err != nil {
		return err
	}
	for _, f := range e.fragments {
		n := len(f)
		if n%2 == 1 {
			n++
		}
		if err := w.WriteHeader(tag.Item, VRUnknown, uint32(n)); err != nil {
			return err
		}
		if err := w.write(f); err != nil {
			return err
		}
		if n != len(f) {
			if err := w.write([]byte{0}); err != nil {
				return err
			}
		}
	}
	return w.WriteSequenceDelimiter()
}

// EncodeDataset returns the encoding of ds in ts.
func EncodeDataset(ds *Dataset, ts TransferSyntax, opts ...WriterOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewWriter(&buf, ts, opts...).WriteDataset(ds); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
