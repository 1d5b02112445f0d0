package dicom

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// UndefinedLength marks sequences and items terminated by a delimiter.
const UndefinedLength uint32 = 0xFFFFFFFF

// maxValueLength rejects corrupt lengths before allocating.
const maxValueLength = 1 << 30

// Header is the encoded prefix of an element or item.
type Header struct {
	Tag    tag.Tag
	VR     VR // VRUnknown for item and delimiter tags
	Length uint32
	Offset int64 // stream offset of the tag
}

// Undefined reports whether the length is the undefined marker.
func (h Header) Undefined() bool { return h.Length == UndefinedLength }

// Reader decodes elements from a stream in one transfer syntax and keeps
// track of the stream offset of everything it reads.
type Reader struct {
	r     *bufio.Reader
	pos   int64
	limit int64
	ts    TransferSyntax
	order binary.ByteOrder

	dict      Dictionary
	interner  *Interner
	skipPixel bool
	log       zerolog.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithDictionary resolves implicit VRs with d instead of the dataset
// dictionary.
func WithDictionary(d Dictionary) ReaderOption {
	return func(r *Reader) { r.dict = d }
}

// WithInterner shares short values through in.
func WithInterner(in *Interner) ReaderOption {
	return func(r *Reader) { r.interner = in }
}

// WithOffset sets the stream offset of the first byte read.
func WithOffset(off int64) ReaderOption {
	return func(r *Reader) { r.pos = off }
}

// WithLimit makes values extending past offset n fail early.
func WithLimit(n int64) ReaderOption {
	return func(r *Reader) { r.limit = n }
}

// WithReaderLogger reports tolerated anomalies.
func WithReaderLogger(l zerolog.Logger) ReaderOption {
	return func(r *Reader) { r.log = l }
}

// SkipPixelData drops the value of (7FE0,0010) while reading.
func SkipPixelData() ReaderOption {
	return func(r *Reader) { r.skipPixel = true }
}

// NewReader returns a Reader decoding src with ts. A *bufio.Reader is used
// as is so that several Readers can consume one stream in turn.
func NewReader(src io.Reader, ts TransferSyntax, opts ...ReaderOption) *Reader {
	br, ok := src.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(src)
	}
	r := &Reader{r: br, log: zerolog.Nop()}
	r.setSyntax(ts)
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Reader) setSyntax(ts TransferSyntax) {
	r.ts = ts
	r.order = byteOrder(ts.BigEndian)
}

// Pos returns the offset of the next byte to be read.
func (r *Reader) Pos() int64 { return r.pos }

// TransferSyntax returns the syntax elements are decoded with.
func (r *Reader) TransferSyntax() TransferSyntax { return r.ts }

func (r *Reader) readFull(b []byte) error {
	n, err := io.ReadFull(r.r, b)
	r.pos += int64(n)
	return err
}

// continued reads the rest of a structure whose start was already read,
// where running out of input is always unexpected.
func (r *Reader) continued(b []byte) error {
	err := r.readFull(b)
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Skip discards n bytes.
func (r *Reader) Skip(n int64) error {
	m, err := r.r.Discard(int(n))
	r.pos += int64(m)
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (r *Reader) peekTag() (tag.Tag, error) {
	b, err := r.r.Peek(4)
	if len(b) < 4 {
		if len(b) == 0 && errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, io.ErrUnexpectedEOF
	}
	return tag.New(r.order.Uint16(b), r.order.Uint16(b[2:])), nil
}

// ReadHeader decodes the next element or item header. ds supplies the
// private creators needed to resolve implicit VRs and may be nil. It
// returns io.EOF only when the stream ends cleanly before the header.
func (r *Reader) ReadHeader(ds *Dataset) (Header, error) {
	h := Header{Offset: r.pos}
	var b [8]byte
	if err := r.readFull(b[:4]); err != nil {
		if errors.Is(err, io.EOF) && r.pos == h.Offset {
			return h, io.EOF
		}
		return h, io.ErrUnexpectedEOF
	}
	h.Tag = tag.New(r.order.Uint16(b[:]), r.order.Uint16(b[2:]))
	if h.Tag.IsDelimiter() || !r.ts.ExplicitVR {
		if err := r.continued(b[:4]); err != nil {
			return h, err
		}
		h.Length = r.order.Uint32(b[:])
		if !h.Tag.IsDelimiter() {
			h.VR = r.implicitVR(h.Tag, ds)
		}
		return h, nil
	}
	if err := r.continued(b[:4]); err != nil {
		return h, err
	}
	vr, err := vrFromBytes(b[0], b[1])
	if err != nil {
		return h, &DecodeError{Tag: h.Tag, Offset: h.Offset, Err: err}
	}
	h.VR = vr
	if !vr.HasLongLength() {
		h.Length = uint32(r.order.Uint16(b[2:]))
		return h, nil
	}
	if err := r.continued(b[:4]); err != nil {
		return h, err
	}
	h.Length = r.order.Uint32(b[:])
	return h, nil
}

func (r *Reader) implicitVR(t tag.Tag, ds *Dataset) VR {
	creator := ""
	if ds != nil && t.IsPrivate() && !t.IsPrivateCreator() {
		creator, _ = ds.PrivateCreator(t)
	}
	d := r.dict
	if d == nil {
		if ds != nil {
			d = ds.Dictionary()
		} else {
			d = DefaultDictionary
		}
	}
	vr := d.VR(t, creator)
	if vr == VRUnknown {
		r.log.Debug().Stringer("tag", t).Int64("offset", r.pos).Msg("tag not in dictionary, read as UN")
		vr = UN
	}
	return vr
}

// ReadValue decodes the value announced by h. Sequences are read into
// items bound to ds. It returns nil for a skipped pixel data value.
func (r *Reader) ReadValue(h Header, ds *Dataset) (*Element, error) {
	undefined := h.Undefined()
	switch {
	case h.VR == SQ || (undefined && h.Tag != tag.PixelData && (h.VR == UN || !r.ts.ExplicitVR)):
		seq := NewSequence(h.Tag, r.ts.BigEndian)
		if ds != nil {
			seq.bind(ds)
		}
		if h.VR == UN && r.ts.ExplicitVR {
			// An UN sequence of undefined length is always implicit VR
			// little endian inside.
			r.log.Debug().Stringer("tag", h.Tag).Int64("offset", h.Offset).Msg("UN sequence read as implicit VR little endian")
			saved := r.ts
			r.setSyntax(ImplicitVRLittleEndian)
			defer r.setSyntax(saved)
		}
		if err := r.readItems(seq, h.Length); err != nil {
			return nil, err
		}
		return seq, nil
	case undefined:
		vr := h.VR
		if vr != OW {
			vr = OB
		}
		frags := NewFragments(h.Tag, vr, r.ts.BigEndian)
		if err := r.readFragments(frags); err != nil {
			return nil, err
		}
		return frags, nil
	}
	if h.Length > maxValueLength || (r.limit > 0 && r.pos+int64(h.Length) > r.limit) {
		return nil, &DecodeError{Tag: h.Tag, Offset: h.Offset, Err: fmt.Errorf("value length %d exceeds input", h.Length)}
	}
	if r.skipPixel && h.Tag == tag.PixelData {
		r.log.Debug().Int64("offset", h.Offset).Uint32("length", h.Length).Msg("pixel data skipped")
		if err := r.Skip(int64(h.Length)); err != nil {
			return nil, &DecodeError{Tag: h.Tag, Offset: h.Offset, Err: err}
		}
		return nil, nil
	}
	value := make([]byte, h.Length)
	if err := r.continued(value); err != nil {
		return nil, &DecodeError{Tag: h.Tag, Offset: h.Offset, Err: err}
	}
	e := &Element{tag: h.Tag, vr: h.VR, bigEndian: r.ts.BigEndian, value: value}
	if r.interner != nil {
		e = r.interner.Element(e)
	}
	return e, nil
}

// ReadDataset reads elements into ds until the end of the stream.
func (r *Reader) ReadDataset(ds *Dataset) error {
	ds.bigEndian = r.ts.BigEndian
	return r.readElements(ds, -1, false, nil)
}

// readElements reads into ds until offset end, an item delimiter, the end
// of the stream (top level only) or a tag for which stop returns true.
func (r *Reader) readElements(ds *Dataset, end int64, nested bool, stop func(tag.Tag) bool) error {
	for end < 0 || r.pos < end {
		if stop != nil {
			t, err := r.peekTag()
			if errors.Is(err, io.EOF) && !nested {
				return nil
			}
			if err != nil {
				return err
			}
			if stop(t) {
				return nil
			}
		}
		h, err := r.ReadHeader(ds)
		if errors.Is(err, io.EOF) {
			if !nested && end < 0 {
				return nil
			}
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		switch h.Tag {
		case tag.ItemDelimitationItem:
			return nil
		case tag.Item, tag.SequenceDelimitationItem:
			return &DecodeError{Tag: h.Tag, Offset: h.Offset, Err: errors.New("delimiter outside a sequence")}
		}
		e, err := r.ReadValue(h, ds)
		if err != nil {
			return err
		}
		if e == nil {
			continue
		}
		if h.Tag.IsGroupLength() {
			r.log.Trace().Stringer("tag", h.Tag).Msg("group length dropped, it is recomputed on write")
			continue
		}
		if err := ds.PutElement(e); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) readItemHeader() (Header, error) {
	h := Header{Offset: r.pos}
	var b [8]byte
	if err := r.continued(b[:]); err != nil {
		return h, err
	}
	h.Tag = tag.New(r.order.Uint16(b[:]), r.order.Uint16(b[2:]))
	h.Length = r.order.Uint32(b[4:])
	return h, nil
}

func (r *Reader) readItems(seq *Element, length uint32) error {
	end := int64(-1)
	if length != UndefinedLength {
		end = r.pos + int64(length)
	}
	for end < 0 || r.pos < end {
		h, err := r.readItemHeader()
		if err != nil {
			return &DecodeError{Tag: seq.tag, Offset: h.Offset, Err: err}
		}
		switch h.Tag {
		case tag.SequenceDelimitationItem:
			return nil
		case tag.Item:
		default:
			return &DecodeError{Tag: seq.tag, Offset: h.Offset, Err: fmt.Errorf("unexpected %s in sequence", h.Tag)}
		}
		item, err := seq.NewItem()
		if err != nil {
			return err
		}
		item.itemOffset = h.Offset
		item.bigEndian = r.ts.BigEndian
		iend := int64(-1)
		if !h.Undefined() {
			iend = r.pos + int64(h.Length)
		}
		if err := r.readElements(item, iend, true, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) readFragments(e *Element) error {
	for {
		h, err := r.readItemHeader()
		if err != nil {
			return &DecodeError{Tag: e.tag, Offset: h.Offset, Err: err}
		}
		switch h.Tag {
		case tag.SequenceDelimitationItem:
			return nil
		case tag.Item:
		default:
			return &DecodeError{Tag: e.tag, Offset: h.Offset, Err: fmt.Errorf("unexpected %s in fragments", h.Tag)}
		}
		if h.Length > maxValueLength || (r.limit > 0 && r.pos+int64(h.Length) > r.limit) {
			return &DecodeError{Tag: e.tag, Offset: h.Offset, Err: fmt.Errorf("fragment length %d exceeds input", h.Length)}
		}
		b := make([]byte, h.Length)
		if err := r.continued(b); err != nil {
			return &DecodeError{Tag: e.tag, Offset: h.Offset, Err: err}
		}
		e.fragments = append(e.fragments, b)
	}
}

// ReadItem reads one sequence item at the current offset into a new root
// dataset whose ItemOffset is the offset of its Item tag. It returns nil
// and no error at a sequence delimiter.
func (r *Reader) ReadItem() (*Dataset, error) {
	h, err := r.readItemHeader()
	if err != nil {
		return nil, err
	}
	switch h.Tag {
	case tag.SequenceDelimitationItem:
		return nil, nil
	case tag.Item:
	default:
		return nil, &DecodeError{Tag: h.Tag, Offset: h.Offset, Err: errors.New("not an item")}
	}
	item := NewDataset()
	item.itemOffset = h.Offset
	item.bigEndian = r.ts.BigEndian
	end := int64(-1)
	if !h.Undefined() {
		end = r.pos + int64(h.Length)
	}
	if err := r.readElements(item, end, true, nil); err != nil {
		return nil, err
	}
	return item, nil
}
