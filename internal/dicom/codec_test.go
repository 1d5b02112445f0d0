package dicom

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

func sequenceFixture(t *testing.T) *Dataset {
	t.Helper()
	ds := NewDataset()
	mustPut(t, ds.PutString(tag.PatientID, LO, "P1"))
	mustPut(t, ds.PutString(tag.Modality, CS, "MR"))
	seq, err := ds.PutSequence(tag.ReferencedImageSequence)
	mustPut(t, err)
	for _, u := range []string{"1.2.3.1", "1.2.3.2"} {
		item, err := seq.NewItem()
		mustPut(t, err)
		mustPut(t, item.PutString(tag.ReferencedSOPClassUID, UI, "1.2.840.10008.5.1.4.1.1.4"))
		mustPut(t, item.PutString(tag.ReferencedSOPInstanceUID, UI, u))
	}
	return ds
}

func TestSequenceItemOffsets(t *testing.T) {
	for _, tc := range []struct {
		name string
		ts   TransferSyntax
		opts []WriterOption
	}{
		{"implicit undefined", ImplicitVRLittleEndian, nil},
		{"implicit explicit lengths", ImplicitVRLittleEndian, []WriterOption{WithExplicitLengths()}},
		{"explicit undefined", ExplicitVRLittleEndian, nil},
		{"explicit with start offset", ExplicitVRLittleEndian, []WriterOption{WithStartOffset(132), WithExplicitLengths()}},
		{"big endian", ExplicitVRBigEndian, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ds := sequenceFixture(t)
			var buf bytes.Buffer
			w := NewWriter(&buf, tc.ts, tc.opts...)
			if err := w.WriteDataset(ds); err != nil {
				t.Fatalf("WriteDataset: %v", err)
			}
			start := w.Pos() - int64(buf.Len())

			written := ds.Get(tag.ReferencedImageSequence).Items()
			for _, item := range written {
				if item.ItemOffset() < start {
					t.Fatalf("item offset %d not recorded", item.ItemOffset())
				}
				// The Item tag sits at the recorded offset.
				b := buf.Bytes()[item.ItemOffset()-start:]
				got := tag.New(byteOrder(tc.ts.BigEndian).Uint16(b), byteOrder(tc.ts.BigEndian).Uint16(b[2:]))
				if got != tag.Item {
					t.Errorf("found %s at item offset %d", got, item.ItemOffset())
				}
			}

			out := NewDataset()
			if err := NewReader(bytes.NewReader(buf.Bytes()), tc.ts, WithOffset(start)).ReadDataset(out); err != nil {
				t.Fatalf("ReadDataset: %v", err)
			}
			seq := out.Get(tag.ReferencedImageSequence)
			if seq == nil || seq.CountItems() != 2 {
				t.Fatalf("sequence not read back: %v", seq)
			}
			for i, item := range seq.Items() {
				if item.ItemOffset() != written[i].ItemOffset() {
					t.Errorf("item %d offset = %d, want %d", i, item.ItemOffset(), written[i].ItemOffset())
				}
				if item.Parent() != out || item.ItemPosition() != i+1 {
					t.Errorf("item %d not attached to the root", i)
				}
			}
			if got, _ := seq.Item(1).String(tag.ReferencedSOPInstanceUID); got != "1.2.3.2" {
				t.Errorf("second item UID = %q", got)
			}
			if got, _ := out.String(tag.Modality); got != "MR" {
				t.Errorf("element after the sequence = %q", got)
			}
		})
	}
}

func TestFragments(t *testing.T) {
	ds := NewDataset()
	frags, err := ds.PutFragments(tag.PixelData, OB)
	mustPut(t, err)
	mustPut(t, frags.AddFragment(nil))
	mustPut(t, frags.AddFragment([]byte{1, 2, 3}))
	mustPut(t, frags.AddFragment([]byte{4, 5, 6, 7}))

	if _, err := ds.PutFragments(tag.Rows, US); !errors.Is(err, ErrIncompatibleVR) {
		t.Errorf("fragments in US: %v", err)
	}
	if err := NewSequence(tag.ReferencedImageSequence, false).AddFragment([]byte{1}); !errors.Is(err, ErrNotFragments) {
		t.Errorf("fragment in a sequence: %v", err)
	}

	b, err := EncodeDataset(ds, ExplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("EncodeDataset: %v", err)
	}
	out := NewDataset()
	if err := NewReader(bytes.NewReader(b), ExplicitVRLittleEndian).ReadDataset(out); err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	e := out.Get(tag.PixelData)
	if e == nil || !e.HasFragments() {
		t.Fatalf("pixel data not read as fragments: %v", e)
	}
	if e.CountItems() != 3 {
		t.Fatalf("fragments = %d, want 3", e.CountItems())
	}
	if len(e.Fragment(0)) != 0 {
		t.Errorf("offset table = %v", e.Fragment(0))
	}
	if !bytes.Equal(e.Fragment(1), []byte{1, 2, 3, 0}) {
		t.Errorf("odd fragment not padded: %v", e.Fragment(1))
	}
	if !bytes.Equal(e.Fragment(2), []byte{4, 5, 6, 7}) {
		t.Errorf("fragment 2 = %v", e.Fragment(2))
	}
}

func TestReadExplicitUNSequence(t *testing.T) {
	var b []byte
	// (0008,1140) UN, undefined length.
	b = append(b, 0x08, 0x00, 0x40, 0x11, 'U', 'N', 0, 0, 0xFF, 0xFF, 0xFF, 0xFF)
	// Item, undefined length, implicit VR inside.
	b = append(b, 0xFE, 0xFF, 0x00, 0xE0, 0xFF, 0xFF, 0xFF, 0xFF)
	b = append(b, 0x08, 0x00, 0x55, 0x11, 4, 0, 0, 0, '1', '.', '2', 0)
	b = append(b, 0xFE, 0xFF, 0x0D, 0xE0, 0, 0, 0, 0)
	b = append(b, 0xFE, 0xFF, 0xDD, 0xE0, 0, 0, 0, 0)
	// (0010,0020) LO back in explicit VR.
	b = append(b, 0x10, 0x00, 0x20, 0x00, 'L', 'O', 2, 0, 'P', '1')

	ds := NewDataset()
	if err := NewReader(bytes.NewReader(b), ExplicitVRLittleEndian).ReadDataset(ds); err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	seq := ds.Get(tag.ReferencedImageSequence)
	if seq == nil || !seq.HasDatasets() || seq.CountItems() != 1 {
		t.Fatalf("UN sequence not read as items: %v", seq)
	}
	item := seq.Item(0)
	if item.ItemOffset() != 12 {
		t.Errorf("item offset = %d, want 12", item.ItemOffset())
	}
	if e := item.Get(tag.ReferencedSOPInstanceUID); e == nil || e.VR() != UI {
		t.Errorf("implicit VR not resolved: %v", e)
	}
	if got, _ := item.String(tag.ReferencedSOPInstanceUID); got != "1.2" {
		t.Errorf("UID = %q", got)
	}
	if got, _ := ds.String(tag.PatientID); got != "P1" {
		t.Errorf("PatientID = %q", got)
	}
}

func TestReadDropsGroupLength(t *testing.T) {
	b := []byte{
		0x08, 0x00, 0x00, 0x00, 'U', 'L', 4, 0, 10, 0, 0, 0,
		0x08, 0x00, 0x60, 0x00, 'C', 'S', 2, 0, 'M', 'R',
	}
	ds := NewDataset()
	if err := NewReader(bytes.NewReader(b), ExplicitVRLittleEndian).ReadDataset(ds); err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	if ds.Contains(tag.New(0x0008, 0x0000)) {
		t.Error("group length element kept")
	}
	if ds.Len() != 1 {
		t.Errorf("Len = %d, want 1", ds.Len())
	}
}

func TestReadTruncated(t *testing.T) {
	ds := sequenceFixture(t)
	mustPut(t, ds.PutString(tag.PatientName, PN, "Doe^John"))
	b, err := EncodeDataset(ds, ImplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("EncodeDataset: %v", err)
	}
	for _, cut := range []int{3, 9, 20} {
		out := NewDataset()
		err := NewReader(bytes.NewReader(b[:len(b)-cut]), ImplicitVRLittleEndian).ReadDataset(out)
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("cut %d: error = %v, want unexpected EOF", cut, err)
		}
	}

	// A length running past the declared limit fails before reading.
	huge := []byte{0x10, 0x00, 0x10, 0x00, 'P', 'N', 0xFF, 0x7F}
	err = NewReader(bytes.NewReader(huge), ExplicitVRLittleEndian, WithLimit(int64(len(huge)))).ReadDataset(NewDataset())
	var de *DecodeError
	if !errors.As(err, &de) || de.Tag != tag.PatientName || de.Offset != 0 {
		t.Errorf("limit error = %v", err)
	}
}

func TestReaderInterner(t *testing.T) {
	src := NewDataset()
	mustPut(t, src.PutString(tag.Modality, CS, "MR"))
	mustPut(t, src.PutString(tag.PatientID, LO, "P1"))
	mustPut(t, src.PutString(tag.StudyDescription, LO, strings.Repeat("x", 80)))
	b, err := EncodeDataset(src, ExplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("EncodeDataset: %v", err)
	}

	in := NewInterner(0)
	var sets []*Dataset
	for range 2 {
		ds := NewDataset()
		if err := NewReader(bytes.NewReader(b), ExplicitVRLittleEndian, WithInterner(in)).ReadDataset(ds); err != nil {
			t.Fatalf("ReadDataset: %v", err)
		}
		sets = append(sets, ds)
	}
	if sets[0].Get(tag.Modality) != sets[1].Get(tag.Modality) {
		t.Error("short values are not shared")
	}
	if sets[0].Get(tag.StudyDescription) == sets[1].Get(tag.StudyDescription) {
		t.Error("long values must not be interned")
	}
	if in.Len() != 2 || in.Hits() != 2 {
		t.Errorf("interner Len = %d, Hits = %d", in.Len(), in.Hits())
	}
}

func TestSkipPixelData(t *testing.T) {
	ds := NewDataset()
	mustPut(t, ds.PutInt(tag.Rows, US, 2))
	mustPut(t, ds.PutBytes(tag.PixelData, OW, []byte{1, 2, 3, 4}))
	mustPut(t, ds.PutString(tag.New(0x7FE1, 0x0010), LO, "AFTER"))
	b, err := EncodeDataset(ds, ExplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("EncodeDataset: %v", err)
	}
	out := NewDataset()
	if err := NewReader(bytes.NewReader(b), ExplicitVRLittleEndian, SkipPixelData()).ReadDataset(out); err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	if out.Contains(tag.PixelData) {
		t.Error("pixel data not skipped")
	}
	if got, _ := out.String(tag.New(0x7FE1, 0x0010)); got != "AFTER" {
		t.Errorf("element after pixel data = %q", got)
	}
}

func TestReadItemStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, ExplicitVRLittleEndian, WithStartOffset(100))
	first := NewDataset()
	mustPut(t, first.PutString(tag.PatientID, LO, "A"))
	second := NewDataset()
	mustPut(t, second.PutString(tag.PatientID, LO, "B"))
	for _, ds := range []*Dataset{first, second} {
		if err := w.WriteItem(ds); err != nil {
			t.Fatalf("WriteItem: %v", err)
		}
	}
	mustPut(t, w.WriteSequenceDelimiter())

	r := NewReader(bytes.NewReader(buf.Bytes()), ExplicitVRLittleEndian, WithOffset(100))
	for _, want := range []*Dataset{first, second} {
		item, err := r.ReadItem()
		if err != nil || item == nil {
			t.Fatalf("ReadItem: %v, %v", item, err)
		}
		if item.ItemOffset() != want.ItemOffset() {
			t.Errorf("offset = %d, want %d", item.ItemOffset(), want.ItemOffset())
		}
		if got, _ := item.String(tag.PatientID); got != want.StringOr(tag.PatientID, "") {
			t.Errorf("PatientID = %q", got)
		}
	}
	item, err := r.ReadItem()
	if item != nil || err != nil {
		t.Errorf("after the last item: %v, %v", item, err)
	}
	if r.Pos() != w.Pos() {
		t.Errorf("reader at %d, writer at %d", r.Pos(), w.Pos())
	}
}

func TestWriteShortLengthOverflow(t *testing.T) {
	ds := NewDataset()
	mustPut(t, ds.PutString(tag.StudyDescription, LT, strings.Repeat("a", 70000)))
	if _, err := EncodeDataset(ds, ExplicitVRLittleEndian); err == nil {
		t.Error("a 70000 byte LT value fits no explicit VR header")
	}
	if _, err := EncodeDataset(ds, ImplicitVRLittleEndian); err != nil {
		t.Errorf("implicit VR has 32-bit lengths: %v", err)
	}
}

func TestWalk(t *testing.T) {
	ds := sequenceFixture(t)
	var depths []int
	err := ds.Walk(func(depth int, e *Element) error {
		depths = append(depths, depth)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	// Modality, the sequence and its two items of two elements, PatientID.
	want := []int{0, 0, 1, 1, 1, 1, 0}
	if len(depths) != len(want) {
		t.Fatalf("visited %v, want %v", depths, want)
	}
	for i := range want {
		if depths[i] != want[i] {
			t.Fatalf("visited %v, want %v", depths, want)
		}
	}

	stop := errors.New("stop")
	if err := ds.Walk(func(int, *Element) error { return stop }); !errors.Is(err, stop) {
		t.Errorf("Walk error = %v", err)
	}
}
