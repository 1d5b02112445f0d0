package dicom

import (
	"bytes"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

func mustPut(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
}

var (
	tagFD = tag.New(0x0018, 0x9087)
	tagFL = tag.New(0x0018, 0x1800)
	tagUL = tag.New(0x0018, 0x6016)
	tagSL = tag.New(0x0018, 0x6020)
	tagAT = tag.New(0x0028, 0x0009)
)

func TestValueRoundTrip(t *testing.T) {
	studyDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	studyTime := time.Date(1, 1, 1, 10, 15, 30, 0, time.UTC)

	for _, ts := range []TransferSyntax{ImplicitVRLittleEndian, ExplicitVRLittleEndian, ExplicitVRBigEndian} {
		t.Run(ts.UID, func(t *testing.T) {
			ds := NewDataset()
			ds.SetBigEndian(ts.BigEndian)
			mustPut(t, ds.PutString(tag.PatientName, VRUnknown, "Doe^John"))
			mustPut(t, ds.PutStrings(tag.ImageType, CS, "ORIGINAL", "PRIMARY"))
			mustPut(t, ds.PutInt(tag.Rows, US, 512))
			mustPut(t, ds.PutInt(tag.PixelPaddingValue, SS, -2000))
			mustPut(t, ds.PutInt(tagUL, UL, 70000))
			mustPut(t, ds.PutInt(tagSL, SL, -5))
			mustPut(t, ds.PutFloats(tag.PixelSpacing, DS, 0.5, 0.25))
			mustPut(t, ds.PutFloat(tagFD, FD, 1000.5))
			mustPut(t, ds.PutFloat(tagFL, FL, 0.25))
			mustPut(t, ds.PutTags(tagAT, AT, tag.NumberOfFrames))
			mustPut(t, ds.PutInt(tag.InstanceNumber, IS, 7))
			mustPut(t, ds.PutDate(tag.StudyDate, DA, studyDate))
			mustPut(t, ds.PutDate(tag.StudyTime, TM, studyTime))

			b, err := EncodeDataset(ds, ts)
			if err != nil {
				t.Fatalf("EncodeDataset: %v", err)
			}
			out := NewDataset()
			if err := NewReader(bytes.NewReader(b), ts).ReadDataset(out); err != nil {
				t.Fatalf("ReadDataset: %v", err)
			}

			if got, _ := out.String(tag.PatientName); got != "Doe^John" {
				t.Errorf("PatientName = %q", got)
			}
			if got, _ := out.Strings(tag.ImageType); !slices.Equal(got, []string{"ORIGINAL", "PRIMARY"}) {
				t.Errorf("ImageType = %q", got)
			}
			ints := []struct {
				tag  tag.Tag
				want int
			}{
				{tag.Rows, 512},
				{tagUL, 70000},
				{tag.InstanceNumber, 7},
			}
			for _, c := range ints {
				if got, ok := out.Int(c.tag); !ok || got != c.want {
					t.Errorf("Int(%s) = %d, %v; want %d", c.tag, got, ok, c.want)
				}
			}
			if ts.ExplicitVR {
				if got := out.IntOr(tag.PixelPaddingValue, 0); got != -2000 {
					t.Errorf("SS value = %d, want -2000", got)
				}
				if got := out.IntOr(tagSL, 0); got != -5 {
					t.Errorf("SL value = %d, want -5", got)
				}
				if got := out.FloatOr(tagFD, 0); got != 1000.5 {
					t.Errorf("FD value = %g", got)
				}
				if got := out.FloatOr(tagFL, 0); got != 0.25 {
					t.Errorf("FL value = %g", got)
				}
				if got, _ := out.TagValues(tagAT); !slices.Equal(got, []tag.Tag{tag.NumberOfFrames}) {
					t.Errorf("AT value = %v", got)
				}
			}
			if got, _ := out.Floats(tag.PixelSpacing); !slices.Equal(got, []float64{0.5, 0.25}) {
				t.Errorf("PixelSpacing = %v", got)
			}
			if got, ok := out.Date(tag.StudyDate); !ok || !got.Equal(studyDate) {
				t.Errorf("StudyDate = %v, %v", got, ok)
			}
			if got, ok := out.Date(tag.StudyTime); !ok || got.Hour() != 10 || got.Minute() != 15 || got.Second() != 30 {
				t.Errorf("StudyTime = %v, %v", got, ok)
			}
			if dt, ok := out.DateTime(tag.StudyDate, tag.StudyTime); !ok || !dt.Equal(time.Date(2024, 3, 15, 10, 15, 30, 0, time.UTC)) {
				t.Errorf("DateTime = %v", dt)
			}
		})
	}
}

func TestEndianEncoding(t *testing.T) {
	ds := NewDataset()
	mustPut(t, ds.PutInt(tag.Rows, US, 0x0102))
	if got, _ := ds.Bytes(tag.Rows); !bytes.Equal(got, []byte{0x02, 0x01}) {
		t.Fatalf("little endian bytes = % x", got)
	}
	ds.SetBigEndian(true)
	if got, _ := ds.Bytes(tag.Rows); !bytes.Equal(got, []byte{0x01, 0x02}) {
		t.Fatalf("big endian bytes = % x", got)
	}
	if got := ds.IntOr(tag.Rows, 0); got != 0x0102 {
		t.Errorf("value after toggle = %#x", got)
	}
	mustPut(t, ds.PutTags(tagAT, AT, tag.New(0x0028, 0x0008)))
	if got, _ := ds.Bytes(tagAT); !bytes.Equal(got, []byte{0x00, 0x28, 0x00, 0x08}) {
		t.Errorf("AT big endian bytes = % x", got)
	}
}

func TestPadding(t *testing.T) {
	ds := NewDataset()
	mustPut(t, ds.PutString(tag.PatientID, LO, "ABC"))
	mustPut(t, ds.PutString(tag.SOPInstanceUID, UI, "1.2.3"))
	if got, _ := ds.Bytes(tag.PatientID); !bytes.Equal(got, []byte("ABC ")) {
		t.Errorf("LO padded = %q", got)
	}
	if got, _ := ds.Bytes(tag.SOPInstanceUID); !bytes.Equal(got, []byte("1.2.3\x00")) {
		t.Errorf("UI padded = %q", got)
	}
	if got, _ := ds.String(tag.SOPInstanceUID); got != "1.2.3" {
		t.Errorf("UI decoded = %q", got)
	}
}

func TestPutErrors(t *testing.T) {
	ds := NewDataset()
	if err := ds.PutInt(tag.New(0x0008, 0x0000), UL, 4); !errors.Is(err, ErrGroupLength) {
		t.Errorf("group length put: %v, want ErrGroupLength", err)
	}
	if err := ds.PutInt(tag.Rows, US, 70000); !errors.Is(err, ErrIncompatibleVR) {
		t.Errorf("US overflow: %v, want ErrIncompatibleVR", err)
	}
	if err := ds.PutStrings(tag.New(0x0020, 0x4000), LT, "a", "b"); !errors.Is(err, ErrIncompatibleVR) {
		t.Errorf("multi valued LT: %v, want ErrIncompatibleVR", err)
	}
	if err := ds.PutFloat(tag.InstanceNumber, IS, 1.5); !errors.Is(err, ErrIncompatibleVR) {
		t.Errorf("fractional IS: %v, want ErrIncompatibleVR", err)
	}
	if ds.Len() != 0 {
		t.Errorf("failed puts stored %d elements", ds.Len())
	}
}

func TestDecodeErrors(t *testing.T) {
	ds := NewDataset()
	seq, err := ds.PutSequence(tag.ReferencedImageSequence)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := seq.Strings(nil); !errors.Is(err, ErrNotScalar) {
		t.Errorf("Strings on SQ: %v, want ErrNotScalar", err)
	}
	if _, err := seq.Ints(); !errors.Is(err, ErrNotScalar) {
		t.Errorf("Ints on SQ: %v, want ErrNotScalar", err)
	}
	mustPut(t, ds.PutString(tag.PatientName, PN, "Doe"))
	if _, err := ds.Get(tag.PatientName).Ints(); !errors.Is(err, ErrIncompatibleVR) {
		t.Errorf("Ints on PN: %v, want ErrIncompatibleVR", err)
	}
	if _, ok := ds.Int(tag.PatientName); ok {
		t.Error("Int on PN reported ok")
	}
}

func TestVM(t *testing.T) {
	ds := NewDataset()
	mustPut(t, ds.PutStrings(tag.ImageType, CS, "ORIGINAL", "PRIMARY", "AXIAL"))
	mustPut(t, ds.PutInts(tag.New(0x0028, 0x1101), US, 256, 0, 16))
	mustPut(t, ds.PutNull(tag.AccessionNumber, SH))
	tests := []struct {
		tag  tag.Tag
		want int
	}{
		{tag.ImageType, 3},
		{tag.New(0x0028, 0x1101), 3},
		{tag.AccessionNumber, 0},
		{tag.PatientName, -1},
	}
	for _, tc := range tests {
		if got := ds.VM(tc.tag); got != tc.want {
			t.Errorf("VM(%s) = %d, want %d", tc.tag, got, tc.want)
		}
	}
}

func TestSequencePositions(t *testing.T) {
	ds := NewDataset()
	seq, err := ds.PutSequence(tag.ReferencedSeriesSequence)
	if err != nil {
		t.Fatal(err)
	}
	var items []*Dataset
	for i := 0; i < 3; i++ {
		item, err := seq.NewItem()
		if err != nil {
			t.Fatal(err)
		}
		items = append(items, item)
	}
	for i, item := range items {
		if item.ItemPosition() != i+1 {
			t.Errorf("item %d position = %d", i, item.ItemPosition())
		}
		if item.Parent() != ds {
			t.Errorf("item %d parent is not the dataset", i)
		}
	}

	removed, err := seq.RemoveItem(0)
	if err != nil {
		t.Fatal(err)
	}
	if removed.Parent() != nil || removed.ItemPosition() != 0 {
		t.Errorf("removed item still attached: pos %d", removed.ItemPosition())
	}
	for i := 0; i < seq.CountItems(); i++ {
		if got := seq.Item(i).ItemPosition(); got != i+1 {
			t.Errorf("after removal item %d position = %d", i, got)
		}
	}

	if err := seq.AddItem(items[1]); !errors.Is(err, ErrHasParent) {
		t.Errorf("re-adding attached item: %v, want ErrHasParent", err)
	}
	if err := seq.AddItem(removed); err != nil {
		t.Errorf("re-adding detached item: %v", err)
	}
	if removed.ItemPosition() != 3 || removed.Parent() != ds {
		t.Errorf("re-added item pos %d", removed.ItemPosition())
	}
}

func TestAdoptAcrossArenas(t *testing.T) {
	ds := NewDataset()
	seq, _ := ds.PutSequence(tag.ContentSequence)

	item := NewDataset()
	inner, _ := item.PutSequence(tag.ConceptNameCodeSequence)
	code, _ := inner.NewItem()
	mustPut(t, code.PutString(tag.CodeValue, SH, "121071"))

	if err := seq.AddItem(item); err != nil {
		t.Fatal(err)
	}
	if item.Arena() != ds.Arena() || code.Arena() != ds.Arena() {
		t.Fatal("nested datasets were not moved into the parent arena")
	}
	if code.Parent() != item || item.Parent() != ds {
		t.Error("parent chain broken after adoption")
	}
	if code.Root() != ds {
		t.Error("Root of nested item is not the top dataset")
	}

	removed := ds.Remove(tag.ContentSequence)
	if removed == nil || item.Parent() != nil {
		t.Error("removing the sequence did not detach its items")
	}
}

func TestCharacterSetInheritance(t *testing.T) {
	ds := NewDataset()
	mustPut(t, ds.PutString(tag.SpecificCharacterSet, CS, "ISO_IR 100"))
	mustPut(t, ds.PutString(tag.PatientName, PN, "Müller^Jürgen"))
	if got, _ := ds.Bytes(tag.PatientName); !bytes.Contains(got, []byte{0xFC}) {
		t.Fatalf("PN not encoded in Latin-1: % x", got)
	}
	if got, _ := ds.String(tag.PatientName); got != "Müller^Jürgen" {
		t.Errorf("decoded %q", got)
	}

	seq, _ := ds.PutSequence(tag.ReferencedImageSequence)
	item, _ := seq.NewItem()
	mustPut(t, item.PutString(tag.PatientName, PN, "Ängström"))
	if got, _ := item.Bytes(tag.PatientName); got[0] != 0xC5 {
		t.Errorf("item did not inherit the character set: % x", got)
	}

	mustPut(t, ds.PutString(tag.SpecificCharacterSet, CS, "ISO_IR 192"))
	if terms := ds.CharacterSet().Terms(); !slices.Equal(terms, []string{"ISO_IR 192"}) {
		t.Errorf("cached character set not invalidated: %v", terms)
	}
	mustPut(t, ds.PutString(tag.PatientName, PN, "Müller"))
	if got, _ := ds.Bytes(tag.PatientName); !bytes.HasPrefix(got, []byte("M\xc3\xbc")) {
		t.Errorf("PN not encoded in UTF-8: % x", got)
	}
}

func TestDefaults(t *testing.T) {
	defaults := NewDataset()
	mustPut(t, defaults.PutString(tag.InstitutionName, LO, "General Hospital"))
	ds := NewDataset()
	ds.SetDefaults(defaults)
	if got := ds.StringOr(tag.InstitutionName, ""); got != "General Hospital" {
		t.Errorf("read-through = %q", got)
	}
	if ds.Contains(tag.InstitutionName) {
		t.Error("Contains reports a default as local")
	}
	mustPut(t, ds.PutString(tag.InstitutionName, LO, "Clinic"))
	if got := ds.StringOr(tag.InstitutionName, ""); got != "Clinic" {
		t.Errorf("local value = %q", got)
	}
}

func TestGetAsRetype(t *testing.T) {
	ds := NewDataset()
	mustPut(t, ds.PutBytes(tag.PatientID, UN, []byte("ID42")))
	e, err := ds.GetAs(tag.PatientID, LO)
	if err != nil {
		t.Fatal(err)
	}
	if e.VR() != LO || ds.Get(tag.PatientID).VR() != LO {
		t.Fatalf("retyped VR = %s", e.VR())
	}
	if got, _ := ds.String(tag.PatientID); got != "ID42" {
		t.Errorf("retyped value = %q", got)
	}
	if _, err := ds.GetAs(tag.PatientID, SH); !errors.Is(err, ErrUnsupportedRetype) {
		t.Errorf("LO to SH: %v, want ErrUnsupportedRetype", err)
	}

	src := NewDataset()
	mustPut(t, src.PutString(tag.ReferencedSOPInstanceUID, UI, "1.2.3"))
	var buf bytes.Buffer
	if err := NewWriter(&buf, ImplicitVRLittleEndian).WriteItem(src); err != nil {
		t.Fatal(err)
	}
	mustPut(t, ds.PutBytes(tag.ReferencedImageSequence, UN, buf.Bytes()))
	seq, err := ds.GetAs(tag.ReferencedImageSequence, SQ)
	if err != nil {
		t.Fatal(err)
	}
	if seq.CountItems() != 1 {
		t.Fatalf("items = %d", seq.CountItems())
	}
	item := seq.Item(0)
	if got, _ := item.String(tag.ReferencedSOPInstanceUID); got != "1.2.3" {
		t.Errorf("item value = %q", got)
	}
	if item.Parent() != ds || item.ItemPosition() != 1 {
		t.Error("retyped items not attached to the dataset")
	}

	mustPut(t, ds.PutBytes(tag.ReferencedSeriesSequence, UN, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	_, err = ds.GetAs(tag.ReferencedSeriesSequence, SQ)
	var de *DecodeError
	if !errors.As(err, &de) || de.Tag != tag.ReferencedSeriesSequence {
		t.Errorf("garbage SQ: %v, want DecodeError", err)
	}
}

func TestGetPath(t *testing.T) {
	ds := NewDataset()
	seq, _ := ds.PutSequence(tag.ReferencedSeriesSequence)
	item, _ := seq.NewItem()
	mustPut(t, item.PutString(tag.SeriesInstanceUID, UI, "1.2"))

	e, err := ds.GetPath(int(tag.ReferencedSeriesSequence), 0, int(tag.SeriesInstanceUID))
	if err != nil || e == nil {
		t.Fatalf("GetPath = %v, %v", e, err)
	}
	if s, _ := e.String(nil); s != "1.2" {
		t.Errorf("value = %q", s)
	}
	if _, err := ds.GetPath(int(tag.ReferencedSeriesSequence), 0); !errors.Is(err, ErrBadPath) {
		t.Errorf("even path: %v, want ErrBadPath", err)
	}
	if e, err := ds.GetPath(int(tag.ReferencedSeriesSequence), 5, int(tag.SeriesInstanceUID)); e != nil || err != nil {
		t.Errorf("absent item = %v, %v", e, err)
	}
	e, err = ds.GetPathTag(PathStep{Tag: tag.ReferencedSeriesSequence}, PathStep{Tag: tag.SeriesInstanceUID})
	if err != nil || e == nil {
		t.Errorf("GetPathTag = %v, %v", e, err)
	}
}

func TestRangeAndTags(t *testing.T) {
	ds := NewDataset()
	mustPut(t, ds.PutString(tag.PatientID, LO, "1"))
	mustPut(t, ds.PutString(tag.Modality, CS, "CT"))
	mustPut(t, ds.PutString(tag.StudyInstanceUID, UI, "1.2"))
	mustPut(t, ds.PutString(tag.SOPInstanceUID, UI, "1.3"))

	if got := ds.Tags(); !slices.Equal(got, []tag.Tag{tag.SOPInstanceUID, tag.Modality, tag.PatientID, tag.StudyInstanceUID}) {
		t.Errorf("Tags = %v", got)
	}
	var in []tag.Tag
	for e := range ds.Range(tag.New(0x0008, 0), tag.New(0x0008, 0xFFFF)) {
		in = append(in, e.Tag())
	}
	if !slices.Equal(in, []tag.Tag{tag.SOPInstanceUID, tag.Modality}) {
		t.Errorf("Range group 0008 = %v", in)
	}
}
