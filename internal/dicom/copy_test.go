package dicom

import (
	"slices"
	"testing"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

func TestCloneIsDeep(t *testing.T) {
	ds := sequenceFixture(t)
	frags, err := ds.PutFragments(tag.PixelData, OB)
	mustPut(t, err)
	mustPut(t, frags.AddFragment([]byte{1, 2}))

	c := ds.Clone()
	if c.Arena() == ds.Arena() {
		t.Fatal("clone shares the arena")
	}
	item, _ := c.Item(tag.ReferencedImageSequence, 0)
	if item == nil || item.Parent() != c {
		t.Fatal("cloned item not attached to the clone")
	}
	mustPut(t, item.PutString(tag.ReferencedSOPInstanceUID, UI, "9.9"))
	orig, _ := ds.Item(tag.ReferencedImageSequence, 0)
	if got, _ := orig.String(tag.ReferencedSOPInstanceUID); got != "1.2.3.1" {
		t.Errorf("editing the clone changed the original: %q", got)
	}
	c.Get(tag.PixelData).Fragment(0)[0] = 42
	if ds.Get(tag.PixelData).Fragment(0)[0] != 1 {
		t.Error("fragments are shared")
	}
}

func TestSubsets(t *testing.T) {
	ds := sequenceFixture(t)
	mustPut(t, ds.PutString(tag.PatientName, PN, "Doe^John"))
	mustPut(t, ds.PutInt(tag.Rows, US, 4))
	_, err := ds.PutPrivate(0x0009, "ACME", 0x01, LO, "secret")
	mustPut(t, err)

	tests := []struct {
		name string
		got  *Dataset
		want []tag.Tag
	}{
		{"SubSet", ds.SubSet(tag.PatientName, tag.PatientID), []tag.Tag{tag.PatientName, tag.PatientID}},
		{"Include", ds.Include(tag.Rows, tag.AccessionNumber), []tag.Tag{tag.Rows}},
		{"Exclude", ds.Exclude(tag.ReferencedImageSequence, tag.Rows, tag.New(0x0009, 0x0010), tag.New(0x0009, 0x1001)),
			[]tag.Tag{tag.Modality, tag.PatientName, tag.PatientID}},
		{"ExcludePrivate", ds.ExcludePrivate(),
			[]tag.Tag{tag.Modality, tag.ReferencedImageSequence, tag.PatientName, tag.PatientID, tag.Rows}},
	}
	for _, tt := range tests {
		if got := tt.got.Tags(); !slices.Equal(got, tt.want) {
			t.Errorf("%s: tags = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFilter(t *testing.T) {
	ds := sequenceFixture(t)
	mustPut(t, ds.PutString(tag.SpecificCharacterSet, CS, "ISO_IR 100"))

	keys := NewDataset()
	mustPut(t, keys.PutNull(tag.PatientID, LO))
	seq, err := keys.PutSequence(tag.ReferencedImageSequence)
	mustPut(t, err)
	item, err := seq.NewItem()
	mustPut(t, err)
	mustPut(t, item.PutNull(tag.ReferencedSOPInstanceUID, UI))

	out := ds.Filter(keys)
	want := []tag.Tag{tag.SpecificCharacterSet, tag.ReferencedImageSequence, tag.PatientID}
	if got := out.Tags(); !slices.Equal(got, want) {
		t.Fatalf("tags = %v, want %v", got, want)
	}
	e := out.Get(tag.ReferencedImageSequence)
	if e.CountItems() != 2 {
		t.Fatalf("items = %d", e.CountItems())
	}
	for i, it := range e.Items() {
		if got := it.Tags(); !slices.Equal(got, []tag.Tag{tag.ReferencedSOPInstanceUID}) {
			t.Errorf("item %d tags = %v", i, got)
		}
		if it.Parent() != out || it.ItemPosition() != i+1 {
			t.Errorf("item %d not attached", i)
		}
	}
}
