package dicom

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

func fillCreatorSlots(t *testing.T, ds *Dataset, group uint16) {
	t.Helper()
	for slot := uint16(firstCreatorSlot); slot <= lastCreatorSlot; slot++ {
		mustPut(t, ds.PutString(tag.New(group, slot), LO, fmt.Sprintf("FILLER %02X", slot)))
	}
}

func TestResolvePrivateTag(t *testing.T) {
	ds := NewDataset()

	if _, ok := ds.ResolvePrivateTag(tag.New(0x0009, 0x1001), "ACME 1", false); ok {
		t.Fatal("resolving without reserve should fail for an unknown creator")
	}

	got, ok := ds.ResolvePrivateTag(tag.New(0x0009, 0x4201), "ACME 1", true)
	if !ok || got != tag.New(0x0009, 0x1001) {
		t.Fatalf("first reservation = %s, %v; want (0009,1001)", got, ok)
	}
	if c, _ := ds.String(tag.New(0x0009, 0x0010)); c != "ACME 1" {
		t.Errorf("creator slot 0x10 = %q", c)
	}

	got, ok = ds.ResolvePrivateTag(tag.New(0x0009, 0x1002), "ACME 2", true)
	if !ok || got != tag.New(0x0009, 0x1102) {
		t.Fatalf("second reservation = %s, %v; want (0009,1102)", got, ok)
	}

	// Already reserved blocks resolve without reserving again.
	got, ok = ds.ResolvePrivateTag(tag.New(0x0009, 0x10FF), "ACME 2", false)
	if !ok || got != tag.New(0x0009, 0x11FF) {
		t.Errorf("lookup = %s, %v; want (0009,11FF)", got, ok)
	}

	if _, ok := ds.ResolvePrivateTag(tag.New(0x0008, 0x1001), "ACME 1", true); ok {
		t.Error("even groups have no private blocks")
	}
}

func TestResolvePrivateTagFull(t *testing.T) {
	ds := NewDataset()
	fillCreatorSlots(t, ds, 0x0011)

	if _, ok := ds.ResolvePrivateTag(tag.New(0x0011, 0x1001), "LATECOMER", true); ok {
		t.Fatal("a full group must not resolve")
	}
	if got, ok := ds.ResolvePrivateTag(tag.New(0x0011, 0x1001), "FILLER FF", true); !ok || got != tag.New(0x0011, 0xFF01) {
		t.Errorf("existing block = %s, %v", got, ok)
	}
	if _, err := ds.PutPrivate(0x0011, "LATECOMER", 0x01, LO, "x"); !errors.Is(err, ErrPrivateBlockUnavailable) {
		t.Errorf("PutPrivate error = %v", err)
	}
}

func TestPutPrivateResolvesVR(t *testing.T) {
	ds := NewDataset()
	got, err := ds.PutPrivate(0x0029, "SIEMENS CSA HEADER", 0x08, VRUnknown, "IMAGE NUM 4")
	if err != nil {
		t.Fatalf("PutPrivate: %v", err)
	}
	if got != tag.New(0x0029, 0x1008) {
		t.Errorf("tag = %s", got)
	}
	e := ds.Get(got)
	if e.VR() != CS {
		t.Errorf("VR = %s, want CS", e.VR())
	}
	if kw := ds.Keyword(got); kw != "CSAImageHeaderType" {
		t.Errorf("Keyword = %q", kw)
	}
	if c, ok := ds.PrivateCreator(got); !ok || c != "SIEMENS CSA HEADER" {
		t.Errorf("PrivateCreator = %q, %v", c, ok)
	}

	// Unknown private elements fall back to UN.
	other, err := ds.PutPrivate(0x0029, "SIEMENS CSA HEADER", 0x77, VRUnknown, "raw")
	mustPut(t, err)
	if vr := ds.Get(other).VR(); vr != UN {
		t.Errorf("unknown private VR = %s, want UN", vr)
	}
}

func TestReservePrivateBlock(t *testing.T) {
	ds := NewDataset()
	mustPut(t, ds.PutString(tag.New(0x0019, 0x0010), LO, "TAKEN"))
	creator, ok := ds.ReservePrivateBlock(0x0019, "MINE")
	if !ok || creator != tag.New(0x0019, 0x0011) {
		t.Fatalf("ReservePrivateBlock = %s, %v", creator, ok)
	}
	again, _ := ds.ReservePrivateBlock(0x0019, "MINE")
	if again != creator {
		t.Errorf("second reservation moved to %s", again)
	}
}

func TestCopyToResolvesPrivate(t *testing.T) {
	src := NewDataset()
	mustPut(t, src.PutString(tag.PatientID, LO, "P1"))
	pt, err := src.PutPrivate(0x0009, "ACME", 0x01, LO, "payload")
	mustPut(t, err)
	if pt != tag.New(0x0009, 0x1001) {
		t.Fatalf("source tag = %s", pt)
	}

	dest := NewDataset()
	mustPut(t, dest.PutString(tag.New(0x0009, 0x0010), LO, "OTHER"))
	mustPut(t, dest.PutString(tag.New(0x0009, 0x1001), LO, "keep me"))

	if err := src.CopyTo(dest, true); err != nil {
		t.Fatalf("CopyTo: %v", err)
	}
	if got, _ := dest.String(tag.New(0x0009, 0x1001)); got != "keep me" {
		t.Errorf("existing private element overwritten: %q", got)
	}
	if got, _ := dest.String(tag.New(0x0009, 0x0011)); got != "ACME" {
		t.Errorf("creator slot 0x11 = %q", got)
	}
	if got, _ := dest.String(tag.New(0x0009, 0x1101)); got != "payload" {
		t.Errorf("re-addressed element = %q", got)
	}
	if got, _ := dest.String(tag.PatientID); got != "P1" {
		t.Errorf("PatientID = %q", got)
	}

	// Without resolution the tags are copied verbatim.
	plain := NewDataset()
	mustPut(t, src.CopyTo(plain, false))
	if got, _ := plain.String(tag.New(0x0009, 0x0010)); got != "ACME" {
		t.Errorf("verbatim creator = %q", got)
	}

	full := NewDataset()
	fillCreatorSlots(t, full, 0x0009)
	if err := src.CopyTo(full, true); !errors.Is(err, ErrPrivateBlockUnavailable) {
		t.Errorf("CopyTo into a full group: %v", err)
	}
}
