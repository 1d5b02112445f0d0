package dicom

import (
	"testing"
	"time"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

func matchSubject(t *testing.T) *Dataset {
	t.Helper()
	ds := NewDataset()
	mustPut(t, ds.PutString(tag.PatientName, PN, "Doe^John"))
	mustPut(t, ds.PutString(tag.PatientID, LO, "PID-0042"))
	mustPut(t, ds.PutStrings(tag.ImageType, CS, "ORIGINAL", "PRIMARY", "AXIAL"))
	mustPut(t, ds.PutString(tag.StudyInstanceUID, UI, "1.2.3.4"))
	mustPut(t, ds.PutString(tag.StudyDate, DA, "20240315"))
	mustPut(t, ds.PutString(tag.StudyTime, TM, "101530"))
	mustPut(t, ds.PutString(tag.SeriesDate, DA, "20240316"))

	seq, err := ds.PutSequence(tag.ReferencedImageSequence)
	mustPut(t, err)
	for _, u := range []string{"1.2.3.4.1", "1.2.3.4.2"} {
		item, err := seq.NewItem()
		mustPut(t, err)
		mustPut(t, item.PutString(tag.ReferencedSOPInstanceUID, UI, u))
	}
	return ds
}

func TestMatches(t *testing.T) {
	subject := matchSubject(t)

	tests := []struct {
		name   string
		keys   func(*Dataset)
		ignore bool
		want   bool
	}{
		{"no keys", func(*Dataset) {}, false, true},
		{"exact", func(k *Dataset) { _ = k.PutString(tag.PatientID, LO, "PID-0042") }, false, true},
		{"mismatch", func(k *Dataset) { _ = k.PutString(tag.PatientID, LO, "PID-0043") }, false, false},
		{"star", func(k *Dataset) { _ = k.PutString(tag.PatientName, PN, "Doe*") }, false, true},
		{"question mark", func(k *Dataset) { _ = k.PutString(tag.PatientID, LO, "PID-00?2") }, false, true},
		{"star in the middle", func(k *Dataset) { _ = k.PutString(tag.PatientID, LO, "P*42") }, false, true},
		{"case sensitive", func(k *Dataset) { _ = k.PutString(tag.PatientName, PN, "doe*") }, false, false},
		{"case folded PN", func(k *Dataset) { _ = k.PutString(tag.PatientName, PN, "doe*") }, true, true},
		{"case folding is PN only", func(k *Dataset) { _ = k.PutString(tag.PatientID, LO, "pid-0042") }, true, false},
		{"empty key", func(k *Dataset) { _ = k.PutNull(tag.PatientName, PN) }, false, true},
		{"absent attribute", func(k *Dataset) { _ = k.PutString(tag.AccessionNumber, SH, "A1") }, false, true},
		{"any of multiple values", func(k *Dataset) { _ = k.PutString(tag.ImageType, CS, "AXIAL") }, false, true},
		{"UI is not a pattern", func(k *Dataset) { _ = k.PutString(tag.StudyInstanceUID, UI, "1.2.*") }, false, false},
		{"UI list", func(k *Dataset) { _ = k.PutStrings(tag.StudyInstanceUID, UI, "9.9", "1.2.3.4") }, false, true},
		{"date in range", func(k *Dataset) { _ = k.PutString(tag.SeriesDate, DA, "20240301-20240331") }, false, true},
		{"date before range", func(k *Dataset) { _ = k.PutString(tag.SeriesDate, DA, "20240401-") }, false, false},
		{"open start", func(k *Dataset) { _ = k.PutString(tag.SeriesDate, DA, "-20240316") }, false, true},
		{"single date", func(k *Dataset) { _ = k.PutString(tag.SeriesDate, DA, "20240317") }, false, false},
		{"date with time in range", func(k *Dataset) {
			_ = k.PutString(tag.StudyDate, DA, "20240315")
			_ = k.PutString(tag.StudyTime, TM, "1000-1100")
		}, false, true},
		{"date with time after", func(k *Dataset) {
			_ = k.PutString(tag.StudyDate, DA, "20240315")
			_ = k.PutString(tag.StudyTime, TM, "1100-")
		}, false, false},
		{"date time open range", func(k *Dataset) {
			_ = k.PutString(tag.StudyDate, DA, "20240314-")
			_ = k.PutString(tag.StudyTime, TM, "1200-")
		}, false, true},
		{"time alone", func(k *Dataset) { _ = k.PutString(tag.StudyTime, TM, "09-11") }, false, true},
		{"sequence item", func(k *Dataset) {
			seq, _ := k.PutSequence(tag.ReferencedImageSequence)
			item, _ := seq.NewItem()
			_ = item.PutString(tag.ReferencedSOPInstanceUID, UI, "1.2.3.4.2")
		}, false, true},
		{"sequence without matching item", func(k *Dataset) {
			seq, _ := k.PutSequence(tag.ReferencedImageSequence)
			item, _ := seq.NewItem()
			_ = item.PutString(tag.ReferencedSOPInstanceUID, UI, "1.2.3.4.3")
		}, false, false},
		{"empty sequence key", func(k *Dataset) { _, _ = k.PutSequence(tag.ReferencedImageSequence) }, false, true},
		{"all keys must match", func(k *Dataset) {
			_ = k.PutString(tag.PatientName, PN, "Doe*")
			_ = k.PutString(tag.PatientID, LO, "other")
		}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := NewDataset()
			tt.keys(keys)
			if got := subject.Matches(keys, tt.ignore); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesDefaults(t *testing.T) {
	base := NewDataset()
	mustPut(t, base.PutString(tag.Modality, CS, "MR"))
	ds := NewDataset()
	ds.SetDefaults(base)

	keys := NewDataset()
	mustPut(t, keys.PutString(tag.Modality, CS, "CT"))
	if ds.Matches(keys, false) {
		t.Error("defaults should take part in matching")
	}
}

func TestMatchWildcard(t *testing.T) {
	tests := []struct {
		pattern, s string
		want       bool
	}{
		{"*", "", true},
		{"*", "anything", true},
		{"a*c", "abbbc", true},
		{"a*c", "abbbd", false},
		{"?", "é", true},
		{"??", "é", false},
		{"*x*", "abc", false},
		{"Y*^*", "Yamada^Tarou", true},
		{"", "", true},
		{"", "a", false},
	}
	for _, tt := range tests {
		if got := matchWildcard(tt.pattern, tt.s); got != tt.want {
			t.Errorf("matchWildcard(%q, %q) = %v, want %v", tt.pattern, tt.s, got, tt.want)
		}
	}
}

func TestDateRangeOverlaps(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name string
		a, b DateRange
		want bool
	}{
		{"inside", DateRange{day(1), day(31)}, DateRange{day(5), day(6)}, true},
		{"before", DateRange{day(10), day(20)}, DateRange{day(1), day(5)}, false},
		{"touching", DateRange{day(10), day(20)}, DateRange{day(20), day(25)}, true},
		{"open end", DateRange{Start: day(10)}, DateRange{day(25), day(26)}, true},
		{"open start", DateRange{End: day(10)}, DateRange{day(25), day(26)}, false},
		{"unbounded", DateRange{}, DateRange{day(1), day(2)}, true},
	}
	for _, tt := range tests {
		if got := tt.a.Overlaps(tt.b); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
	}
}
