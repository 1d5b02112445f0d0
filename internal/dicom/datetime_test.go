package dicom

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	utc := func(y int, mo time.Month, d, h, mi, s, ns int) time.Time {
		return time.Date(y, mo, d, h, mi, s, ns, time.UTC)
	}
	tests := []struct {
		vr   VR
		in   string
		end  bool
		want time.Time
	}{
		{DA, "20240315", false, utc(2024, 3, 15, 0, 0, 0, 0)},
		{DA, "20240315", true, utc(2024, 3, 15, 23, 59, 59, 999999000)},
		{DA, "2024.03.15", false, utc(2024, 3, 15, 0, 0, 0, 0)},
		{TM, "10", false, utc(1, 1, 1, 10, 0, 0, 0)},
		{TM, "10", true, utc(1, 1, 1, 10, 59, 59, 999999000)},
		{TM, "1015", true, utc(1, 1, 1, 10, 15, 59, 999999000)},
		{TM, "101530.25", false, utc(1, 1, 1, 10, 15, 30, 250000000)},
		{TM, "101530.25", true, utc(1, 1, 1, 10, 15, 30, 250000000)},
		{TM, "10:15:30", false, utc(1, 1, 1, 10, 15, 30, 0)},
		{DT, "2024", false, utc(2024, 1, 1, 0, 0, 0, 0)},
		{DT, "2024", true, utc(2024, 12, 31, 23, 59, 59, 999999000)},
		{DT, "202402", true, utc(2024, 2, 29, 23, 59, 59, 999999000)},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.vr, tt.in, tt.end)
		if err != nil {
			t.Errorf("parseDate(%s, %q): %v", tt.vr, tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseDate(%s, %q, %v) = %v, want %v", tt.vr, tt.in, tt.end, got, tt.want)
		}
	}
}

func TestParseDateOffset(t *testing.T) {
	got, err := parseDate(DT, "20240315101530+0200", false)
	if err != nil {
		t.Fatalf("parseDate: %v", err)
	}
	want := time.Date(2024, 3, 15, 8, 15, 30, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got.UTC(), want)
	}
	if _, off := got.Zone(); off != 2*3600 {
		t.Errorf("offset = %d", off)
	}

	got, err = parseDate(DT, "2024-0500", false)
	if err != nil {
		t.Fatalf("parseDate with a year and offset: %v", err)
	}
	if _, off := got.Zone(); off != -5*3600 {
		t.Errorf("offset = %d", off)
	}
}

func TestParseDateErrors(t *testing.T) {
	for _, tt := range []struct {
		vr VR
		in string
	}{
		{DA, ""},
		{DA, "2024031"},
		{DA, "2024MAR15"},
		{TM, "1"},
		{DT, "20240315101530123456"},
		{CS, "20240315"},
	} {
		if _, err := parseDate(tt.vr, tt.in, false); err == nil {
			t.Errorf("parseDate(%s, %q) should fail", tt.vr, tt.in)
		}
	}
}

func TestParseDateRange(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	endOf := func(d int) time.Time { return day(d + 1).Add(-time.Microsecond) }
	tests := []struct {
		vr        VR
		in        string
		start     time.Time
		end       time.Time
		openStart bool
		openEnd   bool
	}{
		{vr: DA, in: "20240301-20240331", start: day(1), end: endOf(31)},
		{vr: DA, in: "20240301-", start: day(1), openEnd: true},
		{vr: DA, in: "-20240331", end: endOf(31), openStart: true},
		{vr: DA, in: "20240315", start: day(15), end: endOf(15)},
		{vr: DT, in: "2024-2025", start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			end: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Microsecond)},
	}
	for _, tt := range tests {
		r, err := parseDateRange(tt.vr, tt.in)
		if err != nil {
			t.Errorf("parseDateRange(%q): %v", tt.in, err)
			continue
		}
		if tt.openStart != r.Start.IsZero() || (!tt.openStart && !r.Start.Equal(tt.start)) {
			t.Errorf("%q: start = %v, want %v", tt.in, r.Start, tt.start)
		}
		if tt.openEnd != r.End.IsZero() || (!tt.openEnd && !r.End.Equal(tt.end)) {
			t.Errorf("%q: end = %v, want %v", tt.in, r.End, tt.end)
		}
	}
}

func TestRangeSeparator(t *testing.T) {
	tests := []struct {
		vr   VR
		in   string
		want int
	}{
		{DA, "20240101-20240131", 8},
		{DA, "-20240131", 0},
		{DT, "2024-0500", -1},
		{DT, "2024-2025", 4},
		{DT, "20240101120000-0500-20240102", 19},
		{DT, "20240101120000-0500", -1},
		{TM, "1000-", 4},
	}
	for _, tt := range tests {
		if got := rangeSeparator(tt.vr, tt.in); got != tt.want {
			t.Errorf("rangeSeparator(%s, %q) = %d, want %d", tt.vr, tt.in, got, tt.want)
		}
	}
}

func TestFormatDateRange(t *testing.T) {
	r := DateRange{Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	if got := formatDateRange(DA, r); got != "20240301-" {
		t.Errorf("formatDateRange = %q", got)
	}

	ds := NewDataset()
	mustPut(t, ds.PutDateRange(0x00080020, DA, DateRange{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}))
	got, ok := ds.DateRange(0x00080020)
	if !ok {
		t.Fatal("DateRange not readable")
	}
	if got.End.Day() != 31 || got.End.Hour() != 23 {
		t.Errorf("range end = %v, want the last instant of the 31st", got.End)
	}
}
