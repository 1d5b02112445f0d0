package edgecases

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mrsinham/dicomkit/internal/dicom"
)

func newRNG() *rand.Rand { return rand.New(rand.NewPCG(42, 42)) }

func TestParseTypes(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"special-chars", 1, false},
		{"special-chars, long-names", 2, false},
		{"old-dates,old-dates", 1, false},
		{"all", 5, false},
		{"bogus", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseTypes(tc.input)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseTypes(%q) error = %v", tc.input, err)
		}
		if len(got) != tc.want {
			t.Errorf("ParseTypes(%q) = %v, want %d types", tc.input, got, tc.want)
		}
	}
}

func TestConfig(t *testing.T) {
	tests := []struct {
		config  Config
		enabled bool
		wantErr bool
	}{
		{Config{}, false, false},
		{Config{Percentage: 50, Types: []Type{SpecialChars}}, true, false},
		{Config{Percentage: 50}, false, true},
		{Config{Percentage: 101, Types: []Type{SpecialChars}}, true, true},
		{Config{Percentage: -1}, false, true},
	}
	for _, tc := range tests {
		if got := tc.config.IsEnabled(); got != tc.enabled {
			t.Errorf("%+v IsEnabled() = %v", tc.config, got)
		}
		if err := tc.config.Validate(); (err != nil) != tc.wantErr {
			t.Errorf("%+v Validate() = %v", tc.config, err)
		}
	}
}

func TestValues(t *testing.T) {
	rng := newRNG()
	for range 20 {
		if n := SpecialCharName("F", rng); !strings.Contains(n, "^") || !strings.ContainsFunc(n, func(r rune) bool { return r > 127 || r == '\'' || r == '-' }) {
			t.Errorf("SpecialCharName = %q", n)
		}
		if n := LongName(rng); len(n) > MaxLOLength || len(n) < 40 {
			t.Errorf("LongName = %q", n)
		}
		if d := LongDescription(rng); len(d) != MaxLOLength {
			t.Errorf("LongDescription length %d", len(d))
		}
		if d := PartialDate(rng); len(d) != 4 && len(d) != 6 {
			t.Errorf("PartialDate = %q", d)
		}
		year, _ := strconv.Atoi(OldBirthDate(rng)[:4])
		if year < 1900 || year > 1950 {
			t.Errorf("OldBirthDate year %d", year)
		}
	}
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if y, _ := strconv.Atoi(FutureDate(ref, rng)[:4]); y <= 2026 || y > 2031 {
		t.Errorf("FutureDate year %d", y)
	}
}

func TestVariedID(t *testing.T) {
	rng := newRNG()
	tests := []struct {
		format IDFormat
		check  func(string) bool
	}{
		{IDWithDashes, func(s string) bool { return len(s) == 11 && strings.Count(s, "-") == 2 }},
		{IDWithLetters, func(s string) bool { return len(s) == 10 && s[0] >= 'A' && s[1] <= '9' }},
		{IDWithSpaces, func(s string) bool { return strings.Count(s, " ") == 2 }},
		{IDLong, func(s string) bool { return len(s) == MaxLOLength }},
		{IDMixed, func(s string) bool { return strings.HasPrefix(s, "PT-") }},
	}
	for _, tc := range tests {
		if id := VariedID(tc.format, rng); !tc.check(id) {
			t.Errorf("VariedID(%d) = %q", tc.format, id)
		}
	}
}

func TestApplicator(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	half := NewApplicator(Config{Percentage: 50, Types: []Type{SpecialChars}}, newRNG(), now)
	applied := 0
	for range 100 {
		if half.ShouldApply() {
			applied++
		}
	}
	if applied < 30 || applied > 70 {
		t.Errorf("50%% applied %d times in 100", applied)
	}

	names := NewApplicator(Config{Percentage: 100, Types: []Type{SpecialChars}}, newRNG(), now)
	if got := names.PatientName("M", "SMITH^JOHN"); got == "SMITH^JOHN" {
		t.Error("special chars should change the name")
	}
	if got := names.PatientID("PID1"); got != "PID1" {
		t.Errorf("special chars changed the ID to %q", got)
	}
	ids := NewApplicator(Config{Percentage: 100, Types: []Type{VariedIDs}}, newRNG(), now)
	if got := ids.PatientID("PID1"); got == "PID1" {
		t.Error("varied IDs should change the ID")
	}
}

func TestApplicatorOmit(t *testing.T) {
	ds := dicom.NewDataset()
	for _, tg := range Optional {
		if err := ds.PutString(tg, dicom.VRUnknown, "x"); err != nil {
			t.Fatal(err)
		}
	}
	a := NewApplicator(Config{Percentage: 100, Types: []Type{MissingTags}}, newRNG(), time.Now())
	removed := a.Omit(ds)
	if len(removed) < 1 || len(removed) > 3 {
		t.Fatalf("removed %v", removed)
	}
	for _, tg := range removed {
		if ds.Contains(tg) {
			t.Errorf("%v still present", tg)
		}
	}
	if ds.Len() != len(Optional)-len(removed) {
		t.Errorf("Len() = %d", ds.Len())
	}

	off := NewApplicator(Config{Percentage: 100, Types: []Type{LongNames}}, newRNG(), time.Now())
	if removed := off.Omit(ds); removed != nil {
		t.Errorf("Omit without missing-tags removed %v", removed)
	}
}
