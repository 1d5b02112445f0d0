package util

import (
	"strings"
	"testing"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

func TestGetTagByName(t *testing.T) {
	tests := []struct {
		name  string
		want  string
		tag   tag.Tag
		scope TagScope
	}{
		{"PatientName", "PatientName", tag.PatientName, ScopePatient},
		{"pAtIeNtNaMe", "PatientName", tag.PatientName, ScopePatient},
		{"PatientSex", "PatientSex", tag.PatientSex, ScopePatient},
		{"STUDYDESCRIPTION", "StudyDescription", tag.StudyDescription, ScopeStudy},
		{"InstitutionalDepartmentName", "InstitutionalDepartmentName", tag.InstitutionalDepartmentName, ScopeStudy},
		{"RequestedProcedurePriority", "RequestedProcedurePriority", tag.RequestedProcedurePriority, ScopeStudy},
		{"ProtocolName", "ProtocolName", tag.ProtocolName, ScopeSeries},
		{"manufacturermodelname", "ManufacturerModelName", tag.ManufacturerModelName, ScopeSeries},
		{"WindowWidth", "WindowWidth", tag.WindowWidth, ScopeImage},
		// any public keyword, at image scope
		{"ContrastBolusAgent", "ContrastBolusAgent", tag.ContrastBolusAgent, ScopeImage},
		{"(0018,1314)", "(0018,1314)", tag.FlipAngle, ScopeImage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info, err := GetTagByName(tc.name)
			if err != nil {
				t.Fatalf("GetTagByName(%q): %v", tc.name, err)
			}
			if info.Name != tc.want || info.Tag != tc.tag || info.Scope != tc.scope {
				t.Errorf("GetTagByName(%q) = %+v, want %s %v %v", tc.name, info, tc.want, tc.tag, tc.scope)
			}
		})
	}
}

func TestGetTagByNameUnknown(t *testing.T) {
	tests := []struct {
		name string
		hint string
	}{
		{"", ""},
		{"   ", ""},
		{"NotATagAtAllReally", ""},
		{"PatinetName", "PatientName"},
		{"StudyDescripton", "StudyDescription"},
		{"Manufacurer", "Manufacturer"},
		{"WindowCentre", "WindowCenter"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GetTagByName(tc.name)
			if err == nil {
				t.Fatalf("GetTagByName(%q) should fail", tc.name)
			}
			if tc.hint != "" && !strings.Contains(err.Error(), tc.hint) {
				t.Errorf("error %q should suggest %q", err, tc.hint)
			}
		})
	}
}

func TestParseTagFlags(t *testing.T) {
	p, err := ParseTagFlags([]string{
		"InstitutionName=General Hospital",
		"ContrastBolusAgent=Gadolinium",
		"institutionname=City Clinic",
		"PatientComments=a=b",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(p) != 3 {
		t.Fatalf("got %d overrides, want 3", len(p))
	}
	if v := p.Or("InstitutionName", "x"); v != "City Clinic" {
		t.Errorf("InstitutionName = %q", v)
	}
	if v := p.Or("PatientComments", ""); v != "a=b" {
		t.Errorf("PatientComments = %q", v)
	}
	if v := p.Or("StationName", "default"); v != "default" {
		t.Errorf("StationName = %q", v)
	}
	extra := p.Extra()
	if len(extra) != 2 || extra[0].Tag != tag.ContrastBolusAgent {
		t.Errorf("Extra() = %+v", extra)
	}

	for _, bad := range []string{"InstitutionName", "Bogus=1"} {
		if _, err := ParseTagFlags([]string{bad}); err == nil {
			t.Errorf("ParseTagFlags(%q) should fail", bad)
		}
	}
}

func TestTagScopeString(t *testing.T) {
	for scope, want := range map[TagScope]string{
		ScopePatient: "Patient", ScopeStudy: "Study", ScopeSeries: "Series", ScopeImage: "Image", 9: "Unknown",
	} {
		if got := scope.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", scope, got, want)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abd", 1},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"patientname", "patinetname", 2},
	}
	for _, tc := range tests {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
