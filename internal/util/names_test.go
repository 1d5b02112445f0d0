package util

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
)

func TestGeneratePatientName(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	for range 200 {
		for _, sex := range []string{"M", "F"} {
			name := GeneratePatientName(sex, rng)
			last, first, ok := strings.Cut(name, "^")
			if !ok || last == "" || first == "" {
				t.Fatalf("GeneratePatientName(%q) = %q", sex, name)
			}
			firsts := slices.Concat(english.female, french.female)
			if sex == "M" {
				firsts = slices.Concat(english.male, french.male)
			}
			if !slices.Contains(firsts, first) {
				t.Errorf("%q is not a %s first name", first, sex)
			}
		}
	}
}

func TestGeneratePatientNameDeterministic(t *testing.T) {
	a := rand.New(rand.NewPCG(42, 42))
	b := rand.New(rand.NewPCG(42, 42))
	for range 20 {
		if x, y := GeneratePatientName("F", a), GeneratePatientName("F", b); x != y {
			t.Fatalf("same seed gave %q and %q", x, y)
		}
	}
}

func TestGeneratedNamesFit(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	for range 100 {
		if n := GeneratePhysicianName(rng); len(n) > 64 || !strings.HasSuffix(n, "^^Dr") {
			t.Errorf("physician %q", n)
		}
		if s := GenerateStationName("CT", "CHEST", rng); len(s) > 16 {
			t.Errorf("station name %q exceeds SH", s)
		}
		if p := GenerateBodyPart("XX", rng); !slices.Contains(bodyParts["MR"], p) {
			t.Errorf("fallback body part %q", p)
		}
	}
}
