package edgecases

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// MaxLOLength is the longest LO or PN component group value.
const MaxLOLength = 64

var (
	accentedMale   = []string{"Jean-Pierre", "François", "José", "Ángel", "Søren", "Björn", "Łukasz", "Jürgen"}
	accentedFemale = []string{"Marie-Claire", "Éléonore", "María", "Siân", "Zoë", "Renée", "Hélène", "Ångström"}
	accentedLast   = []string{"Müller-Schmidt", "O'Connor", "D'Agostino", "García-López", "Østergaard", "Çelik", "Škvorecký", "Pérez-Rodríguez"}

	longLast  = []string{"ALEXANDROPOULOSWILLIAMSONBERG", "VANDENBERGHEMONTGOMERYSMITH", "CHRISTODOULOPOULOSBAUER"}
	longFirst = []string{"ALEXANDERMAXIMILIANWILLIAM", "ELIZABETHCATHERINEANNAMARIE", "BENJAMINFREDERICKNATHANJOHN"}
)

func pick(rng *rand.Rand, s []string) string { return s[rng.IntN(len(s))] }

func truncate(s string) string {
	if len(s) > MaxLOLength {
		return s[:MaxLOLength]
	}
	return s
}

// SpecialCharName returns a name with accents, apostrophes or hyphens.
// It needs SpecificCharacterSet ISO_IR 192.
func SpecialCharName(sex string, rng *rand.Rand) string {
	first := accentedFemale
	if sex == "M" {
		first = accentedMale
	}
	return pick(rng, accentedLast) + "^" + pick(rng, first)
}

// LongName returns a name close to the PN length limit.
func LongName(rng *rand.Rand) string {
	return truncate(pick(rng, longLast) + "^" + pick(rng, longFirst))
}

const idChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomChars(rng *rand.Rand, alphabet string, n int) string {
	var sb strings.Builder
	for range n {
		sb.WriteByte(alphabet[rng.IntN(len(alphabet))])
	}
	return sb.String()
}

// LongID returns a PatientID of the maximum LO length.
func LongID(rng *rand.Rand) string { return randomChars(rng, idChars, MaxLOLength) }

// LongDescription returns a StudyDescription of the maximum LO length.
func LongDescription(rng *rand.Rand) string {
	return truncate(pick(rng, []string{
		"MRI BRAIN WITH AND WITHOUT CONTRAST DETAILED EXAMINATION FOR SUSPECTED LESION",
		"CT ABDOMEN PELVIS WITH CONTRAST COMPREHENSIVE EVALUATION FOLLOW UP EXAMINATION",
	}))
}

// IDFormat is a PatientID layout.
type IDFormat int

const (
	IDWithDashes  IDFormat = iota // 123-456-789
	IDWithLetters                 // A1B2C3D4E5
	IDWithSpaces                  // PAT 12345 67
	IDLong
	IDMixed // PT-2024-ABC 123
	numIDFormats
)

// VariedID returns a PatientID in the given layout.
func VariedID(format IDFormat, rng *rand.Rand) string {
	switch format {
	case IDWithDashes:
		return fmt.Sprintf("%03d-%03d-%03d", rng.IntN(1000), rng.IntN(1000), rng.IntN(1000))
	case IDWithLetters:
		b := make([]byte, 10)
		for i := range b {
			if i%2 == 0 {
				b[i] = 'A' + byte(rng.IntN(26))
			} else {
				b[i] = '0' + byte(rng.IntN(10))
			}
		}
		return string(b)
	case IDWithSpaces:
		return fmt.Sprintf("PAT %05d %02d", rng.IntN(100000), rng.IntN(100))
	case IDLong:
		return LongID(rng)
	case IDMixed:
		return fmt.Sprintf("PT-%04d-%s %03d", rng.IntN(10000), randomChars(rng, idChars[:26], 3), rng.IntN(1000))
	}
	return fmt.Sprintf("PAT%06d", rng.IntN(1000000))
}

// OldBirthDate returns a DA value between 1900 and 1950.
func OldBirthDate(rng *rand.Rand) string {
	return fmt.Sprintf("%04d%02d%02d", 1900+rng.IntN(51), 1+rng.IntN(12), 1+rng.IntN(28))
}

// PartialDate returns a YYYY or YYYYMM value.
func PartialDate(rng *rand.Rand) string {
	year := 1950 + rng.IntN(50)
	if rng.IntN(2) == 0 {
		return fmt.Sprintf("%04d", year)
	}
	return fmt.Sprintf("%04d%02d", year, 1+rng.IntN(12))
}

// FutureDate returns a date one to five years after ref.
func FutureDate(ref time.Time, rng *rand.Rand) string {
	return fmt.Sprintf("%04d%02d%02d", ref.Year()+1+rng.IntN(5), 1+rng.IntN(12), 1+rng.IntN(28))
}
