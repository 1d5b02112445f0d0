package edgecases

import (
	"math/rand/v2"
	"time"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// Optional lists attributes that may be left out of a generated instance.
var Optional = []tag.Tag{
	tag.BodyPartExamined,
	tag.StudyDescription,
	tag.SeriesDescription,
	tag.InstitutionName,
	tag.ReferringPhysicianName,
	tag.PerformingPhysicianName,
	tag.OperatorsName,
	tag.ProtocolName,
}

// Applicator draws edge cases from a seeded source, so a seed always yields
// the same values.
type Applicator struct {
	config Config
	rng    *rand.Rand
	now    time.Time
}

// NewApplicator uses now as the reference for future dates.
func NewApplicator(config Config, rng *rand.Rand, now time.Time) *Applicator {
	return &Applicator{config: config, rng: rng, now: now}
}

// ShouldApply rolls the configured percentage.
func (a *Applicator) ShouldApply() bool { return a.rng.IntN(100) < a.config.Percentage }

func (a *Applicator) pickType() Type { return a.config.Types[a.rng.IntN(len(a.config.Types))] }

func (a *Applicator) PatientName(sex, original string) string {
	switch a.pickType() {
	case SpecialChars:
		return SpecialCharName(sex, a.rng)
	case LongNames:
		return LongName(a.rng)
	}
	return original
}

func (a *Applicator) PatientID(original string) string {
	switch a.pickType() {
	case VariedIDs:
		return VariedID(IDFormat(a.rng.IntN(int(numIDFormats))), a.rng)
	case LongNames:
		return LongID(a.rng)
	}
	return original
}

func (a *Applicator) BirthDate(original string) string {
	if a.pickType() != OldDates {
		return original
	}
	if a.rng.IntN(2) == 0 {
		return OldBirthDate(a.rng)
	}
	return PartialDate(a.rng)
}

// StudyDate moves one study in four into the future when old dates are on.
func (a *Applicator) StudyDate(original string) string {
	if a.config.HasType(OldDates) && a.rng.IntN(4) == 0 {
		return FutureDate(a.now, a.rng)
	}
	return original
}

// StudyDescription lengthens the description when long names are on.
func (a *Applicator) StudyDescription(original string) string {
	if a.config.HasType(LongNames) && a.rng.IntN(2) == 0 {
		return LongDescription(a.rng)
	}
	return original
}

// Omit removes one to three optional attributes from ds when missing tags
// are on, and returns the removed tags.
func (a *Applicator) Omit(ds *dicom.Dataset) []tag.Tag {
	if !a.config.HasType(MissingTags) {
		return nil
	}
	n := 1 + a.rng.IntN(3)
	var removed []tag.Tag
	for _, i := range a.rng.Perm(len(Optional))[:n] {
		if ds.Remove(Optional[i]) != nil {
			removed = append(removed, Optional[i])
		}
	}
	return removed
}
