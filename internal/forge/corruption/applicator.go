package corruption

import (
	"fmt"
	"math/rand/v2"

	"github.com/mrsinham/dicomkit/internal/dicom"
)

// Applicator adds the configured corruption to generated instances.
type Applicator struct {
	config Config
	rng    *rand.Rand
}

func NewApplicator(config Config, rng *rand.Rand) *Applicator {
	return &Applicator{config: config, rng: rng}
}

// Apply writes the vendor blocks and placeholders into ds.
func (a *Applicator) Apply(ds *dicom.Dataset) error {
	steps := []struct {
		t   Type
		put func(*dicom.Dataset, *rand.Rand) error
	}{
		{SiemensCSA, putSiemens},
		{GEPrivate, putGE},
		{PhilipsPrivate, putPhilips},
		{MalformedLengths, func(ds *dicom.Dataset, _ *rand.Rand) error { return putLineThickness(ds) }},
	}
	for _, s := range steps {
		if !a.config.HasType(s.t) {
			continue
		}
		if err := s.put(ds, a.rng); err != nil {
			return fmt.Errorf("%s: %w", s.t, err)
		}
	}
	return nil
}

// HasMalformedLengths reports whether encoded files must go through
// Malform.
func (a *Applicator) HasMalformedLengths() bool { return a.config.HasType(MalformedLengths) }
