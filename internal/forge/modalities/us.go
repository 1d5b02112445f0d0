package modalities

import (
	"math/rand/v2"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
	"github.com/mrsinham/dicomkit/internal/dicom/uid"
)

// USGenerator generates grayscale ultrasound metadata.
type USGenerator struct{}

// Modality returns US.
func (g *USGenerator) Modality() Modality {
	return US
}

// SOPClassUID returns the Ultrasound Image Storage SOP Class UID.
func (g *USGenerator) SOPClassUID() string {
	return uid.UltrasoundImageStorage
}

// Scanners returns ultrasound systems.
func (g *USGenerator) Scanners() []Scanner {
	return []Scanner{
		{Manufacturer: "GE Healthcare", Model: "LOGIQ E10"},
		{Manufacturer: "PHILIPS", Model: "EPIQ 7"},
		{Manufacturer: "SIEMENS", Model: "ACUSON Sequoia"},
		{Manufacturer: "CANON", Model: "Aplio i800"},
	}
}

// GenerateSeriesParams picks a transducer.
func (g *USGenerator) GenerateSeriesParams(scanner Scanner, rng *rand.Rand) SeriesParams {
	transducers := []string{"SECTOR_PHASED", "CURVED LINEAR", "LINEAR"}
	return SeriesParams{
		Modality:       US,
		Scanner:        scanner,
		TransducerType: transducers[rng.IntN(len(transducers))],
		PixelSpacing:   0.1 + rng.Float64()*0.2,
		WindowCenter:   128,
		WindowWidth:    256,
	}
}

// PixelConfig returns 8-bit unsigned samples.
func (g *USGenerator) PixelConfig() PixelConfig {
	return PixelConfig{
		BitsAllocated: 8,
		BitsStored:    8,
		HighBit:       7,
		MinValue:      0,
		MaxValue:      255,
		BaseValue:     64,
	}
}

// PutModalityElements writes the transducer type.
func (g *USGenerator) PutModalityElements(ds *dicom.Dataset, params SeriesParams) error {
	return putAll(ds, []attr{{tag.TransducerType, dicom.CS, params.TransducerType}})
}

// WindowPresets returns the full 8-bit range.
func (g *USGenerator) WindowPresets() []WindowPreset {
	return []WindowPreset{{Name: "DEFAULT", Center: 128, Width: 256}}
}
