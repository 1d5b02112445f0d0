package modalities

import (
	"math/rand/v2"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
	"github.com/mrsinham/dicomkit/internal/dicom/uid"
)

// MRGenerator generates MR (Magnetic Resonance) specific metadata.
type MRGenerator struct{}

// Modality returns the MR modality type.
func (g *MRGenerator) Modality() Modality {
	return MR
}

// SOPClassUID returns the MR Image Storage SOP Class UID.
func (g *MRGenerator) SOPClassUID() string {
	return uid.MRImageStorage
}

// Scanners returns available MR scanner configurations.
func (g *MRGenerator) Scanners() []Scanner {
	return []Scanner{
		{Manufacturer: "SIEMENS", Model: "Avanto", FieldStrength: 1.5},
		{Manufacturer: "SIEMENS", Model: "Skyra", FieldStrength: 3.0},
		{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Signa HDxt", FieldStrength: 1.5},
		{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Discovery MR750", FieldStrength: 3.0},
		{Manufacturer: "PHILIPS", Model: "Achieva", FieldStrength: 1.5},
		{Manufacturer: "PHILIPS", Model: "Ingenia", FieldStrength: 3.0},
	}
}

// GenerateSeriesParams generates MR-specific parameters for a series.
func (g *MRGenerator) GenerateSeriesParams(scanner Scanner, rng *rand.Rand) SeriesParams {
	sequences := []string{"T1_MPRAGE", "T1_SE", "T2_FSE", "T2_FLAIR"}

	params := SeriesParams{
		Modality:              MR,
		Scanner:               scanner,
		PixelSpacing:          0.5 + rng.Float64()*1.5,     // 0.5-2.0 mm
		SliceThickness:        1.0 + rng.Float64()*4.0,     // 1.0-5.0 mm
		EchoTime:              10.0 + rng.Float64()*20.0,   // 10-30 ms
		RepetitionTime:        400.0 + rng.Float64()*400.0, // 400-800 ms
		FlipAngle:             60.0 + rng.Float64()*30.0,   // 60-90 degrees
		SequenceName:          sequences[rng.IntN(len(sequences))],
		MagneticFieldStrength: scanner.FieldStrength,
		ImagingFrequency:      scanner.FieldStrength * 42.58, // MHz
		WindowCenter:          500.0 + rng.Float64()*1000.0,  // 500-1500
		WindowWidth:           1000.0 + rng.Float64()*1000.0, // 1000-2000
	}
	params.SpacingBetweenSlices = params.SliceThickness + rng.Float64()*0.5

	return params
}

// PixelConfig returns MR pixel data configuration.
func (g *MRGenerator) PixelConfig() PixelConfig {
	return PixelConfig{
		BitsAllocated:       16,
		BitsStored:          12,
		HighBit:             11,
		PixelRepresentation: 0, // Unsigned
		MinValue:            0,
		MaxValue:            4095,
		BaseValue:           2048,
	}
}

// PutModalityElements writes the MR acquisition attributes. Zero timings
// are left out.
func (g *MRGenerator) PutModalityElements(ds *dicom.Dataset, params SeriesParams) error {
	attrs := []attr{
		{tag.MagneticFieldStrength, dicom.DS, floatToDS(params.MagneticFieldStrength)},
		{tag.ImagingFrequency, dicom.DS, floatToDS(params.ImagingFrequency)},
	}
	if params.EchoTime != 0 {
		attrs = append(attrs, attr{tag.EchoTime, dicom.DS, floatToDS(params.EchoTime)})
	}
	if params.RepetitionTime != 0 {
		attrs = append(attrs, attr{tag.RepetitionTime, dicom.DS, floatToDS(params.RepetitionTime)})
	}
	if params.FlipAngle != 0 {
		attrs = append(attrs, attr{tag.FlipAngle, dicom.DS, floatToDS(params.FlipAngle)})
	}
	if params.SequenceName != "" {
		attrs = append(attrs, attr{tag.SequenceName, dicom.SH, params.SequenceName})
	}
	return putAll(ds, attrs)
}

// WindowPresets returns MR window presets.
func (g *MRGenerator) WindowPresets() []WindowPreset {
	return []WindowPreset{
		{Name: "DEFAULT", Center: 500, Width: 1000},
		{Name: "BRIGHT", Center: 300, Width: 600},
		{Name: "CONTRAST", Center: 600, Width: 1200},
	}
}
