package modalities

import (
	"math/rand/v2"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
	"github.com/mrsinham/dicomkit/internal/dicom/uid"
)

// ProjectionGenerator generates single-projection X-ray metadata for CR, DX
// and MG.
type ProjectionGenerator struct {
	modality Modality
}

// Modality returns CR, DX or MG.
func (g *ProjectionGenerator) Modality() Modality {
	return g.modality
}

// SOPClassUID returns the storage class of the projection modality.
func (g *ProjectionGenerator) SOPClassUID() string {
	switch g.modality {
	case CR:
		return uid.ComputedRadiographyImageStorage
	case MG:
		return uid.DigitalMammographyXRayImageStorageForPresentation
	}
	return uid.DigitalXRayImageStorageForPresentation
}

// Scanners returns the X-ray units for the modality.
func (g *ProjectionGenerator) Scanners() []Scanner {
	switch g.modality {
	case CR:
		return []Scanner{
			{Manufacturer: "FUJIFILM Corporation", Model: "FCR PROFECT CS"},
			{Manufacturer: "Carestream Health", Model: "DirectView CR 975"},
			{Manufacturer: "AGFA", Model: "CR 30-X"},
		}
	case MG:
		return []Scanner{
			{Manufacturer: "HOLOGIC, Inc.", Model: "Selenia Dimensions"},
			{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Senographe Pristina"},
			{Manufacturer: "SIEMENS", Model: "MAMMOMAT Revelation"},
		}
	}
	return []Scanner{
		{Manufacturer: "SIEMENS", Model: "Ysio Max"},
		{Manufacturer: "PHILIPS", Model: "DigitalDiagnost C90"},
		{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Definium 8000"},
		{Manufacturer: "CANON", Model: "RADREX-i"},
	}
}

// GenerateSeriesParams draws exposure and view parameters.
func (g *ProjectionGenerator) GenerateSeriesParams(scanner Scanner, rng *rand.Rand) SeriesParams {
	params := SeriesParams{
		Modality: g.modality,
		Scanner:  scanner,
	}
	laterality := []string{"L", "R"}[rng.IntN(2)]

	if g.modality == MG {
		params.ViewPosition = []string{"CC", "MLO"}[rng.IntN(2)]
		params.ImageLaterality = laterality
		params.KVP = float64(25 + rng.IntN(11))
		params.Exposure = 40 + rng.IntN(121)
		params.ExposureTime = 500 + rng.IntN(1500)
		params.DistanceSourceToDetector = 650
		params.BodyPartThickness = float64(30 + rng.IntN(41))
		params.CompressionForce = float64(60 + rng.IntN(81))
		params.PixelSpacing = 0.07 + rng.Float64()*0.03
		params.WindowCenter = 2048
		params.WindowWidth = 4096
		return params
	}

	params.ViewPosition = []string{"AP", "PA", "LL", "RL"}[rng.IntN(4)]
	params.ImageLaterality = "U"
	params.KVP = float64(60 + 5*rng.IntN(15))
	params.Exposure = 2 + rng.IntN(30)
	params.ExposureTime = 5 + rng.IntN(200)
	params.DistanceSourceToDetector = []float64{1000, 1500, 1800}[rng.IntN(3)]
	params.PixelSpacing = 0.1 + rng.Float64()*0.1
	params.WindowCenter = 2048
	params.WindowWidth = 4096
	return params
}

// PixelConfig returns 12-bit unsigned samples. CR plates are stored
// inverted as MONOCHROME1.
func (g *ProjectionGenerator) PixelConfig() PixelConfig {
	pc := PixelConfig{
		BitsAllocated: 16,
		BitsStored:    12,
		HighBit:       11,
		MinValue:      0,
		MaxValue:      4095,
		BaseValue:     1800,
	}
	if g.modality == CR {
		pc.Photometric = "MONOCHROME1"
	}
	return pc
}

// PutModalityElements writes the exposure and view attributes.
func (g *ProjectionGenerator) PutModalityElements(ds *dicom.Dataset, params SeriesParams) error {
	attrs := []attr{
		{tag.KVP, dicom.DS, floatToDS(params.KVP)},
		{tag.ExposureTime, dicom.IS, intToIS(params.ExposureTime)},
		{tag.Exposure, dicom.IS, intToIS(params.Exposure)},
		{tag.DistanceSourceToDetector, dicom.DS, floatToDS(params.DistanceSourceToDetector)},
		{tag.ViewPosition, dicom.CS, params.ViewPosition},
	}
	if params.ImageLaterality != "" {
		attrs = append(attrs, attr{tag.ImageLaterality, dicom.CS, params.ImageLaterality})
	}
	if params.BodyPartThickness != 0 {
		attrs = append(attrs, attr{tag.BodyPartThickness, dicom.DS, floatToDS(params.BodyPartThickness)})
	}
	if params.CompressionForce != 0 {
		attrs = append(attrs, attr{tag.CompressionForce, dicom.DS, floatToDS(params.CompressionForce)})
	}
	return putAll(ds, attrs)
}

// WindowPresets returns full-range and soft presets.
func (g *ProjectionGenerator) WindowPresets() []WindowPreset {
	return []WindowPreset{
		{Name: "DEFAULT", Center: 2048, Width: 4096},
		{Name: "SOFT", Center: 1600, Width: 2400},
		{Name: "BONE", Center: 2600, Width: 2000},
	}
}
