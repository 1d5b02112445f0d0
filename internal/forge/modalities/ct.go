package modalities

import (
	"math/rand/v2"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
	"github.com/mrsinham/dicomkit/internal/dicom/uid"
)

// CTGenerator produces CT series: HU rescale, tube settings and kernels.
type CTGenerator struct{}

// Modality returns the CT modality type.
func (g *CTGenerator) Modality() Modality {
	return CT
}

// SOPClassUID returns the CT Image Storage SOP Class UID.
func (g *CTGenerator) SOPClassUID() string {
	return uid.CTImageStorage
}

// Scanners returns available CT scanner configurations.
func (g *CTGenerator) Scanners() []Scanner {
	return []Scanner{
		{Manufacturer: "SIEMENS", Model: "SOMATOM Definition AS+", DetectorRows: 128},
		{Manufacturer: "SIEMENS", Model: "SOMATOM Force", DetectorRows: 192},
		{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Revolution CT", DetectorRows: 256},
		{Manufacturer: "GE MEDICAL SYSTEMS", Model: "LightSpeed VCT", DetectorRows: 64},
		{Manufacturer: "PHILIPS", Model: "Brilliance iCT", DetectorRows: 256},
		{Manufacturer: "PHILIPS", Model: "Ingenuity CT", DetectorRows: 128},
		{Manufacturer: "CANON", Model: "Aquilion ONE", DetectorRows: 320},
		{Manufacturer: "CANON", Model: "Aquilion Prime", DetectorRows: 80},
	}
}

var (
	ctTubeVoltages = []float64{80, 100, 120, 140}

	// reconstruction kernel -> window preset it is usually read with
	ctKernels = []struct{ kernel, preset string }{
		{"SOFT", "MEDIASTINUM"},
		{"STANDARD", "ABDOMEN"},
		{"BONE", "BONE"},
		{"LUNG", "LUNG"},
	}
)

// GenerateSeriesParams draws a CT acquisition. The window follows the
// reconstruction kernel.
func (g *CTGenerator) GenerateSeriesParams(scanner Scanner, rng *rand.Rand) SeriesParams {
	k := ctKernels[rng.IntN(len(ctKernels))]
	window := g.preset(k.preset)

	thickness := 0.5 + rng.Float64()*2.5
	return SeriesParams{
		Modality:             CT,
		Scanner:              scanner,
		PixelSpacing:         0.5 + rng.Float64()*0.5,
		SliceThickness:       thickness,
		SpacingBetweenSlices: thickness,
		KVP:                  ctTubeVoltages[rng.IntN(len(ctTubeVoltages))],
		XRayTubeCurrent:      100 + rng.IntN(301), // mA
		ConvolutionKernel:    k.kernel,
		RescaleIntercept:     -1024,
		RescaleSlope:         1,
		WindowCenter:         window.Center,
		WindowWidth:          window.Width,
	}
}

func (g *CTGenerator) preset(name string) WindowPreset {
	for _, p := range g.WindowPresets() {
		if p.Name == name {
			return p
		}
	}
	return WindowPreset{Name: name, Center: 40, Width: 400}
}

// PixelConfig returns CT pixel data configuration.
func (g *CTGenerator) PixelConfig() PixelConfig {
	return PixelConfig{
		BitsAllocated:       16,
		BitsStored:          16,
		HighBit:             15,
		PixelRepresentation: 1,
		// stored values, water at 1024 so -1024 rescales it to 0 HU
		MinValue:  -1024,
		MaxValue:  3071,
		BaseValue: 1024,
	}
}

// PutModalityElements writes the CT acquisition and rescale attributes.
func (g *CTGenerator) PutModalityElements(ds *dicom.Dataset, params SeriesParams) error {
	return putAll(ds, []attr{
		{tag.KVP, dicom.DS, floatToDS(params.KVP)},
		{tag.XRayTubeCurrent, dicom.IS, intToIS(params.XRayTubeCurrent)},
		{tag.ConvolutionKernel, dicom.SH, params.ConvolutionKernel},
		{tag.RescaleIntercept, dicom.DS, floatToDS(params.RescaleIntercept)},
		{tag.RescaleSlope, dicom.DS, floatToDS(params.RescaleSlope)},
		{tag.RescaleType, dicom.LO, "HU"},
		{tag.GantryDetectorTilt, dicom.DS, floatToDS(params.GantryTilt)},
	})
}

// WindowPresets returns CT window presets.
func (g *CTGenerator) WindowPresets() []WindowPreset {
	return []WindowPreset{
		{Name: "BRAIN", Center: 40, Width: 80},
		{Name: "SUBDURAL", Center: 75, Width: 215},
		{Name: "BONE", Center: 400, Width: 2000},
		{Name: "LUNG", Center: -600, Width: 1500},
		{Name: "MEDIASTINUM", Center: 40, Width: 400},
		{Name: "ABDOMEN", Center: 40, Width: 350},
		{Name: "LIVER", Center: 60, Width: 150},
	}
}
