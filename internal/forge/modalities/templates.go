package modalities

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Orientation is the acquisition plane of a series.
type Orientation int

const (
	OrientationAxial Orientation = iota
	OrientationSagittal
	OrientationCoronal
)

func (o Orientation) String() string {
	switch o {
	case OrientationSagittal:
		return "Sagittal"
	case OrientationCoronal:
		return "Coronal"
	}
	return "Axial"
}

// ParseOrientation accepts the plane name or its three letter form, in any
// case. Anything else is axial.
func ParseOrientation(s string) Orientation {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SAGITTAL", "SAG":
		return OrientationSagittal
	case "CORONAL", "COR":
		return OrientationCoronal
	}
	return OrientationAxial
}

// ImageOrientationPatient returns the row and column direction cosines.
func (o Orientation) ImageOrientationPatient() []float64 {
	switch o {
	case OrientationSagittal:
		return []float64{0, 1, 0, 0, 0, -1}
	case OrientationCoronal:
		return []float64{1, 0, 0, 0, 0, -1}
	}
	return []float64{1, 0, 0, 0, 1, 0}
}

// SeriesTemplate describes one typical series of an examination.
type SeriesTemplate struct {
	SeriesDescription string
	Orientation       Orientation
	SequenceName      string
	WindowCenter      float64
	WindowWidth       float64
	HasContrast       bool
	ContrastAgent     string
}

var templates = map[Modality][]SeriesTemplate{
	MR: {
		{SeriesDescription: "T1 AX", SequenceName: "T1_SE"},
		{SeriesDescription: "T2 AX", SequenceName: "T2_FSE", WindowCenter: 700, WindowWidth: 1400},
		{SeriesDescription: "FLAIR AX", SequenceName: "T2_FLAIR"},
		{SeriesDescription: "T1 SAG", Orientation: OrientationSagittal, SequenceName: "T1_MPRAGE"},
		{SeriesDescription: "T2 COR", Orientation: OrientationCoronal, SequenceName: "T2_FSE"},
		{SeriesDescription: "DWI AX", SequenceName: "EP2D_DIFF", WindowCenter: 400, WindowWidth: 800},
		{SeriesDescription: "T1 AX POST GD", SequenceName: "T1_SE", HasContrast: true, ContrastAgent: "GADOLINIUM"},
	},
	CT: {
		{SeriesDescription: "AXIAL 5mm"},
		{SeriesDescription: "AXIAL 1.25mm BONE", WindowCenter: 400, WindowWidth: 2000},
		{SeriesDescription: "CORONAL MPR", Orientation: OrientationCoronal},
		{SeriesDescription: "SAGITTAL MPR", Orientation: OrientationSagittal},
		{SeriesDescription: "AXIAL POST CONTRAST", HasContrast: true, ContrastAgent: "IOHEXOL"},
	},
	CR: {
		{SeriesDescription: "PA", Orientation: OrientationCoronal},
		{SeriesDescription: "LATERAL", Orientation: OrientationSagittal},
	},
	DX: {
		{SeriesDescription: "AP", Orientation: OrientationCoronal},
		{SeriesDescription: "LATERAL", Orientation: OrientationSagittal},
		{SeriesDescription: "OBLIQUE", Orientation: OrientationCoronal},
	},
	MG: {
		{SeriesDescription: "R CC", Orientation: OrientationCoronal},
		{SeriesDescription: "L CC", Orientation: OrientationCoronal},
		{SeriesDescription: "R MLO", Orientation: OrientationSagittal},
		{SeriesDescription: "L MLO", Orientation: OrientationSagittal},
	},
	US: {
		{SeriesDescription: "B-MODE"},
		{SeriesDescription: "B-MODE LONG", Orientation: OrientationSagittal},
		{SeriesDescription: "B-MODE TRANS"},
	},
}

// GetSeriesTemplates returns n templates for an examination. The first
// series keeps the primary acquisition; the rest are drawn without
// repetition until the modality's list runs out, then numbered copies are
// used.
func GetSeriesTemplates(m Modality, bodyPart string, n int, rng *rand.Rand) []SeriesTemplate {
	list, ok := templates[m]
	if !ok {
		list = templates[MR]
	}
	if n < 1 {
		n = 1
	}
	order := append([]int{0}, shifted(rng.Perm(len(list)-1))...)
	out := make([]SeriesTemplate, n)
	for i := range out {
		t := list[order[i%len(order)]]
		if round := i / len(order); round > 0 {
			t.SeriesDescription = fmt.Sprintf("%s (%d)", t.SeriesDescription, round+1)
		}
		if bodyPart != "" && m == MR {
			t.SeriesDescription = bodyPart + " " + t.SeriesDescription
		}
		out[i] = t
	}
	return out
}

func shifted(p []int) []int {
	for i := range p {
		p[i]++
	}
	return p
}
