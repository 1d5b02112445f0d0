// Package forge generates synthetic DICOM studies: patients, studies and
// series with plausible metadata and pixel data, written as Part 10 files
// and organized below a DICOMDIR.
package forge

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/rs/zerolog"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/forge/corruption"
	"github.com/mrsinham/dicomkit/internal/forge/edgecases"
	"github.com/mrsinham/dicomkit/internal/forge/modalities"
	"github.com/mrsinham/dicomkit/internal/util"
)

// GeneratorOptions describes one generation job.
type GeneratorOptions struct {
	NumImages   int
	TotalSize   string
	OutputDir   string
	Seed        int64 // 0 derives a seed from the output directory and modality
	NumStudies  int
	NumPatients int // studies are spread evenly over patients
	Workers     int // 0 uses one worker per CPU

	Modality modalities.Modality

	SeriesPerStudy    util.SeriesRange
	StudyDescriptions []string // one per study, or empty to generate

	Institution    string // empty draws one
	Department     string
	BodyPart       string // empty draws one per modality
	Priority       util.Priority
	VariedMetadata bool // new institution and staff for every study

	CustomTags util.ParsedTags

	EdgeCases  edgecases.Config
	Corruption corruption.Config

	// TransferSyntax defaults to explicit VR little endian. Malformed
	// lengths need that syntax.
	TransferSyntax dicom.TransferSyntax

	// Now is the reference time for future dates. Zero means time.Now.
	Now time.Time

	Quiet            bool
	ProgressCallback func(current, total int)
	Logger           zerolog.Logger

	// PredefinedPatients replaces the random patient, study and series
	// layout. Empty fields are still generated.
	PredefinedPatients []PredefinedPatient
}

// PredefinedPatient is one patient of a fixed layout.
type PredefinedPatient struct {
	Name      string
	ID        string
	BirthDate string
	Sex       string
	Studies   []PredefinedStudy
}

// PredefinedStudy is one study of a fixed layout.
type PredefinedStudy struct {
	Description        string
	Date               string
	AccessionNumber    string
	Institution        string
	Department         string
	BodyPart           string
	Priority           string
	ReferringPhysician string
	CustomTags         util.ParsedTags
	Series             []PredefinedSeries
}

// PredefinedSeries is one series of a fixed layout.
type PredefinedSeries struct {
	Description string
	Protocol    string
	Orientation string
	ImageCount  int // 0 shares the study's images evenly
	CustomTags  util.ParsedTags
}

// GeneratedFile locates one written instance.
type GeneratedFile struct {
	Path            string
	PatientID       string
	PatientName     string
	StudyUID        string
	StudyID         string
	SeriesUID       string
	SOPInstanceUID  string
	SeriesNumber    int
	InstanceNumber  int // within the series
	InstanceInStudy int
}

var (
	ErrNoImages   = errors.New("number of images must be > 0")
	ErrNoStudies  = errors.New("number of studies must be > 0")
	ErrNoOutput   = errors.New("output directory is required")
	ErrTooSmall   = errors.New("total size too small")
	ErrBadSyntax  = errors.New("unsupported transfer syntax")
	ErrBadPatient = errors.New("invalid patient layout")
)

// normalize validates o and fills in defaults. Counts are taken from the
// predefined layout when there is one.
func (o *GeneratorOptions) normalize() error {
	if len(o.PredefinedPatients) > 0 {
		o.NumPatients = len(o.PredefinedPatients)
		o.NumStudies = 0
		images := 0
		for i, p := range o.PredefinedPatients {
			if len(p.Studies) == 0 {
				return fmt.Errorf("%w: patient %d has no study", ErrBadPatient, i+1)
			}
			o.NumStudies += len(p.Studies)
			for _, st := range p.Studies {
				for _, se := range st.Series {
					images += se.ImageCount
				}
			}
		}
		if o.NumImages <= 0 {
			o.NumImages = images
		}
	}
	if o.NumImages <= 0 {
		return fmt.Errorf("%w, got %d", ErrNoImages, o.NumImages)
	}
	if o.NumStudies <= 0 {
		return fmt.Errorf("%w, got %d", ErrNoStudies, o.NumStudies)
	}
	if o.NumPatients <= 0 {
		o.NumPatients = 1
	}
	if o.NumPatients > o.NumStudies {
		return fmt.Errorf("number of patients (%d) cannot exceed number of studies (%d)", o.NumPatients, o.NumStudies)
	}
	if o.NumStudies > o.NumImages {
		return fmt.Errorf("number of studies (%d) cannot exceed number of images (%d)", o.NumStudies, o.NumImages)
	}
	if o.OutputDir == "" {
		return ErrNoOutput
	}
	if o.Modality == "" {
		o.Modality = modalities.MR
	}
	if !modalities.IsValid(string(o.Modality)) {
		return fmt.Errorf("invalid modality %q", o.Modality)
	}
	if o.SeriesPerStudy.Max == 0 {
		o.SeriesPerStudy = util.SeriesRange{Min: 1, Max: 1}
	}
	if o.TransferSyntax.UID == "" {
		o.TransferSyntax = dicom.ExplicitVRLittleEndian
	}
	switch o.TransferSyntax.UID {
	case dicom.ExplicitVRLittleEndian.UID, dicom.ImplicitVRLittleEndian.UID, dicom.DeflatedExplicitVRLittleEndian.UID:
	default:
		return fmt.Errorf("%w: %s", ErrBadSyntax, o.TransferSyntax.UID)
	}
	if o.Corruption.HasType(corruption.MalformedLengths) && o.TransferSyntax.UID != dicom.ExplicitVRLittleEndian.UID {
		return fmt.Errorf("%w: malformed lengths need explicit VR little endian", ErrBadSyntax)
	}
	if err := o.EdgeCases.Validate(); err != nil {
		return err
	}
	if err := o.Corruption.Validate(); err != nil {
		return err
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return nil
}

// seedKey is what an automatic seed depends on: the same directory and
// modality give the same patients and UIDs.
type seedKey struct {
	OutputDir string
	Modality  string
}

// ResolveSeed returns o.Seed, or a seed hashed from the output directory
// and modality when it is 0.
func ResolveSeed(o GeneratorOptions) (uint64, error) {
	if o.Seed != 0 {
		return uint64(o.Seed), nil
	}
	return hashstructure.Hash(seedKey{OutputDir: o.OutputDir, Modality: string(o.Modality)}, hashstructure.FormatV2, nil)
}

type pixelKey struct {
	Seed  uint64
	Index int
}

// pixelSeed gives every image its own noise source, independent of the
// order workers pick tasks in.
func pixelSeed(seed uint64, index int) uint64 {
	h, err := hashstructure.Hash(pixelKey{Seed: seed, Index: index}, hashstructure.FormatV2, nil)
	if err != nil {
		return seed ^ uint64(index)
	}
	return h
}

// metadataOverhead is the per-job allowance for everything but pixels.
const metadataOverhead = 100 * 1024

// CalculateDimensions picks a square image size so numImages frames of
// bytesPerPixel samples fit in totalBytes. Sides are multiples of 256, or
// 128 for small budgets.
func CalculateDimensions(totalBytes int64, numImages, bytesPerPixel int) (width, height int, err error) {
	if totalBytes <= 0 {
		return 0, 0, fmt.Errorf("total bytes must be > 0")
	}
	if numImages <= 0 {
		return 0, 0, ErrNoImages
	}
	if bytesPerPixel <= 0 {
		bytesPerPixel = 2
	}
	available := totalBytes - metadataOverhead
	if available <= 0 {
		return 0, 0, fmt.Errorf("%w: need at least %s for metadata", ErrTooSmall, util.FormatSize(metadataOverhead))
	}
	// one value field cannot exceed 2^32-2 bytes
	available = min(available, int64(math.MaxUint32)-10*1024*1024)

	perFrame := available / int64(bytesPerPixel) / int64(numImages)
	side := int(math.Sqrt(float64(perFrame)))
	switch {
	case side >= 256:
		width = side / 256 * 256
	default:
		width = 128
	}
	return width, width, nil
}
