// Package uid holds the well-known UIDs dicomkit understands and a
// generator for new instance UIDs.
package uid

import (
	"fmt"
	"math/big"

	"github.com/gofrs/uuid"
)

// Transfer syntaxes.
const (
	ImplicitVRLittleEndian         = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian         = "1.2.840.10008.1.2.1"
	DeflatedExplicitVRLittleEndian = "1.2.840.10008.1.2.1.99"
	ExplicitVRBigEndian            = "1.2.840.10008.1.2.2"
	JPEGBaseline                   = "1.2.840.10008.1.2.4.50"
	JPEGLossless                   = "1.2.840.10008.1.2.4.70"
	JPEGLSLossless                 = "1.2.840.10008.1.2.4.80"
	JPEG2000Lossless               = "1.2.840.10008.1.2.4.90"
	JPEG2000                       = "1.2.840.10008.1.2.4.91"
	RLELossless                    = "1.2.840.10008.1.2.5"
)

// Storage and directory SOP classes.
const (
	MediaStorageDirectoryStorage = "1.2.840.10008.1.3.10"

	ComputedRadiographyImageStorage                   = "1.2.840.10008.5.1.4.1.1.1"
	DigitalXRayImageStorageForPresentation            = "1.2.840.10008.5.1.4.1.1.1.1"
	DigitalMammographyXRayImageStorageForPresentation = "1.2.840.10008.5.1.4.1.1.1.2"
	CTImageStorage                                    = "1.2.840.10008.5.1.4.1.1.2"
	UltrasoundImageStorage                            = "1.2.840.10008.5.1.4.1.1.6.1"
	MRImageStorage                                    = "1.2.840.10008.5.1.4.1.1.4"
	MRSpectroscopyStorage                             = "1.2.840.10008.5.1.4.1.1.4.2"
	SecondaryCaptureImageStorage                      = "1.2.840.10008.5.1.4.1.1.7"

	GrayscaleSoftcopyPresentationStateStorage   = "1.2.840.10008.5.1.4.1.1.11.1"
	ColorSoftcopyPresentationStateStorage       = "1.2.840.10008.5.1.4.1.1.11.2"
	PseudoColorSoftcopyPresentationStateStorage = "1.2.840.10008.5.1.4.1.1.11.3"
	BlendingSoftcopyPresentationStateStorage    = "1.2.840.10008.5.1.4.1.1.11.4"

	TwelveLeadECGWaveformStorage            = "1.2.840.10008.5.1.4.1.1.9.1.1"
	GeneralECGWaveformStorage               = "1.2.840.10008.5.1.4.1.1.9.1.2"
	AmbulatoryECGWaveformStorage            = "1.2.840.10008.5.1.4.1.1.9.1.3"
	HemodynamicWaveformStorage              = "1.2.840.10008.5.1.4.1.1.9.2.1"
	CardiacElectrophysiologyWaveformStorage = "1.2.840.10008.5.1.4.1.1.9.3.1"
	BasicVoiceAudioWaveformStorage          = "1.2.840.10008.5.1.4.1.1.9.4.1"

	BasicTextSRStorage                = "1.2.840.10008.5.1.4.1.1.88.11"
	EnhancedSRStorage                 = "1.2.840.10008.5.1.4.1.1.88.22"
	ComprehensiveSRStorage            = "1.2.840.10008.5.1.4.1.1.88.33"
	ProcedureLogStorage               = "1.2.840.10008.5.1.4.1.1.88.40"
	MammographyCADSRStorage           = "1.2.840.10008.5.1.4.1.1.88.50"
	KeyObjectSelectionDocumentStorage = "1.2.840.10008.5.1.4.1.1.88.59"
	ChestCADSRStorage                 = "1.2.840.10008.5.1.4.1.1.88.65"
	XRayRadiationDoseSRStorage        = "1.2.840.10008.5.1.4.1.1.88.67"

	RawDataStorage                       = "1.2.840.10008.5.1.4.1.1.66"
	SpatialRegistrationStorage           = "1.2.840.10008.5.1.4.1.1.66.1"
	SpatialFiducialsStorage              = "1.2.840.10008.5.1.4.1.1.66.2"
	DeformableSpatialRegistrationStorage = "1.2.840.10008.5.1.4.1.1.66.3"
	RealWorldValueMappingStorage         = "1.2.840.10008.5.1.4.1.1.67"
	EncapsulatedPDFStorage               = "1.2.840.10008.5.1.4.1.1.104.1"
	EncapsulatedCDAStorage               = "1.2.840.10008.5.1.4.1.1.104.2"
	HangingProtocolStorage               = "1.2.840.10008.5.1.4.38.1"

	RTDoseStorage                    = "1.2.840.10008.5.1.4.1.1.481.2"
	RTStructureSetStorage            = "1.2.840.10008.5.1.4.1.1.481.3"
	RTBeamsTreatmentRecordStorage    = "1.2.840.10008.5.1.4.1.1.481.4"
	RTPlanStorage                    = "1.2.840.10008.5.1.4.1.1.481.5"
	RTBrachyTreatmentRecordStorage   = "1.2.840.10008.5.1.4.1.1.481.6"
	RTTreatmentSummaryRecordStorage  = "1.2.840.10008.5.1.4.1.1.481.7"
	RTIonPlanStorage                 = "1.2.840.10008.5.1.4.1.1.481.8"
	RTIonBeamsTreatmentRecordStorage = "1.2.840.10008.5.1.4.1.1.481.9"
)

// Implementation identification written into file meta information.
const (
	ImplementationClass   = "1.2.826.0.1.3680043.8.498.1"
	ImplementationVersion = "DICOMKIT_1"
)

// New returns a UID under the 2.25 root derived from a random UUID.
func New() (string, error) {
	u, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return FromUUID(u), nil
}

// FromUUID converts u to its 2.25 decimal UID form.
func FromUUID(u uuid.UUID) string {
	return "2.25." + new(big.Int).SetBytes(u.Bytes()).String()
}

// FromName derives a stable UID from a name with a version 5 UUID.
// The same name always yields the same UID.
func FromName(name string) string {
	return FromUUID(uuid.NewV5(uuid.NamespaceOID, name))
}
