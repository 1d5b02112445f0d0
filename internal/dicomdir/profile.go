package dicomdir

import (
	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
	"github.com/mrsinham/dicomkit/internal/dicom/uid"
)

// RecordType is the value of DirectoryRecordType.
type RecordType string

// Directory record kinds.
const (
	Patient         RecordType = "PATIENT"
	Study           RecordType = "STUDY"
	Series          RecordType = "SERIES"
	Image           RecordType = "IMAGE"
	RTDose          RecordType = "RT DOSE"
	RTStructureSet  RecordType = "RT STRUCTURE SET"
	RTPlan          RecordType = "RT PLAN"
	RTTreatRecord   RecordType = "RT TREAT RECORD"
	Presentation    RecordType = "PRESENTATION"
	Waveform        RecordType = "WAVEFORM"
	SRDocument      RecordType = "SR DOCUMENT"
	KeyObjectDoc    RecordType = "KEY OBJECT DOC"
	Spectroscopy    RecordType = "SPECTROSCOPY"
	RawData         RecordType = "RAW DATA"
	Registration    RecordType = "REGISTRATION"
	Fiducial        RecordType = "FIDUCIAL"
	HangingProtocol RecordType = "HANGING PROTOCOL"
	EncapDoc        RecordType = "ENCAP DOC"
	HL7StrucDoc     RecordType = "HL7 STRUC DOC"
	ValueMap        RecordType = "VALUE MAP"
)

// recordKeys lists the attributes copied from an instance into each kind
// of record.
var recordKeys = map[RecordType][]tag.Tag{
	Patient: {
		tag.SpecificCharacterSet, tag.PatientName, tag.PatientID,
		tag.PatientBirthDate, tag.PatientSex,
	},
	Study: {
		tag.SpecificCharacterSet, tag.StudyDate, tag.StudyTime,
		tag.AccessionNumber, tag.ReferringPhysicianName, tag.StudyDescription,
		tag.StudyInstanceUID, tag.StudyID,
	},
	Series: {
		tag.SpecificCharacterSet, tag.Modality, tag.InstitutionName,
		tag.InstitutionAddress, tag.PerformingPhysicianName,
		tag.SeriesInstanceUID, tag.SeriesNumber,
	},
	Image: {
		tag.SpecificCharacterSet, tag.ImageType, tag.ContentDate,
		tag.ContentTime, tag.ReferencedImageSequence, tag.InstanceNumber,
		tag.ImagePositionPatient, tag.ImageOrientationPatient,
		tag.FrameOfReferenceUID, tag.SliceLocation, tag.Rows, tag.Columns,
		tag.NumberOfFrames, tag.PixelSpacing, tag.CalibrationImage,
	},
	RTDose: {
		tag.SpecificCharacterSet, tag.InstanceNumber, tag.DoseSummationType,
	},
	RTStructureSet: {
		tag.SpecificCharacterSet, tag.InstanceNumber, tag.StructureSetLabel,
		tag.StructureSetDate, tag.StructureSetTime,
	},
	RTPlan: {
		tag.SpecificCharacterSet, tag.InstanceNumber, tag.RTPlanLabel,
		tag.RTPlanDate, tag.RTPlanTime,
	},
	RTTreatRecord: {
		tag.SpecificCharacterSet, tag.InstanceNumber, tag.TreatmentDate,
		tag.TreatmentTime,
	},
	Presentation: {
		tag.SpecificCharacterSet, tag.ReferencedSeriesSequence,
		tag.InstanceNumber, tag.ContentLabel, tag.ContentDescription,
		tag.PresentationCreationDate, tag.PresentationCreationTime,
		tag.ContentCreatorName,
	},
	Waveform: {
		tag.SpecificCharacterSet, tag.ContentDate, tag.ContentTime,
		tag.InstanceNumber,
	},
	SRDocument: {
		tag.SpecificCharacterSet, tag.ContentDate, tag.ContentTime,
		tag.InstanceNumber, tag.VerificationDateTime,
		tag.ConceptNameCodeSequence, tag.CompletionFlag, tag.VerificationFlag,
	},
	KeyObjectDoc: {
		tag.SpecificCharacterSet, tag.ContentDate, tag.ContentTime,
		tag.InstanceNumber, tag.ConceptNameCodeSequence,
	},
	Spectroscopy: {
		tag.SpecificCharacterSet, tag.ImageType, tag.ContentDate,
		tag.ContentTime, tag.InstanceNumber,
		tag.ReferencedImageEvidenceSequence, tag.NumberOfFrames, tag.Rows,
		tag.Columns, tag.DataPointRows, tag.DataPointColumns,
	},
	RawData: {
		tag.SpecificCharacterSet, tag.ContentDate, tag.ContentTime,
		tag.InstanceNumber,
	},
	Registration: {
		tag.SpecificCharacterSet, tag.ContentDate, tag.ContentTime,
		tag.InstanceNumber, tag.ContentLabel, tag.ContentDescription,
		tag.ContentCreatorName,
	},
	Fiducial: {
		tag.SpecificCharacterSet, tag.ContentDate, tag.ContentTime,
		tag.InstanceNumber, tag.ContentLabel, tag.ContentDescription,
		tag.ContentCreatorName,
	},
	HangingProtocol: {
		tag.SpecificCharacterSet, tag.HangingProtocolName,
		tag.HangingProtocolDescription, tag.HangingProtocolLevel,
		tag.HangingProtocolCreator, tag.HangingProtocolCreationDateTime,
		tag.HangingProtocolDefinitionSequence, tag.NumberOfPriorsReferenced,
		tag.HangingProtocolUserIdentificationCodeSequence,
	},
	EncapDoc: {
		tag.SpecificCharacterSet, tag.ContentDate, tag.ContentTime,
		tag.InstanceNumber, tag.DocumentTitle, tag.HL7InstanceIdentifier,
		tag.ConceptNameCodeSequence, tag.MIMETypeOfEncapsulatedDocument,
	},
	HL7StrucDoc: {
		tag.SpecificCharacterSet, tag.HL7InstanceIdentifier,
		tag.HL7DocumentEffectiveTime, tag.HL7DocumentTypeCodeSequence,
		tag.DocumentTitle,
	},
	ValueMap: {
		tag.SpecificCharacterSet, tag.ContentDate, tag.ContentTime,
		tag.InstanceNumber, tag.ContentLabel, tag.ContentDescription,
		tag.ContentCreatorName,
	},
}

// recordTypeOf maps the storage SOP classes that are not plain images.
var recordTypeOf = map[string]RecordType{
	uid.RTDoseStorage:                               RTDose,
	uid.RTStructureSetStorage:                       RTStructureSet,
	uid.RTPlanStorage:                               RTPlan,
	uid.RTIonPlanStorage:                            RTPlan,
	uid.RTBeamsTreatmentRecordStorage:               RTTreatRecord,
	uid.RTBrachyTreatmentRecordStorage:              RTTreatRecord,
	uid.RTTreatmentSummaryRecordStorage:             RTTreatRecord,
	uid.RTIonBeamsTreatmentRecordStorage:            RTTreatRecord,
	uid.GrayscaleSoftcopyPresentationStateStorage:   Presentation,
	uid.ColorSoftcopyPresentationStateStorage:       Presentation,
	uid.PseudoColorSoftcopyPresentationStateStorage: Presentation,
	uid.BlendingSoftcopyPresentationStateStorage:    Presentation,
	uid.TwelveLeadECGWaveformStorage:                Waveform,
	uid.GeneralECGWaveformStorage:                   Waveform,
	uid.AmbulatoryECGWaveformStorage:                Waveform,
	uid.HemodynamicWaveformStorage:                  Waveform,
	uid.CardiacElectrophysiologyWaveformStorage:     Waveform,
	uid.BasicVoiceAudioWaveformStorage:              Waveform,
	uid.BasicTextSRStorage:                          SRDocument,
	uid.EnhancedSRStorage:                           SRDocument,
	uid.ComprehensiveSRStorage:                      SRDocument,
	uid.ProcedureLogStorage:                         SRDocument,
	uid.MammographyCADSRStorage:                     SRDocument,
	uid.ChestCADSRStorage:                           SRDocument,
	uid.XRayRadiationDoseSRStorage:                  SRDocument,
	uid.KeyObjectSelectionDocumentStorage:           KeyObjectDoc,
	uid.MRSpectroscopyStorage:                       Spectroscopy,
	uid.RawDataStorage:                              RawData,
	uid.SpatialRegistrationStorage:                  Registration,
	uid.DeformableSpatialRegistrationStorage:        Registration,
	uid.SpatialFiducialsStorage:                     Fiducial,
	uid.HangingProtocolStorage:                      HangingProtocol,
	uid.EncapsulatedPDFStorage:                      EncapDoc,
	uid.EncapsulatedCDAStorage:                      EncapDoc,
	uid.RealWorldValueMappingStorage:                ValueMap,
}

// RecordTypeOf returns the record kind for instances of a SOP class.
// Anything not listed is an IMAGE.
func RecordTypeOf(sopClassUID string) RecordType {
	if t, ok := recordTypeOf[sopClassUID]; ok {
		return t
	}
	return Image
}

// Keys returns the attributes copied into records of kind t.
func Keys(t RecordType) []tag.Tag {
	return recordKeys[t]
}

// Profile builds directory records from instances. Extra adds attributes
// to the default key lists.
type Profile struct {
	Extra map[RecordType][]tag.Tag
}

// DefaultProfile copies the standard key attributes only.
var DefaultProfile = &Profile{}

// MakeRecord returns a record of kind t holding the key attributes of ds.
// Attributes ds lacks are left out.
func (p *Profile) MakeRecord(t RecordType, ds *dicom.Dataset) *dicom.Dataset {
	keys := recordKeys[t]
	if p != nil && len(p.Extra[t]) > 0 {
		keys = append(append([]tag.Tag(nil), keys...), p.Extra[t]...)
	}
	rec := ds.Include(keys...)
	_ = rec.PutString(tag.DirectoryRecordType, dicom.CS, string(t))
	return rec
}

func (p *Profile) MakePatientRecord(ds *dicom.Dataset) *dicom.Dataset {
	return p.MakeRecord(Patient, ds)
}

func (p *Profile) MakeStudyRecord(ds *dicom.Dataset) *dicom.Dataset {
	return p.MakeRecord(Study, ds)
}

func (p *Profile) MakeSeriesRecord(ds *dicom.Dataset) *dicom.Dataset {
	return p.MakeRecord(Series, ds)
}

// MakeInstanceRecord returns the record referencing the file fileID. The
// record kind follows the SOP class; the references come from the file
// meta information.
func (p *Profile) MakeInstanceRecord(f *dicom.File, fileID []string) (*dicom.Dataset, error) {
	ds := f.Dataset
	class := ds.StringOr(tag.SOPClassUID, "")
	inst := ds.StringOr(tag.SOPInstanceUID, "")
	ts := f.TransferSyntax.UID
	if f.Meta != nil {
		class = f.Meta.StringOr(tag.MediaStorageSOPClassUID, class)
		inst = f.Meta.StringOr(tag.MediaStorageSOPInstanceUID, inst)
		ts = f.Meta.StringOr(tag.TransferSyntaxUID, ts)
	}
	if class == "" || inst == "" {
		return nil, ErrNoSOPInstance
	}
	rec := p.MakeRecord(RecordTypeOf(class), ds)
	if err := rec.PutStrings(tag.ReferencedFileID, dicom.CS, fileID...); err != nil {
		return nil, err
	}
	if err := rec.PutString(tag.ReferencedSOPClassUIDInFile, dicom.UI, class); err != nil {
		return nil, err
	}
	if err := rec.PutString(tag.ReferencedSOPInstanceUIDInFile, dicom.UI, inst); err != nil {
		return nil, err
	}
	if ts != "" {
		if err := rec.PutString(tag.ReferencedTransferSyntaxUIDInFile, dicom.UI, ts); err != nil {
			return nil, err
		}
	}
	return rec, nil
}
