// Package tag defines DICOM attribute tags and the constants used across
// dicomkit.
package tag

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag identifies an attribute: group in the high 16 bits, element in the
// low 16 bits.
type Tag uint32

// New builds a tag from its group and element numbers.
func New(group, element uint16) Tag {
	return Tag(uint32(group)<<16 | uint32(element))
}

// Group returns the group number.
func (t Tag) Group() uint16 { return uint16(t >> 16) }

// Element returns the element number.
func (t Tag) Element() uint16 { return uint16(t) }

// IsGroupLength reports whether t is a group length tag (gggg,0000).
func (t Tag) IsGroupLength() bool { return t.Element() == 0 }

// IsPrivate reports whether t belongs to an odd (vendor) group.
func (t Tag) IsPrivate() bool { return t.Group()&1 == 1 }

// IsPrivateCreator reports whether t is a private creator slot
// (gggg,0010) to (gggg,00FF) in an odd group.
func (t Tag) IsPrivateCreator() bool {
	e := t.Element()
	return t.IsPrivate() && e >= 0x0010 && e <= 0x00FF
}

// CreatorSlot returns the private creator tag reserving the block t lives
// in. It is only meaningful for private data elements.
func (t Tag) CreatorSlot() Tag {
	return New(t.Group(), t.Element()>>8)
}

// IsDelimiter reports whether t is one of the item or sequence delimiter
// tags of group FFFE.
func (t Tag) IsDelimiter() bool { return t.Group() == 0xFFFE }

func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group(), t.Element())
}

// Parse accepts "(gggg,eeee)", "gggg,eeee" or "ggggeeee" in hexadecimal.
func Parse(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	s = strings.ReplaceAll(s, ",", "")
	if len(s) != 8 {
		return 0, fmt.Errorf("parse tag %q: want 8 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse tag %q: %w", s, err)
	}
	return Tag(v), nil
}

// Item and delimiter tags.
const (
	Item                     Tag = 0xFFFEE000
	ItemDelimitationItem     Tag = 0xFFFEE00D
	SequenceDelimitationItem Tag = 0xFFFEE0DD
)

// File meta information.
const (
	FileMetaInformationGroupLength Tag = 0x00020000
	FileMetaInformationVersion     Tag = 0x00020001
	MediaStorageSOPClassUID        Tag = 0x00020002
	MediaStorageSOPInstanceUID     Tag = 0x00020003
	TransferSyntaxUID              Tag = 0x00020010
	ImplementationClassUID         Tag = 0x00020012
	ImplementationVersionName      Tag = 0x00020013
	SourceApplicationEntityTitle   Tag = 0x00020016
)

// Basic directory.
const (
	FileSetID                                               Tag = 0x00041130
	FileSetDescriptorFileID                                 Tag = 0x00041141
	SpecificCharacterSetOfFileSetDescriptorFile             Tag = 0x00041142
	OffsetOfTheFirstDirectoryRecordOfTheRootDirectoryEntity Tag = 0x00041200
	OffsetOfTheLastDirectoryRecordOfTheRootDirectoryEntity  Tag = 0x00041202
	FileSetConsistencyFlag                                  Tag = 0x00041212
	DirectoryRecordSequence                                 Tag = 0x00041220
	OffsetOfTheNextDirectoryRecord                          Tag = 0x00041400
	RecordInUseFlag                                         Tag = 0x00041410
	OffsetOfReferencedLowerLevelDirectoryEntity             Tag = 0x00041420
	DirectoryRecordType                                     Tag = 0x00041430
	PrivateRecordUID                                        Tag = 0x00041432
	ReferencedFileID                                        Tag = 0x00041500
	ReferencedSOPClassUIDInFile                             Tag = 0x00041510
	ReferencedSOPInstanceUIDInFile                          Tag = 0x00041511
	ReferencedTransferSyntaxUIDInFile                       Tag = 0x00041512
	ReferencedRelatedGeneralSOPClassUIDInFile               Tag = 0x0004151A
)

// Group 0008.
const (
	SpecificCharacterSet            Tag = 0x00080005
	ImageType                       Tag = 0x00080008
	InstanceCreationDate            Tag = 0x00080012
	InstanceCreationTime            Tag = 0x00080013
	SOPClassUID                     Tag = 0x00080016
	SOPInstanceUID                  Tag = 0x00080018
	StudyDate                       Tag = 0x00080020
	SeriesDate                      Tag = 0x00080021
	AcquisitionDate                 Tag = 0x00080022
	ContentDate                     Tag = 0x00080023
	AcquisitionDateTime             Tag = 0x0008002A
	StudyTime                       Tag = 0x00080030
	SeriesTime                      Tag = 0x00080031
	AcquisitionTime                 Tag = 0x00080032
	ContentTime                     Tag = 0x00080033
	AccessionNumber                 Tag = 0x00080050
	Modality                        Tag = 0x00080060
	Manufacturer                    Tag = 0x00080070
	InstitutionName                 Tag = 0x00080080
	InstitutionAddress              Tag = 0x00080081
	ReferringPhysicianName          Tag = 0x00080090
	CodeValue                       Tag = 0x00080100
	CodingSchemeDesignator          Tag = 0x00080102
	CodeMeaning                     Tag = 0x00080104
	StationName                     Tag = 0x00081010
	StudyDescription                Tag = 0x00081030
	SeriesDescription               Tag = 0x0008103E
	InstitutionalDepartmentName     Tag = 0x00081040
	PerformingPhysicianName         Tag = 0x00081050
	OperatorsName                   Tag = 0x00081070
	ManufacturerModelName           Tag = 0x00081090
	ReferencedSeriesSequence        Tag = 0x00081115
	ReferencedImageSequence         Tag = 0x00081140
	ReferencedSOPClassUID           Tag = 0x00081150
	ReferencedSOPInstanceUID        Tag = 0x00081155
	ReferencedImageEvidenceSequence Tag = 0x00089092
)

// Patient.
const (
	PatientName      Tag = 0x00100010
	PatientID        Tag = 0x00100020
	PatientBirthDate Tag = 0x00100030
	PatientBirthTime Tag = 0x00100032
	PatientSex       Tag = 0x00100040
	PatientAge       Tag = 0x00101010
	PatientWeight    Tag = 0x00101030
)

// Acquisition.
const (
	ContrastBolusAgent       Tag = 0x00180010
	BodyPartExamined         Tag = 0x00180015
	SequenceName             Tag = 0x00180024
	SliceThickness           Tag = 0x00180050
	KVP                      Tag = 0x00180060
	RepetitionTime           Tag = 0x00180080
	EchoTime                 Tag = 0x00180081
	ImagingFrequency         Tag = 0x00180084
	MagneticFieldStrength    Tag = 0x00180087
	SpacingBetweenSlices     Tag = 0x00180088
	DeviceSerialNumber       Tag = 0x00181000
	SoftwareVersions         Tag = 0x00181020
	ProtocolName             Tag = 0x00181030
	DistanceSourceToDetector Tag = 0x00181110
	GantryDetectorTilt       Tag = 0x00181120
	ExposureTime             Tag = 0x00181150
	XRayTubeCurrent          Tag = 0x00181151
	Exposure                 Tag = 0x00181152
	BodyPartThickness        Tag = 0x001811A0
	CompressionForce         Tag = 0x001811A2
	ConvolutionKernel        Tag = 0x00181210
	FlipAngle                Tag = 0x00181314
	PatientPosition          Tag = 0x00185100
	ViewPosition             Tag = 0x00185101
	TransducerType           Tag = 0x00186031
)

// Relationship.
const (
	StudyInstanceUID        Tag = 0x0020000D
	SeriesInstanceUID       Tag = 0x0020000E
	StudyID                 Tag = 0x00200010
	SeriesNumber            Tag = 0x00200011
	AcquisitionNumber       Tag = 0x00200012
	InstanceNumber          Tag = 0x00200013
	ImagePositionPatient    Tag = 0x00200032
	ImageOrientationPatient Tag = 0x00200037
	Laterality              Tag = 0x00200060
	ImageLaterality         Tag = 0x00200062
	FrameOfReferenceUID     Tag = 0x00200052
	SliceLocation           Tag = 0x00201041
)

// Image pixel and LUTs.
const (
	SamplesPerPixel              Tag = 0x00280002
	PhotometricInterpretation    Tag = 0x00280004
	NumberOfFrames               Tag = 0x00280008
	Rows                         Tag = 0x00280010
	Columns                      Tag = 0x00280011
	PixelSpacing                 Tag = 0x00280030
	BitsAllocated                Tag = 0x00280100
	BitsStored                   Tag = 0x00280101
	HighBit                      Tag = 0x00280102
	PixelRepresentation          Tag = 0x00280103
	PixelPaddingValue            Tag = 0x00280120
	PixelPaddingRangeLimit       Tag = 0x00280121
	WindowCenter                 Tag = 0x00281050
	WindowWidth                  Tag = 0x00281051
	RescaleIntercept             Tag = 0x00281052
	RescaleSlope                 Tag = 0x00281053
	RescaleType                  Tag = 0x00281054
	WindowCenterWidthExplanation Tag = 0x00281055
	VOILUTFunction               Tag = 0x00281056
	ModalityLUTSequence          Tag = 0x00283000
	LUTDescriptor                Tag = 0x00283002
	LUTExplanation               Tag = 0x00283003
	ModalityLUTType              Tag = 0x00283004
	LUTData                      Tag = 0x00283006
	VOILUTSequence               Tag = 0x00283010
	DataPointRows                Tag = 0x00289001
	DataPointColumns             Tag = 0x00289002
	LineThickness                Tag = 0x00700253
	PresentationLUTSequence      Tag = 0x20500010
	PresentationLUTShape         Tag = 0x20500020
	PixelData                    Tag = 0x7FE00010
)

// Procedure, SR and documents.
const (
	RequestedProcedureDescription   Tag = 0x00321060
	ScheduledProcedureStepStartDate Tag = 0x00400002
	ScheduledProcedureStepStartTime Tag = 0x00400003
	PerformedProcedureStepStartDate Tag = 0x00400244
	PerformedProcedureStepStartTime Tag = 0x00400245
	RequestedProcedurePriority      Tag = 0x00401003
	VerificationDateTime            Tag = 0x0040A030
	ConceptNameCodeSequence         Tag = 0x0040A043
	CompletionFlag                  Tag = 0x0040A491
	VerificationFlag                Tag = 0x0040A493
	ContentSequence                 Tag = 0x0040A730
	HL7InstanceIdentifier           Tag = 0x0040E001
	HL7DocumentEffectiveTime        Tag = 0x0040E004
	HL7DocumentTypeCodeSequence     Tag = 0x0040E006
	DocumentTitle                   Tag = 0x00420010
	MIMETypeOfEncapsulatedDocument  Tag = 0x00420012
	CalibrationImage                Tag = 0x00500004
	ContentLabel                    Tag = 0x00700080
	ContentDescription              Tag = 0x00700081
	PresentationCreationDate        Tag = 0x00700082
	PresentationCreationTime        Tag = 0x00700083
	ContentCreatorName              Tag = 0x00700084
)

// Hanging protocols.
const (
	HangingProtocolName                           Tag = 0x00720002
	HangingProtocolDescription                    Tag = 0x00720004
	HangingProtocolLevel                          Tag = 0x00720006
	HangingProtocolCreator                        Tag = 0x00720008
	HangingProtocolCreationDateTime               Tag = 0x0072000A
	HangingProtocolDefinitionSequence             Tag = 0x0072000C
	HangingProtocolUserIdentificationCodeSequence Tag = 0x0072000E
	NumberOfPriorsReferenced                      Tag = 0x00720014
)

// Radiotherapy.
const (
	DoseSummationType Tag = 0x3004000A
	StructureSetLabel Tag = 0x30060002
	StructureSetDate  Tag = 0x30060008
	StructureSetTime  Tag = 0x30060009
	TreatmentDate     Tag = 0x30080250
	TreatmentTime     Tag = 0x30080251
	RTPlanLabel       Tag = 0x300A0002
	RTPlanDate        Tag = 0x300A0006
	RTPlanTime        Tag = 0x300A0007
)

// DateTimePairs maps each DA tag to the TM tag it is matched jointly with.
var DateTimePairs = map[Tag]Tag{
	StudyDate:                       StudyTime,
	SeriesDate:                      SeriesTime,
	AcquisitionDate:                 AcquisitionTime,
	ContentDate:                     ContentTime,
	InstanceCreationDate:            InstanceCreationTime,
	PatientBirthDate:                PatientBirthTime,
	ScheduledProcedureStepStartDate: ScheduledProcedureStepStartTime,
	PerformedProcedureStepStartDate: PerformedProcedureStepStartTime,
	PresentationCreationDate:        PresentationCreationTime,
	StructureSetDate:                StructureSetTime,
	TreatmentDate:                   TreatmentTime,
	RTPlanDate:                      RTPlanTime,
}
