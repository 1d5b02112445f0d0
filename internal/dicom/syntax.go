package dicom

import "github.com/mrsinham/dicomkit/internal/dicom/uid"

// TransferSyntax describes how a dataset is laid out on the wire.
type TransferSyntax struct {
	UID          string
	ExplicitVR   bool
	BigEndian    bool
	Deflated     bool
	Encapsulated bool
}

// Predefined transfer syntaxes.
var (
	ImplicitVRLittleEndian         = TransferSyntax{UID: uid.ImplicitVRLittleEndian}
	ExplicitVRLittleEndian         = TransferSyntax{UID: uid.ExplicitVRLittleEndian, ExplicitVR: true}
	ExplicitVRBigEndian            = TransferSyntax{UID: uid.ExplicitVRBigEndian, ExplicitVR: true, BigEndian: true}
	DeflatedExplicitVRLittleEndian = TransferSyntax{UID: uid.DeflatedExplicitVRLittleEndian, ExplicitVR: true, Deflated: true}
)

// LookupTransferSyntax returns the layout for a transfer syntax UID.
// Unknown UIDs are assumed to be encapsulated explicit VR little endian,
// which is how every compressed syntax stores its dataset.
func LookupTransferSyntax(u string) TransferSyntax {
	switch u {
	case uid.ImplicitVRLittleEndian:
		return ImplicitVRLittleEndian
	case uid.ExplicitVRLittleEndian:
		return ExplicitVRLittleEndian
	case uid.ExplicitVRBigEndian:
		return ExplicitVRBigEndian
	case uid.DeflatedExplicitVRLittleEndian:
		return DeflatedExplicitVRLittleEndian
	}
	return TransferSyntax{UID: u, ExplicitVR: true, Encapsulated: true}
}
