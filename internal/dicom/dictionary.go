package dicom

import (
	stdtag "github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// Dictionary resolves the VR and keyword of a tag. Private data elements
// are resolved within the block reserved by creator; creator is empty for
// public tags.
type Dictionary interface {
	VR(t tag.Tag, creator string) VR
	Keyword(t tag.Tag, creator string) string
}

// PrivateEntry describes one element of a private dictionary block.
type PrivateEntry struct {
	Creator string
	Group   uint16
	Low     uint8 // low byte of the element number
	VR      VR
	Keyword string
}

type privateKey struct {
	creator string
	group   uint16
	low     uint8
}

// StandardDictionary answers public tags from the standard data dictionary
// and private tags from a table of known vendor blocks.
type StandardDictionary struct {
	private map[privateKey]PrivateEntry
}

// NewStandardDictionary returns a dictionary knowing the built-in vendor
// blocks plus extra.
func NewStandardDictionary(extra ...PrivateEntry) *StandardDictionary {
	d := &StandardDictionary{private: make(map[privateKey]PrivateEntry)}
	for _, e := range builtinPrivate {
		d.AddPrivate(e)
	}
	for _, e := range extra {
		d.AddPrivate(e)
	}
	return d
}

// AddPrivate registers a private element definition.
func (d *StandardDictionary) AddPrivate(e PrivateEntry) {
	d.private[privateKey{e.Creator, e.Group, e.Low}] = e
}

// DefaultDictionary is used by datasets that have no dictionary of their
// own.
var DefaultDictionary Dictionary = NewStandardDictionary()

func (d *StandardDictionary) VR(t tag.Tag, creator string) VR {
	switch {
	case t.IsGroupLength():
		return UL
	case t.IsPrivateCreator():
		return LO
	case t == tag.Item || t == tag.ItemDelimitationItem || t == tag.SequenceDelimitationItem:
		return VRUnknown
	case t.IsPrivate():
		if e, ok := d.private[privateKey{creator, t.Group(), uint8(t.Element())}]; ok {
			return e.VR
		}
		return UN
	case t == tag.PixelData:
		return OW
	}
	info, err := stdtag.Find(stdtag.Tag{Group: t.Group(), Element: t.Element()})
	if err != nil || len(info.VRs) == 0 {
		return UN
	}
	if v, ok := ParseVR(info.VRs[0]); ok {
		return v
	}
	return UN
}

func (d *StandardDictionary) Keyword(t tag.Tag, creator string) string {
	switch {
	case t.IsGroupLength():
		return "GroupLength"
	case t.IsPrivateCreator():
		return "PrivateCreator"
	case t.IsPrivate():
		if e, ok := d.private[privateKey{creator, t.Group(), uint8(t.Element())}]; ok {
			return e.Keyword
		}
		return ""
	}
	info, err := stdtag.Find(stdtag.Tag{Group: t.Group(), Element: t.Element()})
	if err != nil {
		return ""
	}
	return info.Name
}

// LookupKeyword returns the public tag named keyword, such as
// "PatientName".
func LookupKeyword(keyword string) (tag.Tag, bool) {
	info, err := stdtag.FindByName(keyword)
	if err != nil {
		return 0, false
	}
	return tag.New(info.Tag.Group, info.Tag.Element), true
}

var builtinPrivate = []PrivateEntry{
	{Creator: "SIEMENS CSA HEADER", Group: 0x0029, Low: 0x08, VR: CS, Keyword: "CSAImageHeaderType"},
	{Creator: "SIEMENS CSA HEADER", Group: 0x0029, Low: 0x09, VR: LO, Keyword: "CSAImageHeaderVersion"},
	{Creator: "SIEMENS CSA HEADER", Group: 0x0029, Low: 0x10, VR: OB, Keyword: "CSAImageHeaderInfo"},
	{Creator: "SIEMENS CSA HEADER", Group: 0x0029, Low: 0x18, VR: CS, Keyword: "CSASeriesHeaderType"},
	{Creator: "SIEMENS CSA HEADER", Group: 0x0029, Low: 0x19, VR: LO, Keyword: "CSASeriesHeaderVersion"},
	{Creator: "SIEMENS CSA HEADER", Group: 0x0029, Low: 0x20, VR: OB, Keyword: "CSASeriesHeaderInfo"},
	{Creator: "SIEMENS CSA NON-IMAGE", Group: 0x0029, Low: 0x02, VR: SQ, Keyword: "CSANonImageSequence"},
	{Creator: "SIEMENS CSA NON-IMAGE", Group: 0x0029, Low: 0x00, VR: OB, Keyword: "CSAData"},
	{Creator: "GEMS_IDEN_01", Group: 0x0009, Low: 0x01, VR: LO, Keyword: "FullFidelity"},
	{Creator: "GEMS_IDEN_01", Group: 0x0009, Low: 0xE3, VR: LO, Keyword: "SoftwareVersion"},
	{Creator: "GEMS_PARM_01", Group: 0x0043, Low: 0x39, VR: IS, Keyword: "SliceAndGradientInfo"},
	{Creator: "Philips Imaging DD 001", Group: 0x2001, Low: 0x03, VR: FL, Keyword: "DiffusionBFactor"},
	{Creator: "Philips MR Imaging DD 001", Group: 0x2005, Low: 0x0E, VR: SQ, Keyword: "PrivateScaleSequence"},
	{Creator: "Philips MR Imaging DD 005", Group: 0x2005, Low: 0x00, VR: DS, Keyword: "ScaleSlope"},
	{Creator: "Philips MR Imaging DD 005", Group: 0x2005, Low: 0x01, VR: DS, Keyword: "ScaleIntercept"},
}
