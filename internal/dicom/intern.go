package dicom

import "github.com/mrsinham/dicomkit/internal/dicom/tag"

// DefaultInternMaxLen bounds the values an Interner shares by default.
const DefaultInternMaxLen = 64

type internKey struct {
	tag       tag.Tag
	vr        VR
	bigEndian bool
	value     string
}

// Interner shares identical short element values between datasets, such as
// the patient and study attributes repeated across every record of a
// directory. It is owned by the caller and not safe for concurrent use.
type Interner struct {
	maxLen int
	elems  map[internKey]*Element
	hits   int
}

// NewInterner returns an interner for values up to maxLen bytes. A
// non-positive maxLen selects DefaultInternMaxLen.
func NewInterner(maxLen int) *Interner {
	if maxLen <= 0 {
		maxLen = DefaultInternMaxLen
	}
	return &Interner{maxLen: maxLen, elems: make(map[internKey]*Element)}
}

// Element returns the shared element equal to e, registering e when it is
// the first of its kind. Sequences, fragments and long values pass through.
func (in *Interner) Element(e *Element) *Element {
	if e.HasItems() || len(e.value) > in.maxLen {
		return e
	}
	k := internKey{tag: e.tag, vr: e.vr, bigEndian: e.bigEndian, value: string(e.value)}
	if shared, ok := in.elems[k]; ok {
		in.hits++
		return shared
	}
	in.elems[k] = e
	return e
}

// Len returns the number of distinct values held.
func (in *Interner) Len() int { return len(in.elems) }

// Hits returns how many elements were replaced by a shared one.
func (in *Interner) Hits() int { return in.hits }
