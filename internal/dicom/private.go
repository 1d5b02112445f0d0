package dicom

import (
	"strings"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

const (
	firstCreatorSlot = 0x10
	lastCreatorSlot  = 0xFF
)

// PrivateCreator returns the creator string reserving the block of the
// private data element t.
func (ds *Dataset) PrivateCreator(t tag.Tag) (string, bool) {
	if !t.IsPrivate() || t.IsPrivateCreator() || t.Element() < 0x1000 {
		return "", false
	}
	e, ok := ds.elems.Get(uint32(t.CreatorSlot()))
	if !ok {
		return "", false
	}
	s, err := e.String(ds.CharacterSet())
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}

// ResolvePrivateTag returns t re-addressed into the block reserved by
// creator in the group of t. Only the low byte of the element of t is
// kept. When no block is reserved and reserve is set, the first free
// creator slot is claimed. ok is false when the block is not reserved and
// either reserve is unset or every slot from 0x10 to 0xFF is taken.
func (ds *Dataset) ResolvePrivateTag(t tag.Tag, creator string, reserve bool) (tag.Tag, bool) {
	group := t.Group()
	if group&1 == 0 {
		return 0, false
	}
	creator = strings.TrimSpace(creator)
	low := t.Element() & 0xFF
	cs := ds.CharacterSet()
	var free uint16
	for slot := uint16(firstCreatorSlot); slot <= lastCreatorSlot; slot++ {
		e, ok := ds.elems.Get(uint32(tag.New(group, slot)))
		if !ok {
			if free == 0 {
				free = slot
			}
			continue
		}
		if s, err := e.String(cs); err == nil && s == creator {
			return tag.New(group, slot<<8|low), true
		}
	}
	if !reserve || free == 0 {
		return 0, false
	}
	if err := ds.PutString(tag.New(group, free), LO, creator); err != nil {
		return 0, false
	}
	return tag.New(group, free<<8|low), true
}

// ReservePrivateBlock returns the creator tag of the block reserved by
// creator in group, claiming a free slot if needed.
func (ds *Dataset) ReservePrivateBlock(group uint16, creator string) (tag.Tag, bool) {
	t, ok := ds.ResolvePrivateTag(tag.New(group, 0x1000), creator, true)
	if !ok {
		return 0, false
	}
	return t.CreatorSlot(), true
}

// PutPrivate stores a value in the block reserved by creator, reserving it
// when needed. low is the low byte of the element number. A VRUnknown vr is
// resolved through the dictionary entry of the creator.
func (ds *Dataset) PutPrivate(group uint16, creator string, low uint8, vr VR, vals ...string) (tag.Tag, error) {
	t, ok := ds.ResolvePrivateTag(tag.New(group, 0x1000|uint16(low)), creator, true)
	if !ok {
		return 0, ErrPrivateBlockUnavailable
	}
	return t, ds.PutStrings(t, vr, vals...)
}
