package dicom

import (
	"fmt"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// CopyTo deep copies every local element of ds into dest, replacing
// elements with the same tag. With resolvePrivate, private data elements
// are re-addressed into the block dest reserves for the same creator and
// the creator elements of ds are not copied verbatim.
func (ds *Dataset) CopyTo(dest *Dataset, resolvePrivate bool) error {
	for e := range ds.All() {
		t := e.tag
		if resolvePrivate && t.IsPrivate() {
			if t.IsPrivateCreator() {
				continue
			}
			if creator, ok := ds.PrivateCreator(t); ok {
				nt, ok := dest.ResolvePrivateTag(t, creator, true)
				if !ok {
					return fmt.Errorf("copy %s for %q: %w", t, creator, ErrPrivateBlockUnavailable)
				}
				t = nt
			}
		}
		if err := dest.putCopy(e, t, resolvePrivate); err != nil {
			return err
		}
	}
	return nil
}

func (ds *Dataset) putCopy(e *Element, t tag.Tag, resolvePrivate bool) error {
	switch {
	case e.vr == SQ:
		seq, err := ds.PutSequence(t)
		if err != nil {
			return err
		}
		for _, item := range e.items {
			ni, err := seq.NewItem()
			if err != nil {
				return err
			}
			if err := item.CopyTo(ni, resolvePrivate); err != nil {
				return err
			}
		}
		return nil
	case e.encaps:
		frags, err := ds.PutFragments(t, e.vr)
		if err != nil {
			return err
		}
		for _, f := range e.fragments {
			b := make([]byte, len(f))
			copy(b, f)
			frags.fragments = append(frags.fragments, b)
		}
		return nil
	}
	return ds.PutElement(e.WithTag(t))
}

// Clone returns a deep copy of ds in a new arena.
func (ds *Dataset) Clone() *Dataset {
	out := NewDataset()
	out.bigEndian = ds.bigEndian
	out.dict = ds.dict
	_ = ds.CopyTo(out, false)
	return out
}

func (ds *Dataset) copyFiltered(keep func(*Element) bool) *Dataset {
	out := NewDataset()
	out.bigEndian = ds.bigEndian
	out.dict = ds.dict
	for e := range ds.All() {
		if keep(e) {
			_ = out.putCopy(e, e.tag, false)
		}
	}
	return out
}

// SubSet returns a copy of the elements with from <= tag <= to.
func (ds *Dataset) SubSet(from, to tag.Tag) *Dataset {
	out := NewDataset()
	out.bigEndian = ds.bigEndian
	out.dict = ds.dict
	for e := range ds.Range(from, to) {
		_ = out.putCopy(e, e.tag, false)
	}
	return out
}

// Include returns a copy of the listed elements present in ds.
func (ds *Dataset) Include(tags ...tag.Tag) *Dataset {
	set := make(map[tag.Tag]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return ds.copyFiltered(func(e *Element) bool { return set[e.tag] })
}

// Exclude returns a copy of ds without the listed elements.
func (ds *Dataset) Exclude(tags ...tag.Tag) *Dataset {
	set := make(map[tag.Tag]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return ds.copyFiltered(func(e *Element) bool { return !set[e.tag] })
}

// ExcludePrivate returns a copy of ds without private elements.
func (ds *Dataset) ExcludePrivate() *Dataset {
	return ds.copyFiltered(func(e *Element) bool { return !e.tag.IsPrivate() })
}

// Filter returns a copy of the elements of ds whose tag is present in
// keys. A sequence key with a non empty first item filters every item of
// the local sequence by that item. SpecificCharacterSet is always kept.
func (ds *Dataset) Filter(keys *Dataset) *Dataset {
	out := NewDataset()
	out.bigEndian = ds.bigEndian
	out.dict = ds.dict
	for e := range ds.All() {
		if e.tag == tag.SpecificCharacterSet {
			_ = out.putCopy(e, e.tag, false)
			continue
		}
		ke := keys.Get(e.tag)
		if ke == nil {
			continue
		}
		sub := ke.Item(0)
		if e.vr != SQ || sub == nil || sub.IsEmpty() {
			_ = out.putCopy(e, e.tag, false)
			continue
		}
		seq, err := out.PutSequence(e.tag)
		if err != nil {
			continue
		}
		for _, item := range e.items {
			_ = seq.AddItem(item.Filter(sub))
		}
	}
	return out
}
