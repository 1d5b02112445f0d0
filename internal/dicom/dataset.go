package dicom

import (
	"bytes"
	"fmt"
	"iter"
	"time"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
	"github.com/mrsinham/dicomkit/internal/inttable"
)

// handle identifies a dataset within its Arena. Zero means none.
type handle uint32

// Arena owns every dataset of one tree. Items refer to their parent by
// handle instead of by pointer, so a tree has no reference cycles.
// Detached datasets keep their slot until the arena is dropped.
type Arena struct {
	sets []*Dataset
}

func (a *Arena) newDataset() *Dataset {
	ds := &Dataset{itemOffset: -1}
	a.register(ds)
	return ds
}

func (a *Arena) register(ds *Dataset) {
	a.sets = append(a.sets, ds)
	ds.arena = a
	ds.id = handle(len(a.sets))
}

func (a *Arena) get(h handle) *Dataset {
	if h == 0 || int(h) > len(a.sets) {
		return nil
	}
	return a.sets[h-1]
}

// adopt moves ds and everything nested under it into a.
func (a *Arena) adopt(ds *Dataset) {
	if ds.arena == a {
		return
	}
	if old := ds.arena; old != nil && ds.id != 0 {
		old.sets[ds.id-1] = nil
	}
	a.register(ds)
	ds.elems.ForEach(func(_ uint32, e *Element) bool {
		if e.vr == SQ {
			e.bind(ds)
		}
		return true
	})
}

// Len returns the number of live datasets in the arena.
func (a *Arena) Len() int {
	n := 0
	for _, ds := range a.sets {
		if ds != nil {
			n++
		}
	}
	return n
}

// Dataset is an ordered collection of elements, at most one per tag.
// Nested datasets (sequence items) know their parent through the arena and
// their 1-based position in the sequence.
type Dataset struct {
	arena      *Arena
	id         handle
	parent     handle
	pos        int
	itemOffset int64

	elems     inttable.Table[*Element]
	bigEndian bool
	cs        *CharacterSet
	defaults  *Dataset
	dict      Dictionary
}

// NewDataset returns an empty little endian root dataset in a new arena.
func NewDataset() *Dataset {
	return new(Arena).newDataset()
}

// Arena returns the arena the dataset belongs to.
func (ds *Dataset) Arena() *Arena { return ds.arena }

// Parent returns the dataset holding the sequence ds is an item of.
func (ds *Dataset) Parent() *Dataset {
	if ds.parent == 0 {
		return nil
	}
	return ds.arena.get(ds.parent)
}

// Root walks up to the top level dataset.
func (ds *Dataset) Root() *Dataset {
	root := ds
	for p := root.Parent(); p != nil; p = root.Parent() {
		root = p
	}
	return root
}

// IsRoot reports whether ds has no parent.
func (ds *Dataset) IsRoot() bool { return ds.parent == 0 }

// ItemPosition returns the 1-based position within the parent sequence, or
// 0 for a detached dataset.
func (ds *Dataset) ItemPosition() int { return ds.pos }

// ItemOffset returns the stream offset of the Item tag the dataset was read
// from, or -1.
func (ds *Dataset) ItemOffset() int64 { return ds.itemOffset }

// SetItemOffset records where the item was written.
func (ds *Dataset) SetItemOffset(off int64) { ds.itemOffset = off }

// BigEndian reports the byte order new values are encoded with.
func (ds *Dataset) BigEndian() bool { return ds.bigEndian }

// SetBigEndian converts every element, recursively, to the given order.
func (ds *Dataset) SetBigEndian(bigEndian bool) {
	if ds.bigEndian == bigEndian {
		return
	}
	ds.bigEndian = bigEndian
	for _, k := range ds.elems.Keys() {
		e, _ := ds.elems.Get(k)
		switch {
		case e.vr == SQ:
			e.bigEndian = bigEndian
			for _, item := range e.items {
				item.SetBigEndian(bigEndian)
			}
		case e.encaps:
			e.bigEndian = bigEndian
		default:
			_ = ds.elems.Put(k, e.WithEndian(bigEndian))
		}
	}
}

// SetDictionary overrides the dictionary for ds and its items.
func (ds *Dataset) SetDictionary(d Dictionary) { ds.dict = d }

// Dictionary returns the closest dictionary set on ds or an ancestor.
func (ds *Dataset) Dictionary() Dictionary {
	for cur := ds; cur != nil; cur = cur.Parent() {
		if cur.dict != nil {
			return cur.dict
		}
	}
	return DefaultDictionary
}

// SetDefaults installs a read-through dataset consulted by Get when a tag
// is absent.
func (ds *Dataset) SetDefaults(d *Dataset) { ds.defaults = d }

// Defaults returns the read-through dataset, if any.
func (ds *Dataset) Defaults() *Dataset { return ds.defaults }

// CharacterSet returns the character set of ds, inherited from the
// closest ancestor defining SpecificCharacterSet.
func (ds *Dataset) CharacterSet() *CharacterSet {
	for cur := ds; cur != nil; cur = cur.Parent() {
		if cur.cs != nil {
			return cur.cs
		}
		if e, ok := cur.elems.Get(uint32(tag.SpecificCharacterSet)); ok {
			terms, _ := e.Strings(DefaultCharacterSet)
			cur.cs = ParseCharacterSet(terms)
			return cur.cs
		}
	}
	return DefaultCharacterSet
}

// Len returns the number of local elements.
func (ds *Dataset) Len() int { return ds.elems.Len() }

// IsEmpty reports whether ds has no local elements.
func (ds *Dataset) IsEmpty() bool { return ds.elems.Len() == 0 }

// Contains reports whether t is stored locally.
func (ds *Dataset) Contains(t tag.Tag) bool {
	_, ok := ds.elems.Get(uint32(t))
	return ok
}

// ContainsValue reports whether t resolves to a non empty element.
func (ds *Dataset) ContainsValue(t tag.Tag) bool {
	e := ds.Get(t)
	return e != nil && !e.IsEmpty()
}

// Get returns the element stored for t, falling back to the defaults
// dataset. It returns nil when absent.
func (ds *Dataset) Get(t tag.Tag) *Element {
	e, _ := ds.lookup(t)
	return e
}

// lookup returns the element for t and the dataset it was found in.
func (ds *Dataset) lookup(t tag.Tag) (*Element, *Dataset) {
	for cur := ds; cur != nil; cur = cur.defaults {
		if e, ok := cur.elems.Get(uint32(t)); ok {
			return e, cur
		}
	}
	return nil, nil
}

// All yields the local elements in ascending tag order.
func (ds *Dataset) All() iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		for _, e := range ds.elems.All() {
			if !yield(e) {
				return
			}
		}
	}
}

// Range yields the local elements with from <= tag <= to in ascending
// order.
func (ds *Dataset) Range(from, to tag.Tag) iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		for _, e := range ds.elems.Range(uint32(from), uint32(to)) {
			if !yield(e) {
				return
			}
		}
	}
}

// Tags returns the local tags in ascending order.
func (ds *Dataset) Tags() []tag.Tag {
	keys := ds.elems.Keys()
	out := make([]tag.Tag, len(keys))
	for i, k := range keys {
		out[i] = tag.Tag(k)
	}
	return out
}

// Remove deletes t and returns the removed element, or nil.
func (ds *Dataset) Remove(t tag.Tag) *Element {
	e, ok := ds.elems.Remove(uint32(t))
	if !ok {
		return nil
	}
	if e.vr == SQ {
		e.unbind()
	}
	if t == tag.SpecificCharacterSet {
		ds.cs = nil
	}
	return e
}

// Clear removes every element.
func (ds *Dataset) Clear() {
	ds.elems.ForEach(func(_ uint32, e *Element) bool {
		if e.vr == SQ {
			e.unbind()
		}
		return true
	})
	ds.elems.Clear()
	ds.cs = nil
}

// PutElement stores e, replacing any element with the same tag. Plain
// elements in the other byte order are converted. A sequence bound to
// another dataset is rejected.
func (ds *Dataset) PutElement(e *Element) error {
	if e.tag.IsGroupLength() {
		return fmt.Errorf("put %s: %w", e.tag, ErrGroupLength)
	}
	if e.vr == SQ {
		if e.owner != 0 && (e.arena != ds.arena || e.owner != ds.id) {
			return fmt.Errorf("put %s: %w", e.tag, ErrHasParent)
		}
		e.bind(ds)
	} else if !e.encaps {
		e = e.WithEndian(ds.bigEndian)
	}
	if old, ok := ds.elems.Get(uint32(e.tag)); ok && old != e && old.vr == SQ {
		old.unbind()
	}
	if err := ds.elems.Put(uint32(e.tag), e); err != nil {
		return err
	}
	if e.tag == tag.SpecificCharacterSet {
		ds.cs = nil
	}
	return nil
}

// resolveVR maps VRUnknown to the dictionary VR of t, using the private
// creator of its block.
func (ds *Dataset) resolveVR(t tag.Tag, vr VR) VR {
	if vr != VRUnknown {
		return vr
	}
	creator := ""
	if t.IsPrivate() && !t.IsPrivateCreator() {
		creator, _ = ds.PrivateCreator(t)
	}
	if v := ds.Dictionary().VR(t, creator); v != VRUnknown {
		return v
	}
	return UN
}

func (ds *Dataset) putValue(t tag.Tag, vr VR, value []byte) error {
	return ds.PutElement(&Element{tag: t, vr: vr, bigEndian: ds.bigEndian, value: value})
}

// textCharset is the character set text for t is encoded with. The
// SpecificCharacterSet value itself is always plain ASCII.
func (ds *Dataset) textCharset(t tag.Tag) *CharacterSet {
	if t == tag.SpecificCharacterSet {
		return DefaultCharacterSet
	}
	return ds.CharacterSet()
}

// PutNull stores an element with an empty value.
func (ds *Dataset) PutNull(t tag.Tag, vr VR) error {
	vr = ds.resolveVR(t, vr)
	if vr == SQ {
		_, err := ds.PutSequence(t)
		return err
	}
	return ds.putValue(t, vr, nil)
}

// PutBytes stores raw value bytes, which must already be in the dataset
// byte order.
func (ds *Dataset) PutBytes(t tag.Tag, vr VR, b []byte) error {
	vr = ds.resolveVR(t, vr)
	if vr == SQ {
		return fmt.Errorf("put %s: %w", t, ErrIncompatibleVR)
	}
	return ds.putValue(t, vr, pad(vr, b))
}

// PutString stores a single text value.
func (ds *Dataset) PutString(t tag.Tag, vr VR, s string) error {
	return ds.PutStrings(t, vr, s)
}

// PutStrings stores text values, encoded with the dataset character set.
func (ds *Dataset) PutStrings(t tag.Tag, vr VR, vals ...string) error {
	vr = ds.resolveVR(t, vr)
	b, err := encodeStrings(vr, vals, ds.textCharset(t), ds.bigEndian)
	if err != nil {
		return fmt.Errorf("put %s: %w", t, err)
	}
	return ds.putValue(t, vr, b)
}

// PutInt stores a single integer.
func (ds *Dataset) PutInt(t tag.Tag, vr VR, v int) error {
	return ds.PutInts(t, vr, v)
}

// PutInts stores integer values.
func (ds *Dataset) PutInts(t tag.Tag, vr VR, vals ...int) error {
	vr = ds.resolveVR(t, vr)
	b, err := encodeInts(vr, vals, ds.bigEndian)
	if err != nil {
		return fmt.Errorf("put %s: %w", t, err)
	}
	return ds.putValue(t, vr, b)
}

// PutFloat stores a single float.
func (ds *Dataset) PutFloat(t tag.Tag, vr VR, v float64) error {
	return ds.PutFloats(t, vr, v)
}

// PutFloats stores float values.
func (ds *Dataset) PutFloats(t tag.Tag, vr VR, vals ...float64) error {
	vr = ds.resolveVR(t, vr)
	b, err := encodeFloats(vr, vals, ds.bigEndian)
	if err != nil {
		return fmt.Errorf("put %s: %w", t, err)
	}
	return ds.putValue(t, vr, b)
}

// PutDate stores a single DA, TM or DT value.
func (ds *Dataset) PutDate(t tag.Tag, vr VR, v time.Time) error {
	return ds.PutDates(t, vr, v)
}

// PutDates stores DA, TM or DT values.
func (ds *Dataset) PutDates(t tag.Tag, vr VR, vals ...time.Time) error {
	vr = ds.resolveVR(t, vr)
	b, err := encodeDates(vr, vals)
	if err != nil {
		return fmt.Errorf("put %s: %w", t, err)
	}
	return ds.putValue(t, vr, b)
}

// PutDateRange stores a range query value such as "20240101-20240131".
func (ds *Dataset) PutDateRange(t tag.Tag, vr VR, r DateRange) error {
	vr = ds.resolveVR(t, vr)
	if vr.info().class != classDate {
		return fmt.Errorf("put %s: %w", t, ErrIncompatibleVR)
	}
	return ds.putValue(t, vr, pad(vr, []byte(formatDateRange(vr, r))))
}

// PutTags stores AT values.
func (ds *Dataset) PutTags(t tag.Tag, vr VR, vals ...tag.Tag) error {
	vr = ds.resolveVR(t, vr)
	b, err := encodeTags(vr, vals, ds.bigEndian)
	if err != nil {
		return fmt.Errorf("put %s: %w", t, err)
	}
	return ds.putValue(t, vr, b)
}

// PutSequence stores an empty sequence for t and returns it.
func (ds *Dataset) PutSequence(t tag.Tag) (*Element, error) {
	e := NewSequence(t, ds.bigEndian)
	if err := ds.PutElement(e); err != nil {
		return nil, err
	}
	return e, nil
}

// PutFragments stores an empty encapsulated element for t and returns it.
func (ds *Dataset) PutFragments(t tag.Tag, vr VR) (*Element, error) {
	vr = ds.resolveVR(t, vr)
	switch vr {
	case OB, OW, UN:
	default:
		return nil, fmt.Errorf("put fragments %s as %s: %w", t, vr, ErrIncompatibleVR)
	}
	e := NewFragments(t, vr, ds.bigEndian)
	if err := ds.PutElement(e); err != nil {
		return nil, err
	}
	return e, nil
}

// String returns the first text value of t. ok is false when t is absent,
// empty or not decodable as text.
func (ds *Dataset) String(t tag.Tag) (string, bool) {
	e, src := ds.lookup(t)
	if e == nil {
		return "", false
	}
	s, err := e.String(src.CharacterSet())
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}

// StringOr returns the first text value of t or def.
func (ds *Dataset) StringOr(t tag.Tag, def string) string {
	if s, ok := ds.String(t); ok {
		return s
	}
	return def
}

// Strings returns every text value of t.
func (ds *Dataset) Strings(t tag.Tag) ([]string, bool) {
	e, src := ds.lookup(t)
	if e == nil {
		return nil, false
	}
	vals, err := e.Strings(src.CharacterSet())
	if err != nil || len(vals) == 0 {
		return nil, false
	}
	return vals, true
}

// StringsOr returns every text value of t or def.
func (ds *Dataset) StringsOr(t tag.Tag, def []string) []string {
	if v, ok := ds.Strings(t); ok {
		return v
	}
	return def
}

// Int returns the first integer value of t.
func (ds *Dataset) Int(t tag.Tag) (int, bool) {
	e := ds.Get(t)
	if e == nil {
		return 0, false
	}
	v, err := e.Int()
	return v, err == nil
}

// IntOr returns the first integer value of t or def.
func (ds *Dataset) IntOr(t tag.Tag, def int) int {
	if v, ok := ds.Int(t); ok {
		return v
	}
	return def
}

// Ints returns every integer value of t.
func (ds *Dataset) Ints(t tag.Tag) ([]int, bool) {
	e := ds.Get(t)
	if e == nil {
		return nil, false
	}
	v, err := e.Ints()
	if err != nil || len(v) == 0 {
		return nil, false
	}
	return v, true
}

// IntsOr returns every integer value of t or def.
func (ds *Dataset) IntsOr(t tag.Tag, def []int) []int {
	if v, ok := ds.Ints(t); ok {
		return v
	}
	return def
}

// Float returns the first float value of t.
func (ds *Dataset) Float(t tag.Tag) (float64, bool) {
	e := ds.Get(t)
	if e == nil {
		return 0, false
	}
	v, err := e.Float()
	return v, err == nil
}

// FloatOr returns the first float value of t or def.
func (ds *Dataset) FloatOr(t tag.Tag, def float64) float64 {
	if v, ok := ds.Float(t); ok {
		return v
	}
	return def
}

// Floats returns every float value of t.
func (ds *Dataset) Floats(t tag.Tag) ([]float64, bool) {
	e := ds.Get(t)
	if e == nil {
		return nil, false
	}
	v, err := e.Floats()
	if err != nil || len(v) == 0 {
		return nil, false
	}
	return v, true
}

// FloatsOr returns every float value of t or def.
func (ds *Dataset) FloatsOr(t tag.Tag, def []float64) []float64 {
	if v, ok := ds.Floats(t); ok {
		return v
	}
	return def
}

// Date returns the first date value of t.
func (ds *Dataset) Date(t tag.Tag) (time.Time, bool) {
	e := ds.Get(t)
	if e == nil {
		return time.Time{}, false
	}
	v, err := e.Date(false)
	return v, err == nil
}

// DateOr returns the first date value of t or def.
func (ds *Dataset) DateOr(t tag.Tag, def time.Time) time.Time {
	if v, ok := ds.Date(t); ok {
		return v
	}
	return def
}

// Dates returns every date value of t.
func (ds *Dataset) Dates(t tag.Tag) ([]time.Time, bool) {
	e := ds.Get(t)
	if e == nil {
		return nil, false
	}
	v, err := e.Dates(false)
	if err != nil || len(v) == 0 {
		return nil, false
	}
	return v, true
}

// DateRange returns the range query stored for t.
func (ds *Dataset) DateRange(t tag.Tag) (DateRange, bool) {
	e := ds.Get(t)
	if e == nil {
		return DateRange{}, false
	}
	r, err := e.DateRange()
	return r, err == nil
}

// DateTime returns the instant formed by a date tag and its paired time
// tag. A missing time yields midnight.
func (ds *Dataset) DateTime(dateTag, timeTag tag.Tag) (time.Time, bool) {
	d, ok := ds.Date(dateTag)
	if !ok {
		return time.Time{}, false
	}
	if t, ok := ds.Date(timeTag); ok {
		return combineDateTime(d, t), true
	}
	return d, true
}

// Bytes returns the raw value bytes of t.
func (ds *Dataset) Bytes(t tag.Tag) ([]byte, bool) {
	e := ds.Get(t)
	if e == nil || e.HasItems() {
		return nil, false
	}
	return e.value, true
}

// TagValues returns the AT values of t.
func (ds *Dataset) TagValues(t tag.Tag) ([]tag.Tag, bool) {
	e := ds.Get(t)
	if e == nil {
		return nil, false
	}
	v, err := e.Tags()
	if err != nil || len(v) == 0 {
		return nil, false
	}
	return v, true
}

// Item returns the i-th (0-based) item of the sequence t.
func (ds *Dataset) Item(t tag.Tag, i int) (*Dataset, bool) {
	e := ds.Get(t)
	if e == nil || !e.HasDatasets() {
		return nil, false
	}
	item := e.Item(i)
	return item, item != nil
}

// VM returns the value multiplicity of t, or -1 when absent.
func (ds *Dataset) VM(t tag.Tag) int {
	e, src := ds.lookup(t)
	if e == nil {
		return -1
	}
	return e.VM(src.CharacterSet())
}

// Keyword returns the dictionary name of t as seen from ds.
func (ds *Dataset) Keyword(t tag.Tag) string {
	creator := ""
	if t.IsPrivate() && !t.IsPrivateCreator() {
		creator, _ = ds.PrivateCreator(t)
	}
	return ds.Dictionary().Keyword(t, creator)
}

// ItemPath follows tag, index pairs down nested sequences. It returns nil
// without error when a step is absent; an odd path length is malformed.
func (ds *Dataset) ItemPath(path ...int) (*Dataset, error) {
	if len(path)%2 != 0 {
		return nil, fmt.Errorf("item path %v: %w", path, ErrBadPath)
	}
	cur := ds
	for i := 0; i < len(path); i += 2 {
		item, ok := cur.Item(tag.Tag(uint32(path[i])), path[i+1])
		if !ok {
			return nil, nil
		}
		cur = item
	}
	return cur, nil
}

// GetPath resolves tag, index, tag, ..., tag to an element. The path must
// end with a tag, so an even length is malformed.
func (ds *Dataset) GetPath(path ...int) (*Element, error) {
	if len(path)%2 == 0 {
		return nil, fmt.Errorf("element path %v: %w", path, ErrBadPath)
	}
	item, err := ds.ItemPath(path[:len(path)-1]...)
	if err != nil || item == nil {
		return nil, err
	}
	return item.Get(tag.Tag(uint32(path[len(path)-1]))), nil
}

// GetPathTag is GetPath for a path made of tags and indexes already
// converted by the caller.
func (ds *Dataset) GetPathTag(steps ...PathStep) (*Element, error) {
	path := make([]int, 0, len(steps)*2)
	for i, s := range steps {
		path = append(path, int(s.Tag))
		if i < len(steps)-1 {
			path = append(path, s.Index)
		}
	}
	return ds.GetPath(path...)
}

// PathStep is one level of a GetPathTag path. Index is ignored on the
// last step.
type PathStep struct {
	Tag   tag.Tag
	Index int
}

// GetAs returns the local element t typed as vr. An UN element is
// re-parsed from its raw bytes and replaces the stored one; a sequence is
// read as an implicit VR little endian item stream.
func (ds *Dataset) GetAs(t tag.Tag, vr VR) (*Element, error) {
	e, ok := ds.elems.Get(uint32(t))
	if !ok {
		return nil, nil
	}
	if e.vr == vr {
		return e, nil
	}
	if e.vr != UN || e.HasItems() {
		return nil, fmt.Errorf("retype %s from %s to %s: %w", t, e.vr, vr, ErrUnsupportedRetype)
	}
	var ne *Element
	if vr == SQ {
		seq, err := ds.parseItems(e)
		if err != nil {
			return nil, err
		}
		ne = seq
	} else {
		ne = &Element{tag: t, vr: vr, bigEndian: e.bigEndian, value: e.value}
	}
	if err := ds.PutElement(ne); err != nil {
		return nil, err
	}
	return ne, nil
}

func (ds *Dataset) parseItems(e *Element) (*Element, error) {
	seq := NewSequence(e.tag, ds.bigEndian)
	seq.bind(ds)
	r := NewReader(bytes.NewReader(e.value), ImplicitVRLittleEndian, WithDictionary(ds.Dictionary()))
	if err := r.readItems(seq, uint32(len(e.value))); err != nil {
		return nil, &DecodeError{Tag: e.tag, Offset: -1, Err: err}
	}
	seq.unbind()
	return seq, nil
}
