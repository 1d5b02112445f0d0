package dicom

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// Tag is re-exported so callers of this package rarely need the tag
// package for the type itself.
type Tag = tag.Tag

// Element is one attribute of a dataset. Its identity (tag, VR, byte
// order) is fixed at construction. Plain elements hold the raw value bytes,
// which are treated as immutable and may be shared. SQ elements hold nested
// datasets and encapsulated pixel data elements hold raw fragments.
type Element struct {
	tag       tag.Tag
	vr        VR
	bigEndian bool
	value     []byte

	items     []*Dataset
	fragments [][]byte
	encaps    bool

	// arena and owner locate the dataset an SQ element is stored in, so
	// that items can point back at it.
	arena *Arena
	owner handle

	text *textCache
}

type textCache struct {
	cs   *CharacterSet
	vals []string
}

// NewElement wraps raw value bytes encoded in the given byte order.
func NewElement(t tag.Tag, vr VR, bigEndian bool, value []byte) *Element {
	return &Element{tag: t, vr: vr, bigEndian: bigEndian, value: value}
}

// NewSequence returns an empty, detached SQ element.
func NewSequence(t tag.Tag, bigEndian bool) *Element {
	return &Element{tag: t, vr: SQ, bigEndian: bigEndian}
}

// NewFragments returns an empty, detached encapsulated element.
func NewFragments(t tag.Tag, vr VR, bigEndian bool) *Element {
	return &Element{tag: t, vr: vr, bigEndian: bigEndian, encaps: true}
}

func (e *Element) Tag() tag.Tag    { return e.tag }
func (e *Element) VR() VR          { return e.vr }
func (e *Element) BigEndian() bool { return e.bigEndian }

// Bytes returns the raw value bytes. The slice must not be modified.
func (e *Element) Bytes() []byte { return e.value }

// Len returns the value length in bytes, or the item count for elements
// holding items.
func (e *Element) Len() int {
	switch {
	case e.vr == SQ:
		return len(e.items)
	case e.encaps:
		return len(e.fragments)
	}
	return len(e.value)
}

// IsEmpty reports whether the element carries neither bytes nor items.
func (e *Element) IsEmpty() bool { return e.Len() == 0 }

// HasItems is true for SQ and encapsulated fragment elements.
func (e *Element) HasItems() bool { return e.vr == SQ || e.encaps }

// HasDatasets is true for SQ elements.
func (e *Element) HasDatasets() bool { return e.vr == SQ }

// HasFragments is true for encapsulated pixel data elements.
func (e *Element) HasFragments() bool { return e.encaps }

// CountItems returns the number of items or fragments.
func (e *Element) CountItems() int {
	if e.encaps {
		return len(e.fragments)
	}
	return len(e.items)
}

// Item returns the i-th (0-based) nested dataset, or nil.
func (e *Element) Item(i int) *Dataset {
	if i < 0 || i >= len(e.items) {
		return nil
	}
	return e.items[i]
}

// Items returns the nested datasets in order.
func (e *Element) Items() []*Dataset {
	out := make([]*Dataset, len(e.items))
	copy(out, e.items)
	return out
}

// Fragment returns the i-th (0-based) fragment, or nil.
func (e *Element) Fragment(i int) []byte {
	if i < 0 || i >= len(e.fragments) {
		return nil
	}
	return e.fragments[i]
}

// Fragments returns the raw fragments in order, the offset table first.
func (e *Element) Fragments() [][]byte { return e.fragments }

// AddItem appends item to the sequence. The item gets the next 1-based
// position and its parent becomes the dataset holding e.
func (e *Element) AddItem(item *Dataset) error {
	if e.vr != SQ {
		return fmt.Errorf("add item to %s: %w", e.tag, ErrNotSequence)
	}
	if item.pos != 0 {
		return fmt.Errorf("add item to %s: %w", e.tag, ErrHasParent)
	}
	e.adopt(item)
	e.items = append(e.items, item)
	item.pos = len(e.items)
	return nil
}

// NewItem creates an empty dataset with the byte order of e and appends it.
func (e *Element) NewItem() (*Dataset, error) {
	if e.vr != SQ {
		return nil, fmt.Errorf("new item in %s: %w", e.tag, ErrNotSequence)
	}
	var item *Dataset
	if e.arena != nil {
		item = e.arena.newDataset()
	} else {
		item = NewDataset()
	}
	item.bigEndian = e.bigEndian
	if err := e.AddItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem detaches the i-th (0-based) item and renumbers the ones after
// it.
func (e *Element) RemoveItem(i int) (*Dataset, error) {
	if e.vr != SQ {
		return nil, fmt.Errorf("remove item from %s: %w", e.tag, ErrNotSequence)
	}
	if i < 0 || i >= len(e.items) {
		return nil, fmt.Errorf("remove item %d from %s: index out of range", i, e.tag)
	}
	item := e.items[i]
	e.items = append(e.items[:i], e.items[i+1:]...)
	for j := i; j < len(e.items); j++ {
		e.items[j].pos = j + 1
	}
	item.parent = 0
	item.pos = 0
	return item, nil
}

// AddFragment appends a raw fragment.
func (e *Element) AddFragment(b []byte) error {
	if !e.encaps {
		return fmt.Errorf("add fragment to %s: %w", e.tag, ErrNotFragments)
	}
	e.fragments = append(e.fragments, b)
	return nil
}

// adopt moves item into the arena of e and points it at the owner.
func (e *Element) adopt(item *Dataset) {
	if e.arena == nil {
		return
	}
	e.arena.adopt(item)
	item.parent = e.owner
}

// bind attaches a sequence to the dataset that stores it.
func (e *Element) bind(ds *Dataset) {
	e.arena = ds.arena
	e.owner = ds.id
	for _, item := range e.items {
		e.adopt(item)
	}
}

func (e *Element) unbind() {
	for _, item := range e.items {
		item.parent = 0
	}
	e.arena = nil
	e.owner = 0
}

func (e *Element) scalar() error {
	if e.HasItems() {
		return fmt.Errorf("%s: %w", e.tag, ErrNotScalar)
	}
	return nil
}

func (e *Element) incompatible(what string) error {
	return fmt.Errorf("%s %s as %s: %w", e.tag, e.vr, what, ErrIncompatibleVR)
}

// VM returns the value multiplicity.
func (e *Element) VM(cs *CharacterSet) int {
	if e.HasItems() {
		return e.CountItems()
	}
	if len(e.value) == 0 {
		return 0
	}
	info := e.vr.info()
	switch info.class {
	case classText, classDate, classDecimal, classIntString:
		vals, _ := e.Strings(cs)
		return len(vals)
	case classTag:
		return len(e.value) / 4
	case classInt, classFloat:
		return len(e.value) / info.width
	}
	return 1
}

// Strings decodes every value as text. Binary numbers are formatted.
func (e *Element) Strings(cs *CharacterSet) ([]string, error) {
	if err := e.scalar(); err != nil {
		return nil, err
	}
	if len(e.value) == 0 {
		return nil, nil
	}
	info := e.vr.info()
	switch info.class {
	case classText, classDate, classDecimal, classIntString:
		if !info.charset {
			cs = DefaultCharacterSet
		}
		if c := e.text; c != nil && c.cs == cs {
			return c.vals, nil
		}
		vals := splitText(e.vr, cs.Decode(e.value))
		e.text = &textCache{cs: cs, vals: vals}
		return vals, nil
	case classInt:
		ints, err := e.Ints()
		if err != nil {
			return nil, err
		}
		out := make([]string, len(ints))
		for i, v := range ints {
			out[i] = strconv.Itoa(v)
		}
		return out, nil
	case classFloat:
		fs, err := e.Floats()
		if err != nil {
			return nil, err
		}
		bits := 64
		if info.width == 4 {
			bits = 32
		}
		out := make([]string, len(fs))
		for i, v := range fs {
			out[i] = strconv.FormatFloat(v, 'g', -1, bits)
		}
		return out, nil
	case classTag:
		ts, err := e.Tags()
		if err != nil {
			return nil, err
		}
		out := make([]string, len(ts))
		for i, t := range ts {
			out[i] = t.String()
		}
		return out, nil
	}
	return nil, e.incompatible("text")
}

// String returns the first value, or "" when the element is empty.
func (e *Element) String(cs *CharacterSet) (string, error) {
	vals, err := e.Strings(cs)
	if err != nil || len(vals) == 0 {
		return "", err
	}
	if e.vr.info().multi || len(vals) == 1 {
		return vals[0], nil
	}
	return strings.Join(vals, `\`), nil
}

// Ints decodes every value as an integer. DS values are truncated.
func (e *Element) Ints() ([]int, error) {
	if err := e.scalar(); err != nil {
		return nil, err
	}
	info := e.vr.info()
	order := byteOrder(e.bigEndian)
	switch info.class {
	case classInt, classBytes:
		if e.vr == OF || e.vr == OD {
			break
		}
		w := info.width
		out := make([]int, len(e.value)/w)
		for i := range out {
			b := e.value[i*w:]
			switch w {
			case 1:
				out[i] = int(b[0])
			case 2:
				v := order.Uint16(b)
				if info.signed {
					out[i] = int(int16(v))
				} else {
					out[i] = int(v)
				}
			case 4:
				v := order.Uint32(b)
				if info.signed {
					out[i] = int(int32(v))
				} else {
					out[i] = int(v)
				}
			case 8:
				out[i] = int(order.Uint64(b))
			}
		}
		return out, nil
	case classIntString, classDecimal:
		vals, err := e.Strings(DefaultCharacterSet)
		if err != nil {
			return nil, err
		}
		out := make([]int, 0, len(vals))
		for _, s := range vals {
			if info.class == classIntString {
				n, err := strconv.Atoi(s)
				if err != nil {
					return nil, fmt.Errorf("%s: parse %q: %w", e.tag, s, err)
				}
				out = append(out, n)
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: parse %q: %w", e.tag, s, err)
			}
			out = append(out, int(f))
		}
		return out, nil
	}
	if info.class == classFloat || e.vr == OF || e.vr == OD {
		fs, err := e.Floats()
		if err != nil {
			return nil, err
		}
		out := make([]int, len(fs))
		for i, f := range fs {
			out[i] = int(f)
		}
		return out, nil
	}
	return nil, e.incompatible("integer")
}

// Int returns the first integer value.
func (e *Element) Int() (int, error) {
	vals, err := e.Ints()
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("%s: empty value", e.tag)
	}
	return vals[0], nil
}

// Floats decodes every value as a float.
func (e *Element) Floats() ([]float64, error) {
	if err := e.scalar(); err != nil {
		return nil, err
	}
	order := byteOrder(e.bigEndian)
	switch e.vr {
	case FL, OF:
		out := make([]float64, len(e.value)/4)
		for i := range out {
			out[i] = float64(math.Float32frombits(order.Uint32(e.value[i*4:])))
		}
		return out, nil
	case FD, OD:
		out := make([]float64, len(e.value)/8)
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(e.value[i*8:]))
		}
		return out, nil
	case DS, IS:
		vals, err := e.Strings(DefaultCharacterSet)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(vals))
		for i, s := range vals {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: parse %q: %w", e.tag, s, err)
			}
			out[i] = f
		}
		return out, nil
	}
	if e.vr.info().class == classInt {
		ints, err := e.Ints()
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(ints))
		for i, v := range ints {
			out[i] = float64(v)
		}
		return out, nil
	}
	return nil, e.incompatible("float")
}

// Float returns the first float value.
func (e *Element) Float() (float64, error) {
	vals, err := e.Floats()
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("%s: empty value", e.tag)
	}
	return vals[0], nil
}

// Dates parses every DA, TM or DT value. With end set, partial values
// resolve to the last instant they cover.
func (e *Element) Dates(end bool) ([]time.Time, error) {
	if err := e.scalar(); err != nil {
		return nil, err
	}
	if e.vr.info().class != classDate {
		return nil, e.incompatible("date")
	}
	vals, err := e.Strings(DefaultCharacterSet)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(vals))
	for _, s := range vals {
		t, err := parseDate(e.vr, s, end)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.tag, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Date returns the first date value.
func (e *Element) Date(end bool) (time.Time, error) {
	vals, err := e.Dates(end)
	if err != nil {
		return time.Time{}, err
	}
	if len(vals) == 0 {
		return time.Time{}, fmt.Errorf("%s: empty value", e.tag)
	}
	return vals[0], nil
}

// DateRange parses the first value as a range query ("A-B", "A-", "-B" or
// a single value covering itself).
func (e *Element) DateRange() (DateRange, error) {
	if err := e.scalar(); err != nil {
		return DateRange{}, err
	}
	if e.vr.info().class != classDate {
		return DateRange{}, e.incompatible("date range")
	}
	vals, err := e.Strings(DefaultCharacterSet)
	if err != nil {
		return DateRange{}, err
	}
	if len(vals) == 0 {
		return DateRange{}, fmt.Errorf("%s: empty value", e.tag)
	}
	r, err := parseDateRange(e.vr, vals[0])
	if err != nil {
		return DateRange{}, fmt.Errorf("%s: %w", e.tag, err)
	}
	return r, nil
}

// Tags decodes AT values. UL values are read as packed tags too.
func (e *Element) Tags() ([]tag.Tag, error) {
	if err := e.scalar(); err != nil {
		return nil, err
	}
	order := byteOrder(e.bigEndian)
	switch e.vr {
	case AT:
		out := make([]tag.Tag, len(e.value)/4)
		for i := range out {
			out[i] = tag.New(order.Uint16(e.value[i*4:]), order.Uint16(e.value[i*4+2:]))
		}
		return out, nil
	case UL:
		out := make([]tag.Tag, len(e.value)/4)
		for i := range out {
			out[i] = tag.Tag(order.Uint32(e.value[i*4:]))
		}
		return out, nil
	}
	return nil, e.incompatible("tag")
}

// WithTag returns a copy of a plain element addressed by t.
func (e *Element) WithTag(t tag.Tag) *Element {
	return &Element{tag: t, vr: e.vr, bigEndian: e.bigEndian, value: e.value, text: e.text}
}

// WithEndian returns e encoded in the requested byte order. A plain
// element already in that order is returned as is.
func (e *Element) WithEndian(bigEndian bool) *Element {
	if e.bigEndian == bigEndian || e.HasItems() {
		return e
	}
	b := make([]byte, len(e.value))
	copy(b, e.value)
	e.vr.ToggleEndian(b)
	return &Element{tag: e.tag, vr: e.vr, bigEndian: bigEndian, value: b, text: e.text}
}

// Summary describes the element in one line for logs and dumps.
func (e *Element) Summary() string {
	switch {
	case e.vr == SQ:
		return fmt.Sprintf("%s SQ #%d items", e.tag, len(e.items))
	case e.encaps:
		return fmt.Sprintf("%s %s #%d fragments", e.tag, e.vr, len(e.fragments))
	}
	return fmt.Sprintf("%s %s #%d", e.tag, e.vr, len(e.value))
}
