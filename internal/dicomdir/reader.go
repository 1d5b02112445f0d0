// Package dicomdir reads and updates DICOMDIR files in place. Records are
// loaded lazily at their byte offset; updates append new records at the
// end of the record sequence and patch the link fields of existing ones.
package dicomdir

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"weak"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
	"github.com/mrsinham/dicomkit/internal/dicom/uid"
	"github.com/mrsinham/dicomkit/internal/inttable"
)

// DefaultCacheSize bounds the number of clean records kept in memory.
const DefaultCacheSize = 1024

const (
	preambleLen = 128 + 4

	flagInconsistent = 0xFFFF
	recordInUse      = 0xFFFF
)

var sequenceDelimiter = []byte{0xFE, 0xFF, 0xDD, 0xE0, 0, 0, 0, 0}

type options struct {
	log        zerolog.Logger
	cacheSize  int
	interner   *dicom.Interner
	fileExists func(rel string) bool
	profile    *Profile
}

// Option configures Open, OpenWriter and Create.
type Option func(*options)

// WithLogger reports record appends, commits, rollbacks and purges.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithCacheSize bounds the clean record cache.
func WithCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithInterner shares short values between loaded records.
func WithInterner(in *dicom.Interner) Option {
	return func(o *options) { o.interner = in }
}

// WithFileExists replaces the check Purge uses to decide whether a
// referenced file is still there. rel is relative to the DICOMDIR
// directory.
func WithFileExists(fn func(rel string) bool) Option {
	return func(o *options) { o.fileExists = fn }
}

// WithProfile selects the record profile used by AddInstance.
func WithProfile(p *Profile) Option {
	return func(o *options) { o.profile = p }
}

// Record is one directory record. Dataset holds its attributes and must be
// treated as read-only; links and the in-use flag change through a Writer.
type Record struct {
	Dataset *dicom.Dataset

	offset uint32
	next   uint32
	child  uint32
	inUse  bool

	// file positions of the link values
	nextPos, flagPos, childPos int64
}

// Offset returns the file offset of the record's Item tag.
func (r *Record) Offset() uint32 { return r.offset }

// NextOffset returns the offset of the next sibling, or 0.
func (r *Record) NextOffset() uint32 { return r.next }

// ChildOffset returns the offset of the first child, or 0.
func (r *Record) ChildOffset() uint32 { return r.child }

// InUse reports whether the record is active.
func (r *Record) InUse() bool { return r.inUse }

// Type returns the DirectoryRecordType.
func (r *Record) Type() RecordType {
	return RecordType(r.Dataset.StringOr(tag.DirectoryRecordType, ""))
}

// FileID returns the ReferencedFileID components, if any.
func (r *Record) FileID() []string {
	ids, _ := r.Dataset.Strings(tag.ReferencedFileID)
	return ids
}

func (r *Record) setNext(off uint32) {
	r.next = off
	_ = r.Dataset.PutInt(tag.OffsetOfTheNextDirectoryRecord, dicom.UL, int(off))
}

func (r *Record) setChild(off uint32) {
	r.child = off
	_ = r.Dataset.PutInt(tag.OffsetOfReferencedLowerLevelDirectoryEntity, dicom.UL, int(off))
}

func (r *Record) setInUse(v bool) {
	r.inUse = v
	flag := 0
	if v {
		flag = recordInUse
	}
	_ = r.Dataset.PutInt(tag.RecordInUseFlag, dicom.US, flag)
}

func (r *Record) flagValue() uint16 {
	if r.inUse {
		return recordInUse
	}
	return 0
}

// Reader gives random access to the records of a DICOMDIR.
type Reader struct {
	f    *os.File
	path string
	dir  string
	opts options

	meta      *dicom.Dataset
	fileSetID string
	size      int64

	firstRoot, lastRoot uint32
	flag                uint16
	// file positions of the header values
	firstPos, lastPos, flagPos int64

	seqLenPos int64
	seqLen    uint32
	// seqStart is the offset of the first record, seqEnd the offset of
	// the sequence delimiter or the end of a sequence of defined length.
	seqStart, seqEnd int64

	clean *lru.Cache
	dirty inttable.Table[*Record]
	// live finds a record evicted from clean while a caller still holds
	// it, so there is one instance per offset.
	live    map[uint32]weak.Pointer[Record]
	sweepAt int
}

// Open opens a DICOMDIR for reading.
func Open(path string, opts ...Option) (*Reader, error) {
	return open(path, os.O_RDONLY, opts)
}

func open(path string, flag int, opts []Option) (*Reader, error) {
	o := options{log: zerolog.Nop(), cacheSize: DefaultCacheSize, profile: DefaultProfile}
	for _, fn := range opts {
		fn(&o)
	}
	if o.interner == nil {
		o.interner = dicom.NewInterner(0)
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	d := &Reader{f: f, path: path, dir: filepath.Dir(path), opts: o,
		live: make(map[uint32]weak.Pointer[Record]), sweepAt: minSweep}
	if d.opts.fileExists == nil {
		d.opts.fileExists = func(rel string) bool {
			_, err := os.Stat(filepath.Join(d.dir, rel))
			return err == nil
		}
	}
	if d.clean, err = lru.New(o.cacheSize); err != nil {
		f.Close()
		return nil, err
	}
	if err := d.readHeader(); err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return d, nil
}

func (d *Reader) readHeader() error {
	st, err := d.f.Stat()
	if err != nil {
		return err
	}
	d.size = st.Size()
	br := bufio.NewReader(io.NewSectionReader(d.f, 0, d.size))
	head, _ := br.Peek(preambleLen)
	if len(head) < preambleLen || string(head[128:]) != "DICM" {
		return ErrNotDICOMDIR
	}
	if _, err := br.Discard(preambleLen); err != nil {
		return err
	}
	r := dicom.NewReader(br, dicom.ExplicitVRLittleEndian, dicom.WithOffset(preambleLen), dicom.WithLimit(d.size))
	d.meta = dicom.NewDataset()
	hdr := dicom.NewDataset()
	for {
		h, err := r.ReadHeader(nil)
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: no directory record sequence", ErrNotDICOMDIR)
		}
		if err != nil {
			return err
		}
		if h.Tag == tag.DirectoryRecordSequence {
			d.seqLenPos = h.Offset + 8
			d.seqLen = h.Length
			d.seqStart = r.Pos()
			break
		}
		e, err := r.ReadValue(h, hdr)
		if err != nil {
			return err
		}
		switch h.Tag {
		case tag.OffsetOfTheFirstDirectoryRecordOfTheRootDirectoryEntity:
			d.firstPos = h.Offset + 8
		case tag.OffsetOfTheLastDirectoryRecordOfTheRootDirectoryEntity:
			d.lastPos = h.Offset + 8
		case tag.FileSetConsistencyFlag:
			d.flagPos = h.Offset + 8
		}
		if e == nil || h.Tag.IsGroupLength() {
			continue
		}
		target := hdr
		if h.Tag.Group() == 0x0002 {
			target = d.meta
		}
		if err := target.PutElement(e); err != nil {
			return err
		}
	}
	if class, ok := d.meta.String(tag.MediaStorageSOPClassUID); ok && class != uid.MediaStorageDirectoryStorage {
		return fmt.Errorf("%w: SOP class %s", ErrNotDICOMDIR, class)
	}
	if ts, ok := d.meta.String(tag.TransferSyntaxUID); ok && ts != uid.ExplicitVRLittleEndian {
		return fmt.Errorf("%w: transfer syntax %s", ErrNotDICOMDIR, ts)
	}
	if d.firstPos == 0 || d.lastPos == 0 || d.flagPos == 0 {
		return fmt.Errorf("%w: incomplete header", ErrNotDICOMDIR)
	}
	d.fileSetID = hdr.StringOr(tag.FileSetID, "")
	d.firstRoot = uint32(hdr.IntOr(tag.OffsetOfTheFirstDirectoryRecordOfTheRootDirectoryEntity, 0))
	d.lastRoot = uint32(hdr.IntOr(tag.OffsetOfTheLastDirectoryRecordOfTheRootDirectoryEntity, 0))
	d.flag = uint16(hdr.IntOr(tag.FileSetConsistencyFlag, 0))
	d.seqEnd, err = d.findSequenceEnd()
	return err
}

func (d *Reader) findSequenceEnd() (int64, error) {
	if d.seqLen != dicom.UndefinedLength {
		end := d.seqStart + int64(d.seqLen)
		if end > d.size {
			return 0, fmt.Errorf("%w: record sequence runs past the end of the file", ErrNotDICOMDIR)
		}
		return end, nil
	}
	if d.size-8 >= d.seqStart {
		tail := make([]byte, 8)
		if _, err := d.f.ReadAt(tail, d.size-8); err == nil && bytes.Equal(tail, sequenceDelimiter) {
			return d.size - 8, nil
		}
	}
	r := dicom.NewReader(io.NewSectionReader(d.f, d.seqStart, d.size-d.seqStart), dicom.ExplicitVRLittleEndian,
		dicom.WithOffset(d.seqStart), dicom.WithLimit(d.size))
	for {
		item, err := r.ReadItem()
		if err != nil {
			return 0, fmt.Errorf("scan record sequence: %w", err)
		}
		if item == nil {
			return r.Pos() - 8, nil
		}
	}
}

// Close releases the file.
func (d *Reader) Close() error { return d.f.Close() }

// Path returns the DICOMDIR path.
func (d *Reader) Path() string { return d.path }

// Dir returns the directory referenced file IDs are relative to.
func (d *Reader) Dir() string { return d.dir }

// FileSetID returns the FileSetID of the header.
func (d *Reader) FileSetID() string { return d.fileSetID }

// Meta returns the file meta information.
func (d *Reader) Meta() *dicom.Dataset { return d.meta }

// Consistent reports whether the FileSetConsistencyFlag says there are no
// known inconsistencies. A directory left inconsistent was not committed
// or rolled back and may be partially written.
func (d *Reader) Consistent() bool { return d.flag == 0 }

// record returns the record at off, loading it on first use.
func (d *Reader) record(off uint32) (*Record, error) {
	if rec, ok := d.dirty.Get(off); ok {
		return rec, nil
	}
	if v, ok := d.clean.Get(off); ok {
		return v.(*Record), nil
	}
	if p, ok := d.live[off]; ok {
		if rec := p.Value(); rec != nil {
			d.clean.Add(off, rec)
			return rec, nil
		}
		delete(d.live, off)
	}
	rec, err := d.loadRecord(off)
	if err != nil {
		return nil, err
	}
	d.remember(rec)
	return rec, nil
}

const minSweep = 256

func (d *Reader) remember(rec *Record) {
	d.clean.Add(rec.offset, rec)
	d.live[rec.offset] = weak.Make(rec)
	if len(d.live) < d.sweepAt {
		return
	}
	for off, p := range d.live {
		if p.Value() == nil {
			delete(d.live, off)
		}
	}
	d.sweepAt = max(2*len(d.live), minSweep)
}

// resolve maps a record handle to the instance the reader tracks.
func (d *Reader) resolve(rec *Record) (*Record, error) {
	if rec == nil {
		return nil, errors.New("nil record")
	}
	return d.record(rec.offset)
}

func (d *Reader) loadRecord(off uint32) (*Record, error) {
	pos := int64(off)
	if pos < d.seqStart || pos+8 > d.seqEnd {
		return nil, fmt.Errorf("record at %d: %w", off, ErrBadOffset)
	}
	r := dicom.NewReader(io.NewSectionReader(d.f, pos, d.seqEnd-pos), dicom.ExplicitVRLittleEndian,
		dicom.WithOffset(pos), dicom.WithLimit(d.seqEnd), dicom.WithInterner(d.opts.interner))
	h, err := r.ReadHeader(nil)
	if err != nil {
		return nil, fmt.Errorf("record at %d: %w", off, err)
	}
	if h.Tag != tag.Item {
		return nil, fmt.Errorf("record at %d holds %s: %w", off, h.Tag, ErrBadOffset)
	}
	end := int64(-1)
	if !h.Undefined() {
		end = r.Pos() + int64(h.Length)
	}
	ds := dicom.NewDataset()
	ds.SetItemOffset(pos)
	rec := &Record{Dataset: ds, offset: off}
	for end < 0 || r.Pos() < end {
		eh, err := r.ReadHeader(ds)
		if err != nil {
			return nil, fmt.Errorf("record at %d: %w", off, err)
		}
		if eh.Tag == tag.ItemDelimitationItem {
			break
		}
		e, err := r.ReadValue(eh, ds)
		if err != nil {
			return nil, fmt.Errorf("record at %d: %w", off, err)
		}
		switch eh.Tag {
		case tag.OffsetOfTheNextDirectoryRecord:
			rec.nextPos = eh.Offset + 8
		case tag.RecordInUseFlag:
			rec.flagPos = eh.Offset + 8
		case tag.OffsetOfReferencedLowerLevelDirectoryEntity:
			rec.childPos = eh.Offset + 8
		}
		if e == nil || eh.Tag.IsGroupLength() {
			continue
		}
		if err := ds.PutElement(e); err != nil {
			return nil, fmt.Errorf("record at %d: %w", off, err)
		}
	}
	if rec.nextPos == 0 || rec.flagPos == 0 || rec.childPos == 0 {
		return nil, fmt.Errorf("record at %d lacks its link attributes: %w", off, ErrBadOffset)
	}
	rec.next = uint32(ds.IntOr(tag.OffsetOfTheNextDirectoryRecord, 0))
	rec.child = uint32(ds.IntOr(tag.OffsetOfReferencedLowerLevelDirectoryEntity, 0))
	rec.inUse = ds.IntOr(tag.RecordInUseFlag, recordInUse) != 0
	return rec, nil
}

// walk visits the sibling chain starting at off until fn returns false.
func (d *Reader) walk(off uint32, fn func(*Record) bool) error {
	limit := (d.seqEnd-d.seqStart)/8 + 1
	for n := int64(0); off != 0; n++ {
		if n > limit {
			return fmt.Errorf("record chain loops at %d: %w", off, ErrBadOffset)
		}
		rec, err := d.record(off)
		if err != nil {
			return err
		}
		if !fn(rec) {
			return nil
		}
		off = rec.next
	}
	return nil
}

func (d *Reader) first(off uint32, inUseOnly bool) (*Record, error) {
	var found *Record
	err := d.walk(off, func(rec *Record) bool {
		if inUseOnly && !rec.inUse {
			return true
		}
		found = rec
		return false
	})
	return found, err
}

func (d *Reader) firstMatching(off uint32, keys *dicom.Dataset, ignoreCasePN bool) (*Record, error) {
	var found *Record
	err := d.walk(off, func(rec *Record) bool {
		if rec.inUse && rec.Dataset.Matches(keys, ignoreCasePN) {
			found = rec
			return false
		}
		return true
	})
	return found, err
}

func (d *Reader) last(off uint32) (*Record, error) {
	var found *Record
	err := d.walk(off, func(rec *Record) bool {
		found = rec
		return true
	})
	return found, err
}

// FirstRootRecord returns the first top level record, or nil.
func (d *Reader) FirstRootRecord(inUseOnly bool) (*Record, error) {
	return d.first(d.firstRoot, inUseOnly)
}

// LastRootRecord returns the last top level record, in use or not.
func (d *Reader) LastRootRecord() (*Record, error) {
	if d.lastRoot != 0 {
		return d.record(d.lastRoot)
	}
	return d.last(d.firstRoot)
}

// FirstChildRecord returns the first record below parent, or nil.
func (d *Reader) FirstChildRecord(parent *Record, inUseOnly bool) (*Record, error) {
	parent, err := d.resolve(parent)
	if err != nil {
		return nil, err
	}
	return d.first(parent.child, inUseOnly)
}

// NextSiblingRecord returns the record after rec on the same level, or nil.
func (d *Reader) NextSiblingRecord(rec *Record, inUseOnly bool) (*Record, error) {
	rec, err := d.resolve(rec)
	if err != nil {
		return nil, err
	}
	return d.first(rec.next, inUseOnly)
}

// FindFirstMatchingRootRecord returns the first active top level record
// matching keys.
func (d *Reader) FindFirstMatchingRootRecord(keys *dicom.Dataset, ignoreCasePN bool) (*Record, error) {
	return d.firstMatching(d.firstRoot, keys, ignoreCasePN)
}

// FindFirstMatchingChildRecord returns the first active record below
// parent matching keys.
func (d *Reader) FindFirstMatchingChildRecord(parent *Record, keys *dicom.Dataset, ignoreCasePN bool) (*Record, error) {
	parent, err := d.resolve(parent)
	if err != nil {
		return nil, err
	}
	return d.firstMatching(parent.child, keys, ignoreCasePN)
}

// FindNextMatchingSiblingRecord returns the next active record after prev
// matching keys.
func (d *Reader) FindNextMatchingSiblingRecord(prev *Record, keys *dicom.Dataset, ignoreCasePN bool) (*Record, error) {
	prev, err := d.resolve(prev)
	if err != nil {
		return nil, err
	}
	return d.firstMatching(prev.next, keys, ignoreCasePN)
}

// Records lists the records below parent, or the top level records when
// parent is nil.
func (d *Reader) Records(parent *Record, inUseOnly bool) ([]*Record, error) {
	off := d.firstRoot
	if parent != nil {
		p, err := d.resolve(parent)
		if err != nil {
			return nil, err
		}
		off = p.child
	}
	var out []*Record
	err := d.walk(off, func(rec *Record) bool {
		if rec.inUse || !inUseOnly {
			out = append(out, rec)
		}
		return true
	})
	return out, err
}

func (d *Reader) putUint32(pos int64, v uint32) error {
	return binary.Write(io.NewOffsetWriter(d.f, pos), binary.LittleEndian, v)
}

func (d *Reader) putUint16(pos int64, v uint16) error {
	return binary.Write(io.NewOffsetWriter(d.f, pos), binary.LittleEndian, v)
}
