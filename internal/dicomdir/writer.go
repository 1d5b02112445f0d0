package dicomdir

import (
	"bytes"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
	"github.com/mrsinham/dicomkit/internal/dicom/uid"
)

// Writer updates a DICOMDIR in place. The first change of an update sets
// the FileSetConsistencyFlag on disk; Commit writes the pending link
// changes and clears it, Rollback truncates the appended records.
type Writer struct {
	*Reader

	closed   bool
	updating bool
	saved    savedState

	// last child appended, so runs of AddChildRecord on one parent do not
	// walk the chain every time
	lastParent, lastChild uint32

	// children already looked up by AddInstance, keyed by parent offset
	// (0 for the top level) and identifying value
	index   map[indexKey]uint32
	indexed map[uint32]bool
}

type savedState struct {
	seqEnd, size        int64
	seqLen              uint32
	firstRoot, lastRoot uint32
}

type indexKey struct {
	parent uint32
	id     string
}

// Create writes an empty DICOMDIR at path and opens it for writing. It
// refuses to replace an existing file.
func Create(path, fileSetID string, opts ...Option) (*Writer, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create %s: %w", path, fs.ErrExist)
	}
	inst, err := uid.New()
	if err != nil {
		return nil, err
	}
	ds := dicom.NewDataset()
	if err := ds.PutString(tag.FileSetID, dicom.CS, fileSetID); err != nil {
		return nil, err
	}
	_ = ds.PutInt(tag.OffsetOfTheFirstDirectoryRecordOfTheRootDirectoryEntity, dicom.UL, 0)
	_ = ds.PutInt(tag.OffsetOfTheLastDirectoryRecordOfTheRootDirectoryEntity, dicom.UL, 0)
	_ = ds.PutInt(tag.FileSetConsistencyFlag, dicom.US, 0)
	if _, err := ds.PutSequence(tag.DirectoryRecordSequence); err != nil {
		return nil, err
	}
	f := &dicom.File{
		Meta:           dicom.NewFileMeta(uid.MediaStorageDirectoryStorage, inst, dicom.ExplicitVRLittleEndian),
		Dataset:        ds,
		TransferSyntax: dicom.ExplicitVRLittleEndian,
	}
	if err := dicom.WriteFile(path, f); err != nil {
		return nil, err
	}
	return OpenWriter(path, opts...)
}

// OpenWriter opens an existing DICOMDIR for update.
func OpenWriter(path string, opts ...Option) (*Writer, error) {
	d, err := open(path, os.O_RDWR, opts)
	if err != nil {
		return nil, err
	}
	return &Writer{Reader: d}, nil
}

func (w *Writer) beginUpdate() error {
	if w.closed {
		return ErrNotWriting
	}
	if w.updating {
		return nil
	}
	if w.seqLen != dicom.UndefinedLength && w.seqEnd != w.size {
		return fmt.Errorf("update %s: data follows the record sequence", w.path)
	}
	w.saved = savedState{
		seqEnd: w.seqEnd, size: w.size, seqLen: w.seqLen,
		firstRoot: w.firstRoot, lastRoot: w.lastRoot,
	}
	if err := w.putUint16(w.flagPos, flagInconsistent); err != nil {
		return err
	}
	w.flag = flagInconsistent
	if w.seqLen != dicom.UndefinedLength {
		// records are appended before a delimiter
		if err := w.putUint32(w.seqLenPos, dicom.UndefinedLength); err != nil {
			return err
		}
		if _, err := w.f.WriteAt(sequenceDelimiter, w.seqEnd); err != nil {
			return err
		}
		w.seqLen = dicom.UndefinedLength
		w.size = w.seqEnd + int64(len(sequenceDelimiter))
	}
	if err := w.f.Sync(); err != nil {
		return err
	}
	w.updating = true
	w.opts.log.Debug().Str("path", w.path).Msg("update started")
	return nil
}

// canonical returns the cached instance of rec, so link changes made
// through a stale copy are not lost.
func (w *Writer) canonical(rec *Record) (*Record, error) {
	return w.resolve(rec)
}

func (w *Writer) markDirty(rec *Record) {
	// records are never nil here
	_ = w.dirty.Put(rec.offset, rec)
	w.clean.Remove(rec.offset)
}

// appendRecord writes rec at the end of the record sequence, followed by
// a new sequence delimiter.
func (w *Writer) appendRecord(rec *dicom.Dataset) (*Record, error) {
	if err := w.beginUpdate(); err != nil {
		return nil, err
	}
	off := w.seqEnd
	if off > math.MaxUint32 {
		return nil, fmt.Errorf("append record: offset %d does not fit 32 bits", off)
	}
	ds := rec.Clone()
	ds.SetBigEndian(false)
	// the link attributes must come first so their positions are fixed
	for _, t := range ds.Tags() {
		if t > tag.OffsetOfReferencedLowerLevelDirectoryEntity {
			break
		}
		ds.Remove(t)
	}
	_ = ds.PutInt(tag.OffsetOfTheNextDirectoryRecord, dicom.UL, 0)
	_ = ds.PutInt(tag.RecordInUseFlag, dicom.US, recordInUse)
	_ = ds.PutInt(tag.OffsetOfReferencedLowerLevelDirectoryEntity, dicom.UL, 0)

	var buf bytes.Buffer
	dw := dicom.NewWriter(&buf, dicom.ExplicitVRLittleEndian, dicom.WithStartOffset(off), dicom.WithExplicitLengths())
	if err := dw.WriteItem(ds); err != nil {
		return nil, fmt.Errorf("append record: %w", err)
	}
	if err := dw.WriteSequenceDelimiter(); err != nil {
		return nil, err
	}
	if _, err := w.f.WriteAt(buf.Bytes(), off); err != nil {
		return nil, fmt.Errorf("append record: %w", err)
	}
	w.size = dw.Pos()
	w.seqEnd = w.size - int64(len(sequenceDelimiter))

	r := &Record{
		Dataset:  ds,
		offset:   uint32(off),
		inUse:    true,
		nextPos:  off + 16,
		flagPos:  off + 28,
		childPos: off + 38,
	}
	w.remember(r)
	w.opts.log.Debug().Uint32("offset", r.offset).Str("type", string(r.Type())).Msg("record appended")
	return r, nil
}

// AddRootRecord appends rec at the end of the top level.
func (w *Writer) AddRootRecord(rec *dicom.Dataset) (*Record, error) {
	if w.closed {
		return nil, ErrNotWriting
	}
	last, err := w.LastRootRecord()
	if err != nil {
		return nil, err
	}
	r, err := w.appendRecord(rec)
	if err != nil {
		return nil, err
	}
	if last == nil {
		w.firstRoot = r.offset
	} else {
		last.setNext(r.offset)
		w.markDirty(last)
	}
	w.lastRoot = r.offset
	return r, nil
}

// AddChildRecord appends rec at the end of parent's children.
func (w *Writer) AddChildRecord(parent *Record, rec *dicom.Dataset) (*Record, error) {
	if w.closed {
		return nil, ErrNotWriting
	}
	parent, err := w.canonical(parent)
	if err != nil {
		return nil, err
	}
	var last *Record
	if w.lastParent == parent.offset && w.lastChild != 0 {
		last, err = w.record(w.lastChild)
	} else {
		last, err = w.last(parent.child)
	}
	if err != nil {
		return nil, err
	}
	r, err := w.appendRecord(rec)
	if err != nil {
		return nil, err
	}
	if last == nil {
		parent.setChild(r.offset)
		w.markDirty(parent)
	} else {
		last.setNext(r.offset)
		w.markDirty(last)
	}
	w.lastParent, w.lastChild = parent.offset, r.offset
	return r, nil
}

// AddSiblingRecord appends rec at the end of the chain prev belongs to.
func (w *Writer) AddSiblingRecord(prev *Record, rec *dicom.Dataset) (*Record, error) {
	if w.closed {
		return nil, ErrNotWriting
	}
	prev, err := w.canonical(prev)
	if err != nil {
		return nil, err
	}
	last, err := w.last(prev.offset)
	if err != nil {
		return nil, err
	}
	r, err := w.appendRecord(rec)
	if err != nil {
		return nil, err
	}
	last.setNext(r.offset)
	w.markDirty(last)
	if last.offset == w.lastRoot {
		w.lastRoot = r.offset
	}
	if w.lastChild == last.offset {
		w.lastChild = r.offset
	} else {
		w.lastParent, w.lastChild = 0, 0
	}
	return r, nil
}

// DeleteRecord marks rec and everything below it as not in use. It
// returns the number of records that changed.
func (w *Writer) DeleteRecord(rec *Record) (int, error) {
	if err := w.beginUpdate(); err != nil {
		return 0, err
	}
	rec, err := w.canonical(rec)
	if err != nil {
		return 0, err
	}
	n := 0
	if err := w.deactivate(rec, &n); err != nil {
		return n, err
	}
	w.opts.log.Debug().Uint32("offset", rec.offset).Int("records", n).Msg("record deleted")
	return n, nil
}

func (w *Writer) deactivate(rec *Record, n *int) error {
	children, err := w.Records(rec, true)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := w.deactivate(c, n); err != nil {
			return err
		}
	}
	if rec.inUse {
		rec.setInUse(false)
		w.markDirty(rec)
		*n++
	}
	return nil
}

// Commit writes the pending link and flag changes, then clears the
// FileSetConsistencyFlag.
func (w *Writer) Commit() error {
	if w.closed {
		return ErrNotWriting
	}
	if !w.updating {
		return nil
	}
	keys := w.dirty.Keys()
	for _, off := range keys {
		rec, _ := w.dirty.Get(off)
		if err := w.putUint32(rec.nextPos, rec.next); err != nil {
			return fmt.Errorf("commit record %d: %w", off, err)
		}
		if err := w.putUint16(rec.flagPos, rec.flagValue()); err != nil {
			return fmt.Errorf("commit record %d: %w", off, err)
		}
		if err := w.putUint32(rec.childPos, rec.child); err != nil {
			return fmt.Errorf("commit record %d: %w", off, err)
		}
	}
	if err := w.putUint32(w.firstPos, w.firstRoot); err != nil {
		return err
	}
	if err := w.putUint32(w.lastPos, w.lastRoot); err != nil {
		return err
	}
	if err := w.putUint16(w.flagPos, 0); err != nil {
		return err
	}
	if err := w.f.Sync(); err != nil {
		return err
	}
	for _, off := range keys {
		rec, _ := w.dirty.Get(off)
		w.clean.Add(off, rec)
	}
	w.opts.log.Debug().Str("path", w.path).Int("records", len(keys)).Msg("update committed")
	w.dirty.Clear()
	w.flag = 0
	w.updating = false
	return nil
}

// Rollback drops every record appended since the update began and
// forgets the pending link changes.
func (w *Writer) Rollback() error {
	if w.closed {
		return ErrNotWriting
	}
	if !w.updating {
		return nil
	}
	s := w.saved
	if err := w.f.Truncate(s.seqEnd); err != nil {
		return err
	}
	if s.seqLen == dicom.UndefinedLength {
		if _, err := w.f.WriteAt(sequenceDelimiter, s.seqEnd); err != nil {
			return err
		}
	} else if err := w.putUint32(w.seqLenPos, s.seqLen); err != nil {
		return err
	}
	w.seqEnd, w.size, w.seqLen = s.seqEnd, s.size, s.seqLen
	w.firstRoot, w.lastRoot = s.firstRoot, s.lastRoot
	// held handles of surviving records get their committed links back
	for _, off := range w.dirty.Keys() {
		if int64(off) >= s.seqEnd {
			continue
		}
		rec, _ := w.dirty.Get(off)
		fresh, err := w.loadRecord(off)
		if err != nil {
			return err
		}
		*rec = *fresh
	}
	for off := range w.live {
		if int64(off) >= s.seqEnd {
			delete(w.live, off)
		}
	}
	w.dirty.Clear()
	w.clean.Purge()
	w.lastParent, w.lastChild = 0, 0
	w.index, w.indexed = nil, nil
	if err := w.putUint16(w.flagPos, 0); err != nil {
		return err
	}
	w.flag = 0
	w.updating = false
	w.opts.log.Debug().Str("path", w.path).Msg("update rolled back")
	return w.f.Sync()
}

// Purge deactivates records whose referenced file is gone and records
// left with no active file below them. Changes are pending until Commit.
func (w *Writer) Purge() (int, error) {
	if w.closed {
		return 0, ErrNotWriting
	}
	roots, err := w.Records(nil, true)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range roots {
		if _, err := w.purge(rec, &n); err != nil {
			return n, err
		}
	}
	if n > 0 {
		w.opts.log.Info().Str("path", w.path).Int("records", n).Msg("purged")
	}
	return n, nil
}

func (w *Writer) purge(rec *Record, n *int) (bool, error) {
	children, err := w.Records(rec, true)
	if err != nil {
		return false, err
	}
	active := false
	for _, c := range children {
		ok, err := w.purge(c, n)
		if err != nil {
			return false, err
		}
		active = active || ok
	}
	if ids := rec.FileID(); len(ids) > 0 && w.opts.fileExists(FromFileID(ids)) {
		active = true
	}
	if !active {
		if err := w.beginUpdate(); err != nil {
			return false, err
		}
		rec.setInUse(false)
		w.markDirty(rec)
		*n++
	}
	return active, nil
}

// Close commits pending changes and releases the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	err := w.Commit()
	w.closed = true
	if cerr := w.Reader.Close(); err == nil {
		err = cerr
	}
	return err
}

// AddInstance files the instance f, stored at fileID, below its patient,
// study and series records, creating those as needed. An instance that is
// already listed is returned unchanged.
func (w *Writer) AddInstance(f *dicom.File, fileID []string) (*Record, error) {
	if w.closed {
		return nil, ErrNotWriting
	}
	p := w.opts.profile
	inst, err := p.MakeInstanceRecord(f, fileID)
	if err != nil {
		return nil, err
	}
	ds := f.Dataset
	patient, err := w.findOrAdd(nil, tag.PatientID, ds.StringOr(tag.PatientID, ""), func() *dicom.Dataset {
		return p.MakePatientRecord(ds)
	})
	if err != nil {
		return nil, err
	}
	study, err := w.findOrAdd(patient, tag.StudyInstanceUID, ds.StringOr(tag.StudyInstanceUID, ""), func() *dicom.Dataset {
		return p.MakeStudyRecord(ds)
	})
	if err != nil {
		return nil, err
	}
	series, err := w.findOrAdd(study, tag.SeriesInstanceUID, ds.StringOr(tag.SeriesInstanceUID, ""), func() *dicom.Dataset {
		return p.MakeSeriesRecord(ds)
	})
	if err != nil {
		return nil, err
	}
	return w.findOrAdd(series, tag.ReferencedSOPInstanceUIDInFile, inst.StringOr(tag.ReferencedSOPInstanceUIDInFile, ""), func() *dicom.Dataset {
		return inst
	})
}

// findOrAdd returns the active child of parent whose idTag equals id, or
// appends the record built by build.
func (w *Writer) findOrAdd(parent *Record, idTag tag.Tag, id string, build func() *dicom.Dataset) (*Record, error) {
	var parentOff uint32
	if parent != nil {
		parentOff = parent.offset
	}
	if err := w.indexChildren(parent, idTag); err != nil {
		return nil, err
	}
	key := indexKey{parent: parentOff, id: id}
	if off, ok := w.index[key]; ok {
		rec, err := w.record(off)
		if err != nil {
			return nil, err
		}
		if rec.inUse {
			return rec, nil
		}
	}
	var (
		rec *Record
		err error
	)
	if parent == nil {
		rec, err = w.AddRootRecord(build())
	} else {
		rec, err = w.AddChildRecord(parent, build())
	}
	if err != nil {
		return nil, err
	}
	w.index[key] = rec.offset
	return rec, nil
}

func (w *Writer) indexChildren(parent *Record, idTag tag.Tag) error {
	if w.index == nil {
		w.index = make(map[indexKey]uint32)
		w.indexed = make(map[uint32]bool)
	}
	var off uint32
	if parent != nil {
		off = parent.offset
	}
	if w.indexed[off] {
		return nil
	}
	children, err := w.Records(parent, true)
	if err != nil {
		return err
	}
	for _, c := range children {
		key := indexKey{parent: off, id: c.Dataset.StringOr(idTag, "")}
		if _, dup := w.index[key]; !dup {
			w.index[key] = c.offset
		}
	}
	w.indexed[off] = true
	return nil
}

// AddFile reads the Part 10 file at path, which must lie below the
// DICOMDIR directory, and files it with AddInstance.
func (w *Writer) AddFile(path string) (*Record, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir, err := filepath.Abs(w.dir)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil {
		return nil, err
	}
	ids, err := ToFileID(rel)
	if err != nil {
		return nil, err
	}
	f, err := dicom.ReadFile(path, dicom.SkipPixelData())
	if err != nil {
		return nil, err
	}
	rec, err := w.AddInstance(f, ids)
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", path, err)
	}
	return rec, nil
}
