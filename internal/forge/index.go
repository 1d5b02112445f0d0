package forge

import (
	"fmt"

	"github.com/hashicorp/go-memdb"
)

const filesTable = "file"

// indexedFile is a GeneratedFile with its generation order as a sortable
// key. Non-unique lookups come back ordered by that key.
type indexedFile struct {
	Order string
	GeneratedFile
}

var indexSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		filesTable: {
			Name: filesTable,
			Indexes: map[string]*memdb.IndexSchema{
				"id":      {Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Order"}},
				"sop":     {Name: "sop", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "SOPInstanceUID"}},
				"patient": {Name: "patient", Indexer: &memdb.StringFieldIndex{Field: "PatientID"}},
				"study":   {Name: "study", Indexer: &memdb.StringFieldIndex{Field: "StudyUID"}},
				"series":  {Name: "series", Indexer: &memdb.StringFieldIndex{Field: "SeriesUID"}},
			},
		},
	},
}

// Index groups generated files by patient, study and series, each level in
// order of first appearance.
type Index struct {
	db *memdb.MemDB
	n  int
}

// NewIndex indexes files. Two files with the same SOP instance UID are an
// error.
func NewIndex(files []GeneratedFile) (*Index, error) {
	db, err := memdb.NewMemDB(indexSchema)
	if err != nil {
		return nil, err
	}
	txn := db.Txn(true)
	defer txn.Abort()
	for i, f := range files {
		if existing, _ := txn.First(filesTable, "sop", f.SOPInstanceUID); existing != nil {
			return nil, fmt.Errorf("duplicate instance %s: %s and %s", f.SOPInstanceUID, existing.(*indexedFile).Path, f.Path)
		}
		if err := txn.Insert(filesTable, &indexedFile{Order: fmt.Sprintf("%010d", i), GeneratedFile: f}); err != nil {
			return nil, fmt.Errorf("index %s: %w", f.Path, err)
		}
	}
	txn.Commit()
	return &Index{db: db, n: len(files)}, nil
}

// Len returns the number of indexed files.
func (ix *Index) Len() int { return ix.n }

// Lookup finds a file by SOP instance UID.
func (ix *Index) Lookup(sopInstanceUID string) (GeneratedFile, bool) {
	raw, err := ix.db.Txn(false).First(filesTable, "sop", sopInstanceUID)
	if err != nil || raw == nil {
		return GeneratedFile{}, false
	}
	return raw.(*indexedFile).GeneratedFile, true
}

// collect walks index, optionally restricted to one value, and returns
// the distinct keys in order together with the matching files.
func (ix *Index) collect(index string, key func(GeneratedFile) string, args ...any) ([]string, []GeneratedFile, error) {
	it, err := ix.db.Txn(false).Get(filesTable, index, args...)
	if err != nil {
		return nil, nil, err
	}
	var (
		keys  []string
		files []GeneratedFile
		seen  = make(map[string]bool)
	)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		f := raw.(*indexedFile).GeneratedFile
		files = append(files, f)
		if k := key(f); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys, files, nil
}

// Patients returns the patient IDs.
func (ix *Index) Patients() ([]string, error) {
	keys, _, err := ix.collect("id", func(f GeneratedFile) string { return f.PatientID })
	return keys, err
}

// Studies returns the study instance UIDs of a patient.
func (ix *Index) Studies(patientID string) ([]string, error) {
	keys, _, err := ix.collect("patient", func(f GeneratedFile) string { return f.StudyUID }, patientID)
	return keys, err
}

// Series returns the series instance UIDs of a study.
func (ix *Index) Series(studyUID string) ([]string, error) {
	keys, _, err := ix.collect("study", func(f GeneratedFile) string { return f.SeriesUID }, studyUID)
	return keys, err
}

// Instances returns the files of a series.
func (ix *Index) Instances(seriesUID string) ([]GeneratedFile, error) {
	_, files, err := ix.collect("series", func(f GeneratedFile) string { return f.SOPInstanceUID }, seriesUID)
	return files, err
}
