package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
	"github.com/mrsinham/dicomkit/internal/dicomdir"
	"github.com/mrsinham/dicomkit/internal/util"
)

func runDir(a *app, args []string) error {
	subs := map[string]func(*app, []string) error{
		"ls":    runDirList,
		"add":   runDirAdd,
		"rm":    runDirRemove,
		"purge": runDirPurge,
		"find":  runDirFind,
	}
	if len(args) == 0 {
		return errors.New("dir: missing subcommand (ls, add, rm, purge, find)")
	}
	run, ok := subs[args[0]]
	if !ok {
		return fmt.Errorf("dir: unknown subcommand %q (ls, add, rm, purge, find)", args[0])
	}
	return run(a, args[1:])
}

func runDirList(a *app, args []string) error {
	fs, verbose := a.flagSet("dir ls", "[flags] DICOMDIR")
	all := fs.BoolP("all", "a", false, "include records that are no longer in use")
	depth := fs.IntP("depth", "d", 4, "number of levels to print")
	if err := a.parse(fs, verbose, args); err != nil {
		return err
	}
	if err := wantArgs(fs, 1, 1); err != nil {
		return err
	}
	r, err := dicomdir.Open(fs.Arg(0), dicomdir.WithLogger(a.log))
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Fprintln(a.stdout, titleStyle.Render(r.Path()))
	fmt.Fprintln(a.stdout, field("File-set ID", r.FileSetID()))
	if !r.Consistent() {
		fmt.Fprintln(a.stdout, field("Warning", "an update was interrupted, run 'dir add' or 'dir purge' to repair"))
	}
	n := 0
	var walk func(parent *dicomdir.Record, prefix string, level int) error
	walk = func(parent *dicomdir.Record, prefix string, level int) error {
		if level >= *depth {
			return nil
		}
		recs, err := r.Records(parent, !*all)
		if err != nil {
			return err
		}
		for i, rec := range recs {
			n++
			branch, next := "├── ", "│   "
			if i == len(recs)-1 {
				branch, next = "└── ", "    "
			}
			line := describe(rec)
			if rec.InUse() {
				line = folderStyle.Render(string(rec.Type())) + " " + nameStyle.Render(line)
			} else {
				line = inactiveStyle.Render(string(rec.Type()) + " " + line)
			}
			fmt.Fprintln(a.stdout, treeStyle.Render(prefix+branch)+line)
			if err := walk(rec, prefix+next, level+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(nil, "", 0); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, field("Records", fmt.Sprint(n)))
	return nil
}

// describe summarizes a record by the keys of its level.
func describe(rec *dicomdir.Record) string {
	ds := rec.Dataset
	var parts []string
	add := func(t tag.Tag) {
		if v, ok := ds.String(t); ok && v != "" {
			parts = append(parts, v)
		}
	}
	switch rec.Type() {
	case dicomdir.Patient:
		add(tag.PatientID)
		add(tag.PatientName)
	case dicomdir.Study:
		add(tag.StudyDate)
		add(tag.StudyID)
		add(tag.StudyDescription)
	case dicomdir.Series:
		add(tag.Modality)
		if n, ok := ds.Int(tag.SeriesNumber); ok {
			parts = append(parts, fmt.Sprintf("#%d", n))
		}
		add(tag.SeriesDescription)
	default:
		if n, ok := ds.Int(tag.InstanceNumber); ok {
			parts = append(parts, fmt.Sprintf("#%d", n))
		}
	}
	if ids := rec.FileID(); len(ids) > 0 {
		parts = append(parts, strings.Join(ids, "/"))
	}
	return strings.Join(parts, " ")
}

func runDirAdd(a *app, args []string) error {
	fs, verbose := a.flagSet("dir add", "[flags] DICOMDIR FILE|DIR...")
	fileSetID := fs.String("fileset-id", "", "file-set ID when the DICOMDIR is created")
	if err := a.parse(fs, verbose, args); err != nil {
		return err
	}
	if err := wantArgs(fs, 2, -1); err != nil {
		return err
	}
	path := fs.Arg(0)
	w, err := openOrCreate(path, *fileSetID, a)
	if err != nil {
		return err
	}

	added, skipped := 0, 0
	err = func() error {
		for _, arg := range fs.Args()[1:] {
			info, err := os.Stat(arg)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				if _, err := w.AddFile(arg); err != nil {
					return err
				}
				added++
				continue
			}
			// files found below a directory that do not parse are skipped
			err = filepath.WalkDir(arg, func(p string, d os.DirEntry, err error) error {
				if err != nil || d.IsDir() || strings.EqualFold(d.Name(), "DICOMDIR") {
					return err
				}
				if _, err := w.AddFile(p); err != nil {
					var de *dicom.DecodeError
					if errors.As(err, &de) || errors.Is(err, dicom.ErrNoPreamble) {
						a.log.Warn().Str("path", p).Err(err).Msg("skipped")
						skipped++
						return nil
					}
					return err
				}
				added++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}()
	if err != nil {
		_ = w.Rollback()
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write DICOMDIR: %w", err)
	}
	fmt.Fprintln(a.stdout, field("Added", fmt.Sprint(added)))
	if skipped > 0 {
		fmt.Fprintln(a.stdout, field("Skipped", fmt.Sprint(skipped)))
	}
	return nil
}

func openOrCreate(path, fileSetID string, a *app) (*dicomdir.Writer, error) {
	if _, err := os.Stat(path); err == nil {
		return dicomdir.OpenWriter(path, dicomdir.WithLogger(a.log))
	}
	return dicomdir.Create(path, fileSetID, dicomdir.WithLogger(a.log))
}

func runDirRemove(a *app, args []string) error {
	fs, verbose := a.flagSet("dir rm", "--patient-id ID [--study-uid UID [--series-uid UID]] DICOMDIR")
	patientID := fs.String("patient-id", "", "patient to remove, or to look in")
	studyUID := fs.String("study-uid", "", "only remove this study")
	seriesUID := fs.String("series-uid", "", "only remove this series of the study")
	if err := a.parse(fs, verbose, args); err != nil {
		return err
	}
	if err := wantArgs(fs, 1, 1); err != nil {
		return err
	}
	if *patientID == "" {
		return errors.New("dir rm: --patient-id is required")
	}
	if *seriesUID != "" && *studyUID == "" {
		return errors.New("dir rm: --series-uid needs --study-uid")
	}

	w, err := dicomdir.OpenWriter(fs.Arg(0), dicomdir.WithLogger(a.log))
	if err != nil {
		return err
	}
	rec, err := w.FindFirstMatchingRootRecord(keyDataset(tag.PatientID, *patientID), false)
	if err == nil && rec != nil && *studyUID != "" {
		rec, err = w.FindFirstMatchingChildRecord(rec, keyDataset(tag.StudyInstanceUID, *studyUID), false)
	}
	if err == nil && rec != nil && *seriesUID != "" {
		rec, err = w.FindFirstMatchingChildRecord(rec, keyDataset(tag.SeriesInstanceUID, *seriesUID), false)
	}
	if err != nil {
		_ = w.Close()
		return err
	}
	if rec == nil {
		_ = w.Close()
		return errors.New("dir rm: no matching record")
	}
	n, err := w.DeleteRecord(rec)
	if err != nil {
		_ = w.Rollback()
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write DICOMDIR: %w", err)
	}
	fmt.Fprintln(a.stdout, field("Removed records", fmt.Sprint(n)))
	return nil
}

func keyDataset(t tag.Tag, v string) *dicom.Dataset {
	ds := dicom.NewDataset()
	_ = ds.PutString(t, dicom.VRUnknown, v)
	return ds
}

func runDirPurge(a *app, args []string) error {
	fs, verbose := a.flagSet("dir purge", "DICOMDIR")
	if err := a.parse(fs, verbose, args); err != nil {
		return err
	}
	if err := wantArgs(fs, 1, 1); err != nil {
		return err
	}
	w, err := dicomdir.OpenWriter(fs.Arg(0), dicomdir.WithLogger(a.log))
	if err != nil {
		return err
	}
	n, err := w.Purge()
	if err != nil {
		_ = w.Rollback()
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write DICOMDIR: %w", err)
	}
	fmt.Fprintln(a.stdout, field("Purged records", fmt.Sprint(n)))
	return nil
}

var levels = []dicomdir.RecordType{dicomdir.Patient, dicomdir.Study, dicomdir.Series, dicomdir.Image}

func runDirFind(a *app, args []string) error {
	fs, verbose := a.flagSet("dir find", "[flags] DICOMDIR KEY=VALUE...")
	level := fs.StringP("level", "l", "image", "level to report: patient, study, series or image")
	ignoreCase := fs.BoolP("ignore-case", "i", false, "match person names case-insensitively")
	if err := a.parse(fs, verbose, args); err != nil {
		return err
	}
	if err := wantArgs(fs, 1, -1); err != nil {
		return err
	}
	target := -1
	for i, l := range levels {
		if strings.EqualFold(string(l), *level) {
			target = i
		}
	}
	if target < 0 {
		return fmt.Errorf("dir find: invalid level %q", *level)
	}

	keys := dicom.NewDataset()
	for _, kv := range fs.Args()[1:] {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("dir find: invalid key %q: want Keyword=Value", kv)
		}
		info, err := util.GetTagByName(name)
		if err != nil {
			return err
		}
		if err := keys.PutString(info.Tag, dicom.VRUnknown, value); err != nil {
			return fmt.Errorf("dir find: key %s: %w", name, err)
		}
	}

	r, err := dicomdir.Open(fs.Arg(0), dicomdir.WithLogger(a.log))
	if err != nil {
		return err
	}
	defer r.Close()

	found := 0
	// records lacking a key attribute match it, so keys of deeper levels
	// pass through the levels above them
	var visit func(parent *dicomdir.Record, depth int, path []string) error
	visit = func(parent *dicomdir.Record, depth int, path []string) error {
		var (
			rec *dicomdir.Record
			err error
		)
		if parent == nil {
			rec, err = r.FindFirstMatchingRootRecord(keys, *ignoreCase)
		} else {
			rec, err = r.FindFirstMatchingChildRecord(parent, keys, *ignoreCase)
		}
		for ; err == nil && rec != nil; rec, err = r.FindNextMatchingSiblingRecord(rec, keys, *ignoreCase) {
			p := append(path[:len(path):len(path)], describe(rec))
			if depth == target {
				found++
				fmt.Fprintln(a.stdout, nameStyle.Render(strings.Join(p, treeStyle.Render(" > "))))
				continue
			}
			if err := visit(rec, depth+1, p); err != nil {
				return err
			}
		}
		return err
	}
	if err := visit(nil, 0, nil); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, field("Matches", fmt.Sprint(found)))
	return nil
}
