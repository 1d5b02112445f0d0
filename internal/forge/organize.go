package forge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mrsinham/dicomkit/internal/dicomdir"
)

// FileSetID names the file sets written by Organize.
const FileSetID = "DICOMKIT"

// Organize moves files into PTnnnnnn/STnnnnnn/SEnnnnnn/IMnnnnnn below
// outputDir and lists them in outputDir/DICOMDIR. An existing DICOMDIR is
// extended, and new patients are numbered after the existing PT folders.
// The returned files carry their new paths.
func Organize(ctx context.Context, outputDir string, files []GeneratedFile, logger zerolog.Logger) ([]GeneratedFile, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to organize")
	}
	ix, err := NewIndex(files)
	if err != nil {
		return nil, err
	}
	first, err := nextFolder(outputDir, "PT")
	if err != nil {
		return nil, err
	}

	moved := make([]GeneratedFile, 0, len(files))
	patients, err := ix.Patients()
	if err != nil {
		return nil, err
	}
	for pi, patient := range patients {
		studies, err := ix.Studies(patient)
		if err != nil {
			return nil, err
		}
		for si, study := range studies {
			series, err := ix.Series(study)
			if err != nil {
				return nil, err
			}
			for sei, se := range series {
				dir := filepath.Join(outputDir,
					fmt.Sprintf("PT%06d", first+pi), fmt.Sprintf("ST%06d", si), fmt.Sprintf("SE%06d", sei))
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create series directory: %w", err)
				}
				instances, err := ix.Instances(se)
				if err != nil {
					return nil, err
				}
				for ii, f := range instances {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					dst := filepath.Join(dir, fmt.Sprintf("IM%06d", ii+1))
					if err := os.Rename(f.Path, dst); err != nil {
						return nil, fmt.Errorf("move %s: %w", f.Path, err)
					}
					f.Path = dst
					moved = append(moved, f)
				}
			}
		}
	}
	logger.Debug().Int("patients", len(patients)).Int("files", len(moved)).Msg("files organized")

	if err := writeDICOMDIR(ctx, filepath.Join(outputDir, "DICOMDIR"), moved, logger); err != nil {
		return nil, err
	}
	return moved, nil
}

func writeDICOMDIR(ctx context.Context, path string, files []GeneratedFile, logger zerolog.Logger) (err error) {
	var w *dicomdir.Writer
	if _, statErr := os.Stat(path); statErr == nil {
		w, err = dicomdir.OpenWriter(path, dicomdir.WithLogger(logger))
	} else {
		w, err = dicomdir.Create(path, FileSetID, dicomdir.WithLogger(logger))
	}
	if err != nil {
		return fmt.Errorf("open DICOMDIR: %w", err)
	}
	defer func() {
		if err != nil {
			_ = w.Rollback()
		}
		if cerr := w.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("write DICOMDIR: %w", cerr)
		}
	}()
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.AddFile(f.Path); err != nil {
			return fmt.Errorf("add %s to DICOMDIR: %w", f.Path, err)
		}
	}
	return nil
}

// nextFolder returns one past the highest prefix+number folder in dir.
func nextFolder(dir, prefix string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	next := 0
	for _, e := range entries {
		var n int
		if !e.IsDir() {
			continue
		}
		if _, err := fmt.Sscanf(e.Name(), prefix+"%06d", &n); err == nil && len(e.Name()) == len(prefix)+6 {
			next = max(next, n+1)
		}
	}
	return next, nil
}
