package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/mrsinham/dicomkit/internal/forge"
	"github.com/mrsinham/dicomkit/internal/forge/corruption"
	"github.com/mrsinham/dicomkit/internal/forge/edgecases"
	"github.com/mrsinham/dicomkit/internal/forge/modalities"
)

const allEdgeCases = "special-chars,long-names,missing-tags,old-dates,varied-ids"

func runGenerate(a *app, args []string) error {
	fs, verbose := a.flagSet("generate", "--num-images N --total-size SIZE [flags]")
	numImages := fs.IntP("num-images", "n", 0, "number of images to generate")
	totalSize := fs.StringP("total-size", "s", "", "total size, e.g. 100MB or 1.5GB")
	output := fs.StringP("output", "o", "dicom_series", "output directory")
	seed := fs.Int64("seed", 0, "seed for reproducible output (derived from the output directory when 0)")
	modality := fs.StringP("modality", "m", "MR", "modality: "+modalityList())
	numStudies := fs.Int("num-studies", 1, "number of studies")
	numPatients := fs.Int("num-patients", 1, "number of patients, studies are spread over them")
	studyDescriptions := fs.StringSlice("study-descriptions", nil, "comma separated study descriptions, one per study")
	seriesPerStudy := fs.String("series-per-study", "1", "series per study, '3' or a range like '2-5'")
	workers := fs.Int("workers", 0, fmt.Sprintf("parallel workers (0 = %d CPU cores)", runtime.NumCPU()))
	institution := fs.String("institution", "", "institution name (random when empty)")
	department := fs.String("department", "", "department name (random when empty)")
	bodyPart := fs.String("body-part", "", "body part examined (random per modality when empty)")
	priority := fs.String("priority", "ROUTINE", "exam priority: ROUTINE, HIGH, LOW, MEDIUM, STAT")
	variedMetadata := fs.Bool("varied-metadata", false, "new institution and staff for every study")
	tags := fs.StringArray("tag", nil, "set a tag, 'Keyword=Value' (repeatable)")
	edgeCases := fs.Int("edge-cases", 0, "percentage of patients with edge case values (0-100)")
	edgeCaseTypes := fs.String("edge-case-types", allEdgeCases, "comma separated edge case types")
	corrupt := fs.String("corrupt", "", "vendor corruption: siemens-csa,ge-private,philips-private,malformed-lengths or all")
	syntax := fs.String("transfer-syntax", "explicit-le", "explicit-le, implicit-le or deflated")
	configFile := fs.StringP("config", "c", "", "load the job from a YAML file, flags override it")
	savePath := fs.String("save-config", "", "write the job to a YAML file after generation")
	quiet := fs.BoolP("quiet", "q", false, "print nothing but errors")
	if err := a.parse(fs, verbose, args); err != nil {
		return err
	}
	if err := wantArgs(fs, 0, 0); err != nil {
		return err
	}

	job := &jobConfig{}
	if *configFile != "" {
		var err error
		if job, err = loadConfig(*configFile); err != nil {
			return err
		}
	}
	g := &job.Global
	overrideInt(fs, "num-images", &g.TotalImages, *numImages)
	overrideString(fs, "total-size", &g.TotalSize, *totalSize)
	overrideString(fs, "output", &g.OutputDir, *output)
	if fs.Changed("seed") {
		g.Seed = *seed
	}
	overrideString(fs, "modality", &g.Modality, *modality)
	overrideInt(fs, "num-studies", &g.NumStudies, *numStudies)
	overrideInt(fs, "num-patients", &g.NumPatients, *numPatients)
	if fs.Changed("study-descriptions") {
		g.StudyDescriptions = trimAll(*studyDescriptions)
	}
	overrideString(fs, "series-per-study", &g.SeriesPerStudy, *seriesPerStudy)
	overrideInt(fs, "workers", &g.Workers, *workers)
	overrideString(fs, "institution", &g.Institution, *institution)
	overrideString(fs, "department", &g.Department, *department)
	overrideString(fs, "body-part", &g.BodyPart, *bodyPart)
	overrideString(fs, "priority", &g.Priority, *priority)
	overrideString(fs, "transfer-syntax", &g.TransferSyntax, *syntax)
	if fs.Changed("varied-metadata") {
		g.VariedMetadata = *variedMetadata
	}
	for _, t := range *tags {
		name, value, ok := strings.Cut(t, "=")
		if !ok {
			return fmt.Errorf("invalid tag %q: want Keyword=Value", t)
		}
		if g.Tags == nil {
			g.Tags = make(map[string]string)
		}
		g.Tags[name] = value
	}
	if fs.Changed("edge-cases") {
		types, err := edgecases.ParseTypes(*edgeCaseTypes)
		if err != nil {
			return err
		}
		g.EdgeCases = edgecases.Config{Percentage: *edgeCases, Types: types}
	}
	if *corrupt != "" {
		types, err := corruption.ParseTypes(*corrupt)
		if err != nil {
			return err
		}
		g.Corruption = corruption.Config{Types: types}
	}

	if len(job.Patients) == 0 {
		if g.TotalImages <= 0 {
			fs.Usage()
			return fmt.Errorf("--num-images must be > 0")
		}
		if g.NumStudies > g.TotalImages {
			return fmt.Errorf("--num-studies cannot be greater than --num-images")
		}
		if g.NumPatients > g.NumStudies {
			return fmt.Errorf("--num-patients cannot be greater than --num-studies (each patient needs at least one study)")
		}
		if n := len(g.StudyDescriptions); n > 0 && n != g.NumStudies {
			return fmt.Errorf("--study-descriptions has %d descriptions but --num-studies is %d (must match)", n, g.NumStudies)
		}
	}
	if g.TotalSize == "" {
		fs.Usage()
		return fmt.Errorf("--total-size is required")
	}
	if !modalities.IsValid(strings.ToUpper(g.Modality)) {
		return fmt.Errorf("invalid modality %q, valid options: %s", g.Modality, modalityList())
	}

	opts, err := job.options()
	if err != nil {
		return err
	}
	opts.Quiet = *quiet
	opts.Logger = a.log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*quiet {
		fmt.Fprintln(a.stdout, titleStyle.Render("dicomkit generate"))
		if *configFile != "" {
			fmt.Fprintln(a.stdout, field("Config", *configFile))
		}
		if len(opts.CustomTags) > 0 {
			fmt.Fprintln(a.stdout, field("Custom tags", fmt.Sprint(len(opts.CustomTags))))
		}
		if opts.EdgeCases.Percentage > 0 {
			fmt.Fprintln(a.stdout, field("Edge cases", fmt.Sprintf("%d%% of patients, %v", opts.EdgeCases.Percentage, opts.EdgeCases.Types)))
		}
		if len(opts.Corruption.Types) > 0 {
			fmt.Fprintln(a.stdout, field("Corruption", fmt.Sprint(opts.Corruption.Types)))
		}
		fmt.Fprintln(a.stdout)
	}

	files, err := forge.Generate(ctx, opts)
	if err != nil {
		return fmt.Errorf("generate DICOM series: %w", err)
	}
	files, err = forge.Organize(ctx, opts.OutputDir, files, a.log)
	if err != nil {
		return fmt.Errorf("create DICOMDIR: %w", err)
	}

	if *savePath != "" {
		if err := saveConfig(configFromOptions(opts), *savePath); err != nil {
			fmt.Fprintf(a.stderr, "Warning: could not save config: %v\n", err)
		} else if !*quiet {
			fmt.Fprintln(a.stdout, field("Configuration saved to", *savePath))
		}
	}

	if !*quiet {
		fmt.Fprintln(a.stdout)
		fmt.Fprintln(a.stdout, successStyle.Render("✓ Generation complete!"))
		fmt.Fprintln(a.stdout, "  "+field("Files", fmt.Sprint(len(files))))
		fmt.Fprintln(a.stdout, "  "+field("Import directory", opts.OutputDir))
		fmt.Fprintln(a.stdout, "  "+field("DICOMDIR", filepath.Join(opts.OutputDir, "DICOMDIR")))
	}
	return nil
}

// overrideString applies a flag when it was given or the config left the
// value empty.
func overrideString(fs *pflag.FlagSet, name string, dst *string, v string) {
	if fs.Changed(name) || *dst == "" {
		*dst = v
	}
}

func overrideInt(fs *pflag.FlagSet, name string, dst *int, v int) {
	if fs.Changed(name) || *dst == 0 {
		*dst = v
	}
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func modalityList() string {
	var names []string
	for _, m := range modalities.AllModalities() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}
