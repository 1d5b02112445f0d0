package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/forge"
	"github.com/mrsinham/dicomkit/internal/forge/corruption"
	"github.com/mrsinham/dicomkit/internal/forge/edgecases"
	"github.com/mrsinham/dicomkit/internal/forge/modalities"
	"github.com/mrsinham/dicomkit/internal/util"
)

// jobConfig is a generation job as stored in YAML.
type jobConfig struct {
	Global   globalConfig    `yaml:"global"`
	Patients []patientConfig `yaml:"patients,omitempty"`
}

type globalConfig struct {
	Modality          string            `yaml:"modality"`
	TotalImages       int               `yaml:"total_images,omitempty"`
	TotalSize         string            `yaml:"total_size"`
	OutputDir         string            `yaml:"output_dir"`
	Seed              int64             `yaml:"seed,omitempty"`
	NumPatients       int               `yaml:"num_patients,omitempty"`
	NumStudies        int               `yaml:"num_studies,omitempty"`
	StudyDescriptions []string          `yaml:"study_descriptions,omitempty"`
	SeriesPerStudy    string            `yaml:"series_per_study,omitempty"`
	Workers           int               `yaml:"workers,omitempty"`
	Institution       string            `yaml:"institution,omitempty"`
	Department        string            `yaml:"department,omitempty"`
	BodyPart          string            `yaml:"body_part,omitempty"`
	Priority          string            `yaml:"priority,omitempty"`
	VariedMetadata    bool              `yaml:"varied_metadata,omitempty"`
	TransferSyntax    string            `yaml:"transfer_syntax,omitempty"`
	Tags              map[string]string `yaml:"tags,omitempty"`
	EdgeCases         edgecases.Config  `yaml:"edge_cases,omitempty"`
	Corruption        corruption.Config `yaml:"corruption,omitempty"`
}

type patientConfig struct {
	Name      string        `yaml:"name,omitempty"`
	ID        string        `yaml:"id"`
	BirthDate string        `yaml:"birth_date,omitempty"`
	Sex       string        `yaml:"sex,omitempty"`
	Studies   []studyConfig `yaml:"studies"`
}

type studyConfig struct {
	Description        string            `yaml:"description,omitempty"`
	Date               string            `yaml:"date,omitempty"`
	AccessionNumber    string            `yaml:"accession_number,omitempty"`
	Institution        string            `yaml:"institution,omitempty"`
	Department         string            `yaml:"department,omitempty"`
	BodyPart           string            `yaml:"body_part,omitempty"`
	Priority           string            `yaml:"priority,omitempty"`
	ReferringPhysician string            `yaml:"referring_physician,omitempty"`
	CustomTags         map[string]string `yaml:"custom_tags,omitempty"`
	Series             []seriesConfig    `yaml:"series"`
}

type seriesConfig struct {
	Description string            `yaml:"description,omitempty"`
	Protocol    string            `yaml:"protocol,omitempty"`
	Orientation string            `yaml:"orientation,omitempty"`
	ImageCount  int               `yaml:"image_count,omitempty"`
	CustomTags  map[string]string `yaml:"custom_tags,omitempty"`
}

var syntaxNames = map[string]dicom.TransferSyntax{
	"explicit-le": dicom.ExplicitVRLittleEndian,
	"implicit-le": dicom.ImplicitVRLittleEndian,
	"deflated":    dicom.DeflatedExplicitVRLittleEndian,
}

func parseSyntax(name string) (dicom.TransferSyntax, error) {
	if name == "" {
		return dicom.ExplicitVRLittleEndian, nil
	}
	ts, ok := syntaxNames[strings.ToLower(name)]
	if !ok {
		return dicom.TransferSyntax{}, fmt.Errorf("invalid transfer syntax %q (valid: explicit-le, implicit-le, deflated)", name)
	}
	return ts, nil
}

func syntaxName(ts dicom.TransferSyntax) string {
	for name, s := range syntaxNames {
		if s.UID == ts.UID {
			return name
		}
	}
	return ""
}

func loadConfig(path string) (*jobConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c jobConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &c, nil
}

func saveConfig(c *jobConfig, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// parseTagMap turns a YAML tag map into overrides, sorted by name so that a
// job always applies them in the same order.
func parseTagMap(m map[string]string) (util.ParsedTags, error) {
	if len(m) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	args := make([]string, len(names))
	for i, name := range names {
		args[i] = name + "=" + m[name]
	}
	return util.ParseTagFlags(args)
}

func tagMap(tags util.ParsedTags) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	m := make(map[string]string, len(tags))
	for _, o := range tags {
		m[o.Name] = o.Value
	}
	return m
}

// options converts the job into generator options. An explicit patient list
// decides the image, study and patient counts.
func (c *jobConfig) options() (forge.GeneratorOptions, error) {
	g := c.Global
	opts := forge.GeneratorOptions{
		NumImages:         g.TotalImages,
		TotalSize:         g.TotalSize,
		OutputDir:         g.OutputDir,
		Seed:              g.Seed,
		NumStudies:        max(g.NumStudies, 1),
		NumPatients:       max(g.NumPatients, 1),
		Workers:           g.Workers,
		Modality:          modalities.Modality(strings.ToUpper(g.Modality)),
		StudyDescriptions: g.StudyDescriptions,
		Institution:       g.Institution,
		Department:        g.Department,
		BodyPart:          g.BodyPart,
		VariedMetadata:    g.VariedMetadata,
		EdgeCases:         g.EdgeCases,
		Corruption:        g.Corruption,
	}
	var err error
	if opts.SeriesPerStudy, err = util.ParseSeriesRange(orDefault(g.SeriesPerStudy, "1")); err != nil {
		return opts, err
	}
	if opts.Priority, err = util.ParsePriority(orDefault(g.Priority, "ROUTINE")); err != nil {
		return opts, err
	}
	if opts.TransferSyntax, err = parseSyntax(g.TransferSyntax); err != nil {
		return opts, err
	}
	if opts.CustomTags, err = parseTagMap(g.Tags); err != nil {
		return opts, err
	}

	for _, p := range c.Patients {
		patient := forge.PredefinedPatient{Name: p.Name, ID: p.ID, BirthDate: p.BirthDate, Sex: p.Sex}
		for _, st := range p.Studies {
			study := forge.PredefinedStudy{
				Description:        st.Description,
				Date:               st.Date,
				AccessionNumber:    st.AccessionNumber,
				Institution:        st.Institution,
				Department:         st.Department,
				BodyPart:           st.BodyPart,
				Priority:           st.Priority,
				ReferringPhysician: st.ReferringPhysician,
			}
			if study.CustomTags, err = parseTagMap(st.CustomTags); err != nil {
				return opts, fmt.Errorf("patient %s: %w", p.ID, err)
			}
			for _, se := range st.Series {
				series := forge.PredefinedSeries{
					Description: se.Description,
					Protocol:    se.Protocol,
					Orientation: se.Orientation,
					ImageCount:  se.ImageCount,
				}
				if series.CustomTags, err = parseTagMap(se.CustomTags); err != nil {
					return opts, fmt.Errorf("patient %s: %w", p.ID, err)
				}
				study.Series = append(study.Series, series)
			}
			patient.Studies = append(patient.Studies, study)
		}
		opts.PredefinedPatients = append(opts.PredefinedPatients, patient)
	}
	return opts, nil
}

// configFromOptions captures a job so that --save-config can replay it.
func configFromOptions(opts forge.GeneratorOptions) *jobConfig {
	c := &jobConfig{Global: globalConfig{
		Modality:          string(opts.Modality),
		TotalImages:       opts.NumImages,
		TotalSize:         opts.TotalSize,
		OutputDir:         opts.OutputDir,
		Seed:              opts.Seed,
		NumPatients:       opts.NumPatients,
		NumStudies:        opts.NumStudies,
		StudyDescriptions: opts.StudyDescriptions,
		SeriesPerStudy:    opts.SeriesPerStudy.String(),
		Workers:           opts.Workers,
		Institution:       opts.Institution,
		Department:        opts.Department,
		BodyPart:          opts.BodyPart,
		Priority:          opts.Priority.String(),
		VariedMetadata:    opts.VariedMetadata,
		TransferSyntax:    syntaxName(opts.TransferSyntax),
		Tags:              tagMap(opts.CustomTags),
		EdgeCases:         opts.EdgeCases,
		Corruption:        opts.Corruption,
	}}
	if len(opts.PredefinedPatients) > 0 {
		// counts follow from the layout
		c.Global.TotalImages, c.Global.NumPatients, c.Global.NumStudies = 0, 0, 0
	}
	for _, p := range opts.PredefinedPatients {
		patient := patientConfig{Name: p.Name, ID: p.ID, BirthDate: p.BirthDate, Sex: p.Sex}
		for _, st := range p.Studies {
			study := studyConfig{
				Description:        st.Description,
				Date:               st.Date,
				AccessionNumber:    st.AccessionNumber,
				Institution:        st.Institution,
				Department:         st.Department,
				BodyPart:           st.BodyPart,
				Priority:           st.Priority,
				ReferringPhysician: st.ReferringPhysician,
				CustomTags:         tagMap(st.CustomTags),
			}
			for _, se := range st.Series {
				study.Series = append(study.Series, seriesConfig{
					Description: se.Description,
					Protocol:    se.Protocol,
					Orientation: se.Orientation,
					ImageCount:  se.ImageCount,
					CustomTags:  tagMap(se.CustomTags),
				})
			}
			patient.Studies = append(patient.Studies, study)
		}
		c.Patients = append(c.Patients, patient)
	}
	return c
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
