package forge

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
	"github.com/mrsinham/dicomkit/internal/dicom/uid"
	"github.com/mrsinham/dicomkit/internal/forge/corruption"
	"github.com/mrsinham/dicomkit/internal/forge/edgecases"
	"github.com/mrsinham/dicomkit/internal/forge/modalities"
	"github.com/mrsinham/dicomkit/internal/util"
)

type patientInfo struct {
	ID        string
	Name      string
	Sex       string
	BirthDate string
	edge      bool // drawn for edge cases
}

// staff is the study level context shared by every instance of a study.
type staff struct {
	institution util.Institution
	referring   string
	performing  string
	operator    string
	station     string
	accession   string
}

// imageTask holds everything a worker needs to write one instance. ds has
// no pixel data until the worker renders it.
type imageTask struct {
	index   int
	path    string
	label   string
	width   int
	height  int
	pixels  modalities.PixelConfig
	seed    uint64
	malform bool
	ds      *dicom.Dataset
	file    GeneratedFile
}

// planner turns options into image tasks. It owns the only random source,
// so the plan is reproducible whatever the worker count.
type planner struct {
	opts     GeneratorOptions
	seed     uint64
	rng      *rand.Rand
	gen      modalities.Generator
	edges    *edgecases.Applicator
	corrupt  *corruption.Applicator
	width    int
	height   int
	bodyPart string
	defaults staff
	log      zerolog.Logger
	tasks    []imageTask
}

// Generate writes opts.NumImages instances below opts.OutputDir as
// IMGnnnn.dcm and returns them in generation order. Use Organize to lay
// them out below a DICOMDIR.
func Generate(ctx context.Context, opts GeneratorOptions) ([]GeneratedFile, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	totalBytes, err := util.ParseSize(opts.TotalSize)
	if err != nil {
		return nil, fmt.Errorf("invalid size: %w", err)
	}
	gen := modalities.GetGenerator(opts.Modality)
	width, height, err := CalculateDimensions(totalBytes, opts.NumImages, int(gen.PixelConfig().BitsAllocated)/8)
	if err != nil {
		return nil, fmt.Errorf("calculate dimensions: %w", err)
	}
	seed, err := ResolveSeed(opts)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	if !opts.Quiet {
		fmt.Printf("Resolution: %dx%d pixels per image\n", width, height)
		if opts.Seed != 0 {
			fmt.Printf("Using seed: %d\n", opts.Seed)
		} else {
			fmt.Printf("Auto-generated seed from '%s': %d\n", opts.OutputDir, seed)
		}
	}

	p := newPlanner(opts, seed, gen, width, height)
	if err := p.plan(); err != nil {
		return nil, err
	}
	p.log.Debug().Int("images", len(p.tasks)).Int("width", width).Uint64("seed", seed).Msg("plan ready")

	if err := run(ctx, p.tasks, opts); err != nil {
		return nil, err
	}

	files := make([]GeneratedFile, len(p.tasks))
	for i := range p.tasks {
		files[i] = p.tasks[i].file
	}
	if !opts.Quiet {
		fmt.Printf("\n✓ %d DICOM files created in: %s/\n", len(files), opts.OutputDir)
	}
	return files, nil
}

func newPlanner(opts GeneratorOptions, seed uint64, gen modalities.Generator, width, height int) *planner {
	p := &planner{
		opts:   opts,
		seed:   seed,
		rng:    rand.New(rand.NewPCG(seed, seed)),
		gen:    gen,
		width:  width,
		height: height,
		log:    opts.Logger,
	}
	if opts.EdgeCases.IsEnabled() {
		p.edges = edgecases.NewApplicator(opts.EdgeCases, p.rng, opts.Now)
	}
	if opts.Corruption.IsEnabled() {
		p.corrupt = corruption.NewApplicator(opts.Corruption, p.rng)
	}
	return p
}

// makeUID derives a stable UID from the output directory, the seed and
// the position of the entity in the plan.
func (p *planner) makeUID(parts ...any) string {
	name := fmt.Sprintf("%s/%d", p.opts.OutputDir, p.seed)
	for _, part := range parts {
		name += fmt.Sprintf("/%v", part)
	}
	return uid.FromName(name)
}

func (p *planner) date(fromYear, years int) string {
	return fmt.Sprintf("%04d%02d%02d", p.rng.IntN(years)+fromYear, p.rng.IntN(12)+1, p.rng.IntN(28)+1)
}

func (p *planner) accession() string {
	return fmt.Sprintf("ACC%08d", p.rng.IntN(90000000)+10000000)
}

func (p *planner) sex() string { return []string{"M", "F"}[p.rng.IntN(2)] }

func (p *planner) patients() []patientInfo {
	o := p.opts
	out := make([]patientInfo, o.NumPatients)
	for i := range out {
		var pi patientInfo
		if i < len(o.PredefinedPatients) {
			pre := o.PredefinedPatients[i]
			pi = patientInfo{ID: pre.ID, Name: pre.Name, Sex: pre.Sex, BirthDate: pre.BirthDate}
			if pi.Sex == "" {
				pi.Sex = p.sex()
			}
			if pi.BirthDate == "" {
				pi.BirthDate = p.date(1950, 51)
			}
			if pi.ID == "" {
				pi.ID = fmt.Sprintf("PID%06d", p.rng.IntN(900000)+100000)
			}
			if pi.Name == "" {
				pi.Name = util.GeneratePatientName(pi.Sex, p.rng)
			}
			out[i] = pi
			continue
		}

		pi.Sex = p.sex()
		pi.BirthDate = p.date(1950, 51)
		pi.ID = fmt.Sprintf("PID%06d", p.rng.IntN(900000)+100000)
		pi.Name = util.GeneratePatientName(pi.Sex, p.rng)
		if p.edges != nil && p.edges.ShouldApply() {
			pi.edge = true
			pi.Name = p.edges.PatientName(pi.Sex, pi.Name)
			pi.ID = p.edges.PatientID(pi.ID)
			pi.BirthDate = p.edges.BirthDate(pi.BirthDate)
		}
		pi.ID = o.CustomTags.Or("PatientID", pi.ID)
		pi.Sex = o.CustomTags.Or("PatientSex", pi.Sex)
		pi.BirthDate = o.CustomTags.Or("PatientBirthDate", pi.BirthDate)
		pi.Name = o.CustomTags.Or("PatientName", pi.Name)
		out[i] = pi
	}
	return out
}

func (p *planner) newStaff(bodyPart string) staff {
	m := string(p.gen.Modality())
	return staff{
		institution: util.GenerateInstitution(p.rng),
		referring:   util.GeneratePhysicianName(p.rng),
		performing:  util.GeneratePhysicianName(p.rng),
		operator:    util.GeneratePhysicianName(p.rng),
		station:     util.GenerateStationName(m, bodyPart, p.rng),
		accession:   p.accession(),
	}
}

// studySlot maps a study number to its patient and, for predefined
// layouts, to the study within that patient.
type studySlot struct {
	patient int
	study   int
}

func (p *planner) studySlots() []studySlot {
	o := p.opts
	var slots []studySlot
	if len(o.PredefinedPatients) > 0 {
		for pi, pre := range o.PredefinedPatients {
			for si := range pre.Studies {
				slots = append(slots, studySlot{pi, si})
			}
		}
		return slots
	}
	per, extra := o.NumStudies/o.NumPatients, o.NumStudies%o.NumPatients
	for pi := range o.NumPatients {
		n := per
		if pi < extra {
			n++
		}
		for si := range n {
			slots = append(slots, studySlot{pi, si})
		}
	}
	return slots
}

func (p *planner) plan() error {
	o := p.opts
	modality := string(p.gen.Modality())

	p.bodyPart = o.BodyPart
	if p.bodyPart == "" {
		p.bodyPart = util.GenerateBodyPart(modality, p.rng)
	}
	if !o.VariedMetadata {
		p.defaults = p.newStaff(p.bodyPart)
		if o.Institution != "" {
			p.defaults.institution.Name = o.Institution
		}
		if o.Department != "" {
			p.defaults.institution.Department = o.Department
		}
	}

	patients := p.patients()
	slots := p.studySlots()
	if !o.Quiet {
		fmt.Printf("Generating %d DICOM files...\n", o.NumImages)
		fmt.Printf("Number of patients: %d\n", len(patients))
		counts := make(map[int]int)
		for _, s := range slots {
			counts[s.patient]++
		}
		for i, pt := range patients {
			fmt.Printf("  Patient %d: %s (ID: %s, DOB: %s, Sex: %s) - %d studies\n",
				i+1, pt.Name, pt.ID, pt.BirthDate, pt.Sex, counts[i])
		}
		fmt.Printf("Number of studies: %d\n", len(slots))
		if o.SeriesPerStudy.IsMultiSeries() {
			fmt.Printf("Series per study: %s\n", o.SeriesPerStudy)
		}
	}

	perStudy, extra := o.NumImages/len(slots), o.NumImages%len(slots)
	for i, slot := range slots {
		var pre *PredefinedStudy
		if len(o.PredefinedPatients) > 0 {
			pre = &o.PredefinedPatients[slot.patient].Studies[slot.study]
		}
		n := perStudy
		if i < extra {
			n++
		}
		if err := p.planStudy(i+1, patients[slot.patient], pre, n); err != nil {
			return fmt.Errorf("study %d: %w", i+1, err)
		}
	}
	return nil
}

func (p *planner) planStudy(studyNum int, patient patientInfo, pre *PredefinedStudy, numImages int) error {
	o := p.opts
	tags := o.CustomTags
	modality := string(p.gen.Modality())
	if pre == nil {
		pre = &PredefinedStudy{}
	}

	studyUID := p.makeUID("study", studyNum)
	frameUID := p.makeUID("study", studyNum, "frame")
	studyID := fmt.Sprintf("STD%04d", p.rng.IntN(9000)+1000)

	bodyPart := p.bodyPart
	if pre.BodyPart != "" {
		bodyPart = pre.BodyPart
	}

	description := pre.Description
	switch {
	case description != "":
	case studyNum <= len(o.StudyDescriptions):
		description = o.StudyDescriptions[studyNum-1]
	default:
		description = bodyPart + " " + modality
		if o.NumStudies > 1 {
			description = fmt.Sprintf("%s - Study %d", description, studyNum)
		}
		if patient.edge {
			description = p.edges.StudyDescription(description)
		}
		description = tags.Or("StudyDescription", description)
	}

	studyDate := p.date(2020, 5)
	if patient.edge {
		studyDate = p.edges.StudyDate(studyDate)
	}
	if pre.Date != "" {
		studyDate = pre.Date
	}
	studyTime := fmt.Sprintf("%02d%02d%02d", p.rng.IntN(24), p.rng.IntN(60), p.rng.IntN(60))

	scanners := p.gen.Scanners()
	scanner := scanners[p.rng.IntN(len(scanners))]

	st := p.defaults
	if o.VariedMetadata {
		st = p.newStaff(bodyPart)
	}
	if pre.Institution != "" {
		st.institution = util.Institution{Name: pre.Institution, Department: pre.Department}
	}
	if pre.ReferringPhysician != "" {
		st.referring = pre.ReferringPhysician
	}
	if pre.AccessionNumber != "" {
		st.accession = pre.AccessionNumber
	}
	priority := o.Priority.String()
	if pre.Priority != "" {
		priority = pre.Priority
	}

	protocol := util.GenerateProtocolName(modality, bodyPart, p.rng)
	indication := util.GenerateClinicalIndication(modality, bodyPart, p.rng)

	numSeries := len(pre.Series)
	if numSeries == 0 {
		numSeries = o.SeriesPerStudy.Count(p.rng)
	}
	numSeries = min(numSeries, numImages)
	templates := modalities.GetSeriesTemplates(p.gen.Modality(), bodyPart, numSeries, p.rng)
	base := p.gen.GenerateSeriesParams(scanner, p.rng)

	if !o.Quiet {
		fmt.Printf("\nStudy %d/%d: %d images in %d series (Patient: %s)\n", studyNum, o.NumStudies, numImages, numSeries, patient.Name)
		fmt.Printf("  StudyID: %s, Description: %s\n", studyID, description)
		fmt.Printf("  Modality: %s, Scanner: %s %s\n", modality, scanner.Manufacturer, scanner.Model)
	}

	study := studyContext{
		patient:     patient,
		uid:         studyUID,
		frameUID:    frameUID,
		id:          studyID,
		description: description,
		date:        studyDate,
		time:        studyTime,
		scanner:     scanner,
		bodyPart:    tags.Or("BodyPartExamined", bodyPart),
		priority:    tags.Or("RequestedProcedurePriority", priority),
		indication:  tags.Or("RequestedProcedureDescription", indication),
		staff: staff{
			institution: util.Institution{
				Name:       tags.Or("InstitutionName", st.institution.Name),
				Department: tags.Or("InstitutionalDepartmentName", st.institution.Department),
			},
			referring:  tags.Or("ReferringPhysicianName", st.referring),
			performing: tags.Or("PerformingPhysicianName", st.performing),
			operator:   tags.Or("OperatorsName", st.operator),
			station:    tags.Or("StationName", st.station),
			accession:  tags.Or("AccessionNumber", st.accession),
		},
		overrides: pre.CustomTags,
	}

	perSeries, extra := numImages/numSeries, numImages%numSeries
	inStudy := 1
	for s := 1; s <= numSeries; s++ {
		tmpl := templates[s-1]
		params := base
		se := seriesContext{number: s, protocol: tags.Or("ProtocolName", protocol), params: params}
		n := perSeries
		if s <= extra {
			n++
		}
		if s <= len(pre.Series) {
			ps := pre.Series[s-1]
			if ps.Description != "" {
				tmpl.SeriesDescription = ps.Description
			}
			if ps.Orientation != "" {
				tmpl.Orientation = modalities.ParseOrientation(ps.Orientation)
			}
			if ps.Protocol != "" {
				se.protocol = ps.Protocol
			}
			if ps.ImageCount > 0 {
				n = ps.ImageCount
			}
			se.overrides = ps.CustomTags
		}
		if tmpl.WindowCenter != 0 {
			se.params.WindowCenter = tmpl.WindowCenter
		}
		if tmpl.WindowWidth != 0 {
			se.params.WindowWidth = tmpl.WindowWidth
		}
		if tmpl.SequenceName != "" && se.params.Modality == modalities.MR {
			se.params.SequenceName = tmpl.SequenceName
		}
		if tmpl.SeriesDescription == "" {
			tmpl.SeriesDescription = fmt.Sprintf("Series %d - %s", s, modality)
		}
		se.template = tmpl
		se.uid = p.makeUID("study", studyNum, "series", s)
		se.description = tags.Or("SeriesDescription", tmpl.SeriesDescription)

		if !o.Quiet {
			fmt.Printf("  Series %d: %s (%d images, %s)\n", s, se.description, n, tmpl.Orientation)
		}
		for i := 1; i <= n; i++ {
			if err := p.planInstance(&study, &se, i, inStudy); err != nil {
				return fmt.Errorf("series %d, instance %d: %w", s, i, err)
			}
			inStudy++
		}
	}
	return nil
}

type studyContext struct {
	patient     patientInfo
	uid         string
	frameUID    string
	id          string
	description string
	date        string
	time        string
	scanner     modalities.Scanner
	bodyPart    string
	priority    string
	indication  string
	staff       staff
	overrides   util.ParsedTags
}

type seriesContext struct {
	number      int
	uid         string
	description string
	protocol    string
	template    modalities.SeriesTemplate
	params      modalities.SeriesParams
	overrides   util.ParsedTags
}

// texts returns every free text value of an instance, to choose its
// character set.
func (s *studyContext) texts(se *seriesContext) []string {
	return []string{
		s.patient.Name, s.patient.ID, s.description, s.bodyPart, s.indication,
		s.staff.institution.Name, s.staff.institution.Department, s.staff.referring,
		s.staff.performing, s.staff.operator, s.staff.station, s.staff.accession,
		se.description, se.protocol,
	}
}

func needsUTF8(vals []string, overrides ...util.ParsedTags) bool {
	for _, v := range vals {
		if !isASCII(v) {
			return true
		}
	}
	for _, list := range overrides {
		for _, o := range list {
			if !isASCII(o.Value) {
				return true
			}
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// builder collects the first error of a run of puts.
type builder struct {
	ds  *dicom.Dataset
	err error
}

func (b *builder) str(t tag.Tag, vr dicom.VR, vals ...string) {
	if b.err == nil {
		b.err = b.ds.PutStrings(t, vr, vals...)
	}
}

func (b *builder) ints(t tag.Tag, vr dicom.VR, vals ...int) {
	if b.err == nil {
		b.err = b.ds.PutInts(t, vr, vals...)
	}
}

func (b *builder) floats(t tag.Tag, vals ...float64) {
	if b.err == nil {
		b.err = b.ds.PutFloats(t, dicom.DS, vals...)
	}
}

// override applies NAME=VALUE pairs. Backslashes separate values.
func (b *builder) override(list util.ParsedTags) {
	for _, o := range list {
		if b.err != nil {
			return
		}
		if err := b.ds.PutStrings(o.Tag, dicom.VRUnknown, strings.Split(o.Value, `\`)...); err != nil {
			b.err = fmt.Errorf("custom tag %s: %w", o.Name, err)
		}
	}
}

func (p *planner) planInstance(st *studyContext, se *seriesContext, n, inStudy int) error {
	o := p.opts
	index := len(p.tasks) + 1
	pc := p.gen.PixelConfig()
	params := se.params
	sop := p.makeUID("study", st.uid, "series", se.number, "instance", n)

	b := &builder{ds: dicom.NewDataset()}
	if needsUTF8(st.texts(se), o.CustomTags, st.overrides, se.overrides) {
		b.str(tag.SpecificCharacterSet, dicom.CS, "ISO_IR 192")
	}
	photometric := pc.Photometric
	if photometric == "" {
		photometric = "MONOCHROME2"
	}
	imageType := []string{"ORIGINAL", "PRIMARY"}
	if params.SliceThickness > 0 {
		imageType = append(imageType, strings.ToUpper(se.template.Orientation.String()))
	}

	b.str(tag.ImageType, dicom.CS, imageType...)
	b.str(tag.SOPClassUID, dicom.UI, p.gen.SOPClassUID())
	b.str(tag.SOPInstanceUID, dicom.UI, sop)
	b.str(tag.StudyDate, dicom.DA, st.date)
	b.str(tag.SeriesDate, dicom.DA, st.date)
	b.str(tag.ContentDate, dicom.DA, st.date)
	b.str(tag.StudyTime, dicom.TM, st.time)
	b.str(tag.SeriesTime, dicom.TM, st.time)
	b.str(tag.AccessionNumber, dicom.SH, st.staff.accession)
	b.str(tag.Modality, dicom.CS, string(p.gen.Modality()))
	b.str(tag.Manufacturer, dicom.LO, o.CustomTags.Or("Manufacturer", st.scanner.Manufacturer))
	b.str(tag.ManufacturerModelName, dicom.LO, o.CustomTags.Or("ManufacturerModelName", st.scanner.Model))
	b.str(tag.InstitutionName, dicom.LO, st.staff.institution.Name)
	b.str(tag.InstitutionalDepartmentName, dicom.LO, st.staff.institution.Department)
	b.str(tag.ReferringPhysicianName, dicom.PN, st.staff.referring)
	b.str(tag.PerformingPhysicianName, dicom.PN, st.staff.performing)
	b.str(tag.OperatorsName, dicom.PN, st.staff.operator)
	b.str(tag.StationName, dicom.SH, st.staff.station)
	b.str(tag.StudyDescription, dicom.LO, st.description)
	b.str(tag.SeriesDescription, dicom.LO, se.description)
	b.str(tag.PatientName, dicom.PN, st.patient.Name)
	b.str(tag.PatientID, dicom.LO, st.patient.ID)
	b.str(tag.PatientBirthDate, dicom.DA, st.patient.BirthDate)
	b.str(tag.PatientSex, dicom.CS, st.patient.Sex)
	b.str(tag.BodyPartExamined, dicom.CS, st.bodyPart)
	b.str(tag.ProtocolName, dicom.LO, se.protocol)
	b.str(tag.StudyInstanceUID, dicom.UI, st.uid)
	b.str(tag.SeriesInstanceUID, dicom.UI, se.uid)
	b.str(tag.StudyID, dicom.SH, st.id)
	b.ints(tag.SeriesNumber, dicom.IS, se.number)
	b.ints(tag.InstanceNumber, dicom.IS, n)
	b.str(tag.RequestedProcedureDescription, dicom.LO, st.indication)
	b.str(tag.RequestedProcedurePriority, dicom.SH, st.priority)
	if se.template.HasContrast && se.template.ContrastAgent != "" {
		b.str(tag.ContrastBolusAgent, dicom.LO, se.template.ContrastAgent)
	}

	if params.SliceThickness > 0 {
		pos := []float64{-100, -100, -100}
		axis := 2
		switch se.template.Orientation {
		case modalities.OrientationSagittal:
			axis = 0
		case modalities.OrientationCoronal:
			axis = 1
		}
		pos[axis] += float64(n-1) * params.SpacingBetweenSlices
		b.floats(tag.SliceThickness, params.SliceThickness)
		b.floats(tag.SpacingBetweenSlices, params.SpacingBetweenSlices)
		b.floats(tag.ImagePositionPatient, pos...)
		b.floats(tag.ImageOrientationPatient, se.template.Orientation.ImageOrientationPatient()...)
		b.floats(tag.SliceLocation, pos[axis])
		b.str(tag.FrameOfReferenceUID, dicom.UI, st.frameUID)
	}

	b.ints(tag.SamplesPerPixel, dicom.US, 1)
	b.str(tag.PhotometricInterpretation, dicom.CS, photometric)
	b.ints(tag.Rows, dicom.US, p.height)
	b.ints(tag.Columns, dicom.US, p.width)
	b.floats(tag.PixelSpacing, params.PixelSpacing, params.PixelSpacing)
	b.ints(tag.BitsAllocated, dicom.US, int(pc.BitsAllocated))
	b.ints(tag.BitsStored, dicom.US, int(pc.BitsStored))
	b.ints(tag.HighBit, dicom.US, int(pc.HighBit))
	b.ints(tag.PixelRepresentation, dicom.US, int(pc.PixelRepresentation))
	b.floats(tag.WindowCenter, params.WindowCenter)
	b.floats(tag.WindowWidth, params.WindowWidth)
	if b.err != nil {
		return b.err
	}
	if err := p.gen.PutModalityElements(b.ds, params); err != nil {
		return fmt.Errorf("modality elements: %w", err)
	}

	b.override(o.CustomTags.Extra())
	b.override(st.overrides)
	b.override(se.overrides)
	if b.err != nil {
		return b.err
	}

	if st.patient.edge {
		if removed := p.edges.Omit(b.ds); len(removed) > 0 {
			p.log.Debug().Int("image", index).Int("omitted", len(removed)).Msg("edge case: missing tags")
		}
	}
	malform := false
	if p.corrupt != nil {
		if err := p.corrupt.Apply(b.ds); err != nil {
			return fmt.Errorf("corruption: %w", err)
		}
		malform = p.corrupt.HasMalformedLengths()
	}

	path := filepath.Join(o.OutputDir, fmt.Sprintf("IMG%04d.dcm", index))
	p.tasks = append(p.tasks, imageTask{
		index:   index,
		path:    path,
		label:   fmt.Sprintf("File %d/%d", index, o.NumImages),
		width:   p.width,
		height:  p.height,
		pixels:  pc,
		seed:    pixelSeed(p.seed, index),
		malform: malform,
		ds:      b.ds,
		file: GeneratedFile{
			Path:            path,
			PatientID:       st.patient.ID,
			PatientName:     st.patient.Name,
			StudyUID:        st.uid,
			StudyID:         st.id,
			SeriesUID:       se.uid,
			SOPInstanceUID:  sop,
			SeriesNumber:    se.number,
			InstanceNumber:  n,
			InstanceInStudy: inStudy,
		},
	})
	return nil
}

// write renders the pixels and stores the Part 10 encoding of the task.
func (t *imageTask) write(ts dicom.TransferSyntax) error {
	rng := rand.New(rand.NewPCG(t.seed, t.seed))
	vr := dicom.OW
	if t.pixels.BitsAllocated == 8 {
		vr = dicom.OB
	}
	if err := t.ds.PutBytes(tag.PixelData, vr, pixelData(t.width, t.height, t.pixels, t.label, rng)); err != nil {
		return err
	}
	data, err := dicom.NewFile(t.ds, ts).Bytes()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	t.ds = nil
	if t.malform {
		data, _ = corruption.Malform(data)
	}
	return os.WriteFile(t.path, data, 0o644)
}

type result struct {
	index int
	err   error
}

// run writes the tasks with a pool of workers. The first failure cancels
// the tasks not yet started.
func run(ctx context.Context, tasks []imageTask, opts GeneratorOptions) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(1, min(workers, len(tasks)))
	if !opts.Quiet {
		fmt.Printf("\nGenerating images with %d parallel workers...\n", workers)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskCh := make(chan *imageTask)
	resultCh := make(chan result)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				resultCh <- result{t.index, t.write(opts.TransferSyntax)}
			}
		}()
	}
	go func() {
		defer close(taskCh)
		for i := range tasks {
			select {
			case taskCh <- &tasks[i]:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var firstErr error
	completed := 0
	for r := range resultCh {
		completed++
		if r.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("generate image %d: %w", r.index, r.err)
			cancel()
		}
		if opts.ProgressCallback != nil {
			opts.ProgressCallback(completed, len(tasks))
		}
		if !opts.Quiet && (completed%10 == 0 || completed == len(tasks)) {
			fmt.Printf("  Progress: %d/%d (%.0f%%)\n", completed, len(tasks), float64(completed)/float64(len(tasks))*100)
		}
	}
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
