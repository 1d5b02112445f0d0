// Package util holds the naming, priority, size and tag override helpers
// shared by the generator and the command line.
package util

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mrsinham/dicomkit/internal/dicom"
	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// TagScope is the hierarchy level at which an overridden value stays the
// same.
type TagScope int

const (
	ScopePatient TagScope = iota
	ScopeStudy
	ScopeSeries
	ScopeImage
)

func (s TagScope) String() string {
	switch s {
	case ScopePatient:
		return "Patient"
	case ScopeStudy:
		return "Study"
	case ScopeSeries:
		return "Series"
	case ScopeImage:
		return "Image"
	}
	return "Unknown"
}

// TagInfo names a tag and the level it belongs to.
type TagInfo struct {
	Name  string
	Tag   tag.Tag
	Scope TagScope
}

// scoped lists the attributes the generator fills itself. Any other public
// keyword is accepted at image scope.
var scoped = map[TagScope][]tag.Tag{
	ScopePatient: {tag.PatientName, tag.PatientID, tag.PatientBirthDate, tag.PatientSex},
	ScopeStudy: {
		tag.StudyDescription, tag.InstitutionName, tag.InstitutionalDepartmentName,
		tag.ReferringPhysicianName, tag.PerformingPhysicianName, tag.OperatorsName,
		tag.AccessionNumber, tag.StationName, tag.RequestedProcedurePriority,
		tag.RequestedProcedureDescription,
	},
	ScopeSeries: {
		tag.SeriesDescription, tag.ProtocolName, tag.BodyPartExamined,
		tag.SequenceName, tag.Manufacturer, tag.ManufacturerModelName,
	},
	ScopeImage: {tag.WindowCenter, tag.WindowWidth},
}

var registry = buildRegistry()

func buildRegistry() map[string]TagInfo {
	m := make(map[string]TagInfo)
	for scope, tags := range scoped {
		for _, t := range tags {
			name := dicom.DefaultDictionary.Keyword(t, "")
			m[strings.ToLower(name)] = TagInfo{Name: name, Tag: t, Scope: scope}
		}
	}
	return m
}

// GetTagByName resolves a keyword, case-insensitively, or a "(gggg,eeee)"
// tag. Unknown names fail with the closest registered keyword as a hint.
func GetTagByName(name string) (TagInfo, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if info, ok := registry[key]; ok {
		return info, nil
	}
	if key == "" {
		return TagInfo{}, fmt.Errorf("empty tag name")
	}
	if t, err := tag.Parse(key); err == nil {
		return TagInfo{Name: t.String(), Tag: t, Scope: ScopeImage}, nil
	}
	if t, ok := dicom.LookupKeyword(strings.TrimSpace(name)); ok {
		return TagInfo{Name: strings.TrimSpace(name), Tag: t, Scope: ScopeImage}, nil
	}
	if hint := closestName(key); hint != "" {
		return TagInfo{}, fmt.Errorf("unknown tag %q, did you mean %q?", name, hint)
	}
	return TagInfo{}, fmt.Errorf("unknown tag %q", name)
}

func closestName(input string) string {
	const maxDistance = 5
	best, match := maxDistance+1, ""
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if d := levenshtein(input, k); d < best {
			best, match = d, registry[k].Name
		}
	}
	return match
}

func levenshtein(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// TagOverride is one user supplied NAME=VALUE pair.
type TagOverride struct {
	TagInfo
	Value string
}

// ParsedTags holds tag overrides in the order they were given.
type ParsedTags []TagOverride

// ParseTagFlags parses NAME=VALUE arguments. A later value for the same tag
// replaces an earlier one.
func ParseTagFlags(args []string) (ParsedTags, error) {
	var out ParsedTags
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid tag override %q: want NAME=VALUE", arg)
		}
		info, err := GetTagByName(name)
		if err != nil {
			return nil, err
		}
		out = out.with(TagOverride{TagInfo: info, Value: value})
	}
	return out, nil
}

func (p ParsedTags) with(o TagOverride) ParsedTags {
	for i := range p {
		if p[i].Tag == o.Tag {
			p[i] = o
			return p
		}
	}
	return append(p, o)
}

// Get returns the override for a keyword.
func (p ParsedTags) Get(name string) (string, bool) {
	for _, o := range p {
		if strings.EqualFold(o.Name, name) {
			return o.Value, true
		}
	}
	return "", false
}

// Or returns the override for name, or def.
func (p ParsedTags) Or(name, def string) string {
	if v, ok := p.Get(name); ok {
		return v
	}
	return def
}

// Extra returns the overrides of tags the generator does not fill itself.
func (p ParsedTags) Extra() ParsedTags {
	var out ParsedTags
	for _, o := range p {
		if _, known := registry[strings.ToLower(o.Name)]; !known {
			out = append(out, o)
		}
	}
	return out
}
