// Package edgecases produces attribute values that stress DICOM consumers:
// non-ASCII and maximum length names, odd patient IDs, partial and
// implausible dates, and missing optional attributes.
package edgecases

import (
	"fmt"
	"slices"
	"strings"
)

// Type is a category of edge case.
type Type string

const (
	SpecialChars Type = "special-chars"
	LongNames    Type = "long-names"
	MissingTags  Type = "missing-tags"
	OldDates     Type = "old-dates"
	VariedIDs    Type = "varied-ids"
)

// AllTypes returns every edge case type.
func AllTypes() []Type {
	return []Type{SpecialChars, LongNames, MissingTags, OldDates, VariedIDs}
}

// Config selects which edge cases apply and to what share of patients.
type Config struct {
	Percentage int    `yaml:"percentage"`
	Types      []Type `yaml:"types"`
}

// ParseTypes reads a comma separated list of types. "all" selects every
// type.
func ParseTypes(s string) ([]Type, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return AllTypes(), nil
	}
	var out []Type
	for _, part := range strings.Split(s, ",") {
		t := Type(strings.TrimSpace(part))
		if !slices.Contains(AllTypes(), t) {
			return nil, fmt.Errorf("unknown edge case type %q, valid types: %v", part, AllTypes())
		}
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c Config) Validate() error {
	if c.Percentage < 0 || c.Percentage > 100 {
		return fmt.Errorf("edge-cases percentage must be 0-100, got %d", c.Percentage)
	}
	if c.Percentage > 0 && len(c.Types) == 0 {
		return fmt.Errorf("edge-cases enabled but no types specified")
	}
	return nil
}

func (c Config) IsEnabled() bool { return c.Percentage > 0 && len(c.Types) > 0 }

func (c Config) HasType(t Type) bool { return slices.Contains(c.Types, t) }
