// Package corruption adds the vendor private blocks and malformed element
// lengths found in real scanner output, to exercise tolerant readers.
package corruption

import (
	"fmt"
	"slices"
	"strings"
)

// Type is a category of corruption.
type Type string

const (
	SiemensCSA       Type = "siemens-csa"
	GEPrivate        Type = "ge-private"
	PhilipsPrivate   Type = "philips-private"
	MalformedLengths Type = "malformed-lengths"
)

// AllTypes returns every corruption type.
func AllTypes() []Type {
	return []Type{SiemensCSA, GEPrivate, PhilipsPrivate, MalformedLengths}
}

// Config lists the enabled corruption types.
type Config struct {
	Types []Type `yaml:"types"`
}

// ParseTypes reads a comma separated list. "all" enables every type.
func ParseTypes(s string) ([]Type, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []Type
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "all" {
			return AllTypes(), nil
		}
		t := Type(part)
		if !slices.Contains(AllTypes(), t) {
			return nil, fmt.Errorf("unknown corruption type %q, valid types: %v (or 'all')", part, AllTypes())
		}
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c Config) Validate() error {
	for _, t := range c.Types {
		if !slices.Contains(AllTypes(), t) {
			return fmt.Errorf("unknown corruption type %q", t)
		}
	}
	return nil
}

func (c Config) IsEnabled() bool { return len(c.Types) > 0 }

func (c Config) HasType(t Type) bool { return slices.Contains(c.Types, t) }
