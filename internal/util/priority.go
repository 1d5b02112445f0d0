package util

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Priority is a RequestedProcedurePriority value.
type Priority int

const (
	PriorityRoutine Priority = iota
	PriorityHigh
	PriorityLow
	PriorityMedium
	PriorityStat
)

var priorityNames = [...]string{"ROUTINE", "HIGH", "LOW", "MEDIUM", "STAT"}

func (p Priority) String() string {
	if p < 0 || int(p) >= len(priorityNames) {
		return priorityNames[PriorityRoutine]
	}
	return priorityNames[p]
}

// ParsePriority reads a priority name, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	for i, name := range priorityNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Priority(i), nil
		}
	}
	return PriorityRoutine, fmt.Errorf("invalid priority: %s (valid: %s)", s, strings.Join(priorityNames[:], ", "))
}

// GeneratePriority draws ROUTINE 70%, HIGH 20% and LOW 10% of the time.
func GeneratePriority(rng *rand.Rand) Priority {
	switch r := orDefault(rng).Float64(); {
	case r < 0.70:
		return PriorityRoutine
	case r < 0.90:
		return PriorityHigh
	}
	return PriorityLow
}
