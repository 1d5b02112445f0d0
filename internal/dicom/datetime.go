package dicom

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateRange is an inclusive range of instants. A zero Start or End leaves
// that side open.
type DateRange struct {
	Start, End time.Time
}

// Contains reports whether t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Overlaps reports whether r and o share at least one instant.
func (r DateRange) Overlaps(o DateRange) bool {
	if !r.End.IsZero() && !o.Start.IsZero() && o.Start.After(r.End) {
		return false
	}
	if !r.Start.IsZero() && !o.End.IsZero() && o.End.Before(r.Start) {
		return false
	}
	return true
}

const (
	layoutDA = "20060102"
	layoutTM = "150405.000000"
	layoutDT = "20060102150405.000000-0700"
)

func formatDate(vr VR, t time.Time) string {
	switch vr {
	case DA:
		return t.Format(layoutDA)
	case TM:
		return t.Format(layoutTM)
	default:
		return t.Format(layoutDT)
	}
}

// parseDate parses a DA, TM or DT value. Missing trailing components are
// filled with their minimum, or their maximum when end is set, so that a
// partial value can bound a range. Values without an explicit offset are
// in UTC.
func parseDate(vr VR, s string, end bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty %s value", vr)
	}
	switch vr {
	case DA:
		s = strings.ReplaceAll(s, ".", "") // ACR-NEMA YYYY.MM.DD
		return parseDT(s, end, 8)
	case TM:
		s = strings.ReplaceAll(s, ":", "") // ACR-NEMA HH:MM:SS
		t, err := parseDT("00010101"+s, end, 10)
		if err != nil {
			return time.Time{}, err
		}
		return t, nil
	case DT:
		return parseDT(s, end, 4)
	}
	return time.Time{}, fmt.Errorf("%s is not a date VR", vr)
}

func parseDT(s string, end bool, minLen int) (time.Time, error) {
	loc := time.UTC
	if i := strings.LastIndexAny(s, "+-"); i > 0 && len(s)-i == 5 {
		off, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return time.Time{}, fmt.Errorf("parse offset %q: %w", s[i:], err)
		}
		secs := (off/100)*3600 + (off%100)*60
		if s[i] == '-' {
			secs = -secs
		}
		loc = time.FixedZone("", secs)
		s = s[:i]
	}
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		frac = s[i+1:]
		s = s[:i]
	}
	if len(s) < minLen || len(s) > 14 || len(s)%2 != 0 {
		return time.Time{}, fmt.Errorf("malformed date/time %q", s)
	}
	for _, c := range s + frac {
		if c < '0' || c > '9' {
			return time.Time{}, fmt.Errorf("malformed date/time %q", s)
		}
	}
	field := func(from, to, def int) int {
		if len(s) < to {
			return def
		}
		v, _ := strconv.Atoi(s[from:to])
		return v
	}
	year := field(0, 4, 0)
	month, day := field(4, 6, 1), field(6, 8, 1)
	hour, minute, sec := field(8, 10, 0), field(10, 12, 0), field(12, 14, 0)
	nsec := 0
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		v, _ := strconv.Atoi(frac)
		for i := len(frac); i < 9; i++ {
			v *= 10
		}
		nsec = v
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, nsec, loc)
	if !end || frac != "" {
		return t, nil
	}
	// Extend to the last instant of the least significant component given.
	switch len(s) {
	case 4:
		t = t.AddDate(1, 0, 0)
	case 6:
		t = t.AddDate(0, 1, 0)
	case 8:
		t = t.AddDate(0, 0, 1)
	case 10:
		t = t.Add(time.Hour)
	case 12:
		t = t.Add(time.Minute)
	default:
		t = t.Add(time.Second)
	}
	return t.Add(-time.Microsecond), nil
}

// parseDateRange parses "A-B", "A-", "-B" or a single value meaning the
// range covering it.
func parseDateRange(vr VR, s string) (DateRange, error) {
	s = strings.TrimSpace(s)
	sep := rangeSeparator(vr, s)
	var r DateRange
	var err error
	if sep < 0 {
		if r.Start, err = parseDate(vr, s, false); err != nil {
			return r, err
		}
		r.End, err = parseDate(vr, s, true)
		return r, err
	}
	if lo := strings.TrimSpace(s[:sep]); lo != "" {
		if r.Start, err = parseDate(vr, lo, false); err != nil {
			return r, err
		}
	}
	if hi := strings.TrimSpace(s[sep+1:]); hi != "" {
		if r.End, err = parseDate(vr, hi, true); err != nil {
			return r, err
		}
	}
	return r, nil
}

// rangeSeparator finds the range hyphen, skipping a DT offset sign.
func rangeSeparator(vr VR, s string) int {
	if vr != DT {
		return strings.IndexByte(s, '-')
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			continue
		}
		// An offset sign is preceded by at least a year and followed by
		// exactly four digits before the end or the range hyphen.
		rest := s[i+1:]
		if i >= 4 && len(rest) >= 4 && (len(rest) == 4 || rest[4] == '-') && isOffset(rest[:4]) {
			continue
		}
		return i
	}
	return -1
}

// isOffset accepts HHMM within the UTC offsets in use, which tells
// "2024-0500" (a year with an offset) apart from "2024-2025".
func isOffset(s string) bool {
	if !isDigits(s) {
		return false
	}
	hh, _ := strconv.Atoi(s[:2])
	mm, _ := strconv.Atoi(s[2:])
	return hh <= 14 && mm < 60
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func formatDateRange(vr VR, r DateRange) string {
	var lo, hi string
	if !r.Start.IsZero() {
		lo = formatDate(vr, r.Start)
	}
	if !r.End.IsZero() {
		hi = formatDate(vr, r.End)
	}
	return lo + "-" + hi
}

// combineDateTime merges the date of d with the clock of t.
func combineDateTime(d, t time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), d.Location())
}
