package dicom

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

// timeOfDate maps a TM tag back to the DA tag it is matched with.
var timeOfDate = func() map[tag.Tag]tag.Tag {
	m := make(map[tag.Tag]tag.Tag, len(tag.DateTimePairs))
	for d, t := range tag.DateTimePairs {
		m[t] = d
	}
	return m
}()

// Matches applies query matching of keys against ds. Empty keys match
// anything, and so does a key whose attribute ds lacks. Text keys may use
// the * and ? wildcards; date and time keys are ranges; a date key and its
// paired time key form one date-time range; a sequence key matches when
// any local item matches its first item.
func (ds *Dataset) Matches(keys *Dataset, ignoreCasePN bool) bool {
	if keys == nil {
		return true
	}
	kcs := keys.CharacterSet()
	for ke := range keys.All() {
		t := ke.tag
		if ke.IsEmpty() || t == tag.SpecificCharacterSet {
			continue
		}
		var ok bool
		switch {
		case ke.vr == SQ:
			ok = ds.matchItems(t, ke.Item(0), ignoreCasePN)
		case ke.vr.info().class == classDate:
			if d, paired := timeOfDate[t]; paired && keys.ContainsValue(d) {
				continue // evaluated with its date
			}
			if tt, paired := tag.DateTimePairs[t]; paired && keys.ContainsValue(tt) {
				ok = ds.matchDateTime(t, tt, ke, keys.Get(tt))
			} else {
				ok = ds.matchDate(t, ke)
			}
		default:
			ok = ds.matchValues(ke, kcs, ignoreCasePN)
		}
		if !ok {
			return false
		}
	}
	return true
}

func (ds *Dataset) matchValues(ke *Element, kcs *CharacterSet, ignoreCasePN bool) bool {
	local, src := ds.lookup(ke.tag)
	if local == nil || local.IsEmpty() {
		return true
	}
	if ke.vr.info().class == classBytes || local.vr.info().class == classBytes {
		return bytes.Equal(ke.value, local.value)
	}
	patterns, err := ke.Strings(kcs)
	if err != nil {
		return false
	}
	vals, err := local.Strings(src.CharacterSet())
	if err != nil {
		return false
	}
	fold := ignoreCasePN && ke.vr == PN
	wild := ke.vr != UI
	for _, p := range patterns {
		if fold {
			p = strings.ToUpper(p)
		}
		for _, v := range vals {
			if fold {
				v = strings.ToUpper(v)
			}
			if p == v || (wild && matchWildcard(p, v)) {
				return true
			}
		}
	}
	return false
}

func (ds *Dataset) matchDate(t tag.Tag, ke *Element) bool {
	local := ds.Get(t)
	if local == nil || local.IsEmpty() {
		return true
	}
	r, err := ke.DateRange()
	if err != nil {
		return false
	}
	starts, err := local.Dates(false)
	if err != nil {
		return false
	}
	ends, err := local.Dates(true)
	if err != nil {
		return false
	}
	for i := range starts {
		if r.Overlaps(DateRange{Start: starts[i], End: ends[i]}) {
			return true
		}
	}
	return false
}

// matchDateTime evaluates a date key and its time key as one range over
// the combined local date and time.
func (ds *Dataset) matchDateTime(dt, tt tag.Tag, kd, kt *Element) bool {
	local := ds.Get(dt)
	if local == nil || local.IsEmpty() {
		return true
	}
	dr, err := kd.DateRange()
	if err != nil {
		return false
	}
	tr, err := kt.DateRange()
	if err != nil {
		return false
	}
	var key DateRange
	if !dr.Start.IsZero() {
		key.Start = dr.Start
		if !tr.Start.IsZero() {
			key.Start = combineDateTime(dr.Start, tr.Start)
		}
	}
	if !dr.End.IsZero() {
		key.End = dr.End
		if !tr.End.IsZero() {
			key.End = combineDateTime(dr.End, tr.End)
		}
	}
	day, err := local.Date(false)
	if err != nil {
		return false
	}
	dayEnd, _ := local.Date(true)
	if lt := ds.Get(tt); lt != nil && !lt.IsEmpty() {
		from, err := lt.Date(false)
		if err != nil {
			return false
		}
		to, _ := lt.Date(true)
		return key.Overlaps(DateRange{Start: combineDateTime(day, from), End: combineDateTime(day, to)})
	}
	return key.Overlaps(DateRange{Start: day, End: dayEnd})
}

func (ds *Dataset) matchItems(t tag.Tag, key *Dataset, ignoreCasePN bool) bool {
	if key == nil || key.IsEmpty() {
		return true
	}
	local := ds.Get(t)
	if local == nil || local.IsEmpty() || !local.HasDatasets() {
		return true
	}
	for _, item := range local.items {
		if item.Matches(key, ignoreCasePN) {
			return true
		}
	}
	return false
}

// matchWildcard reports whether s matches pattern, where * matches any run
// of characters and ? exactly one.
func matchWildcard(pattern, s string) bool {
	p, v := 0, 0
	star, mark := -1, 0
	for v < len(s) {
		if p < len(pattern) {
			switch pattern[p] {
			case '*':
				star, mark = p, v
				p++
				continue
			case '?':
				_, n := utf8.DecodeRuneInString(s[v:])
				p++
				v += n
				continue
			default:
				pr, pn := utf8.DecodeRuneInString(pattern[p:])
				sr, sn := utf8.DecodeRuneInString(s[v:])
				if pr == sr {
					p += pn
					v += sn
					continue
				}
			}
		}
		if star < 0 {
			return false
		}
		_, n := utf8.DecodeRuneInString(s[mark:])
		mark += n
		p, v = star+1, mark
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
