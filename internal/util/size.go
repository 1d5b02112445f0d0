package util

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize reads a size such as "100MB" or "4.5GB". KB, MB and GB are
// binary multiples, as are the explicit KiB, MiB and GiB forms.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	if strings.HasPrefix(s, "-") || strings.ContainsAny(s, " \t") {
		return 0, fmt.Errorf("invalid size %q: use a form like 100MB or 4.5GB", s)
	}
	for _, unit := range []string{"KB", "MB", "GB"} {
		if strings.HasSuffix(upper, unit) {
			s = s[:len(s)-2] + unit[:1] + "iB"
			break
		}
	}
	if !strings.HasSuffix(s, "iB") {
		return 0, fmt.Errorf("invalid size %q: use a form like 100MB or 4.5GB", s)
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}

// FormatSize prints n bytes in binary units.
func FormatSize(n int64) string {
	return humanize.IBytes(uint64(max(n, 0)))
}

// SeriesRange is a fixed or ranged number of series per study.
type SeriesRange struct {
	Min, Max int
}

// ParseSeriesRange reads "3" or "2-5".
func ParseSeriesRange(s string) (SeriesRange, error) {
	lo, hi, ranged := strings.Cut(strings.TrimSpace(s), "-")
	n, err := strconv.Atoi(lo)
	if err != nil || n < 1 {
		return SeriesRange{}, fmt.Errorf("invalid series count %q", s)
	}
	r := SeriesRange{Min: n, Max: n}
	if ranged {
		if r.Max, err = strconv.Atoi(hi); err != nil || r.Max < r.Min {
			return SeriesRange{}, fmt.Errorf("invalid series range %q", s)
		}
	}
	return r, nil
}

// IsMultiSeries reports whether a study may hold more than one series.
func (r SeriesRange) IsMultiSeries() bool { return r.Max > 1 }

// Count draws a series count within the range.
func (r SeriesRange) Count(rng *rand.Rand) int {
	if r.Max <= r.Min {
		return max(r.Min, 1)
	}
	return r.Min + orDefault(rng).IntN(r.Max-r.Min+1)
}

func (r SeriesRange) String() string {
	if r.Min == r.Max {
		return strconv.Itoa(r.Min)
	}
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}
