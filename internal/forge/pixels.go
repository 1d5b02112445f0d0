package forge

import (
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/mrsinham/dicomkit/internal/forge/modalities"
)

// synthesize fills a frame with a bright center fading outward plus three
// octaves of noise, clamped to the stored bit range.
func synthesize[T uint8 | uint16](width, height int, cfg modalities.PixelConfig, rng *rand.Rand) []T {
	pix := make([]T, width*height)
	span := float64(cfg.MaxValue - cfg.MinValue)
	base := float64(cfg.BaseValue)
	top := float64(int(1)<<cfg.BitsStored - 1)
	cx, cy := float64(width)/2, float64(height)/2
	maxDist := math.Hypot(cx, cy)

	for y := range height {
		for x := range width {
			d := math.Hypot(float64(x)-cx, float64(y)-cy) / maxDist
			v := base + (1-d)*span*0.3
			v += (rng.Float64() - 0.5) * span * 0.3
			v += (rng.Float64() - 0.5) * span * 0.15
			v += (rng.Float64() - 0.5) * span * 0.075
			pix[y*width+x] = T(math.Max(0, math.Min(top, v)))
		}
	}
	return pix
}

// pixelData renders one frame with its "File X/Y" label and returns the
// little endian sample bytes. MONOCHROME1 frames get a dark label.
func pixelData(width, height int, cfg modalities.PixelConfig, label string, rng *rand.Rand) []byte {
	invert := cfg.Photometric == "MONOCHROME1"
	if cfg.BitsAllocated == 8 {
		pix := synthesize[uint8](width, height, cfg, rng)
		fg, bg := uint8(math.MaxUint8), uint8(0)
		if invert {
			fg, bg = bg, fg
		}
		burnText(pix, width, height, label, fg, bg)
		return pix
	}

	pix := synthesize[uint16](width, height, cfg, rng)
	// signed samples keep the label inside the positive range
	fg, bg := uint16(min(1<<cfg.BitsStored-1, cfg.MaxValue-cfg.MinValue)), uint16(0)
	if invert {
		fg, bg = bg, fg
	}
	burnText(pix, width, height, label, fg, bg)
	out := make([]byte, 2*len(pix))
	for i, v := range pix {
		binary.LittleEndian.PutUint16(out[2*i:], v)
	}
	return out
}
