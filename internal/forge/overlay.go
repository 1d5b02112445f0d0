package forge

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// textMask renders text centered on a width x height mask, scaled to about
// 30% of the width and never less than twice the base font size. The
// second mask is the text grown by an outline margin.
func textMask(text string, width, height int) (glyphs, outline *image.Alpha) {
	face := basicfont.Face7x13
	baseW := font.MeasureString(face, text).Ceil()
	baseH := face.Metrics().Height.Ceil()
	glyphs = image.NewAlpha(image.Rect(0, 0, width, height))
	outline = image.NewAlpha(glyphs.Rect)
	if baseW == 0 || width == 0 || height == 0 {
		return glyphs, outline
	}

	base := image.NewAlpha(image.Rect(0, 0, baseW, baseH))
	d := &font.Drawer{
		Dst:  base,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.Point26_6{Y: face.Metrics().Ascent},
	}
	d.DrawString(text)

	scale := max(2, 0.3*float64(width)/float64(baseW))
	sw, sh := int(float64(baseW)*scale), int(float64(baseH)*scale)
	x0, y0 := (width-sw)/2, (height-sh)/2
	draw.BiLinear.Scale(glyphs, image.Rect(x0, y0, x0+sw, y0+sh), base, base.Bounds(), draw.Src, nil)

	dilate(glyphs, outline, max(3, sh/10))
	return glyphs, outline
}

// dilate sets every dst pixel within r (square distance) of an opaque src
// pixel, as one horizontal and one vertical pass.
func dilate(src, dst *image.Alpha, r int) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	tmp := make([]bool, w*h)
	for y := range h {
		row := src.Pix[y*src.Stride:]
		last := -r - 1
		for x := range w {
			if row[x] >= 0x80 {
				last = x
			}
			if x-last <= r {
				tmp[y*w+x] = true
			}
		}
		last = w + r + 1
		for x := w - 1; x >= 0; x-- {
			if row[x] >= 0x80 {
				last = x
			}
			if last-x <= r {
				tmp[y*w+x] = true
			}
		}
	}
	for x := range w {
		last := -r - 1
		for y := range h {
			if tmp[y*w+x] {
				last = y
			}
			if y-last <= r {
				dst.Pix[y*dst.Stride+x] = 0xff
			}
		}
		last = h + r + 1
		for y := h - 1; y >= 0; y-- {
			if tmp[y*w+x] {
				last = y
			}
			if last-y <= r {
				dst.Pix[y*dst.Stride+x] = 0xff
			}
		}
	}
}

// burnText draws text into a frame of samples: fg for glyphs, bg for the
// outline around them.
func burnText[T uint8 | uint16](pix []T, width, height int, text string, fg, bg T) {
	glyphs, outline := textMask(text, width, height)
	for y := range height {
		for x := range width {
			i := y*width + x
			switch {
			case glyphs.Pix[y*glyphs.Stride+x] >= 0x80:
				pix[i] = fg
			case outline.Pix[y*outline.Stride+x] != 0:
				pix[i] = bg
			}
		}
	}
}
