package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	blurSigma        = 1.0
	contrastFactor   = 2.0
	sharpenSigma     = 1.0
	brightnessFactor = 1.5
)

// Enhance prepares a page image for recognition: grayscale, light gaussian
// blur against scanner noise, then stronger contrast, sharper edges and a
// brighter background.
func Enhance(img image.Image) *image.NRGBA {
	out := imaging.Grayscale(img)
	out = imaging.Blur(out, blurSigma)
	out = imaging.AdjustContrast(out, (contrastFactor-1)*100)
	// unsharp masking adds (img - blur) once, i.e. a sharpness factor of 2
	out = imaging.Sharpen(out, sharpenSigma)
	return brighten(out, brightnessFactor)
}

func brighten(img image.Image, factor float64) *image.NRGBA {
	scale := func(v uint8) uint8 {
		f := float64(v) * factor
		if f > 255 {
			return 255
		}
		return uint8(f + 0.5)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
	})
}
