package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"
)

// Preprocessing constants.
const (
	// OCRContrast is the contrast amount c fed into
	// factor = 259*(c+255) / (255*(259-c)).
	OCRContrast = 1.3

	// DetectionContrast is the plain linear stretch factor around 128.
	DetectionContrast = 1.5

	contrastMidpoint = 128.0
)

// ocrContrastFactor is the stretch derived from OCRContrast (≈1.0102).
var ocrContrastFactor = 259 * (OCRContrast + 255) / (255 * (259 - OCRContrast))

// ToOCRReady prepares an image for text recognition.
//
// Each pixel is converted to luminance with ITU-R BT.601 weights
// (0.299*R + 0.587*G + 0.114*B) and then contrast-stretched around 128:
//
//	out = clamp(factor*(gray-128) + 128, 0, 255)
//
// The result is written to all three channels; alpha is preserved. The input
// is never modified and the output has its origin at (0,0).
func ToOCRReady(img image.Image) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		gray := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
		v := clampChannel(ocrContrastFactor*(gray-contrastMidpoint) + contrastMidpoint)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

// ToDetectionReady prepares an image for the region detector with a simple
// per-channel contrast stretch and no grayscale conversion:
//
//	out = clamp((v-128)*1.5 + 128, 0, 255)
func ToDetectionReady(img image.Image) *image.RGBA {
	return adjust.Apply(img, func(c color.RGBA) color.RGBA {
		return color.RGBA{
			R: stretch(c.R),
			G: stretch(c.G),
			B: stretch(c.B),
			A: c.A,
		}
	})
}

func stretch(v uint8) uint8 {
	return clampChannel((float64(v)-contrastMidpoint)*DetectionContrast + contrastMidpoint)
}

// clampChannel rounds v to the nearest integer and clamps it to [0,255].
func clampChannel(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Downscale shrinks img so that its longer side is at most maxSide, keeping
// the aspect ratio. Images already within the limit are copied unchanged;
// the function never upscales.
func Downscale(img image.Image, maxSide int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longer := max(w, h)
	if maxSide <= 0 || longer <= maxSide {
		return imaging.Clone(img)
	}

	scale := float64(maxSide) / float64(longer)
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))
	return imaging.Resize(img, nw, nh, imaging.Lanczos)
}
