package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/idphoto-mcp/internal/candidates"
	"github.com/ironsheep/idphoto-mcp/internal/geometry"
)

const (
	// DefaultMaxWidth is the widest preview rendered.
	DefaultMaxWidth = 700

	// StrokeWidth is the box outline thickness in preview pixels.
	StrokeWidth = 3

	// Label offset from a box's top-left corner, in preview pixels. The
	// vertical offset is the text baseline.
	labelOffsetX = 5
	labelOffsetY = 25
)

// Box colors.
var (
	BestColor      = mustHex("#00ff00")
	CandidateColor = mustHex("#ffff00")
	SelectionColor = mustHex("#ff0000")
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Preview is a page scaled for display with candidate boxes drawn on it.
type Preview struct {
	Image *image.NRGBA

	// Scale maps page coordinates to preview coordinates (at most 1).
	Scale float64
}

// DisplayScale is the factor that maps preview coordinates back to page
// coordinates, as expected by imaging.ManualRect.
func (p *Preview) DisplayScale() float64 {
	return 1 / p.Scale
}

// ToSource maps a point on the preview to page coordinates.
func (p *Preview) ToSource(pt geometry.Point) geometry.Point {
	return geometry.Point{X: pt.X / p.Scale, Y: pt.Y / p.Scale}
}

// ScaleFor returns the preview scale for a page of the given width.
func ScaleFor(width, maxWidth int) float64 {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if width <= maxWidth {
		return 1
	}
	return float64(maxWidth) / float64(width)
}

// Render draws a preview of page no wider than maxWidth. Candidates are
// outlined in rank order and labelled 1..n, the best in BestColor and the
// rest in CandidateColor. A non-nil selection is outlined in SelectionColor.
func Render(page image.Image, cands []candidates.Candidate, selection *geometry.Rect, maxWidth int) *Preview {
	b := page.Bounds()
	scale := ScaleFor(b.Dx(), maxWidth)

	var dst *image.NRGBA
	if scale == 1 {
		dst = imaging.Clone(page)
	} else {
		w := int(math.Round(float64(b.Dx()) * scale))
		h := int(math.Round(float64(b.Dy()) * scale))
		dst = imaging.Resize(page, w, max(h, 1), imaging.Lanczos)
	}

	for i, c := range cands {
		col := CandidateColor
		if i == 0 {
			col = BestColor
		}
		r := scaleRect(c.Rect, scale)
		strokeRect(dst, r, col)
		drawLabel(dst, r.Min.X+labelOffsetX, r.Min.Y+labelOffsetY, strconv.Itoa(i+1), col)
	}

	if selection != nil {
		strokeRect(dst, scaleRect(*selection, scale), SelectionColor)
	}

	return &Preview{Image: dst, Scale: scale}
}

func scaleRect(r geometry.Rect, scale float64) image.Rectangle {
	x0 := int(math.Round(float64(r.X) * scale))
	y0 := int(math.Round(float64(r.Y) * scale))
	x1 := int(math.Round(float64(r.X+r.Width) * scale))
	y1 := int(math.Round(float64(r.Y+r.Height) * scale))
	return image.Rect(x0, y0, x1, y1)
}

// strokeRect outlines r with a line StrokeWidth pixels thick centered on
// its edges. draw.Draw clips to the destination.
func strokeRect(dst draw.Image, r image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	lo := StrokeWidth / 2
	hi := StrokeWidth - lo
	outer := image.Rect(r.Min.X-lo, r.Min.Y-lo, r.Max.X+hi, r.Max.Y+hi)

	bands := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, r.Min.Y+hi),
		image.Rect(outer.Min.X, r.Max.Y-lo, outer.Max.X, outer.Max.Y),
		image.Rect(outer.Min.X, outer.Min.Y, r.Min.X+hi, outer.Max.Y),
		image.Rect(r.Max.X-lo, outer.Min.Y, outer.Max.X, outer.Max.Y),
	}
	for _, band := range bands {
		draw.Draw(dst, band, src, image.Point{}, draw.Src)
	}
}

func drawLabel(dst draw.Image, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
