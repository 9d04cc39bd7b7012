package candidates

import (
	"math"

	"github.com/ironsheep/idphoto-mcp/internal/geometry"
)

// Region is one of the fixed page areas searched for a photo.
type Region struct {
	Index int           `json:"index"`
	Name  string        `json:"name"`
	Rect  geometry.Rect `json:"rect"`
}

// regionLayout expresses each search area as fractions of the page.
var regionLayout = []struct {
	name       string
	x, y, w, h float64
}{
	{"top-right", 0.6, 0, 0.4, 0.5},
	{"top-left", 0, 0, 0.4, 0.5},
	{"right-half", 0.5, 0, 0.5, 1},
	{"left-half", 0, 0, 0.5, 1},
}

// Regions returns the four search areas of a width × height page, in search
// order. Photos on identity documents usually sit in one of these zones, so
// searching all four avoids classifying the layout first. Regions overlap.
//
// Origins and sizes are floored to whole pixels; sizes are at least 1.
func Regions(width, height int) []Region {
	regions := make([]Region, len(regionLayout))
	for i, l := range regionLayout {
		regions[i] = Region{
			Index: i,
			Name:  l.name,
			Rect: geometry.Rect{
				X:      int(math.Floor(l.x * float64(width))),
				Y:      int(math.Floor(l.y * float64(height))),
				Width:  max(1, int(math.Floor(l.w*float64(width)))),
				Height: max(1, int(math.Floor(l.h*float64(height)))),
			},
		}
	}
	return regions
}
