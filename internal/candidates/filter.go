package candidates

import (
	"sort"

	"github.com/ironsheep/idphoto-mcp/internal/geometry"
)

// Plausibility envelope of a portrait photo relative to the page, and the
// number of candidates offered to the user. All bounds are exclusive.
const (
	MinAreaRatio  = 0.005
	MaxAreaRatio  = 0.25
	MinAspect     = 0.4
	MaxAspect     = 2.5
	MaxCandidates = 5
)

// Candidate is a detected rectangle in page coordinates.
type Candidate struct {
	geometry.Rect

	// Region is the index of the search region that produced it.
	Region int `json:"region"`

	// AreaRatio is the rectangle's area divided by the page area.
	AreaRatio float64 `json:"area_ratio"`

	// Aspect is width / height.
	Aspect float64 `json:"aspect"`
}

// NewCandidate computes the derived metrics of r on a width × height page.
func NewCandidate(r geometry.Rect, region, width, height int) Candidate {
	c := Candidate{Rect: r, Region: region, Aspect: r.Aspect()}
	if width > 0 && height > 0 {
		c.AreaRatio = float64(r.Area()) / (float64(width) * float64(height))
	}
	return c
}

// Filter keeps the candidates that look like a portrait photo on a
// width × height page and ranks them.
//
// A candidate survives when 0.005 < areaRatio < 0.25 and 0.4 < aspect < 2.5
// and both sides are positive. Exact duplicates, which overlapping regions
// produce for the same object, keep their first occurrence only. Survivors
// are ordered by area, largest first, with ties in input order, and at most
// MaxCandidates are returned. Index 0 is the default choice.
func Filter(cands []Candidate, width, height int) []Candidate {
	seen := make(map[geometry.Rect]bool, len(cands))
	kept := make([]Candidate, 0, len(cands))

	for _, c := range cands {
		if !c.Valid() {
			continue
		}
		c = NewCandidate(c.Rect, c.Region, width, height)
		if c.AreaRatio <= MinAreaRatio || c.AreaRatio >= MaxAreaRatio {
			continue
		}
		if c.Aspect <= MinAspect || c.Aspect >= MaxAspect {
			continue
		}
		if seen[c.Rect] {
			continue
		}
		seen[c.Rect] = true
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Area() > kept[j].Area()
	})

	if len(kept) > MaxCandidates {
		kept = kept[:MaxCandidates]
	}
	return kept
}

// HitTest returns the index of the first candidate, in rank order, whose
// closed rectangle contains p, or -1.
func HitTest(cands []Candidate, p geometry.Point) int {
	for i, c := range cands {
		if c.Contains(p) {
			return i
		}
	}
	return -1
}
