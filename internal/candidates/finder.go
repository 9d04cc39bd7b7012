package candidates

import (
	"context"
	"image"

	"github.com/ironsheep/idphoto-mcp/internal/detection"
	pipelineerrors "github.com/ironsheep/idphoto-mcp/internal/errors"
	"github.com/ironsheep/idphoto-mcp/internal/imaging"
	"github.com/ironsheep/idphoto-mcp/internal/logging"
)

// RegionFailure records a search region whose detector call failed.
type RegionFailure struct {
	Region Region `json:"region"`
	Err    error  `json:"-"`
}

// Detection is the result of searching a page.
type Detection struct {
	// Candidates are the filtered, ranked candidates.
	Candidates []Candidate `json:"candidates"`

	// Raw holds every translated rectangle before filtering.
	Raw []Candidate `json:"raw"`

	// Failures lists regions that contributed nothing because the detector
	// failed on them.
	Failures []RegionFailure `json:"failures,omitempty"`

	// Width and Height are the page dimensions the search ran on.
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether no candidate survived filtering. This is an
// expected condition that calls for manual selection.
func (d *Detection) Empty() bool {
	return len(d.Candidates) == 0
}

// Err returns a NoCandidates error when the detection is empty, else nil.
func (d *Detection) Err() error {
	if d.Empty() {
		return pipelineerrors.NewNoCandidatesError()
	}
	return nil
}

// Finder searches a page region by region with a Detector.
type Finder struct {
	detector detection.Detector
	logger   *logging.Logger
}

// NewFinder creates a finder backed by the given detector.
func NewFinder(detector detection.Detector) *Finder {
	return &Finder{
		detector: detector,
		logger:   logging.NewLogger("candidates"),
	}
}

// Find searches the four regions of img in order and returns the filtered
// candidates in page coordinates.
//
// Each region is cropped, contrast-stretched and handed to the detector;
// the rectangles it reports are shifted by the region's origin. A detector
// error only drops that region: it is logged and listed in
// Detection.Failures while the remaining regions are still searched. The
// only error Find returns is the context's, when ctx ends between regions.
func (f *Finder) Find(ctx context.Context, img image.Image) (*Detection, error) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	result := &Detection{
		Raw:    []Candidate{},
		Width:  width,
		Height: height,
	}

	for _, region := range Regions(width, height) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prepared := imaging.ToDetectionReady(imaging.CropRegion(img, region.Rect))

		rects, err := f.detector.Detect(ctx, prepared)
		if err != nil {
			failure := pipelineerrors.NewDetectionFailureError(region.Name, err)
			f.logger.Warn("Region detection failed",
				"region", region.Name,
				"error", failure,
			)
			result.Failures = append(result.Failures, RegionFailure{Region: region, Err: failure})
			continue
		}

		for _, r := range rects {
			translated := r.Translate(region.Rect.X, region.Rect.Y)
			result.Raw = append(result.Raw, NewCandidate(translated, region.Index, width, height))
		}
		f.logger.Debug("Region searched",
			"region", region.Name,
			"found", len(rects),
		)
	}

	result.Candidates = Filter(result.Raw, width, height)

	f.logger.Info("Candidate search complete",
		"raw", len(result.Raw),
		"candidates", len(result.Candidates),
		"failed_regions", len(result.Failures),
	)
	return result, nil
}
