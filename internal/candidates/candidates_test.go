package candidates

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/ironsheep/idphoto-mcp/internal/detection"
	pipelineerrors "github.com/ironsheep/idphoto-mcp/internal/errors"
	"github.com/ironsheep/idphoto-mcp/internal/geometry"
)

func rect(x, y, w, h int) geometry.Rect {
	return geometry.Rect{X: x, Y: y, Width: w, Height: h}
}

func TestRegions(t *testing.T) {
	regions := Regions(1000, 800)

	want := []geometry.Rect{
		rect(600, 0, 400, 400),
		rect(0, 0, 400, 400),
		rect(500, 0, 500, 800),
		rect(0, 0, 500, 800),
	}
	if len(regions) != len(want) {
		t.Fatalf("got %d regions, want %d", len(regions), len(want))
	}
	for i, r := range regions {
		if r.Index != i {
			t.Errorf("region %d index: got %d", i, r.Index)
		}
		if r.Rect != want[i] {
			t.Errorf("region %d (%s): got %s, want %s", i, r.Name, r.Rect, want[i])
		}
		if !r.Rect.Within(1000, 800) {
			t.Errorf("region %d escapes the page", i)
		}
	}
}

func TestRegions_OddAndTinySizes(t *testing.T) {
	regions := Regions(333, 1)
	if regions[0].Rect != rect(199, 0, 133, 1) {
		t.Errorf("top-right: got %s", regions[0].Rect)
	}
	for _, r := range regions {
		if !r.Rect.Valid() {
			t.Errorf("%s is degenerate: %s", r.Name, r.Rect)
		}
	}
}

func TestFilter_Envelope(t *testing.T) {
	// Page 1000x1000: area ratio bounds are 5000 and 250000 px².
	tests := []struct {
		name string
		rect geometry.Rect
		keep bool
	}{
		{"typical portrait", rect(10, 10, 100, 130), true},
		{"too small", rect(0, 0, 70, 70), false},
		{"exactly min area", rect(0, 0, 50, 100), false},
		{"too large", rect(0, 0, 600, 500), false},
		{"exactly max area", rect(0, 0, 500, 500), false},
		{"too wide", rect(0, 0, 300, 100), false},
		{"exactly max aspect", rect(0, 0, 250, 100), false},
		{"too tall", rect(0, 0, 100, 300), false},
		{"exactly min aspect", rect(0, 0, 80, 200), false},
		{"just inside aspect", rect(0, 0, 81, 200), true},
		{"zero width", rect(0, 0, 0, 100), false},
		{"negative height", rect(0, 0, 100, -100), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter([]Candidate{{Rect: tt.rect}}, 1000, 1000)
			if (len(got) == 1) != tt.keep {
				t.Errorf("keep: got %v, want %v", len(got) == 1, tt.keep)
			}
		})
	}
}

func TestFilter_RankAndCap(t *testing.T) {
	var in []Candidate
	for i := 1; i <= 8; i++ {
		in = append(in, Candidate{Rect: rect(i, i, 80+10*i, 100+10*i), Region: i % 4})
	}

	got := Filter(in, 1000, 1000)
	if len(got) != MaxCandidates {
		t.Fatalf("got %d candidates, want %d", len(got), MaxCandidates)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Area() < got[i].Area() {
			t.Errorf("not sorted by area at %d: %v", i, got)
		}
	}
	if got[0].Rect != rect(8, 8, 160, 180) {
		t.Errorf("best: got %s", got[0].Rect)
	}
	for _, c := range got {
		if c.AreaRatio <= MinAreaRatio || c.AreaRatio >= MaxAreaRatio || c.Aspect <= MinAspect || c.Aspect >= MaxAspect {
			t.Errorf("candidate %s outside envelope", c.Rect)
		}
	}
}

func TestFilter_StableTies(t *testing.T) {
	in := []Candidate{
		{Rect: rect(0, 0, 100, 120), Region: 0},
		{Rect: rect(300, 0, 120, 100), Region: 1},
	}
	got := Filter(in, 1000, 1000)
	if len(got) != 2 || got[0].Region != 0 || got[1].Region != 1 {
		t.Errorf("equal areas should keep input order: %v", got)
	}
}

func TestFilter_Duplicates(t *testing.T) {
	in := []Candidate{
		{Rect: rect(610, 10, 100, 120), Region: 0},
		{Rect: rect(610, 10, 100, 120), Region: 2},
		{Rect: rect(611, 10, 100, 120), Region: 2},
	}
	got := Filter(in, 1000, 1000)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Region != 0 {
		t.Errorf("first occurrence should win, got region %d", got[0].Region)
	}
}

func TestFilter_Empty(t *testing.T) {
	if got := Filter(nil, 100, 100); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestHitTest(t *testing.T) {
	cands := []Candidate{
		{Rect: rect(100, 100, 200, 200)},
		{Rect: rect(150, 150, 50, 50)},
		{Rect: rect(500, 500, 100, 100)},
	}

	tests := []struct {
		name string
		p    geometry.Point
		want int
	}{
		{"inside first", geometry.Point{X: 120, Y: 120}, 0},
		{"overlap goes to higher rank", geometry.Point{X: 160, Y: 160}, 0},
		{"left edge counts", geometry.Point{X: 100, Y: 200}, 0},
		{"far corner counts", geometry.Point{X: 300, Y: 300}, 0},
		{"third", geometry.Point{X: 550.5, Y: 599.9}, 2},
		{"miss", geometry.Point{X: 400, Y: 50}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HitTest(cands, tt.p); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

// regionDetector answers each call from a per-call script.
type regionDetector struct {
	responses [][]geometry.Rect
	errs      []error
	sizes     []image.Point
	calls     int
}

func (d *regionDetector) Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error) {
	i := d.calls
	d.calls++
	d.sizes = append(d.sizes, img.Bounds().Size())
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i < len(d.responses) {
		return d.responses[i], nil
	}
	return nil, nil
}

var _ detection.Detector = (*regionDetector)(nil)

func TestFind_TranslatesToPageCoordinates(t *testing.T) {
	// Top-right region of a 500x400 page starts at (300,0) and is 200x200.
	det := &regionDetector{responses: [][]geometry.Rect{{rect(10, 10, 100, 100)}}}
	page := image.NewRGBA(image.Rect(0, 0, 500, 400))

	res, err := NewFinder(det).Find(context.Background(), page)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}

	if det.sizes[0] != (image.Point{X: 200, Y: 200}) {
		t.Errorf("top-right region size: got %v, want 200x200", det.sizes[0])
	}
	if len(res.Raw) != 1 || res.Raw[0].Rect != rect(310, 10, 100, 100) {
		t.Fatalf("raw: got %v, want one {310,10,100,100}", res.Raw)
	}
	if res.Raw[0].Region != 0 {
		t.Errorf("provenance: got region %d, want 0", res.Raw[0].Region)
	}
	if len(res.Candidates) != 1 {
		t.Errorf("candidates: got %d, want 1", len(res.Candidates))
	}
}

func TestFind_SearchesAllRegionsInOrder(t *testing.T) {
	det := &regionDetector{}
	page := image.NewRGBA(image.Rect(0, 0, 1000, 800))

	if _, err := NewFinder(det).Find(context.Background(), page); err != nil {
		t.Fatalf("Find failed: %v", err)
	}

	want := []image.Point{{400, 400}, {400, 400}, {500, 800}, {500, 800}}
	if det.calls != 4 {
		t.Fatalf("detector calls: got %d, want 4", det.calls)
	}
	for i := range want {
		if det.sizes[i] != want[i] {
			t.Errorf("region %d size: got %v, want %v", i, det.sizes[i], want[i])
		}
	}
}

func TestFind_MergesOverlappingRegions(t *testing.T) {
	// The same photo at page (650,50) seen from top-right (origin 600,0) and
	// right-half (origin 500,0).
	det := &regionDetector{responses: [][]geometry.Rect{
		{rect(50, 50, 120, 150)},
		nil,
		{rect(150, 50, 120, 150), rect(0, 0, 5, 5)},
		nil,
	}}
	page := image.NewRGBA(image.Rect(0, 0, 1000, 800))

	res, err := NewFinder(det).Find(context.Background(), page)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(res.Raw) != 3 {
		t.Errorf("raw: got %d, want 3", len(res.Raw))
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Rect != rect(650, 50, 120, 150) {
		t.Errorf("candidates: got %v", res.Candidates)
	}
}

func TestFind_RegionFailureIsTolerated(t *testing.T) {
	boom := errors.New("model unavailable")
	det := &regionDetector{
		errs:      []error{boom, nil, boom, nil},
		responses: [][]geometry.Rect{nil, {rect(100, 100, 100, 120)}, nil, nil},
	}
	page := image.NewRGBA(image.Rect(0, 0, 1000, 800))

	res, err := NewFinder(det).Find(context.Background(), page)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if det.calls != 4 {
		t.Errorf("remaining regions should still run, got %d calls", det.calls)
	}
	if len(res.Failures) != 2 {
		t.Fatalf("failures: got %d, want 2", len(res.Failures))
	}
	if res.Failures[0].Region.Name != "top-right" || res.Failures[1].Region.Name != "right-half" {
		t.Errorf("failed regions: got %s, %s", res.Failures[0].Region.Name, res.Failures[1].Region.Name)
	}
	if !errors.Is(res.Failures[0].Err, pipelineerrors.ErrDetectionFailure) || !errors.Is(res.Failures[0].Err, boom) {
		t.Errorf("failure error: got %v", res.Failures[0].Err)
	}
	if len(res.Candidates) != 1 {
		t.Errorf("candidates: got %d, want 1", len(res.Candidates))
	}
}

func TestFind_NoCandidates(t *testing.T) {
	det := &regionDetector{}
	page := image.NewRGBA(image.Rect(0, 0, 100, 100))

	res, err := NewFinder(det).Find(context.Background(), page)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if !res.Empty() {
		t.Error("expected empty detection")
	}
	if pipelineerrors.CodeOf(res.Err()) != pipelineerrors.ErrorNoCandidates {
		t.Errorf("Err(): got %v", res.Err())
	}
}

func TestFind_CancelledContext(t *testing.T) {
	det := &regionDetector{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewFinder(det).Find(ctx, image.NewRGBA(image.Rect(0, 0, 10, 10))); !errors.Is(err, context.Canceled) {
		t.Errorf("error: got %v, want context.Canceled", err)
	}
	if det.calls != 0 {
		t.Errorf("detector should not run, got %d calls", det.calls)
	}
}
