package detection

import (
	"context"
	"image"
	"sort"

	"github.com/ironsheep/idphoto-mcp/internal/geometry"
)

// Default EdgeDetector settings.
const (
	DefaultMinArea        = 400
	DefaultBorderCoverage = 0.6
	DefaultEdgeThreshold  = 30.0
)

// EdgeDetector finds framed rectangular regions using edge and contour
// analysis. It needs no external model and is the default backend.
//
// # Algorithm
//
//  1. Edge Detection: mark pixels whose gray value differs from the right or
//     lower neighbor by more than EdgeThreshold
//  2. Contour Finding: group 8-connected edge pixels with flood fill
//  3. Bounding Box: take the bounding rectangle of each contour
//  4. Border Check: measure which fraction of the bounding box's perimeter
//     has a contour pixel within one pixel of it, and keep boxes whose
//     coverage reaches BorderCoverage
//
// A photo pasted on a form is outlined by a closed contrast edge, so its box
// is covered on all four sides. Text lines and scattered marks cover one or
// two sides at most.
//
// # Limitations
//
//   - Only detects axis-aligned rectangles
//   - A photo whose edge touches other strokes merges into one larger box
type EdgeDetector struct {
	// MinArea is the smallest bounding-box area in square pixels.
	MinArea int

	// BorderCoverage is the minimum fraction (0-1) of the perimeter that
	// must lie on the contour.
	BorderCoverage float64

	// EdgeThreshold is the gray-level step that counts as an edge.
	EdgeThreshold float64
}

// NewEdgeDetector creates an EdgeDetector with default settings.
func NewEdgeDetector() *EdgeDetector {
	return &EdgeDetector{
		MinArea:        DefaultMinArea,
		BorderCoverage: DefaultBorderCoverage,
		EdgeThreshold:  DefaultEdgeThreshold,
	}
}

// Detect implements Detector. Results are sorted by area, largest first.
func (d *EdgeDetector) Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	edges := detectEdges(img, width, height, d.EdgeThreshold)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contours := findContours(edges, width, height)

	rects := make([]geometry.Rect, 0)
	for _, contour := range contours {
		if len(contour) < 4 {
			continue
		}

		minX, minY := width, height
		maxX, maxY := 0, 0
		for _, p := range contour {
			minX = min(minX, p.X)
			maxX = max(maxX, p.X)
			minY = min(minY, p.Y)
			maxY = max(maxY, p.Y)
		}

		r := geometry.Rect{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
		if r.Area() < d.MinArea {
			continue
		}
		if borderCoverage(edges, r) < d.BorderCoverage {
			continue
		}
		rects = append(rects, r)
	}

	sort.SliceStable(rects, func(i, j int) bool {
		return rects[i].Area() > rects[j].Area()
	})

	return rects, nil
}

// point is a pixel position inside the edge map.
type point struct {
	X, Y int
}

// detectEdges performs simple gradient-based edge detection.
//
// Pixels where |current - neighbor| > threshold (in grayscale) are marked as
// edges. Checks both horizontal and vertical neighbors. The last column and
// row are never edges since they have no neighbor to compare with.
func detectEdges(img image.Image, width, height int, threshold float64) [][]bool {
	bounds := img.Bounds()
	edges := make([][]bool, height)

	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
		if y == height-1 {
			continue
		}
		for x := 0; x < width-1; x++ {
			c := grayValue(img, x+bounds.Min.X, y+bounds.Min.Y)
			cx := grayValue(img, x+1+bounds.Min.X, y+bounds.Min.Y)
			cy := grayValue(img, x+bounds.Min.X, y+1+bounds.Min.Y)

			dx := c - cx
			if dx < 0 {
				dx = -dx
			}
			dy := c - cy
			if dy < 0 {
				dy = -dy
			}

			if dx > threshold || dy > threshold {
				edges[y][x] = true
			}
		}
	}

	return edges
}

// findContours finds connected components (contours) in a binary edge image.
//
// Connectivity is 8-connected (includes diagonals). Contours smaller than 10
// pixels are discarded as noise.
func findContours(edges [][]bool, width, height int) [][]point {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	contours := make([][]point, 0)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges[y][x] && !visited[y][x] {
				contour := make([]point, 0)
				floodFill(edges, visited, x, y, width, height, &contour)
				if len(contour) >= 10 {
					contours = append(contours, contour)
				}
			}
		}
	}

	return contours
}

// floodFill performs iterative flood-fill from a starting point, marking
// visited pixels and appending them to the contour.
func floodFill(edges, visited [][]bool, startX, startY, width, height int, contour *[]point) {
	stack := []point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !edges[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		*contour = append(*contour, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

// borderCoverage returns the fraction of r's perimeter positions that have
// an edge pixel within one pixel, measured perpendicular to the side.
func borderCoverage(edges [][]bool, r geometry.Rect) float64 {
	height := len(edges)
	if height == 0 {
		return 0
	}
	width := len(edges[0])

	near := func(x, y, dx, dy int) bool {
		for k := -1; k <= 1; k++ {
			px, py := x+k*dx, y+k*dy
			if px >= 0 && px < width && py >= 0 && py < height && edges[py][px] {
				return true
			}
		}
		return false
	}

	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.Width-1, r.Y+r.Height-1

	hit, total := 0, 0
	for x := x0; x <= x1; x++ {
		total += 2
		if near(x, y0, 0, 1) {
			hit++
		}
		if near(x, y1, 0, 1) {
			hit++
		}
	}
	for y := y0; y <= y1; y++ {
		total += 2
		if near(x0, y, 1, 0) {
			hit++
		}
		if near(x1, y, 1, 0) {
			hit++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hit) / float64(total)
}

// grayValue converts a pixel to grayscale using ITU-R BT.601 luminance weights.
func grayValue(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return float64(r>>8)*0.299 + float64(g>>8)*0.587 + float64(b>>8)*0.114
}
