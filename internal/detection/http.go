package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/idphoto-mcp/internal/geometry"
)

// BoundingBox is one detection returned by an inference service.
type BoundingBox struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Class      string  `json:"class"`
	Confidence float32 `json:"confidence"`
}

// HTTPDetector delegates detection to an external model served over HTTP.
//
// The region is POSTed as a PNG in a multipart form field named "file"; the
// service answers with JSON of the form {"detections": [BoundingBox...]}.
type HTTPDetector struct {
	// URL is the inference endpoint.
	URL string

	// Classes, when non-empty, restricts results to these class labels.
	Classes []string

	// MinConfidence drops detections scored below it.
	MinConfidence float32

	client *http.Client
}

// NewHTTPDetector creates a detector posting to url with a 30s timeout.
func NewHTTPDetector(url string) *HTTPDetector {
	return &HTTPDetector{
		URL:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Detect implements Detector.
func (d *HTTPDetector) Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "region.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := imaging.Encode(part, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode region: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Detections []BoundingBox `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	rects := make([]geometry.Rect, 0, len(result.Detections))
	for _, box := range result.Detections {
		if !d.accepts(box) {
			continue
		}
		rects = append(rects, geometry.Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height})
	}
	return rects, nil
}

// CheckHealth reports whether the inference service answers on URL/health.
func (d *HTTPDetector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(d.URL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := d.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

func (d *HTTPDetector) accepts(box BoundingBox) bool {
	if box.Confidence < d.MinConfidence {
		return false
	}
	if len(d.Classes) == 0 {
		return true
	}
	for _, c := range d.Classes {
		if strings.EqualFold(c, box.Class) {
			return true
		}
	}
	return false
}

func (d *HTTPDetector) httpClient() *http.Client {
	if d.client == nil {
		return http.DefaultClient
	}
	return d.client
}
