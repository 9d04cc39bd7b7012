package detection

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/ironsheep/idphoto-mcp/internal/config"
	"github.com/ironsheep/idphoto-mcp/internal/geometry"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		check   func(t *testing.T, d Detector)
		wantErr bool
	}{
		{
			name:    "edges",
			backend: config.DetectorEdges,
			check: func(t *testing.T, d Detector) {
				if _, ok := d.(*EdgeDetector); !ok {
					t.Errorf("got %T, want *EdgeDetector", d)
				}
			},
		},
		{
			name:    "default is edges",
			backend: "",
			check: func(t *testing.T, d Detector) {
				if _, ok := d.(*EdgeDetector); !ok {
					t.Errorf("got %T, want *EdgeDetector", d)
				}
			},
		},
		{
			name:    "http",
			backend: config.DetectorHTTP,
			check: func(t *testing.T, d Detector) {
				h, ok := d.(*HTTPDetector)
				if !ok {
					t.Fatalf("got %T, want *HTTPDetector", d)
				}
				if h.URL != "http://ml:9000/detect" {
					t.Errorf("URL: got %s", h.URL)
				}
			},
		},
		{name: "unknown", backend: "yolo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Detector: tt.backend, InferenceURL: "http://ml:9000/detect"}
			d, err := New(cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			tt.check(t, d)
		})
	}
}

func TestNew_CascadeMissingFile(t *testing.T) {
	cfg := &config.Config{Detector: config.DetectorCascade, CascadePath: "/nonexistent/cascade.xml"}
	if _, err := New(cfg); err == nil {
		t.Error("expected error for missing cascade file")
	}
}

func TestDetectorFunc(t *testing.T) {
	want := errors.New("sentinel")
	var d Detector = DetectorFunc(func(ctx context.Context, img image.Image) ([]geometry.Rect, error) {
		return []geometry.Rect{{X: 1, Y: 2, Width: 3, Height: 4}}, want
	})

	rects, err := d.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
	if !errors.Is(err, want) {
		t.Errorf("error: got %v, want %v", err, want)
	}
	if len(rects) != 1 || rects[0].Width != 3 {
		t.Errorf("rects: got %v", rects)
	}
}
