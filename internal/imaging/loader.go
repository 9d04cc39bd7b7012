package imaging

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"

	"github.com/disintegration/imaging"
	"github.com/sunshineplan/imgconv"

	pipelineerrors "github.com/ironsheep/idphoto-mcp/internal/errors"
)

// Accepted document MIME types, as reported by content sniffing.
const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeBMP  = "image/bmp"
)

var supportedTypes = map[string]bool{
	MimePDF:  true,
	MimeJPEG: true,
	MimePNG:  true,
	MimeBMP:  true,
}

// DetectType sniffs the MIME type of a document from its leading bytes and
// rejects anything that is not a PDF, JPEG, PNG or BMP with an InvalidInput
// error.
func DetectType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", pipelineerrors.NewInvalidInputError("document is empty", nil)
	}
	mimeType := http.DetectContentType(data)
	if !supportedTypes[mimeType] {
		return "", pipelineerrors.NewUnsupportedFormatError(mimeType)
	}
	return mimeType, nil
}

// PageRasterizer turns document bytes into a full-page image.
type PageRasterizer interface {
	// Render returns page pageIndex (0-based) of the document rendered at
	// the given scale.
	Render(data []byte, pageIndex int, scale float64) (image.Image, error)
}

// FileRasterizer decodes PDFs and common raster formats with imgconv.
//
// Raster files (JPEG, PNG, BMP) are returned at their native size; scale
// only applies to PDF pages, mirroring a page renderer that draws the page
// at scale× its nominal size. Only the first page of a PDF is supported.
type FileRasterizer struct{}

// Render implements PageRasterizer.
func (FileRasterizer) Render(data []byte, pageIndex int, scale float64) (image.Image, error) {
	mimeType, err := DetectType(data)
	if err != nil {
		return nil, err
	}
	if pageIndex != 0 {
		return nil, pipelineerrors.NewInvalidInputError(
			"only the first page of a document is supported",
			map[string]interface{}{"page": pageIndex},
		)
	}

	img, err := imgconv.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", mimeType, err)
	}

	if mimeType == MimePDF && scale > 0 && scale != 1.0 {
		b := img.Bounds()
		nw := max(1, int(float64(b.Dx())*scale))
		nh := max(1, int(float64(b.Dy())*scale))
		return imaging.Resize(img, nw, nh, imaging.Lanczos), nil
	}
	return img, nil
}

// DocumentInfo contains metadata about a loaded document.
type DocumentInfo struct {
	// Path is the file the document was read from, if any.
	Path string `json:"path,omitempty"`

	// MimeType is the sniffed content type.
	MimeType string `json:"mime_type"`

	// Width and Height are the rasterized page size in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// FileSizeBytes is the size of the input in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// Loader validates and rasterizes documents from disk.
type Loader struct {
	Rasterizer  PageRasterizer
	Scale       float64
	MaxFileSize int64
}

// NewLoader creates a loader backed by FileRasterizer.
func NewLoader(scale float64, maxFileSize int64) *Loader {
	return &Loader{
		Rasterizer:  FileRasterizer{},
		Scale:       scale,
		MaxFileSize: maxFileSize,
	}
}

// LoadFile reads path and rasterizes its first page.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns InvalidInput if the file is too large or not a supported type
//   - Returns error if the content cannot be decoded
func (l *Loader) LoadFile(path string) (image.Image, *DocumentInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if l.MaxFileSize > 0 && stat.Size() > l.MaxFileSize {
		return nil, nil, pipelineerrors.NewInvalidInputError(
			fmt.Sprintf("file is %d bytes, limit is %d", stat.Size(), l.MaxFileSize),
			map[string]interface{}{"path": path},
		)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	img, info, err := l.Load(data)
	if err != nil {
		return nil, nil, err
	}
	info.Path = path
	return img, info, nil
}

// Load validates and rasterizes an in-memory document.
func (l *Loader) Load(data []byte) (image.Image, *DocumentInfo, error) {
	mimeType, err := DetectType(data)
	if err != nil {
		return nil, nil, err
	}

	img, err := l.Rasterizer.Render(data, 0, l.Scale)
	if err != nil {
		return nil, nil, err
	}

	b := img.Bounds()
	return img, &DocumentInfo{
		MimeType:      mimeType,
		Width:         b.Dx(),
		Height:        b.Dy(),
		FileSizeBytes: int64(len(data)),
	}, nil
}

// Encoder writes an image to w.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// PNGEncoder encodes images as PNG.
type PNGEncoder struct{}

// Encode implements Encoder.
func (PNGEncoder) Encode(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// ExportFileName returns the file name used for an exported photo.
func ExportFileName(id string) string {
	return fmt.Sprintf("extracted_photo_%s.png", id)
}
