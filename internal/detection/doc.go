// Package detection proposes rectangles that may contain a portrait photo.
//
// Every backend implements Detector and reports rectangles relative to the
// top-left corner of the image it was given. The candidates package runs a
// detector over several sub-regions of a page and translates the results
// back to page coordinates.
//
// # Backends
//
//   - EdgeDetector: contrast edges and contour bounding boxes, no model needed
//   - HTTPDetector: POSTs the region to an external inference service
//   - CascadeDetector: OpenCV Haar cascade (requires the gocv build tag)
//
// New selects a backend from configuration.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Limitations
//
// EdgeDetector works best on clean scans where the photo is separated from
// the surrounding form by a visible contrast step. Noisy scans or photos
// that bleed into printed borders produce merged or missing boxes; the
// HTTP and cascade backends exist for those documents.
package detection
