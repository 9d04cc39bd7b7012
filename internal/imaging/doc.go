// Package imaging provides the pixel-level operations of the extraction
// pipeline: document rasterization, preprocessing, rotation and cropping.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward. Every function returns a new image; inputs are never
// modified.
//
// # Preprocessing
//
// Two contrast curves are applied before analysis:
//   - ToOCRReady: BT.601 grayscale followed by a mild contrast stretch, for
//     the text recognizer
//   - ToDetectionReady: a per-channel 1.5× stretch around mid-gray, for the
//     region detector
//
// Both round to the nearest integer and clamp to [0,255].
//
// # Rotation
//
// Rotate accepts multiples of 90 degrees, positive meaning clockwise. Pixels
// are moved, never resampled, so a rotation followed by its inverse is exact.
//
// # Cropping
//
// Detected candidates are cropped with 50% padding on every side
// (CropCandidate). Manual selections are cropped exactly (CropManual) and must
// exceed MinManualSide pixels on both sides. Both clip to the image bounds.
//
// # Loading
//
// Loader validates content by sniffing its MIME type and rasterizes the first
// page with imgconv. PDF pages are scaled by the configured raster scale;
// raster images are used at native size.
package imaging
