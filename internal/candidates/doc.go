// Package candidates locates and ranks rectangles that may hold the portrait
// photo of an identity document.
//
// A Finder runs a detection.Detector over four overlapping page regions
// (top-right, top-left, right half, left half), translates the results to
// page coordinates and passes them through Filter, which keeps the
// photo-shaped ones and ranks them by area.
package candidates
