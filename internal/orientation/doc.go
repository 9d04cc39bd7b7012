// Package orientation decides which way up a scanned page is.
//
// The page is downscaled, converted to an OCR-ready grayscale image and
// recognized four times, once per clockwise rotation of 0, 90, 180 and 270
// degrees. Each trial is scored by how much confidently recognized text it
// yields; see ScoreTrial. The page is only rotated when a non-zero angle wins
// clearly, and a recognizer failure leaves the page untouched.
package orientation
