// Package overlay renders the candidate preview shown to the user when
// choosing a photo.
//
// The page is scaled down to fit a maximum width and every candidate is
// outlined and numbered in rank order. Points picked on the preview are
// mapped back to page coordinates with Preview.ToSource.
package overlay
