package imaging

import (
	"image"

	"github.com/disintegration/imaging"

	pipelineerrors "github.com/ironsheep/idphoto-mcp/internal/errors"
)

// NormalizeDegrees maps any angle onto [0, 360).
func NormalizeDegrees(degrees int) int {
	return ((degrees % 360) + 360) % 360
}

// Rotate turns an image clockwise by a multiple of 90 degrees.
//
// Degrees are normalized modulo 360 before dispatch, so -90 is the same as
// 270 and 360 the same as 0. Any other angle is rejected as invalid input.
// For 90 and 270 the output width and height are swapped.
//
// Every output pixel is copied from exactly one source pixel (no
// interpolation), so rotations are exactly invertible:
// Rotate(Rotate(img, d), -d) reproduces img pixel for pixel. A rotation by 0
// returns an independent copy.
func Rotate(img image.Image, degrees int) (*image.NRGBA, error) {
	switch NormalizeDegrees(degrees) {
	case 0:
		return imaging.Clone(img), nil
	case 90:
		// imaging rotates counter-clockwise; 270° CCW is 90° clockwise.
		return imaging.Rotate270(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate90(img), nil
	default:
		return nil, pipelineerrors.NewInvalidInputError(
			"rotation must be a multiple of 90 degrees",
			map[string]interface{}{"degrees": degrees},
		)
	}
}
