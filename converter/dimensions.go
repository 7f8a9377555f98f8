package converter

import "math"

const (
	// scaleEpsilon decides which axis wins a contain-fit; exact ties pin width.
	// The threshold is the single-precision 1e-6 widened to float64.
	scaleEpsilon = float64(float32(1.0e-6))
	roundBias    = 0.5000004

	// MaxDimension bounds a requested width or height.
	MaxDimension = 16384
)

// Dimensions is a positive pixel size.
type Dimensions struct {
	Width  int
	Height int
}

// TargetSize computes the output size for a requested bounding box while
// keeping the source aspect ratio. When either requested side is missing the
// source size is returned unchanged. Otherwise one requested side is kept
// exactly and the other is derived from the smaller scale factor.
func TargetSize(srcWidth, srcHeight int, reqWidth, reqHeight *int) Dimensions {
	if reqWidth == nil || reqHeight == nil {
		return Dimensions{Width: srcWidth, Height: srcHeight}
	}

	scaleX := float64(*reqWidth) / float64(srcWidth)
	scaleY := float64(*reqHeight) / float64(srcHeight)

	if scaleX-scaleY > scaleEpsilon {
		return Dimensions{
			Width:  atLeastOne(roundOff(scaleY * float64(srcWidth))),
			Height: *reqHeight,
		}
	}
	return Dimensions{
		Width:  *reqWidth,
		Height: atLeastOne(roundOff(scaleX * float64(srcHeight))),
	}
}

// roundOff rounds half away from zero with a small bias so values that land
// just under .5 after float math still round up.
func roundOff(d float64) int {
	if d >= 0 {
		return int(math.Trunc(d + roundBias))
	}
	return int(math.Trunc(d - roundBias))
}

// ValidDimension reports whether n may be requested as a width or height.
func ValidDimension(n int) bool {
	return n >= 1 && n <= MaxDimension
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
