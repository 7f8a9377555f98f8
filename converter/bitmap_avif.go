//go:build avif

package converter

import (
	"image"
	"io"

	"github.com/Kagami/go-avif"
)

// avifEncoder maps 0-100 quality onto libaom's 0-63 quantizer, where lower is better.
func avifEncoder() (encodeFunc, string) {
	return func(w io.Writer, img image.Image, quality int) error {
		q := avif.MaxQuality - quality*avif.MaxQuality/100
		return avif.Encode(w, img, &avif.Options{
			Threads: 0,
			Speed:   avif.MaxSpeed,
			Quality: q,
		})
	}, ""
}
