//go:build !avif

package converter

func avifEncoder() (encodeFunc, string) {
	return nil, "built without the avif tag (requires libaom)"
}
