package converter

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrUnknownBackend    = errors.New("unknown backend")
	ErrInputNotFound     = errors.New("input file not found")
	ErrInvalidQuality    = errors.New("quality must be between 0 and 100")
	ErrInvalidSize       = errors.New("target size must be between 1 and 16384")
	ErrDecode            = errors.New("failed to decode image")
	ErrEncode            = errors.New("failed to encode image")
	ErrPanic             = errors.New("conversion panicked")
)
