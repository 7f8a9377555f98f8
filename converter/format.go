package converter

import (
	"fmt"
	"strconv"
	"strings"
)

// Format is a target raster format.
type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
	FormatWEBP
	FormatAVIF
	FormatJXL
	FormatHEIC
	FormatBMP
	FormatGIF
	FormatTIFF
)

// AllFormats lists every format in prompt order. The index of a format in
// this slice is the number accepted by ParseFormat.
var AllFormats = []Format{
	FormatJPEG,
	FormatPNG,
	FormatWEBP,
	FormatAVIF,
	FormatJXL,
	FormatHEIC,
	FormatBMP,
	FormatGIF,
	FormatTIFF,
}

var formatNames = map[Format]string{
	FormatJPEG: "JPEG",
	FormatPNG:  "PNG",
	FormatWEBP: "WEBP",
	FormatAVIF: "AVIF",
	FormatJXL:  "JXL",
	FormatHEIC: "HEIC",
	FormatBMP:  "BMP",
	FormatGIF:  "GIF",
	FormatTIFF: "TIFF",
}

var formatAliases = map[string]Format{
	"jpg":     FormatJPEG,
	"jpe":     FormatJPEG,
	"jpegxl":  FormatJXL,
	"jpeg-xl": FormatJXL,
	"heif":    FormatHEIC,
	"tif":     FormatTIFF,
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Ext returns the output file extension without the dot.
func (f Format) Ext() string {
	return strings.ToLower(f.String())
}

// Valid reports whether f is one of AllFormats.
func (f Format) Valid() bool {
	_, ok := formatNames[f]
	return ok
}

// ParseFormat accepts a format name, a common alias or the numeric index
// from AllFormats. Matching is case-insensitive.
func ParseFormat(s string) (Format, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty format", ErrUnsupportedFormat)
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n >= 0 && n < len(AllFormats) {
			return AllFormats[n], nil
		}
		return 0, fmt.Errorf("%w: index %d", ErrUnsupportedFormat, n)
	}

	lower := strings.ToLower(strings.TrimPrefix(s, "."))
	for _, f := range AllFormats {
		if f.Ext() == lower {
			return f, nil
		}
	}
	if f, ok := formatAliases[lower]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
}

// MarshalText encodes the format as its upper-case name.
func (f Format) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText lets formats appear by name in JSON and YAML.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
