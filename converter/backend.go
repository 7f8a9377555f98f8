package converter

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// BackendKind selects which codec implementation performs a conversion.
type BackendKind string

const (
	// BackendBitmap decodes, resizes and encodes in-process with quality-only tuning.
	BackendBitmap BackendKind = "bitmap"
	// BackendMagick drives ImageMagick and supports per-format encoder defines.
	BackendMagick BackendKind = "magick"
)

// ParseBackend maps a user-supplied backend name to a BackendKind.
func ParseBackend(s string) (BackendKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bitmap", "skia", "":
		return BackendBitmap, nil
	case "magick", "imagemagick":
		return BackendMagick, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownBackend, s)
	}
}

// Capability is one row of a backend's format table. Every backend holds one
// row per entry of AllFormats; unsupported formats carry a Reason.
type Capability struct {
	Format    Format
	Supported bool
	Reason    string
}

// Capabilities is a backend's format table.
type Capabilities map[Format]Capability

// Check returns nil when f is supported and an ErrUnsupportedFormat wrapping
// the row's reason otherwise. Formats missing from the table are unsupported.
func (c Capabilities) Check(backend BackendKind, f Format) error {
	row, ok := c[f]
	if !ok {
		return fmt.Errorf("%w: %s has no mapping for %s", ErrUnsupportedFormat, backend, f)
	}
	if !row.Supported {
		return fmt.Errorf("%w: %s cannot write %s (%s)", ErrUnsupportedFormat, backend, f, row.Reason)
	}
	return nil
}

// Supported lists supported formats in AllFormats order.
func (c Capabilities) Supported() []Format {
	return lo.Filter(AllFormats, func(f Format, _ int) bool {
		return c[f].Supported
	})
}

// Backend performs one conversion. Implementations compute the target size
// with TargetSize and write the result to req.OutputPath.
type Backend interface {
	Kind() BackendKind
	Capabilities() Capabilities
	Convert(ctx context.Context, req Request) error
}

func supported(f Format) Capability {
	return Capability{Format: f, Supported: true}
}

func unsupported(f Format, reason string) Capability {
	return Capability{Format: f, Reason: reason}
}
