package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

type encodeFunc func(w io.Writer, img image.Image, quality int) error

// BitmapBackend converts in-process: imaging decodes and resizes, and each
// format has a dedicated encoder tuned only by quality.
type BitmapBackend struct {
	logger   *zap.Logger
	encoders map[Format]encodeFunc
	caps     Capabilities
}

func NewBitmapBackend(logger *zap.Logger) *BitmapBackend {
	encoders := map[Format]encodeFunc{
		FormatJPEG: func(w io.Writer, img image.Image, quality int) error {
			return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality(quality)))
		},
		FormatPNG: func(w io.Writer, img image.Image, _ int) error {
			return imaging.Encode(w, img, imaging.PNG)
		},
		FormatBMP: func(w io.Writer, img image.Image, _ int) error {
			return imaging.Encode(w, img, imaging.BMP)
		},
		FormatGIF: func(w io.Writer, img image.Image, _ int) error {
			return imaging.Encode(w, img, imaging.GIF)
		},
		FormatTIFF: func(w io.Writer, img image.Image, _ int) error {
			return imaging.Encode(w, img, imaging.TIFF)
		},
		FormatWEBP: func(w io.Writer, img image.Image, quality int) error {
			return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
		},
	}

	caps := Capabilities{
		FormatJXL:  unsupported(FormatJXL, "no JPEG-XL encoder available in-process"),
		FormatHEIC: unsupported(FormatHEIC, "no HEIC encoder available in-process"),
	}
	if enc, reason := avifEncoder(); enc != nil {
		encoders[FormatAVIF] = enc
	} else {
		caps[FormatAVIF] = unsupported(FormatAVIF, reason)
	}
	for f := range encoders {
		caps[f] = supported(f)
	}

	return &BitmapBackend{logger: logger, encoders: encoders, caps: caps}
}

func (b *BitmapBackend) Kind() BackendKind { return BackendBitmap }

func (b *BitmapBackend) Capabilities() Capabilities { return b.caps }

func (b *BitmapBackend) Convert(ctx context.Context, req Request) error {
	if err := b.caps.Check(BackendBitmap, req.Format); err != nil {
		return err
	}
	encode := b.encoders[req.Format]

	data, err := os.ReadFile(req.InputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, req.InputPath)
		}
		return fmt.Errorf("read input: %w", err)
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	img := src
	bounds := src.Bounds()
	size := TargetSize(bounds.Dx(), bounds.Dy(), req.TargetWidth, req.TargetHeight)
	if size.Width != bounds.Dx() || size.Height != bounds.Dy() {
		b.logger.Debug("Resizing image",
			zap.String("input", req.InputPath),
			zap.Int("width", size.Width),
			zap.Int("height", size.Height),
		)
		img = imaging.Resize(src, size.Width, size.Height, imaging.Linear)
	}

	var buf bytes.Buffer
	if err := encode(&buf, img, req.Quality); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, req.Format, err)
	}

	if err := os.WriteFile(req.OutputPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// jpegQuality clamps to the 1-100 range image/jpeg accepts.
func jpegQuality(q int) int {
	if q < 1 {
		return 1
	}
	return q
}
