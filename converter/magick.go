package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// MagickOptions are the encoder defines passed to ImageMagick for every
// write. Each is emitted as "-define <format>:<key>=<value>".
type MagickOptions struct {
	Binary            string `yaml:"binary"`
	TileSize          string `yaml:"tile_size"`
	Lossless          bool   `yaml:"lossless"`
	Effort            int    `yaml:"effort"`
	AutoFilter        bool   `yaml:"auto_filter"`
	EmulateSourceSize bool   `yaml:"emulate_source_size"`
}

func DefaultMagickOptions() MagickOptions {
	return MagickOptions{
		Binary:            "magick",
		TileSize:          "256x256",
		Lossless:          false,
		Effort:            6,
		AutoFilter:        true,
		EmulateSourceSize: true,
	}
}

// CommandRunner runs an external program and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec, folding stderr into the error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return stdout.Bytes(), nil
}

// MagickBackend converts by invoking the ImageMagick CLI. It supports every
// format in AllFormats, subject to the delegates compiled into ImageMagick.
type MagickBackend struct {
	logger *zap.Logger
	opts   MagickOptions
	run    CommandRunner
	caps   Capabilities
}

func NewMagickBackend(logger *zap.Logger, opts MagickOptions, run CommandRunner) *MagickBackend {
	if opts.Binary == "" {
		opts.Binary = "magick"
	}
	if run == nil {
		run = ExecRunner
	}
	caps := make(Capabilities, len(AllFormats))
	for _, f := range AllFormats {
		caps[f] = supported(f)
	}
	return &MagickBackend{logger: logger, opts: opts, run: run, caps: caps}
}

func (m *MagickBackend) Kind() BackendKind { return BackendMagick }

func (m *MagickBackend) Capabilities() Capabilities { return m.caps }

func (m *MagickBackend) Convert(ctx context.Context, req Request) error {
	if err := m.caps.Check(BackendMagick, req.Format); err != nil {
		return err
	}
	if _, err := os.Stat(req.InputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, req.InputPath)
		}
		return fmt.Errorf("stat input: %w", err)
	}

	var size *Dimensions
	if req.TargetWidth != nil && req.TargetHeight != nil {
		src, err := m.identify(ctx, req.InputPath)
		if err != nil {
			return err
		}
		d := TargetSize(src.Width, src.Height, req.TargetWidth, req.TargetHeight)
		size = &d
	}

	args := m.convertArgs(req, size)
	m.logger.Debug("Running ImageMagick",
		zap.String("binary", m.opts.Binary),
		zap.Strings("args", args),
	)

	if _, err := m.run(ctx, m.opts.Binary, args...); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, req.Format, err)
	}
	return nil
}

// identify reads the source dimensions of the first frame without decoding pixels.
func (m *MagickBackend) identify(ctx context.Context, path string) (Dimensions, error) {
	out, err := m.run(ctx, m.opts.Binary, "identify", "-ping", "-format", "%w %h", path+"[0]")
	if err != nil {
		return Dimensions{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return parseIdentify(out)
}

func parseIdentify(out []byte) (Dimensions, error) {
	fields := strings.Fields(string(out))
	if len(fields) != 2 {
		return Dimensions{}, fmt.Errorf("%w: unexpected identify output %q", ErrDecode, string(out))
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return Dimensions{}, fmt.Errorf("%w: unexpected identify output %q", ErrDecode, string(out))
	}
	return Dimensions{Width: w, Height: h}, nil
}

func (m *MagickBackend) convertArgs(req Request, size *Dimensions) []string {
	args := []string{req.InputPath}
	if size != nil {
		args = append(args, "-resize", fmt.Sprintf("%dx%d!", size.Width, size.Height))
	}
	args = append(args, "-quality", strconv.Itoa(req.Quality))

	prefix := req.Format.Ext()
	defines := []string{
		"tile-size=" + m.opts.TileSize,
		"lossless=" + strconv.FormatBool(m.opts.Lossless),
		"method=" + strconv.Itoa(m.opts.Effort),
		"auto-filter=" + strconv.FormatBool(m.opts.AutoFilter),
		"emulate-jpeg-size=" + strconv.FormatBool(m.opts.EmulateSourceSize),
	}
	for _, d := range defines {
		if strings.HasPrefix(d, "tile-size=") && m.opts.TileSize == "" {
			continue
		}
		args = append(args, "-define", prefix+":"+d)
	}

	return append(args, req.Format.String()+":"+req.OutputPath)
}
