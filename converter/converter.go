package converter

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

const DefaultQuality = 75

// Request describes one conversion. It is built once per input file and not
// modified afterwards.
type Request struct {
	InputPath    string
	OutputPath   string
	Format       Format
	Quality      int
	TargetWidth  *int
	TargetHeight *int
	Backend      BackendKind
}

// Result is the outcome of one Request. Err is nil exactly when Success is true.
type Result struct {
	Success    bool
	InputPath  string
	OutputPath string
	Elapsed    time.Duration
	Err        error
}

type Converter struct {
	logger   *zap.Logger
	backends map[BackendKind]Backend
}

func NewConverter(logger *zap.Logger, backends ...Backend) *Converter {
	c := &Converter{
		logger:   logger,
		backends: make(map[BackendKind]Backend, len(backends)),
	}
	for _, b := range backends {
		c.backends[b.Kind()] = b
	}
	return c
}

// Backend returns the registered backend of the given kind.
func (c *Converter) Backend(kind BackendKind) (Backend, error) {
	b, ok := c.backends[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, kind)
	}
	return b, nil
}

// Convert runs req on its backend. It never panics and never returns an
// error directly: every failure, including a backend panic, is reported in
// the Result. Failures are logged at debug level only; callers decide how
// to surface them.
func (c *Converter) Convert(ctx context.Context, req Request) (res Result) {
	start := time.Now()
	res = Result{InputPath: req.InputPath, OutputPath: req.OutputPath}
	preexisting := fileExists(req.OutputPath)
	started := false

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		res.Elapsed = time.Since(start)
		res.Success = res.Err == nil
		if res.Err != nil {
			if started && !preexisting {
				removePartial(req.OutputPath)
			}
			c.logger.Debug("Conversion failed",
				zap.String("input", req.InputPath),
				zap.String("output", req.OutputPath),
				zap.Error(res.Err),
			)
		}
	}()

	backend, err := c.prepare(ctx, req)
	if err != nil {
		res.Err = err
		return res
	}

	c.logger.Debug("Starting conversion",
		zap.String("input", req.InputPath),
		zap.String("output", req.OutputPath),
		zap.Stringer("format", req.Format),
		zap.String("backend", string(req.Backend)),
	)

	started = true
	if res.Err = backend.Convert(ctx, req); res.Err == nil {
		c.logger.Debug("Conversion completed", zap.String("output", req.OutputPath))
	}
	return res
}

// prepare validates req and resolves the backend that will run it.
func (c *Converter) prepare(ctx context.Context, req Request) (Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	backend, err := c.Backend(req.Backend)
	if err != nil {
		return nil, err
	}
	if err := backend.Capabilities().Check(backend.Kind(), req.Format); err != nil {
		return nil, err
	}
	return backend, nil
}

func validate(req Request) error {
	if req.InputPath == "" {
		return fmt.Errorf("%w: empty path", ErrInputNotFound)
	}
	if !req.Format.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(req.Format))
	}
	if req.Quality < 0 || req.Quality > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuality, req.Quality)
	}
	if (req.TargetWidth != nil && !ValidDimension(*req.TargetWidth)) ||
		(req.TargetHeight != nil && !ValidDimension(*req.TargetHeight)) {
		return ErrInvalidSize
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// removePartial deletes an output left behind by a failed call. Outputs that
// existed before the call are never passed here.
func removePartial(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
