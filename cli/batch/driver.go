// Package batch converts every matching file of a directory concurrently.
//
// Files whose output already exists are skipped before anything is
// scheduled. The rest run on a bounded worker pool; one failure never
// cancels its siblings and every outcome is collected before the run
// reports. The existence check is not race-guarded: two runs writing the
// same output directory at once can still both convert a file.
package batch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imageConverter/converter"
	"imageConverter/pool"
)

// Converter is the single-file entry point the driver schedules.
type Converter interface {
	Convert(ctx context.Context, req converter.Request) converter.Result
}

// SkipReason says why a file was not scheduled.
type SkipReason string

const (
	SkipExists    SkipReason = "output exists"
	SkipDuplicate SkipReason = "output claimed by another input"
)

type Skip struct {
	InputPath  string
	OutputPath string
	Reason     SkipReason
}

// Reporter receives per-file events of one run. Calls are serialized.
type Reporter interface {
	Skipped(s Skip)
	Finished(res converter.Result)
}

type Options struct {
	InputDir     string
	OutputDir    string
	Extensions   []string
	Format       converter.Format
	Quality      int
	TargetWidth  *int
	TargetHeight *int
	Backend      converter.BackendKind
	Workers      int
	TaskTimeout  time.Duration
	// Reporter is optional.
	Reporter Reporter
}

type Report struct {
	RunID     string
	Skipped   []Skip
	Results   []converter.Result
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// Scheduled returns how many conversions were attempted.
func (r Report) Scheduled() int {
	return len(r.Results)
}

type Driver struct {
	conv   Converter
	logger *zap.Logger
}

func NewDriver(conv Converter, logger *zap.Logger) *Driver {
	return &Driver{conv: conv, logger: logger}
}

// Run discovers inputs in opts.InputDir, creates opts.OutputDir and converts
// everything that has not been converted yet. The error is non-nil only
// when the run could not start.
func (d *Driver) Run(ctx context.Context, opts Options) (Report, error) {
	files, err := Discover(opts.InputDir, opts.Extensions)
	if err != nil {
		return Report{}, fmt.Errorf("discover inputs: %w", err)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("create output directory: %w", err)
	}
	return d.RunFiles(ctx, opts, files), nil
}

// RunFiles converts the given files with the same skip and scheduling
// rules as Run. opts.InputDir is ignored.
func (d *Driver) RunFiles(ctx context.Context, opts Options, files []string) Report {
	start := time.Now()
	report := Report{RunID: uuid.NewString()}
	log := d.logger.With(zap.String("run_id", report.RunID))
	rep := newSerialReporter(opts.Reporter)

	reqs := d.plan(opts, files, &report, rep)
	log.Info("Batch planned",
		zap.Int("found", len(files)),
		zap.Int("scheduled", len(reqs)),
		zap.Int("skipped", len(report.Skipped)),
	)

	results := make([]converter.Result, len(reqs))
	p := pool.NewWorkerPool(opts.Workers)
	for i, req := range reqs {
		p.Submit(ctx, func(ctx context.Context) {
			if opts.TaskTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.TaskTimeout)
				defer cancel()
			}
			res := d.conv.Convert(ctx, req)
			results[i] = res
			d.finished(log, rep, res)
		})
	}
	p.Wait()

	report.Results = results
	for _, res := range results {
		if res.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	report.Elapsed = time.Since(start)

	log.Info("Batch finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", len(report.Skipped)),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report
}

// plan builds one request per file that still needs converting and records
// a Skip for the rest.
func (d *Driver) plan(opts Options, files []string, report *Report, rep *serialReporter) []converter.Request {
	claimed := make(map[string]bool, len(files))
	reqs := make([]converter.Request, 0, len(files))

	for _, file := range files {
		out := OutputPath(opts.OutputDir, file, opts.Format)

		var reason SkipReason
		switch {
		case claimed[out]:
			reason = SkipDuplicate
		case exists(out):
			reason = SkipExists
		}
		if reason != "" {
			s := rep.skipped(Skip{InputPath: file, OutputPath: out, Reason: reason})
			report.Skipped = append(report.Skipped, s)
			continue
		}

		claimed[out] = true
		reqs = append(reqs, converter.Request{
			InputPath:    file,
			OutputPath:   out,
			Format:       opts.Format,
			Quality:      opts.Quality,
			TargetWidth:  opts.TargetWidth,
			TargetHeight: opts.TargetHeight,
			Backend:      opts.Backend,
		})
	}
	return reqs
}

func (d *Driver) finished(log *zap.Logger, rep *serialReporter, res converter.Result) {
	if !res.Success {
		log.Error("Conversion failed",
			zap.String("input", res.InputPath),
			zap.String("output", res.OutputPath),
			zap.Duration("elapsed", res.Elapsed),
			zap.Error(res.Err),
		)
	}
	rep.finished(res)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type serialReporter struct {
	mu sync.Mutex
	r  Reporter
}

func newSerialReporter(r Reporter) *serialReporter {
	return &serialReporter{r: r}
}

func (s *serialReporter) skipped(skip Skip) Skip {
	if s.r != nil {
		s.mu.Lock()
		s.r.Skipped(skip)
		s.mu.Unlock()
	}
	return skip
}

func (s *serialReporter) finished(res converter.Result) {
	if s.r != nil {
		s.mu.Lock()
		s.r.Finished(res)
		s.mu.Unlock()
	}
}
