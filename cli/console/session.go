package console

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"imageConverter/cli/batch"
	"imageConverter/converter"
)

// Runner executes one batch run.
type Runner interface {
	Run(ctx context.Context, opts batch.Options) (batch.Report, error)
}

// Session asks for a directory and a format, then converts the directory.
type Session struct {
	port   Port
	runner Runner
	caps   converter.Capabilities
	base   batch.Options
}

// NewSession returns a session. base supplies everything except the input
// directory, output directory and format, which are chosen interactively.
// caps are the selected backend's capabilities.
func NewSession(port Port, runner Runner, caps converter.Capabilities, base batch.Options) *Session {
	return &Session{port: port, runner: runner, caps: caps, base: base}
}

func (s *Session) Run(ctx context.Context) error {
	dir, err := s.promptDir(ctx)
	if err != nil {
		return err
	}
	format, err := s.promptFormat(ctx)
	if err != nil {
		return err
	}

	reporter := NewReporter(s.port)
	opts := s.base
	opts.InputDir = dir
	opts.OutputDir = filepath.Join(dir, batch.OutputDirName(format))
	opts.Format = format
	opts.Reporter = reporter

	report, err := s.runner.Run(ctx, opts)
	if err != nil {
		return err
	}
	reporter.Summary(report)
	return nil
}

func (s *Session) promptDir(ctx context.Context) (string, error) {
	s.port.WriteLine("Enter the path of the folder containing the files to convert.")
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return "", err
		}
		dir := strings.Trim(strings.TrimSpace(line), `"`)
		if dir != "" {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				return dir, nil
			}
		}
		s.port.WriteLine("The folder does not exist. Please enter it again.")
	}
}

func (s *Session) promptFormat(ctx context.Context) (converter.Format, error) {
	s.port.WriteLine("Choose the output format.")
	for {
		for _, f := range converter.AllFormats {
			if c := s.caps[f]; c.Supported {
				s.port.WriteLine("%d: %s", int(f), f)
			} else {
				s.port.WriteLine("%d: %s (unavailable: %s)", int(f), f, c.Reason)
			}
		}

		line, err := s.readLine(ctx)
		if err != nil {
			return 0, err
		}
		format, err := converter.ParseFormat(strings.TrimSpace(line))
		if err != nil {
			s.port.WriteLine("Invalid format. Please enter it again.")
			continue
		}
		if c := s.caps[format]; !c.Supported {
			s.port.WriteLine("%s is not available: %s. Please enter it again.", format, c.Reason)
			continue
		}
		return format, nil
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := s.port.ReadLine()
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return line, nil
}

