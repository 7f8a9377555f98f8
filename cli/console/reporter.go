package console

import (
	"imageConverter/cli/batch"
	"imageConverter/converter"
)

// Reporter prints batch events to a port.
type Reporter struct {
	port Port
}

func NewReporter(port Port) *Reporter {
	return &Reporter{port: port}
}

func (r *Reporter) Skipped(s batch.Skip) {
	switch s.Reason {
	case batch.SkipExists:
		r.port.WriteLine("File %s already exists. Skipping.", s.OutputPath)
	default:
		r.port.WriteLine("Skipping %s: %s (%s).", s.InputPath, s.Reason, s.OutputPath)
	}
}

func (r *Reporter) Finished(res converter.Result) {
	if !res.Success {
		r.port.WriteLine("An error occurred during conversion of %s: %v", res.InputPath, res.Err)
	}
}

// Summary prints the closing line of a run.
func (r *Reporter) Summary(report batch.Report) {
	r.port.WriteLine("Conversion finished. %d converted, %d failed, %d skipped. %.2f seconds",
		report.Succeeded, report.Failed, len(report.Skipped), report.Elapsed.Seconds())
}
