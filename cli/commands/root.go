// Package commands wires the imgconv command line: single-file conversion,
// the interactive session and the batch, watch and bench subcommands.
package commands

import (
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"imageConverter/cli/batch"
	"imageConverter/cli/config"
	"imageConverter/cli/console"
	"imageConverter/converter"
)

type flags struct {
	configPath string
	backend    string
	workers    int
	timeout    time.Duration
	logLevel   string
	logFormat  string
	extensions []string
}

// App holds what every command needs once flags are parsed.
type App struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	flags flags

	cfg    *config.Config
	logger *zap.Logger
	conv   *converter.Converter
	port   console.Port

	magickRunner converter.CommandRunner
}

// NewRootCommand returns the imgconv command tree reading operator input
// from in, writing messages to out and logs to errOut.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &App{in: in, out: out, errOut: errOut, magickRunner: converter.ExecRunner}
	return a.rootCommand()
}

func (a *App) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imgconv [inputFile] [outputFile] [format] [quality] [width] [height]",
		Short: "Convert images between raster formats",
		Long: `Convert one image, or with no arguments, interactively convert every
matching file of a folder.

Single-file mode writes to <inputDir>/_output/<name>[_WxH].<ext> unless an
output file is given. The format defaults to BMP and the quality to 75.
Existing outputs are never overwritten.`,
		Args:              cobra.MaximumNArgs(6),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.runInteractive(cmd)
			}
			a.runSingle(cmd.Context(), args)
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.flags.backend, "backend", "", "codec backend: bitmap or magick")
	pf.IntVar(&a.flags.workers, "workers", 0, "concurrent conversions (0 uses every CPU)")
	pf.DurationVar(&a.flags.timeout, "timeout", 0, "per-file conversion timeout (0 disables)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "log format: console or json")
	pf.StringSliceVar(&a.flags.extensions, "ext", nil, "input extensions picked up by folder modes")

	cmd.SetIn(a.in)
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)
	cmd.AddCommand(a.batchCommand(), a.watchCommand(), a.benchCommand())
	return cmd
}

// setup loads the config, applies explicitly set flags on top of it and
// builds the logger, the console port and the converter.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}

	fs := cmd.Flags()
	if fs.Changed("backend") {
		cfg.Backend = a.flags.backend
	}
	if fs.Changed("workers") {
		cfg.Workers = a.flags.workers
	}
	if fs.Changed("timeout") {
		cfg.TaskTimeout = a.flags.timeout
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = a.flags.logFormat
	}
	if fs.Changed("ext") {
		cfg.Extensions = a.flags.extensions
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, a.errOut)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.port = console.NewStdio(a.in, a.out)
	a.conv = converter.NewConverter(logger,
		converter.NewBitmapBackend(logger),
		converter.NewMagickBackend(logger, cfg.Magick, a.magickRunner),
	)

	logger.Debug("Configuration loaded",
		zap.String("backend", cfg.Backend),
		zap.Int("workers", cfg.Workers),
		zap.Duration("task_timeout", cfg.TaskTimeout),
		zap.Strings("extensions", cfg.Extensions),
	)
	return nil
}

// batchOptions returns the config-derived part of a folder run.
func (a *App) batchOptions() batch.Options {
	return batch.Options{
		Extensions:  a.cfg.Extensions,
		Quality:     a.cfg.Quality,
		Backend:     a.cfg.BackendKind(),
		Workers:     a.cfg.Workers,
		TaskTimeout: a.cfg.TaskTimeout,
	}
}

func (a *App) capabilities() (converter.Capabilities, error) {
	b, err := a.conv.Backend(a.cfg.BackendKind())
	if err != nil {
		return nil, err
	}
	return b.Capabilities(), nil
}

func (a *App) runInteractive(cmd *cobra.Command) error {
	caps, err := a.capabilities()
	if err != nil {
		return err
	}
	session := console.NewSession(a.port, batch.NewDriver(a.conv, a.logger), caps, a.batchOptions())
	return session.Run(cmd.Context())
}
