package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"imageConverter/cli/batch"
	"imageConverter/cli/console"
	"imageConverter/converter"
)

type batchFlags struct {
	output  string
	quality int
	width   int
	height  int
}

func (a *App) batchCommand() *cobra.Command {
	var bf batchFlags

	cmd := &cobra.Command{
		Use:   "batch <dir> <format>",
		Short: "Convert every matching file of a folder without prompting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.folderOptions(cmd, args[0], args[1], bf)
			if err != nil {
				return err
			}
			reporter := console.NewReporter(a.port)
			opts.Reporter = reporter

			report, err := batch.NewDriver(a.conv, a.logger).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			reporter.Summary(report)
			return nil
		},
	}
	addFolderFlags(cmd, &bf)
	return cmd
}

func addFolderFlags(cmd *cobra.Command, bf *batchFlags) {
	f := cmd.Flags()
	f.StringVarP(&bf.output, "output", "o", "", "output folder (default <dir>/ConvertedImages_<FORMAT>)")
	f.IntVarP(&bf.quality, "quality", "q", -1, "encoder quality 0-100 (default from config)")
	f.IntVar(&bf.width, "width", 0, "requested width")
	f.IntVar(&bf.height, "height", 0, "requested height")
}

// folderOptions builds the options shared by batch and watch. The format
// must be supported by the configured backend.
func (a *App) folderOptions(cmd *cobra.Command, dir, formatArg string, bf batchFlags) (batch.Options, error) {
	format, err := converter.ParseFormat(formatArg)
	if err != nil {
		return batch.Options{}, err
	}
	caps, err := a.capabilities()
	if err != nil {
		return batch.Options{}, err
	}
	if err := caps.Check(a.cfg.BackendKind(), format); err != nil {
		return batch.Options{}, err
	}

	opts := a.batchOptions()
	opts.InputDir = dir
	opts.Format = format
	opts.OutputDir = bf.output
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(dir, batch.OutputDirName(format))
	}
	if cmd.Flags().Changed("quality") {
		if bf.quality < 0 || bf.quality > 100 {
			return batch.Options{}, fmt.Errorf("%w: %d", converter.ErrInvalidQuality, bf.quality)
		}
		opts.Quality = bf.quality
	}
	if cmd.Flags().Changed("width") {
		if !converter.ValidDimension(bf.width) {
			return batch.Options{}, fmt.Errorf("%w: width %d", converter.ErrInvalidSize, bf.width)
		}
		opts.TargetWidth = &bf.width
	}
	if cmd.Flags().Changed("height") {
		if !converter.ValidDimension(bf.height) {
			return batch.Options{}, fmt.Errorf("%w: height %d", converter.ErrInvalidSize, bf.height)
		}
		opts.TargetHeight = &bf.height
	}
	return opts, nil
}
