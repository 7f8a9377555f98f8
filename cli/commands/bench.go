package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"imageConverter/converter"
)

var benchSizes = []converter.Dimensions{
	{Width: 1280, Height: 720},
	{Width: 640, Height: 480},
	{Width: 320, Height: 240},
	{Width: 160, Height: 120},
}

var benchFormats = []string{"JPEG", "WEBP", "AVIF", "JXL", "HEIC"}

func (a *App) benchCommand() *cobra.Command {
	var (
		formats []string
		quality int
	)

	cmd := &cobra.Command{
		Use:   "bench <inputFile>",
		Short: "Time one image converted to several formats and sizes",
		Long: `Convert one image to every listed format at 1280x720, 640x480, 320x240
and 160x120, printing the time taken and the output size of each. Outputs go
to <inputDir>/_output_<backend>_<timestamp>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]converter.Format, 0, len(formats))
			for _, s := range formats {
				f, err := converter.ParseFormat(s)
				if err != nil {
					return err
				}
				parsed = append(parsed, f)
			}
			if !cmd.Flags().Changed("quality") {
				quality = a.cfg.Quality
			}
			return a.bench(cmd, args[0], parsed, quality)
		},
	}
	cmd.Flags().StringSliceVar(&formats, "formats", benchFormats, "formats to convert to")
	cmd.Flags().IntVarP(&quality, "quality", "q", converter.DefaultQuality, "encoder quality 0-100")
	return cmd
}

func (a *App) bench(cmd *cobra.Command, input string, formats []converter.Format, quality int) error {
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	a.port.WriteLine("Convert from %s Size: %.2f KB", filepath.Base(input), kilobytes(info.Size()))
	a.port.WriteLine("")

	backend := a.cfg.BackendKind()
	outDir := filepath.Join(filepath.Dir(input),
		fmt.Sprintf("_output_%s_%s", backend, time.Now().Format("20060102_150405")))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	for _, size := range benchSizes {
		a.port.WriteLine("Converting to %dx%d...", size.Width, size.Height)
		for _, format := range formats {
			w, h := size.Width, size.Height
			out := filepath.Join(outDir, fmt.Sprintf("%s_%dx%d.%s", stem, w, h, format.Ext()))

			res := a.conv.Convert(cmd.Context(), converter.Request{
				InputPath:    input,
				OutputPath:   out,
				Format:       format,
				Quality:      quality,
				TargetWidth:  &w,
				TargetHeight: &h,
				Backend:      backend,
			})
			if !res.Success {
				a.logger.Debug("Bench conversion failed", zap.String("output", out), zap.Error(res.Err))
				a.port.WriteLine("%s\t%.2f seconds\tFailed!", format, res.Elapsed.Seconds())
				continue
			}

			var written int64
			if st, err := os.Stat(out); err == nil {
				written = st.Size()
			}
			a.port.WriteLine("%s\t%.2f seconds\tSize: %.2f KB", format, res.Elapsed.Seconds(), kilobytes(written))
		}
		a.port.WriteLine("")
	}

	a.port.WriteLine("Done!")
	return nil
}

func kilobytes(n int64) float64 {
	return float64(n) / 1024.0
}
