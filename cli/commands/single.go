package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"imageConverter/converter"
)

// runSingle converts args[0]. Optional positions are output file, format,
// quality, width and height. Problems are reported on the port and never
// turn into a non-zero exit.
func (a *App) runSingle(ctx context.Context, args []string) {
	input := args[0]
	if info, err := os.Stat(input); err != nil || info.IsDir() {
		a.port.WriteLine("The file %s does not exist.", input)
		return
	}

	var output string
	if len(args) > 1 && args[1] != "" {
		if err := os.MkdirAll(filepath.Dir(args[1]), 0o755); err != nil {
			a.port.WriteLine("Failed to create the output directory. %v", err)
			return
		}
		output = args[1]
	}

	format := converter.FormatBMP
	if len(args) > 2 {
		f, err := converter.ParseFormat(args[2])
		if err != nil {
			a.port.WriteLine("Invalid format %s.", args[2])
			return
		}
		format = f
	}

	quality := a.cfg.Quality
	if len(args) > 3 {
		q, err := strconv.Atoi(args[3])
		if err != nil || q < 0 || q > 100 {
			a.port.WriteLine("Invalid quality %s.", args[3])
			return
		}
		quality = q
	}

	width := optionalInt(args, 4)
	height := optionalInt(args, 5)

	if output == "" {
		output = DefaultOutputPath(input, format, width, height)
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			a.port.WriteLine("Failed to create the output directory. %v", err)
			return
		}
	}

	if _, err := os.Stat(output); err == nil {
		a.port.WriteLine("File %s already exists. Skipping.", output)
		return
	}

	res := a.conv.Convert(ctx, converter.Request{
		InputPath:    input,
		OutputPath:   output,
		Format:       format,
		Quality:      quality,
		TargetWidth:  width,
		TargetHeight: height,
		Backend:      a.cfg.BackendKind(),
	})
	if !res.Success {
		a.logger.Error("Conversion failed", zap.String("input", input), zap.Error(res.Err))
		a.port.WriteLine("An error occurred during conversion: %v", res.Err)
		return
	}
	a.port.WriteLine("Converted %s to %s in %.2f seconds.", input, output, res.Elapsed.Seconds())
}

// DefaultOutputPath is <inputDir>/_output/<stem>[_WxH].<ext>. The size
// suffix is added only when both width and height are given.
func DefaultOutputPath(input string, format converter.Format, width, height *int) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var size string
	if width != nil && height != nil {
		size = fmt.Sprintf("_%dx%d", *width, *height)
	}
	return filepath.Join(filepath.Dir(input), "_output", stem+size+"."+format.Ext())
}

// optionalInt parses args[i] when present. Unparsable values count as absent.
func optionalInt(args []string, i int) *int {
	if len(args) <= i {
		return nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return nil
	}
	return &n
}
