package batch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"imageConverter/converter"
)

// Discover lists regular files directly inside inputDir whose extension
// matches one of exts (lowercase, with leading dot). Matching is
// case-insensitive and the result is sorted for a deterministic schedule.
// Subdirectories are not descended into, so earlier output folders such as
// ConvertedImages_WEBP are never picked up as input.
func Discover(inputDir string, exts []string) ([]string, error) {
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(inputDir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// OutputPath places input's base name, with the format's extension, in outputDir.
func OutputPath(outputDir, input string, format converter.Format) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+"."+format.Ext())
}

// OutputDirName is the per-format folder interactive and batch runs write into.
func OutputDirName(format converter.Format) string {
	return "ConvertedImages_" + format.String()
}
