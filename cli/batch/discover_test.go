package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"imageConverter/converter"
)

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "A.JPG", "c.jpeg", "notes.txt", "d.png"} {
		touch(t, dir, name)
	}
	sub := filepath.Join(dir, OutputDirName(converter.FormatWEBP))
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, sub, "nested.jpg")

	got, err := Discover(dir, []string{".jpg", ".jpeg"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{
		filepath.Join(dir, "A.JPG"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "c.jpeg"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover (-want +got):\n%s", diff)
	}
}

func TestDiscover_Empty(t *testing.T) {
	got, err := Discover(t.TempDir(), []string{".jpg"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no files, got %v", got)
	}
}

func TestDiscover_MissingDir(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "missing"), []string{".jpg"}); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input  string
		format converter.Format
		want   string
	}{
		{"/in/photo.jpg", converter.FormatWEBP, "/out/photo.webp"},
		{"/in/archive.tar.jpeg", converter.FormatAVIF, "/out/archive.tar.avif"},
		{"/in/noext", converter.FormatBMP, "/out/noext.bmp"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := OutputPath("/out", tt.input, tt.format); got != tt.want {
				t.Errorf("OutputPath = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOutputDirName(t *testing.T) {
	if got := OutputDirName(converter.FormatJXL); got != "ConvertedImages_JXL" {
		t.Errorf("OutputDirName = %s", got)
	}
}
