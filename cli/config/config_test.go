package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"imageConverter/converter"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendKind() != converter.BackendBitmap {
		t.Errorf("backend = %s, want bitmap", cfg.Backend)
	}
	if cfg.Quality != 75 {
		t.Errorf("quality = %d, want 75", cfg.Quality)
	}
	if diff := cmp.Diff([]string{".jpg", ".jpeg"}, cfg.Extensions); diff != "" {
		t.Errorf("extensions (-want +got):\n%s", diff)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "imgconv.yaml")

	content := `
backend: magick
quality: 60
workers: 4
task_timeout: 45s
extensions: ["PNG", ".Jpg"]
log_level: debug
log_format: json
magick:
  binary: /usr/local/bin/magick
  tile_size: 512x512
  lossless: true
  effort: 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.BackendKind() != converter.BackendMagick {
		t.Errorf("backend = %s, want magick", cfg.Backend)
	}
	if cfg.Quality != 60 || cfg.Workers != 4 {
		t.Errorf("quality/workers = %d/%d", cfg.Quality, cfg.Workers)
	}
	if cfg.TaskTimeout != 45*time.Second {
		t.Errorf("task timeout = %s", cfg.TaskTimeout)
	}
	if diff := cmp.Diff([]string{".png", ".jpg"}, cfg.Extensions); diff != "" {
		t.Errorf("extensions (-want +got):\n%s", diff)
	}
	if cfg.Magick.TileSize != "512x512" || !cfg.Magick.Lossless || cfg.Magick.Effort != 4 {
		t.Errorf("magick options = %+v", cfg.Magick)
	}
	// Unset keys keep their defaults.
	if !cfg.Magick.AutoFilter {
		t.Error("auto_filter default lost")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "imgconv.yaml")
	if err := os.WriteFile(path, []byte("quality: 60\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("IMGCONV_QUALITY", "90")
	t.Setenv("IMGCONV_EXTENSIONS", "webp,bmp")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Quality != 90 {
		t.Errorf("quality = %d, want 90", cfg.Quality)
	}
	if diff := cmp.Diff([]string{".webp", ".bmp"}, cfg.Extensions); diff != "" {
		t.Errorf("extensions (-want +got):\n%s", diff)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("IMGCONV_WORKERS=7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("IMGCONV_WORKERS") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 7 {
		t.Errorf("workers = %d, want 7", cfg.Workers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend", func(c *Config) { c.Backend = "gpu" }},
		{"quality too high", func(c *Config) { c.Quality = 101 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"no extensions", func(c *Config) { c.Extensions = []string{" "} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
