package converter

import "testing"

func TestTargetSize(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		reqW, reqH   *int
		wantW, wantH int
	}{
		{"no request keeps source", 640, 480, nil, nil, 640, 480},
		{"width only keeps source", 640, 480, intPtr(100), nil, 640, 480},
		{"height only keeps source", 640, 480, nil, intPtr(100), 640, 480},
		{"square to square", 100, 100, intPtr(50), intPtr(50), 50, 50},
		{"landscape pins width", 200, 100, intPtr(100), intPtr(100), 100, 50},
		{"portrait pins height", 100, 200, intPtr(100), intPtr(100), 50, 100},
		{"exact tie takes width branch", 400, 300, intPtr(200), intPtr(150), 200, 150},
		{"upscale", 160, 120, intPtr(1280), intPtr(720), 960, 720},
		{"derived side rounds to nearest", 3, 5, intPtr(1), intPtr(10), 1, 2},
		{"derived side never zero", 10000, 10, intPtr(100), intPtr(100), 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TargetSize(tt.srcW, tt.srcH, tt.reqW, tt.reqH)
			if got.Width != tt.wantW || got.Height != tt.wantH {
				t.Errorf("TargetSize(%d, %d) = %dx%d, want %dx%d",
					tt.srcW, tt.srcH, got.Width, got.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestTargetSize_SourceUnchangedForAnySize(t *testing.T) {
	for _, w := range []int{1, 7, 640, 4096} {
		for _, h := range []int{1, 3, 480, 2160} {
			got := TargetSize(w, h, nil, nil)
			if got.Width != w || got.Height != h {
				t.Errorf("TargetSize(%d, %d, nil, nil) = %dx%d", w, h, got.Width, got.Height)
			}
		}
	}
}

func TestRoundOff(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{2.5, 3},
		{-2.5, -3},
		{2.4999, 2},
		{2.49999, 2},
		{-2.4999, -2},
		{0, 0},
		{0.49, 0},
		{99.5, 100},
	}

	for _, tt := range tests {
		if got := roundOff(tt.in); got != tt.want {
			t.Errorf("roundOff(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestScaleEpsilon_SinglePrecision(t *testing.T) {
	if scaleEpsilon != 9.999999974752427e-07 {
		t.Errorf("scaleEpsilon = %v, want the float32 value of 1e-6", scaleEpsilon)
	}
}

func TestValidDimension(t *testing.T) {
	for n, want := range map[int]bool{-1: false, 0: false, 1: true, MaxDimension: true, MaxDimension + 1: false} {
		if got := ValidDimension(n); got != want {
			t.Errorf("ValidDimension(%d) = %v, want %v", n, got, want)
		}
	}
}
