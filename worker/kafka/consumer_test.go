package kafka

import (
	"errors"
	"testing"
)

func TestDecodeJob(t *testing.T) {
	job, err := DecodeJob([]byte(`{"task_id":"t1","trace_id":"x","input_path":"/u/a.jpg","output_path":"/o/t1.avif","format":"AVIF","quality":50,"target_height":240,"backend":"magick"}`))
	if err != nil {
		t.Fatalf("DecodeJob: %v", err)
	}
	if job.TaskID != "t1" || job.Format != "AVIF" || job.Quality != 50 {
		t.Errorf("job = %+v", job)
	}
	if job.TargetWidth != nil || job.TargetHeight == nil || *job.TargetHeight != 240 {
		t.Errorf("size = %v x %v", job.TargetWidth, job.TargetHeight)
	}
}

func TestDecodeJob_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":       `{"task_id":`,
		"missing id":     `{"input_path":"/a","output_path":"/b"}`,
		"missing output": `{"task_id":"t","input_path":"/a"}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeJob([]byte(data)); !errors.Is(err, ErrInvalidJob) {
				t.Errorf("err = %v, want ErrInvalidJob", err)
			}
		})
	}
}
