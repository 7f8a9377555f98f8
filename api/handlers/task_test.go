package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"imageConverter/api/dto"
	"imageConverter/api/middleware"
	"imageConverter/api/models"
	"imageConverter/converter"
)

type mockTaskService struct {
	createTaskFunc func(ctx context.Context, traceID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	getTaskFunc    func(ctx context.Context, taskID string) (*dto.TaskResponse, error)
	created        []*dto.CreateTaskRequest
}

func (m *mockTaskService) CreateTask(ctx context.Context, traceID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	m.created = append(m.created, req)
	if m.createTaskFunc != nil {
		return m.createTaskFunc(ctx, traceID, req)
	}
	taskID := uuid.New().String()
	return &dto.TaskResponse{
		ID:               taskID,
		TraceID:          traceID,
		OriginalFilename: req.OriginalFilename,
		OutputFormat:     req.OutputFormat,
		Status:           string(models.StatusPending),
		CreatedAt:        time.Now().Format("2006-01-02T15:04:05Z"),
		FilePath:         req.FilePath,
	}, nil
}

func (m *mockTaskService) GetTaskStatus(ctx context.Context, taskID string) (*dto.TaskResponse, error) {
	if m.getTaskFunc != nil {
		return m.getTaskFunc(ctx, taskID)
	}
	return &dto.TaskResponse{
		ID:        taskID,
		TraceID:   uuid.New().String(),
		Status:    string(models.StatusCompleted),
		CreatedAt: time.Now().Format("2006-01-02T15:04:05Z"),
	}, nil
}

var jpegContent = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 64)...)

func newTestHandler(t *testing.T, svc TaskService) (*TaskHandler, string) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	uploads := t.TempDir()
	return NewTaskHandler(svc, logger, Options{
		UploadsDir:  uploads,
		MaxFileSize: 1 << 20,
		Capabilities: map[converter.BackendKind]converter.Capabilities{
			converter.BackendBitmap: converter.NewBitmapBackend(logger).Capabilities(),
			converter.BackendMagick: converter.NewMagickBackend(logger, converter.DefaultMagickOptions(), nil).Capabilities(),
		},
	}), uploads
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("Failed to write field: %v", err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("Failed to write form file: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func serve(handler *TaskHandler, req *http.Request) *httptest.ResponseRecorder {
	traceID := uuid.New().String()
	req.Header.Set(middleware.TraceIDHeader, traceID)

	mux := http.NewServeMux()
	handler.Register(mux)

	rec := httptest.NewRecorder()
	middleware.TraceID(mux).ServeHTTP(rec, req)
	return rec
}

func TestTaskHandler_Convert_Success(t *testing.T) {
	mockService := &mockTaskService{}
	handler, uploads := newTestHandler(t, mockService)

	body, contentType := multipartBody(t, "test.jpg", jpegContent, map[string]string{
		"format":  "webp",
		"quality": "60",
		"width":   "320",
		"backend": "bitmap",
	})
	req := httptest.NewRequest("POST", "/convert", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(handler, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	contentTypeResp := rec.Header().Get("Content-Type")
	if contentTypeResp != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentTypeResp)
	}

	if len(mockService.created) != 1 {
		t.Fatalf("Expected one task, got %d", len(mockService.created))
	}
	got := mockService.created[0]
	if got.OutputFormat != "WEBP" || got.Quality != 60 || got.Backend != "bitmap" {
		t.Errorf("Unexpected request: %+v", got)
	}
	if got.TargetWidth == nil || *got.TargetWidth != 320 || got.TargetHeight != nil {
		t.Errorf("Unexpected size: %v x %v", got.TargetWidth, got.TargetHeight)
	}
	if filepath.Dir(got.FilePath) != uploads {
		t.Errorf("Upload stored outside uploads dir: %s", got.FilePath)
	}
	saved, err := os.ReadFile(got.FilePath)
	if err != nil || !bytes.Equal(saved, jpegContent) {
		t.Errorf("Saved upload mismatch: %v", err)
	}

	var resp dto.TaskResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != string(models.StatusPending) {
		t.Errorf("Expected pending status, got %s", resp.Status)
	}
}

func TestTaskHandler_Convert_DefaultsQualityAndBackend(t *testing.T) {
	mockService := &mockTaskService{}
	handler, _ := newTestHandler(t, mockService)

	body, contentType := multipartBody(t, "photo.jpeg", jpegContent, map[string]string{"format": "png"})
	req := httptest.NewRequest("POST", "/convert", body)
	req.Header.Set("Content-Type", contentType)

	if rec := serve(handler, req); rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	got := mockService.created[0]
	if got.Quality != converter.DefaultQuality || got.Backend != string(converter.BackendBitmap) {
		t.Errorf("Unexpected defaults: %+v", got)
	}
}

func TestTaskHandler_Convert_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		fields   map[string]string
		want     int
	}{
		{"no file", "", nil, map[string]string{"format": "png"}, http.StatusBadRequest},
		{"missing format", "test.jpg", jpegContent, nil, http.StatusBadRequest},
		{"unknown format", "test.jpg", jpegContent, map[string]string{"format": "tga"}, http.StatusBadRequest},
		{"unsupported by backend", "test.jpg", jpegContent, map[string]string{"format": "jxl", "backend": "bitmap"}, http.StatusBadRequest},
		{"unknown backend", "test.jpg", jpegContent, map[string]string{"format": "png", "backend": "gpu"}, http.StatusBadRequest},
		{"bad quality", "test.jpg", jpegContent, map[string]string{"format": "png", "quality": "101"}, http.StatusBadRequest},
		{"bad width", "test.jpg", jpegContent, map[string]string{"format": "png", "width": "-4"}, http.StatusBadRequest},
		{"zero height", "test.jpg", jpegContent, map[string]string{"format": "png", "height": "0"}, http.StatusBadRequest},
		{"huge size", "test.jpg", jpegContent, map[string]string{"format": "png", "width": "1000000", "height": "1000000"}, http.StatusBadRequest},
		{"not an image", "test.jpg", []byte("%PDF-1.7 not an image at all"), map[string]string{"format": "png"}, http.StatusBadRequest},
		{"extension mismatch", "test.png", jpegContent, map[string]string{"format": "png"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &mockTaskService{}
			handler, _ := newTestHandler(t, mockService)

			body, contentType := multipartBody(t, tt.filename, tt.content, tt.fields)
			req := httptest.NewRequest("POST", "/convert", body)
			req.Header.Set("Content-Type", contentType)

			rec := serve(handler, req)
			if rec.Code != tt.want {
				t.Errorf("Expected status %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if len(mockService.created) != 0 {
				t.Error("Task must not be created for a rejected upload")
			}
		})
	}
}

func TestTaskHandler_Convert_BodyTooLarge(t *testing.T) {
	mockService := &mockTaskService{}
	handler, _ := newTestHandler(t, mockService)
	handler.opts.MaxFileSize = 512
	handler.opts.FormMemory = 512

	content := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 4096)...)
	body, contentType := multipartBody(t, "big.jpg", content, map[string]string{"format": "png"})
	req := httptest.NewRequest("POST", "/convert", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(handler, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(mockService.created) != 0 {
		t.Error("Task must not be created for an oversized body")
	}
}

func TestTaskHandler_Convert_RepeatedTraceDropsUpload(t *testing.T) {
	mockService := &mockTaskService{
		createTaskFunc: func(ctx context.Context, traceID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
			return &dto.TaskResponse{
				ID:       "existing",
				TraceID:  traceID,
				Status:   string(models.StatusPending),
				FilePath: "/data/uploads/first_upload.jpg",
			}, nil
		},
	}
	handler, uploads := newTestHandler(t, mockService)

	body, contentType := multipartBody(t, "test.jpg", jpegContent, map[string]string{"format": "png"})
	req := httptest.NewRequest("POST", "/convert", body)
	req.Header.Set("Content-Type", contentType)

	if rec := serve(handler, req); rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	assertNoUploads(t, uploads)
}

func TestTaskHandler_Convert_CreateFailureDropsUpload(t *testing.T) {
	mockService := &mockTaskService{
		createTaskFunc: func(ctx context.Context, traceID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
			return nil, errors.New("broker down")
		},
	}
	handler, uploads := newTestHandler(t, mockService)

	body, contentType := multipartBody(t, "test.jpg", jpegContent, map[string]string{"format": "png"})
	req := httptest.NewRequest("POST", "/convert", body)
	req.Header.Set("Content-Type", contentType)

	if rec := serve(handler, req); rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d: %s", rec.Code, rec.Body.String())
	}
	assertNoUploads(t, uploads)
}

func assertNoUploads(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no stored uploads, found %d", len(entries))
	}
}

func TestTaskHandler_Convert_NotMultipart(t *testing.T) {
	handler, _ := newTestHandler(t, &mockTaskService{})

	req := httptest.NewRequest("POST", "/convert", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data")

	if rec := serve(handler, req); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestTaskHandler_Status_Success(t *testing.T) {
	taskID := uuid.New().String()

	mockService := &mockTaskService{
		getTaskFunc: func(ctx context.Context, id string) (*dto.TaskResponse, error) {
			if id != taskID {
				t.Errorf("Expected task %s, got %s", taskID, id)
			}
			return &dto.TaskResponse{
				ID:         taskID,
				Status:     string(models.StatusCompleted),
				OutputPath: "/data/outputs/" + taskID + ".webp",
			}, nil
		},
	}
	handler, _ := newTestHandler(t, mockService)

	rec := serve(handler, httptest.NewRequest("GET", "/status/"+taskID, nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}
}

func TestTaskHandler_Status_NotFound(t *testing.T) {
	mockService := &mockTaskService{
		getTaskFunc: func(ctx context.Context, id string) (*dto.TaskResponse, error) {
			return nil, dto.ErrTaskNotFound
		},
	}
	handler, _ := newTestHandler(t, mockService)

	rec := serve(handler, httptest.NewRequest("GET", "/status/"+uuid.New().String(), nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestTaskHandler_Status_EmptyTaskID(t *testing.T) {
	handler, _ := newTestHandler(t, &mockTaskService{})

	rec := serve(handler, httptest.NewRequest("GET", "/status/", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestTaskHandler_Health(t *testing.T) {
	handler, _ := newTestHandler(t, &mockTaskService{})

	rec := serve(handler, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("Unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":           "photo.jpg",
		"../../etc/passwd":    "passwd",
		"/abs/path/img.png":   "img.png",
		"dir/../../../x.webp": "x.webp",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
