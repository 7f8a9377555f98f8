package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imageConverter/api/dto"
	"imageConverter/api/middleware"
	"imageConverter/api/validation"
	"imageConverter/converter"
)

const defaultFormMemory = 32 << 20

type TaskService interface {
	CreateTask(ctx context.Context, traceID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	GetTaskStatus(ctx context.Context, taskID string) (*dto.TaskResponse, error)
}

type Options struct {
	UploadsDir  string
	MaxFileSize int64
	// FormMemory is the multipart memory budget; zero means 32 MiB.
	FormMemory int64
	// Capabilities holds the format table of every backend jobs may use.
	Capabilities map[converter.BackendKind]converter.Capabilities
}

type TaskHandler struct {
	service TaskService
	logger  *zap.Logger
	opts    Options
}

func NewTaskHandler(service TaskService, logger *zap.Logger, opts Options) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  logger,
		opts:    opts,
	}
}

func (h *TaskHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /convert", h.Convert)
	mux.HandleFunc("GET /status/{id}", h.Status)
	mux.HandleFunc("GET /status/", h.Status)
	mux.HandleFunc("GET /health", h.Health)
}

// Convert accepts a multipart upload with the fields file, format, quality,
// width, height and backend, stores the file and queues a conversion task.
func (h *TaskHandler) Convert(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	formMemory := h.opts.FormMemory
	if formMemory <= 0 {
		formMemory = defaultFormMemory
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxFileSize+formMemory)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.handleError(w, "Request body too large", err, traceID, http.StatusRequestEntityTooLarge)
			return
		}
		h.handleError(w, "Failed to parse form", err, traceID, http.StatusBadRequest)
		return
	}

	params, err := h.parseParams(r)
	if err != nil {
		h.handleError(w, "Invalid conversion parameters", err, traceID, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.handleError(w, "Failed to get file", err, traceID, http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileType, err := validation.ValidateUpload(header.Filename, header.Size, h.opts.MaxFileSize, file)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, validation.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.handleError(w, "Invalid file", err, traceID, status)
		return
	}

	filePath := filepath.Join(h.opts.UploadsDir, uuid.NewString()+"_"+sanitizeFilename(header.Filename))
	if err := saveUpload(filePath, file); err != nil {
		h.handleError(w, "Failed to save file", err, traceID, http.StatusInternalServerError)
		return
	}

	params.OriginalFilename = header.Filename
	params.FilePath = filePath

	resp, err := h.service.CreateTask(r.Context(), traceID, params)
	if err != nil {
		removeUpload(filePath)
		h.handleError(w, "Failed to create task", err, traceID, http.StatusInternalServerError)
		return
	}
	if resp.FilePath != filePath {
		// The trace already has a task with its own upload.
		removeUpload(filePath)
	}

	h.logger.Info("File uploaded",
		zap.String("trace_id", traceID),
		zap.String("task_id", resp.ID),
		zap.String("filename", header.Filename),
		zap.String("detected_type", string(fileType)),
		zap.String("format", params.OutputFormat),
		zap.String("backend", params.Backend),
	)

	h.respondJSON(w, http.StatusCreated, resp)
}

func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	taskID := r.PathValue("id")
	if taskID == "" {
		h.handleError(w, "Task ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetTaskStatus(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, dto.ErrTaskNotFound) {
			h.handleError(w, "Task not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get task status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *TaskHandler) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// parseParams reads the conversion fields and checks them against the
// chosen backend's format table.
func (h *TaskHandler) parseParams(r *http.Request) (*dto.CreateTaskRequest, error) {
	format, err := converter.ParseFormat(r.FormValue("format"))
	if err != nil {
		return nil, err
	}

	backend, err := converter.ParseBackend(r.FormValue("backend"))
	if err != nil {
		return nil, err
	}
	caps, ok := h.opts.Capabilities[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %s", converter.ErrUnknownBackend, backend)
	}
	if err := caps.Check(backend, format); err != nil {
		return nil, err
	}

	quality := converter.DefaultQuality
	if v := r.FormValue("quality"); v != "" {
		quality, err = strconv.Atoi(v)
		if err != nil || quality < 0 || quality > 100 {
			return nil, fmt.Errorf("%w: %q", converter.ErrInvalidQuality, v)
		}
	}

	width, err := optionalSize(r.FormValue("width"))
	if err != nil {
		return nil, err
	}
	height, err := optionalSize(r.FormValue("height"))
	if err != nil {
		return nil, err
	}

	return &dto.CreateTaskRequest{
		OutputFormat: format.String(),
		Quality:      quality,
		TargetWidth:  width,
		TargetHeight: height,
		Backend:      string(backend),
	}, nil
}

func optionalSize(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || !converter.ValidDimension(n) {
		return nil, fmt.Errorf("%w: %q", converter.ErrInvalidSize, v)
	}
	return &n, nil
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

func removeUpload(path string) {
	_ = os.Remove(path)
}

func sanitizeFilename(filename string) string {
	return filepath.Base(filepath.Clean("/" + filename))
}

func (h *TaskHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
