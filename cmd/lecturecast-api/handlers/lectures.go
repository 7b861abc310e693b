package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/spherical/lecturecast/internal/document"
	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/lecture"
	"github.com/spherical/lecturecast/internal/observability"
)

const multipartMemory = 32 << 20

// LectureService runs the pipeline for uploaded documents.
type LectureService interface {
	Process(ctx context.Context, req lecture.RunRequest) (*domain.PipelineResult, domain.ResultPayload, error)
}

// LectureHandler accepts document uploads and returns the finished lecture.
type LectureHandler struct {
	logger    *observability.Logger
	service   LectureService
	uploadDir string
	maxBytes  int64
}

// NewLectureHandler creates a new lecture handler.
func NewLectureHandler(logger *observability.Logger, service LectureService, uploadDir string, maxBytes int64) *LectureHandler {
	return &LectureHandler{
		logger:    logger.WithComponent("lectures"),
		service:   service,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
	}
}

// Upload handles POST /upload and POST /api/v1/lectures.
// The multipart field "file" must be a .pdf or .pptx; the run is synchronous.
func (h *LectureHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error(), string(domain.ErrorTypeValidation))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required", string(domain.ErrorTypeValidation))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if _, err := document.DetectFormat(name); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	uploadID := uuid.NewString()
	dst, err := h.save(file, uploadID, name)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.logger.Info().
		Str("upload_id", uploadID).
		Str("filename", name).
		Int64("bytes", header.Size).
		Msg("upload stored, starting run")

	_, payload, err := h.service.Process(r.Context(), lecture.RunRequest{
		SourcePath: dst,
		Namespace:  uploadID,
		Filename:   name,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

func (h *LectureHandler) save(src io.Reader, uploadID, name string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", domain.IOError("failed to create upload dir", err)
	}

	dst := filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s", uploadID, name))
	f, err := os.Create(dst)
	if err != nil {
		return "", domain.IOError("failed to store upload", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(dst)
		return "", domain.IOError("failed to store upload", err)
	}
	if err := f.Close(); err != nil {
		return "", domain.IOError("failed to store upload", err)
	}
	return dst, nil
}
