package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/service"
)

const (
	dateLayout = "2006-01-02"
	// multipart parts above this stay on disk while parsing
	uploadMemory = 32 << 20
)

// UploadHandlers serves file uploads and templates.
type UploadHandlers struct {
	uploads *service.UploadService
	logger  *zap.Logger
}

// NewUploadHandlers returns handler.
func NewUploadHandlers(uploads *service.UploadService, logger *zap.Logger) *UploadHandlers {
	return &UploadHandlers{uploads: uploads, logger: logger}
}

// Upload handles POST /api/upload as multipart/form-data.
func (h *UploadHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*service.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart/form-data")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req, err := service.ReadUploadForm(r.MultipartForm)
	if err != nil {
		writeServiceError(w, h.logger, "read upload", err)
		return
	}
	env, err := h.uploads.Upload(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "upload", err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// Template handles GET /api/upload/template?fileType=1.
func (h *UploadHandlers) Template(w http.ResponseWriter, r *http.Request) {
	blob, err := h.uploads.Template(r.Context(), queryInt(r, "fileType", 0))
	if err != nil {
		writeServiceError(w, h.logger, "template", err)
		return
	}
	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": blob.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}

// Files handles GET /api/upload/files?fileType=1.
func (h *UploadHandlers) Files(w http.ResponseWriter, r *http.Request) {
	files, err := h.uploads.UploadedFiles(r.Context(), queryInt(r, "fileType", 0))
	if err != nil {
		writeServiceError(w, h.logger, "uploaded files", err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// Sessions handles GET /api/upload/sessions?from=2024-01-01&to=2024-01-31.
func (h *UploadHandlers) Sessions(w http.ResponseWriter, r *http.Request) {
	from, errFrom := time.ParseInLocation(dateLayout, r.URL.Query().Get("from"), time.Local)
	to, errTo := time.ParseInLocation(dateLayout, r.URL.Query().Get("to"), time.Local)
	if errFrom != nil || errTo != nil {
		writeError(w, http.StatusBadRequest, "from and to must be YYYY-MM-DD")
		return
	}
	sessions, err := h.uploads.Sessions(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, h.logger, "upload sessions", err)
		return
	}
	if sessions == nil {
		sessions = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, sessions)
}
