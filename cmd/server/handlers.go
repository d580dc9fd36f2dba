package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brunobiangulo/rpdextract"
)

// maxBatchFiles bounds /rpd/upload-multiple.
const maxBatchFiles = 20

type handler struct {
	proc     rpdextract.Processor
	maxBytes int64
	allowed  map[string]bool
}

func newHandler(p rpdextract.Processor, maxBytes int64) *handler {
	h := &handler{proc: p, maxBytes: maxBytes, allowed: map[string]bool{}}
	for _, f := range p.SupportedFormats() {
		h.allowed[f.Extension] = true
	}
	return h
}

func (h *handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rpd/upload", h.handleUpload)
	mux.HandleFunc("POST /rpd/upload-multiple", h.handleUploadMultiple)
	mux.HandleFunc("GET /rpd/supported-formats", h.handleSupportedFormats)
	mux.HandleFunc("POST /rpd/validate-structure", h.handleValidateStructure)
	mux.HandleFunc("GET /rpd/processing-stats", h.handleProcessingStats)
	mux.HandleFunc("GET /rpd/documents/{id}", h.handleGetDocument)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}

// POST /rpd/upload
// Multipart upload with a single "file" field.
func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	dir, cleanup, err := h.tempDir()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process file")
		return
	}
	defer cleanup()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart form with 'file'")
		return
	}
	defer r.MultipartForm.RemoveAll()

	fh, err := singleFile(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	path, status, err := h.save(dir, fh)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	res := h.proc.ProcessFile(ctx, path)
	res.FilePath = filepath.Base(path)
	status = http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// POST /rpd/upload-multiple
// Multipart upload with one or more "files" fields.
func (h *handler) handleUploadMultiple(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	dir, cleanup, err := h.tempDir()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process files")
		return
	}
	defer cleanup()

	r.Body = http.MaxBytesReader(w, r.Body, maxBatchFiles*h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart form with 'files'")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "at least one file is required")
		return
	}
	if len(headers) > maxBatchFiles {
		writeError(w, http.StatusBadRequest, "too many files")
		return
	}

	paths := make([]string, 0, len(headers))
	for i, fh := range headers {
		// Each file gets its own directory so equal names do not collide.
		sub := filepath.Join(dir, strconv.Itoa(i))
		if err := os.Mkdir(sub, 0o700); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to process files")
			return
		}
		path, status, err := h.save(sub, fh)
		if err != nil {
			writeError(w, status, err.Error())
			return
		}
		paths = append(paths, path)
	}

	results := h.proc.ProcessFiles(ctx, paths)
	for _, res := range results {
		res.FilePath = filepath.Base(res.FilePath)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"summary": rpdextract.Summarize(results),
	})
}

// GET /rpd/supported-formats
func (h *handler) handleSupportedFormats(w http.ResponseWriter, r *http.Request) {
	formats := map[string]string{}
	for _, f := range h.proc.SupportedFormats() {
		formats[f.Extension] = f.Description
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"supported_formats": formats,
		"max_file_size_mb":  h.maxBytes >> 20,
	})
}

// POST /rpd/validate-structure
func (h *handler) handleValidateStructure(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	dir, cleanup, err := h.tempDir()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process file")
		return
	}
	defer cleanup()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart form with 'file'")
		return
	}
	defer r.MultipartForm.RemoveAll()

	fh, err := singleFile(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	path, status, err := h.save(dir, fh)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	report, err := h.proc.ValidateStructure(ctx, path)
	if err != nil {
		slog.Warn("structure validation failed", "file", fh.Filename, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"filename":  filepath.Base(path),
			"parseable": false,
			"error":     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename":  filepath.Base(path),
		"structure": report,
	})
}

// GET /rpd/processing-stats
func (h *handler) handleProcessingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.proc.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		slog.Error("stats error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /rpd/documents/{id}
func (h *handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ex, err := h.proc.Document(r.Context(), id)
	switch {
	case errors.Is(err, rpdextract.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "document not found")
		return
	case errors.Is(err, rpdextract.ErrPersistenceDisabled):
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to load document")
		slog.Error("get document error", "document_id", id, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// tempDir creates a per-request upload directory.
func (h *handler) tempDir() (string, func(), error) {
	dir, err := os.MkdirTemp("", "rpd-upload-*")
	if err != nil {
		slog.Error("creating upload dir", "error", err)
		return "", nil, err
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

func singleFile(r *http.Request, field string) (*multipart.FileHeader, error) {
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, errors.New(field + " is required")
	}
	return files[0], nil
}

// save copies an uploaded file into dir under its sanitised name. It
// returns an HTTP status to report on failure.
func (h *handler) save(dir string, fh *multipart.FileHeader) (string, int, error) {
	// Sanitise filename to prevent path traversal.
	name := filepath.Base(filepath.Clean("/" + fh.Filename))
	if name == "/" || name == "." {
		return "", http.StatusBadRequest, errors.New("file name is required")
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !h.allowed[ext] {
		return "", http.StatusBadRequest, errors.New("unsupported file format: " + ext)
	}
	if fh.Size > h.maxBytes {
		return "", http.StatusRequestEntityTooLarge, errors.New("file too large")
	}

	src, err := fh.Open()
	if err != nil {
		return "", http.StatusBadRequest, errors.New("failed to read upload")
	}
	defer src.Close()

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		slog.Error("creating temp file", "error", err)
		return "", http.StatusInternalServerError, errors.New("failed to process file")
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		slog.Error("saving uploaded file", "error", err)
		return "", http.StatusInternalServerError, errors.New("failed to save file")
	}
	if err := dst.Close(); err != nil {
		return "", http.StatusInternalServerError, errors.New("failed to save file")
	}
	return path, 0, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
