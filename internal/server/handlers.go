package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/bigfa/pluto/internal/media"
	"github.com/bigfa/pluto/internal/storage"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service     *media.Service
	validator   *validator.Validate
	logger      *slog.Logger
	maxUploadMB int
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadMB caps the accepted multipart upload size.
func WithMaxUploadMB(n int) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadMB = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *media.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:     service,
		validator:   validator.New(),
		logger:      logger,
		maxUploadMB: 32,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Upload handles POST /media multipart requests. The file part is
// named "file"; "provider" and "folder" are optional form fields.
// Duplicate uploads return the existing asset with a duplicate flag
// rather than an error.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.maxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body", "INVALID_MULTIPART")
		return
	}

	form := UploadForm{
		Provider: r.FormValue("provider"),
		Folder:   r.FormValue("folder"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.logger.Warn("upload validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part", "MISSING_FILE")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload failed", "READ_FAILED")
		return
	}

	result, err := h.service.Ingest(r.Context(), media.IngestInput{
		Data:        data,
		Filename:    header.Filename,
		ContentType: uploadContentType(header.Header.Get("Content-Type"), header.Filename),
		Provider:    storage.Provider(form.Provider),
		Folder:      form.Folder,
	})
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, UploadResponse{
		Asset:     newAssetResponse(result.Asset),
		Duplicate: result.Duplicate,
	})
}

// GetAsset handles GET /media/{id} requests.
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, media.ErrAssetNotFound) {
			writeError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
			return
		}
		h.logger.Error("failed to load asset",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load asset", "INTERNAL_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, newAssetResponse(asset))
}

// ListAssets handles GET /media requests.
func (h *Handlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list assets",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list assets", "INTERNAL_ERROR")
		return
	}
	out := make([]AssetResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, newAssetResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// DeleteAsset handles DELETE /media/{id} requests. The storage object
// is removed before the record; a failed provider delete keeps the
// record and surfaces an error.
func (h *Handlers) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, media.ErrAssetNotFound) {
			writeError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
			return
		}
		h.logger.Error("failed to delete asset",
			slog.String("asset_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to delete asset", "DELETE_FAILED")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeIngestError maps ingestion failures onto HTTP responses.
func (h *Handlers) writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrEmptyUpload):
		writeError(w, http.StatusBadRequest, "empty upload", "EMPTY_UPLOAD")
	case errors.Is(err, media.ErrUnknownProvider):
		writeError(w, http.StatusBadRequest, "unknown storage provider", "UNKNOWN_PROVIDER")
	case errors.Is(err, storage.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "storage provider not configured", "PROVIDER_NOT_CONFIGURED")
	case errors.Is(err, storage.ErrInvalidObjectKey):
		writeError(w, http.StatusBadRequest, "invalid object key", "INVALID_OBJECT_KEY")
	default:
		h.logger.Error("ingestion failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "upload failed", "UPLOAD_FAILED")
	}
}

// uploadContentType resolves the stored MIME type from the declared
// part header, falling back to the filename extension.
func uploadContentType(declared, filename string) string {
	if declared != "" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a standard error response.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
